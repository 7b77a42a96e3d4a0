package util

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"scenic/internal/model"
)

// FormatDistance formats a distance given in km or miles, e.g. "12.3 km" or "7.6 mi".
// Values under ten keep one decimal; larger values are rounded.
func FormatDistance(v float64, miles bool) string {
	unit := "km"
	if miles {
		unit = "mi"
	}
	if v < 0 {
		return "—"
	}
	if v < 10 {
		return formatNumber(v) + " " + unit
	}
	return strconv.FormatFloat(v, 'f', 0, 64) + " " + unit
}

// FormatCoords formats a coordinate pair as "35.4676, -83.9215".
func FormatCoords(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// FormatQuery describes a query for headers and logs.
func FormatQuery(q *model.LocationQuery) string {
	if q == nil {
		return ""
	}
	if q.Kind == model.QueryCoords {
		return "near " + FormatCoords(q.Lat, q.Lon)
	}
	return "near " + q.Address
}

// DirectionsURL builds a Google Maps directions link that drives through the
// road from its start to its end. An address query becomes the origin.
func DirectionsURL(road model.Road, q *model.LocationQuery) string {
	params := url.Values{}
	params.Set("api", "1")
	if q != nil && q.Kind == model.QueryAddress {
		params.Set("origin", q.Address)
	}
	params.Set("destination", fmt.Sprintf("%v,%v", road.EndLat, road.EndLon))
	params.Set("waypoints", fmt.Sprintf("%v,%v", road.StartLat, road.StartLon))
	return "https://www.google.com/maps/dir/?" + params.Encode()
}

func formatNumber(v float64) string {
	// Keep one decimal at most, but avoid trailing .0 for whole values.
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
