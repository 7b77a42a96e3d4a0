// Package geo resolves the user's approximate position and measures roads.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"scenic/internal/model"
)

const DefaultIPEndpoint = "http://ip-api.com/json/?fields=status,message,lat,lon"

// LocateError is a failed position request.
type LocateError struct {
	Reason model.GeoFailure
	Err    error
}

func (e *LocateError) Error() string {
	if e.Err == nil {
		return "locate: " + e.Reason.String()
	}
	return fmt.Sprintf("locate: %s: %v", e.Reason, e.Err)
}

func (e *LocateError) Unwrap() error { return e.Err }

// Reason extracts the failure reason from err, defaulting to GeoOther.
func Reason(err error) model.GeoFailure {
	var le *LocateError
	if errors.As(err, &le) {
		return le.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.GeoTimeout
	}
	return model.GeoOther
}

// IPLocator estimates the position from the public IP address.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
}

// NewIPLocator creates a locator querying an ip-api compatible endpoint.
func NewIPLocator(endpoint string, timeout time.Duration) *IPLocator {
	if endpoint == "" {
		endpoint = DefaultIPEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IPLocator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Locate performs a one-shot lookup.
func (l *IPLocator) Locate(ctx context.Context) (model.Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return model.Position{}, &LocateError{Reason: model.GeoOther, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return model.Position{}, &LocateError{Reason: model.GeoTimeout, Err: err}
		}
		return model.Position{}, &LocateError{Reason: model.GeoPositionUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return model.Position{}, &LocateError{Reason: model.GeoPermissionDenied, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Position{}, &LocateError{Reason: model.GeoPositionUnavailable, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Position{}, &LocateError{Reason: model.GeoOther, Err: fmt.Errorf("JSON decode error: %w", err)}
	}
	if body.Status != "" && body.Status != "success" {
		return model.Position{}, &LocateError{Reason: model.GeoPositionUnavailable, Err: errors.New(body.Message)}
	}
	return model.Position{Lat: body.Lat, Lon: body.Lon}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// StaticLocator always answers with a configured position.
type StaticLocator struct {
	Position model.Position
}

// Locate returns the configured position.
func (l StaticLocator) Locate(ctx context.Context) (model.Position, error) {
	if err := ctx.Err(); err != nil {
		return model.Position{}, &LocateError{Reason: Reason(err), Err: err}
	}
	return l.Position, nil
}

// DeniedLocator is used when the user has not allowed location lookups.
type DeniedLocator struct{}

// Locate always fails with GeoPermissionDenied.
func (DeniedLocator) Locate(context.Context) (model.Position, error) {
	return model.Position{}, &LocateError{Reason: model.GeoPermissionDenied}
}
