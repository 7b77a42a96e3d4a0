package geo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scenic/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLocatorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","lat":35.59,"lon":-82.55}`)
	}))
	defer srv.Close()

	pos, err := NewIPLocator(srv.URL, time.Second).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Position{Lat: 35.59, Lon: -82.55}, pos)
}

func TestIPLocatorFailureReasons(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    model.GeoFailure
	}{
		{
			name:    "lookup refused",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			want:    model.GeoPermissionDenied,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    model.GeoPositionUnavailable,
		},
		{
			name: "lookup failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"fail","message":"private range"}`)
			},
			want: model.GeoPositionUnavailable,
		},
		{
			name:    "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "<html>") },
			want:    model.GeoOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewIPLocator(srv.URL, time.Second).Locate(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, Reason(err))
		})
	}
}

func TestIPLocatorTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewIPLocator(srv.URL, 50*time.Millisecond).Locate(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.GeoTimeout, Reason(err))
}

func TestStaticAndDeniedLocators(t *testing.T) {
	pos, err := StaticLocator{Position: model.Position{Lat: 1, Lon: 2}}.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Position{Lat: 1, Lon: 2}, pos)

	_, err = DeniedLocator{}.Locate(context.Background())
	assert.Equal(t, model.GeoPermissionDenied, Reason(err))

	assert.Equal(t, model.GeoOther, Reason(errors.New("boom")))
}

func TestDistances(t *testing.T) {
	// One degree of latitude is roughly 111 km.
	road := model.Road{StartLat: 35, StartLon: -83, EndLat: 36, EndLon: -83}
	assert.InDelta(t, 111.2, Convert(RoadSpan(road), false), 0.5)
	assert.InDelta(t, 69.1, Convert(RoadSpan(road), true), 0.5)

	assert.InDelta(t, 0, DistanceFrom(model.Position{Lat: 35, Lon: -83}, road), 1e-6)
}
