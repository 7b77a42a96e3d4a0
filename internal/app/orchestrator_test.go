package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"scenic/internal/geo"
	"scenic/internal/library"
	"scenic/internal/model"
	"scenic/internal/search"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerCall struct {
	result model.RoadResult
	err    error
}

type fakeProvider struct {
	queries []model.LocationQuery
	answers []providerCall
	key     string
}

func (p *fakeProvider) FindRoads(ctx context.Context, q model.LocationQuery) (model.RoadResult, error) {
	p.queries = append(p.queries, q)
	if len(p.answers) == 0 {
		return model.RoadResult{}, errors.New("no canned answer")
	}
	next := p.answers[0]
	p.answers = p.answers[1:]
	return next.result, next.err
}

func (p *fakeProvider) SetAPIKey(key string) { p.key = key }

type fakeLocator struct {
	calls     int
	positions []model.Position
	err       error
}

func (l *fakeLocator) Locate(ctx context.Context) (model.Position, error) {
	l.calls++
	if l.err != nil {
		return model.Position{}, l.err
	}
	pos := l.positions[0]
	if len(l.positions) > 1 {
		l.positions = l.positions[1:]
	}
	return pos, nil
}

type memStorage map[string]string

func (m memStorage) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStorage) Set(key, value string) error {
	m[key] = value
	return nil
}

var (
	dragon = model.Road{Name: "Tail of the Dragon", Description: []string{"318 curves"}, StartLat: 35.4676, StartLon: -83.9215, EndLat: 35.5227, EndLon: -84.0215}
	skyway = model.Road{Name: "Cherohala Skyway", StartLat: 35.3357, StartLon: -84.1280, EndLat: 35.2866, EndLon: -83.8710}
)

func newTestOrchestrator(p *fakeProvider, l *fakeLocator) *Orchestrator {
	logger := log.New(io.Discard)
	return New(Config{
		Provider: p,
		Keys:     p,
		Locator:  l,
		Library:  library.Open(memStorage{}, logger),
		Logger:   logger,
		KeyReady: true,
	})
}

// drive runs cmd and every follow-up command synchronously, the way the
// Bubble Tea runtime would deliver their messages.
func drive(o *Orchestrator, cmd tea.Cmd) {
	for cmd != nil {
		cmd = o.Handle(cmd())
	}
}

func ok(roads ...model.Road) providerCall {
	return providerCall{result: model.RoadResult{Roads: roads}}
}

func fail(err error) providerCall {
	return providerCall{err: err}
}

func TestSubmitDestinationSuccess(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{ok(dragon, skyway)}}
	o := newTestOrchestrator(p, &fakeLocator{})

	cmd := o.SubmitDestination("Asheville, NC")
	assert.Equal(t, model.ScreenLoading, o.Screen())
	assert.Equal(t, "Searching for roads near Asheville, NC...", o.LoadingMessage())
	require.NotNil(t, o.LastQuery())
	assert.Equal(t, model.AddressQuery("Asheville, NC"), *o.LastQuery())

	drive(o, cmd)

	assert.Equal(t, model.ScreenSuccess, o.Screen())
	require.NotNil(t, o.Result())
	assert.Equal(t, []model.Road{dragon, skyway}, o.Result().Roads)
	assert.Empty(t, o.Err())
	assert.Equal(t, []model.LocationQuery{model.AddressQuery("Asheville, NC")}, p.queries)
}

func TestEmptyResultIsAnError(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{{result: model.RoadResult{Roads: []model.Road{}, Sources: []model.GroundingChunk{}}}}}
	o := newTestOrchestrator(p, &fakeLocator{})

	drive(o, o.ExecuteSearch(model.AddressQuery("Nowhere")))

	assert.Equal(t, model.ScreenError, o.Screen())
	assert.Equal(t, MsgNoSuggestions, o.Err())
	assert.Nil(t, o.Result())
	require.NotNil(t, o.LastQuery(), "empty result stays retryable")
}

func TestProviderFailureMessages(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{fail(search.ErrUpstream), fail(errors.New(""))}}
	o := newTestOrchestrator(p, &fakeLocator{})

	drive(o, o.SubmitDestination("Big Sur"))
	assert.Equal(t, model.ScreenError, o.Screen())
	assert.Equal(t, search.ErrUpstream.Error(), o.Err())

	drive(o, o.Retry())
	assert.Equal(t, model.ScreenError, o.Screen())
	assert.Equal(t, MsgSearchFailed, o.Err())
	assert.Equal(t, model.AddressQuery("Big Sur"), *o.LastQuery())
}

func TestRetryReplaysAddressQuery(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{fail(search.ErrUpstream), ok(dragon)}}
	l := &fakeLocator{}
	o := newTestOrchestrator(p, l)

	drive(o, o.SubmitDestination("Asheville, NC"))
	require.Equal(t, model.ScreenError, o.Screen())

	cmd := o.Retry()
	assert.Equal(t, model.ScreenLoading, o.Screen())
	drive(o, cmd)

	assert.Equal(t, model.ScreenSuccess, o.Screen())
	require.Len(t, p.queries, 2)
	assert.Equal(t, model.AddressQuery("Asheville, NC"), p.queries[1])
	assert.Zero(t, l.calls, "address retry never touches the locator")
}

func TestRetryReacquiresPositionForCoords(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{fail(search.ErrUpstream), ok(dragon)}}
	l := &fakeLocator{positions: []model.Position{{Lat: 35.1, Lon: -83.1}, {Lat: 36.2, Lon: -84.2}}}
	o := newTestOrchestrator(p, l)

	cmd := o.UseCurrentLocation()
	assert.Equal(t, model.ScreenLoading, o.Screen())
	assert.Equal(t, MsgLocating, o.LoadingMessage())

	// Position arrives; the follow-up search is issued with a new loading message.
	cmd = o.Handle(cmd())
	assert.Equal(t, MsgSearchingNearby, o.LoadingMessage())
	drive(o, cmd)
	require.Equal(t, model.ScreenError, o.Screen())

	drive(o, o.Retry())

	assert.Equal(t, model.ScreenSuccess, o.Screen())
	assert.Equal(t, 2, l.calls)
	require.Len(t, p.queries, 2)
	assert.Equal(t, model.CoordsQuery(35.1, -83.1), p.queries[0])
	assert.Equal(t, model.CoordsQuery(36.2, -84.2), p.queries[1], "retry uses the fresh position")
}

func TestRetryWithoutQueryIsNoop(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, &fakeLocator{})
	assert.Nil(t, o.Retry())
	assert.Equal(t, model.ScreenWelcome, o.Screen())
}

func TestGeolocationFailureMapping(t *testing.T) {
	tests := []struct {
		reason model.GeoFailure
		want   string
	}{
		{model.GeoPermissionDenied, MsgPermissionDenied},
		{model.GeoPositionUnavailable, MsgPositionUnavailable},
		{model.GeoTimeout, MsgLocationTimeout},
		{model.GeoOther, MsgLocationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			p := &fakeProvider{}
			o := newTestOrchestrator(p, &fakeLocator{err: &geo.LocateError{Reason: tt.reason}})

			drive(o, o.UseCurrentLocation())

			assert.Equal(t, model.ScreenError, o.Screen())
			assert.Equal(t, tt.want, o.Err())
			assert.Nil(t, o.LastQuery(), "no query was formed")
			assert.Empty(t, p.queries)
		})
	}
}

func TestResetClearsEverything(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{ok(dragon), fail(search.ErrUpstream)}}
	o := newTestOrchestrator(p, &fakeLocator{})

	drive(o, o.SubmitDestination("A"))
	require.Equal(t, model.ScreenSuccess, o.Screen())
	o.Reset()
	assertCleanWelcome(t, o)

	drive(o, o.SubmitDestination("B"))
	require.Equal(t, model.ScreenError, o.Screen())
	o.Reset()
	assertCleanWelcome(t, o)

	o.OpenLibrary()
	require.Equal(t, model.ScreenLibrary, o.Screen())
	o.Back()
	assertCleanWelcome(t, o)

	o.EnterDestination()
	require.Equal(t, model.ScreenDestinationInput, o.Screen())
	o.Back()
	assertCleanWelcome(t, o)
}

func assertCleanWelcome(t *testing.T, o *Orchestrator) {
	t.Helper()
	assert.Equal(t, model.ScreenWelcome, o.Screen())
	assert.Nil(t, o.Result())
	assert.Empty(t, o.Err())
	assert.Nil(t, o.LastQuery())
}

func TestEveryScreenReachableFromWelcome(t *testing.T) {
	reached := map[model.Screen]bool{}
	p := &fakeProvider{answers: []providerCall{ok(dragon), fail(search.ErrUpstream)}}
	o := newTestOrchestrator(p, &fakeLocator{})
	reached[o.Screen()] = true

	o.EnterDestination()
	reached[o.Screen()] = true

	cmd := o.SubmitDestination("A")
	reached[o.Screen()] = true
	drive(o, cmd)
	reached[o.Screen()] = true

	o.OpenLibrary()
	reached[o.Screen()] = true
	o.Back()

	drive(o, o.SubmitDestination("B"))
	reached[o.Screen()] = true

	for _, s := range []model.Screen{
		model.ScreenWelcome, model.ScreenDestinationInput, model.ScreenLoading,
		model.ScreenSuccess, model.ScreenError, model.ScreenLibrary,
	} {
		assert.True(t, reached[s], "screen %s not reached", s)
	}
}

func TestEnterDestinationOnlyFromWelcome(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, &fakeLocator{})
	o.OpenLibrary()
	o.EnterDestination()
	assert.Equal(t, model.ScreenLibrary, o.Screen())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{ok(dragon), ok(skyway)}}
	o := newTestOrchestrator(p, &fakeLocator{})

	slow := o.SubmitDestination("first")
	fast := o.SubmitDestination("second")

	drive(o, fast)
	require.Equal(t, model.ScreenSuccess, o.Screen())

	// The first request completes late; its answer must not replace the newer one.
	assert.Nil(t, o.Handle(slow()))
	assert.Equal(t, []model.Road{dragon}, o.Result().Roads)
	assert.Equal(t, model.AddressQuery("second"), *o.LastQuery())
}

func TestResetDropsInFlightSearch(t *testing.T) {
	p := &fakeProvider{answers: []providerCall{ok(dragon)}}
	o := newTestOrchestrator(p, &fakeLocator{})

	cmd := o.SubmitDestination("A")
	o.Reset()
	drive(o, cmd)

	assertCleanWelcome(t, o)
}

func TestOpenLibraryDropsInFlightLocation(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, &fakeLocator{positions: []model.Position{{Lat: 1, Lon: 1}}})

	cmd := o.UseCurrentLocation()
	o.OpenLibrary()
	drive(o, cmd)

	assert.Equal(t, model.ScreenLibrary, o.Screen())
}

func TestAuthorizationFailuresReturnToWelcome(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		notice string
	}{
		{"missing key", search.ErrMissingAPIKey, MsgKeyRequired},
		{"invalid key", search.ErrInvalidAPIKey, MsgKeyInvalid},
		{"invalid key by message", errors.New("rpc error: Requested entity was not found."), MsgKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{answers: []providerCall{fail(tt.err), ok(dragon)}}
			o := newTestOrchestrator(p, &fakeLocator{})

			drive(o, o.SubmitDestination("A"))

			assert.Equal(t, model.ScreenWelcome, o.Screen())
			assert.False(t, o.KeyReady())
			assert.Equal(t, tt.notice, o.Notice())
			assert.Empty(t, o.Err())

			o.SelectKey("fresh-key")
			assert.True(t, o.KeyReady(), "key is assumed good immediately")
			assert.Empty(t, o.Notice())
			assert.Equal(t, "fresh-key", p.key)

			drive(o, o.Retry())
			assert.Equal(t, model.ScreenSuccess, o.Screen())
		})
	}
}

func TestLibraryDelegation(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, &fakeLocator{})

	require.NoError(t, o.SaveRoad(dragon))
	require.NoError(t, o.SaveRoad(dragon))
	assert.True(t, o.IsSaved(dragon))
	assert.Equal(t, 1, o.LibraryCount())

	require.NoError(t, o.RemoveRoad(dragon))
	assert.False(t, o.IsSaved(dragon))
	assert.Empty(t, o.Library())
}
