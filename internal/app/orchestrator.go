// Package app holds the search orchestrator: the screen state machine that
// turns user actions into provider and locator requests and their outcomes
// into screen state.
//
// Every transition is a method that updates the orchestrator and returns the
// tea.Cmd performing any slow work. The command's result message goes back in
// through Handle. Nothing here renders; internal/ui reads the accessors.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scenic/internal/geo"
	"scenic/internal/library"
	"scenic/internal/model"
	"scenic/internal/search"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// User-facing messages.
const (
	MsgLocating            = "Getting your location..."
	MsgSearchingNearby     = "Searching for roads near you..."
	MsgSearching           = "Searching for roads..."
	MsgNoSuggestions       = "The model returned no road suggestions. Try a different, more general location."
	MsgSearchFailed        = "An unknown error occurred while searching for roads."
	MsgPermissionDenied    = "Location permission denied. Please enable location lookups in your settings to use this feature."
	MsgPositionUnavailable = "Location information is unavailable."
	MsgLocationTimeout     = "The request to get user location timed out."
	MsgLocationFailed      = "Could not get your location."
	MsgKeyRequired         = "You must select an API key to proceed. Please try again."
	MsgKeyInvalid          = "Your API Key appears to be invalid. Please select a valid key to continue."
)

// Provider returns road recommendations for a query.
type Provider interface {
	FindRoads(ctx context.Context, q model.LocationQuery) (model.RoadResult, error)
}

// KeyHolder accepts a new provider credential.
type KeyHolder interface {
	SetAPIKey(key string)
}

// Locator performs a one-shot position request.
type Locator interface {
	Locate(ctx context.Context) (model.Position, error)
}

// Config wires an Orchestrator.
type Config struct {
	Provider      Provider
	Keys          KeyHolder
	Locator       Locator
	Library       *library.Store
	Logger        *log.Logger
	SearchTimeout time.Duration
	LocateTimeout time.Duration
	// KeyReady is the initial authorization state.
	KeyReady bool
}

// Orchestrator owns the screen state of one session.
type Orchestrator struct {
	provider      Provider
	keys          KeyHolder
	locator       Locator
	library       *library.Store
	logger        *log.Logger
	searchTimeout time.Duration
	locateTimeout time.Duration

	screen    model.Screen
	result    *model.RoadResult
	err       string
	loading   string
	lastQuery *model.LocationQuery
	keyReady  bool
	notice    string

	// gen identifies the request whose completion is still wanted.
	gen       uint64
	cancel    context.CancelFunc
	requestID string
	started   time.Time
}

// New creates an orchestrator on the welcome screen.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		provider:      cfg.Provider,
		keys:          cfg.Keys,
		locator:       cfg.Locator,
		library:       cfg.Library,
		logger:        logger,
		searchTimeout: cfg.SearchTimeout,
		locateTimeout: cfg.LocateTimeout,
		screen:        model.ScreenWelcome,
		keyReady:      cfg.KeyReady,
	}
}

// Screen returns the active screen.
func (o *Orchestrator) Screen() model.Screen { return o.screen }

// Result returns the last successful result, or nil.
func (o *Orchestrator) Result() *model.RoadResult { return o.result }

// Err returns the current error message.
func (o *Orchestrator) Err() string { return o.err }

// LoadingMessage returns the transient loading status.
func (o *Orchestrator) LoadingMessage() string { return o.loading }

// LastQuery returns the query a retry would replay, or nil.
func (o *Orchestrator) LastQuery() *model.LocationQuery { return o.lastQuery }

// KeyReady reports whether the provider credential is believed usable.
// It is set optimistically by SelectKey and cleared by the next authorization failure.
func (o *Orchestrator) KeyReady() bool { return o.keyReady }

// Notice returns the message explaining why a new key is needed.
func (o *Orchestrator) Notice() string { return o.notice }

// ExecuteSearch records q as the last query and asks the provider for roads.
func (o *Orchestrator) ExecuteSearch(q model.LocationQuery) tea.Cmd {
	o.lastQuery = &q
	o.err = ""
	o.result = nil
	o.screen = model.ScreenLoading
	if o.loading == "" {
		o.loading = MsgSearching
	}

	gen, ctx := o.begin(o.searchTimeout)
	o.logger.Info("Searching for roads", "request", o.requestID, "kind", q.Kind, "gen", gen)

	provider := o.provider
	return func() tea.Msg {
		result, err := provider.FindRoads(ctx, q)
		if err != nil {
			return model.SearchFailedMsg{Gen: gen, Err: err}
		}
		return model.SearchResultMsg{Gen: gen, Result: result}
	}
}

// UseCurrentLocation requests the device position and searches around it.
func (o *Orchestrator) UseCurrentLocation() tea.Cmd {
	o.loading = MsgLocating
	o.screen = model.ScreenLoading

	gen, ctx := o.begin(o.locateTimeout)
	o.logger.Info("Requesting position", "request", o.requestID, "gen", gen)

	locator := o.locator
	return func() tea.Msg {
		pos, err := locator.Locate(ctx)
		if err != nil {
			return model.PositionFailedMsg{Gen: gen, Err: err}
		}
		return model.PositionMsg{Gen: gen, Position: pos}
	}
}

// SubmitDestination searches around a typed destination. The caller trims and
// rejects empty input.
func (o *Orchestrator) SubmitDestination(text string) tea.Cmd {
	o.loading = fmt.Sprintf("Searching for roads near %s...", text)
	return o.ExecuteSearch(model.AddressQuery(text))
}

// Retry replays the last query. Coordinates are re-acquired rather than reused.
func (o *Orchestrator) Retry() tea.Cmd {
	if o.lastQuery == nil {
		return nil
	}
	if o.lastQuery.Kind == model.QueryCoords {
		return o.UseCurrentLocation()
	}
	return o.SubmitDestination(o.lastQuery.Address)
}

// Reset returns to welcome and forgets the result, error and last query.
func (o *Orchestrator) Reset() {
	o.abort()
	o.screen = model.ScreenWelcome
	o.result = nil
	o.err = ""
	o.lastQuery = nil
	o.loading = ""
}

// Back leaves the destination form or the library.
func (o *Orchestrator) Back() {
	o.Reset()
}

// EnterDestination opens the destination form from welcome.
func (o *Orchestrator) EnterDestination() {
	if o.screen != model.ScreenWelcome {
		return
	}
	o.screen = model.ScreenDestinationInput
}

// OpenLibrary shows the saved roads. Allowed from any screen; an outstanding
// request is abandoned.
func (o *Orchestrator) OpenLibrary() {
	o.abort()
	o.screen = model.ScreenLibrary
}

// SelectKey installs a provider key and assumes it is valid until the
// provider says otherwise.
func (o *Orchestrator) SelectKey(key string) {
	if o.keys != nil {
		o.keys.SetAPIKey(key)
	}
	o.keyReady = true
	o.notice = ""
	o.logger.Info("API key selected")
}

// Handle applies a completion message. Messages from superseded requests are dropped.
func (o *Orchestrator) Handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case model.PositionMsg:
		if !o.current(msg.Gen) {
			return nil
		}
		o.finish("Position acquired")
		o.loading = MsgSearchingNearby
		return o.ExecuteSearch(model.CoordsQuery(msg.Position.Lat, msg.Position.Lon))

	case model.PositionFailedMsg:
		if !o.current(msg.Gen) {
			return nil
		}
		o.finish("Position request failed")
		reason := geo.Reason(msg.Err)
		o.logger.Warn("Could not get location", "reason", reason, "err", msg.Err)
		o.err = locationMessage(reason)
		o.screen = model.ScreenError
		return nil

	case model.SearchResultMsg:
		if !o.current(msg.Gen) {
			return nil
		}
		o.finish("Search finished")
		if len(msg.Result.Roads) == 0 {
			o.err = MsgNoSuggestions
			o.screen = model.ScreenError
			return nil
		}
		result := msg.Result
		o.result = &result
		o.screen = model.ScreenSuccess
		return nil

	case model.SearchFailedMsg:
		if !o.current(msg.Gen) {
			return nil
		}
		o.finish("Search failed")
		o.logger.Warn("Provider error", "err", msg.Err)
		o.applySearchError(msg.Err)
		return nil
	}
	return nil
}

func (o *Orchestrator) applySearchError(err error) {
	switch {
	case isMissingKey(err):
		o.notice = MsgKeyRequired
		o.keyReady = false
		o.screen = model.ScreenWelcome
	case isInvalidKey(err):
		o.notice = MsgKeyInvalid
		o.keyReady = false
		o.screen = model.ScreenWelcome
	default:
		o.err = err.Error()
		if strings.TrimSpace(o.err) == "" {
			o.err = MsgSearchFailed
		}
		o.screen = model.ScreenError
	}
}

func isMissingKey(err error) bool {
	return errors.Is(err, search.ErrMissingAPIKey) || strings.Contains(err.Error(), "API Key must be set")
}

func isInvalidKey(err error) bool {
	return errors.Is(err, search.ErrInvalidAPIKey) || strings.Contains(err.Error(), "entity was not found")
}

func locationMessage(reason model.GeoFailure) string {
	switch reason {
	case model.GeoPermissionDenied:
		return MsgPermissionDenied
	case model.GeoPositionUnavailable:
		return MsgPositionUnavailable
	case model.GeoTimeout:
		return MsgLocationTimeout
	default:
		return MsgLocationFailed
	}
}

// begin supersedes any outstanding request and starts a new generation.
func (o *Orchestrator) begin(timeout time.Duration) (uint64, context.Context) {
	o.abort()
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	o.cancel = cancel
	o.requestID = uuid.NewString()
	o.started = time.Now()
	return o.gen, ctx
}

// abort cancels the outstanding request, if any, and invalidates its completion.
func (o *Orchestrator) abort() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
		o.logger.Debug("Abandoned request", "request", o.requestID, "gen", o.gen)
	}
	o.gen++
}

func (o *Orchestrator) current(gen uint64) bool {
	if gen != o.gen || o.cancel == nil {
		o.logger.Debug("Dropping stale completion", "gen", gen, "current", o.gen)
		return false
	}
	return true
}

func (o *Orchestrator) finish(msg string) {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.logger.Info(msg, "request", o.requestID, "elapsed", time.Since(o.started).Round(time.Millisecond))
}
