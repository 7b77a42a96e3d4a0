package ui

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"scenic/internal/app"
	"scenic/internal/geo"
	"scenic/internal/library"
	"scenic/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	answers []error
	roads   []model.Road
	queries []model.LocationQuery
	key     string
}

func (p *stubProvider) FindRoads(ctx context.Context, q model.LocationQuery) (model.RoadResult, error) {
	p.queries = append(p.queries, q)
	if len(p.answers) > 0 {
		err := p.answers[0]
		p.answers = p.answers[1:]
		if err != nil {
			return model.RoadResult{}, err
		}
	}
	return model.RoadResult{
		Roads:   p.roads,
		Sources: []model.GroundingChunk{{Web: &model.SourceRef{URI: "https://example.com/dragon", Title: "Dragon guide"}}},
	}, nil
}

func (p *stubProvider) SetAPIKey(key string) { p.key = key }

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
	dragon = model.Road{Name: "Tail of the Dragon", Description: []string{"318 curves in 11 miles"}, StartLat: 35.4676, StartLon: -83.9215, EndLat: 35.5227, EndLon: -84.0215}
	skyway = model.Road{Name: "Cherohala Skyway", Description: []string{"Mile-high ridge views"}, StartLat: 35.3357, StartLon: -84.1280, EndLat: 35.2866, EndLon: -83.8710}
)

func newTestModel(t *testing.T, p *stubProvider, keyReady bool, opts Options) Model {
	t.Helper()
	logger := log.New(io.Discard)
	orch := app.New(app.Config{
		Provider: p,
		Keys:     p,
		Locator:  geo.StaticLocator{Position: model.Position{Lat: 35.59, Lon: -82.55}},
		Library:  library.Open(memStorage{}, logger),
		Logger:   logger,
		KeyReady: keyReady,
	})
	opts.Logger = logger
	m := New(orch, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends one key and returns the command it produced without running it.
func press(m Model, s string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(s))
	return next.(Model), cmd
}

// run executes cmd the way the runtime would, feeding search and position
// results back into the model until nothing is left.
func run(m Model, cmd tea.Cmd) Model {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case model.PositionMsg, model.PositionFailedMsg, model.SearchResultMsg, model.SearchFailedMsg:
			next, follow := m.Update(msg)
			m = next.(Model)
			queue = append(queue, follow)
		}
	}
	return m
}

func pressRun(m Model, s string) Model {
	m, cmd := press(m, s)
	return run(m, cmd)
}

func TestDestinationSearchFlow(t *testing.T) {
	p := &stubProvider{roads: []model.Road{dragon, skyway}}
	m := newTestModel(t, p, true, Options{})

	m, _ = press(m, "d")
	require.Equal(t, model.ScreenDestinationInput, m.orch.Screen())

	m, _ = press(m, "  Asheville, NC ")
	m, cmd := press(m, "enter")
	assert.Equal(t, model.ScreenLoading, m.orch.Screen())
	assert.Contains(t, m.View(), "Searching for roads near Asheville, NC...")

	m = run(m, cmd)
	require.Equal(t, model.ScreenSuccess, m.orch.Screen())
	require.Len(t, p.queries, 1)
	assert.Equal(t, model.AddressQuery("Asheville, NC"), p.queries[0])

	view := m.View()
	assert.Contains(t, view, "Tail of the Dragon")
	assert.Contains(t, view, "Cherohala Skyway")
	assert.Contains(t, view, "My Library (0)")
	assert.Contains(t, view, "Dragon guide")
	assert.Contains(t, m.roadDetails(dragon), "origin=Asheville")
}

func TestEmptyDestinationIsRejected(t *testing.T) {
	p := &stubProvider{roads: []model.Road{dragon}}
	m := newTestModel(t, p, true, Options{})

	m, _ = press(m, "d")
	m, _ = press(m, "   ")
	m, cmd := press(m, "enter")

	assert.Nil(t, cmd)
	assert.Equal(t, model.ScreenDestinationInput, m.orch.Screen())
	assert.NotEmpty(t, m.error)
	assert.Empty(t, p.queries)

	m, _ = press(m, "esc")
	assert.Equal(t, model.ScreenWelcome, m.orch.Screen())
}

func TestCurrentLocationShowsDistanceFromUser(t *testing.T) {
	p := &stubProvider{roads: []model.Road{dragon}}
	m := newTestModel(t, p, true, Options{})

	m = pressRun(m, "c")
	require.Equal(t, model.ScreenSuccess, m.orch.Screen())
	require.Len(t, p.queries, 1)
	assert.Equal(t, model.QueryCoords, p.queries[0].Kind)
	assert.Contains(t, m.roadDetails(dragon), "From you")
	assert.NotContains(t, m.roadDetails(dragon), "origin=")
}

func TestSaveAndUndoRemoval(t *testing.T) {
	p := &stubProvider{roads: []model.Road{dragon, skyway}}
	m := newTestModel(t, p, true, Options{})
	m = pressRun(m, "c")

	m, _ = press(m, "j")
	m, _ = press(m, "s")
	assert.True(t, m.orch.IsSaved(skyway))
	assert.False(t, m.orch.IsSaved(dragon))
	assert.Contains(t, m.View(), "My Library (1)")

	// Saving twice is a no-op.
	m, _ = press(m, "s")
	assert.Equal(t, 1, m.orch.LibraryCount())

	m, _ = press(m, "L")
	require.Equal(t, model.ScreenLibrary, m.orch.Screen())

	m, _ = press(m, "x")
	assert.Equal(t, 0, m.orch.LibraryCount())
	assert.Contains(t, m.View(), "Your library is empty")

	m, _ = press(m, "u")
	assert.True(t, m.orch.IsSaved(skyway))

	m, _ = press(m, "ctrl+r")
	assert.False(t, m.orch.IsSaved(skyway))

	m, _ = press(m, "esc")
	assert.Equal(t, model.ScreenWelcome, m.orch.Screen())
}

func TestErrorScreenRetry(t *testing.T) {
	p := &stubProvider{answers: []error{errors.New("upstream exploded")}, roads: []model.Road{dragon}}
	m := newTestModel(t, p, true, Options{})

	m, _ = press(m, "d")
	m, _ = press(m, "Moab")
	m = pressRun(m, "enter")
	require.Equal(t, model.ScreenError, m.orch.Screen())
	assert.Contains(t, m.View(), "upstream exploded")

	m = pressRun(m, "r")
	assert.Equal(t, model.ScreenSuccess, m.orch.Screen())
	assert.Len(t, p.queries, 2)
}

func TestEscDuringLoadingDropsResult(t *testing.T) {
	p := &stubProvider{roads: []model.Road{dragon}}
	m := newTestModel(t, p, true, Options{})

	m, cmd := press(m, "c")
	require.Equal(t, model.ScreenLoading, m.orch.Screen())

	m, _ = press(m, "esc")
	require.Equal(t, model.ScreenWelcome, m.orch.Screen())

	m = run(m, cmd)
	assert.Equal(t, model.ScreenWelcome, m.orch.Screen())
	assert.Nil(t, m.orch.Result())
}

func TestKeyPrompt(t *testing.T) {
	var stored string
	p := &stubProvider{roads: []model.Road{dragon}}
	m := newTestModel(t, p, false, Options{SaveKey: func(k string) error {
		stored = k
		return nil
	}})

	require.True(t, m.typing())
	assert.Contains(t, m.View(), "Gemini API key")

	// Letters go to the key input instead of the menu.
	m, _ = press(m, "d")
	assert.Equal(t, model.ScreenWelcome, m.orch.Screen())

	m, _ = press(m, "emo-key")
	m, _ = press(m, "enter")
	assert.True(t, m.orch.KeyReady())
	assert.Equal(t, "demo-key", p.key)
	assert.Equal(t, "demo-key", stored)
	assert.False(t, m.typing())
}

func TestUnitsPreferencePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_prefs.json")
	p := &stubProvider{roads: []model.Road{dragon}}

	m := newTestModel(t, p, true, Options{PrefsPath: path})
	assert.False(t, m.prefs.Miles())

	m, _ = press(m, "m")
	assert.True(t, m.prefs.Miles())

	again := newTestModel(t, p, true, Options{PrefsPath: path})
	assert.True(t, again.prefs.Miles())

	again = pressRun(again, "c")
	assert.Contains(t, again.roadDetails(dragon), " mi")
}

func TestLoadPreferencesFallsBack(t *testing.T) {
	assert.Equal(t, defaultUIPreferences(), loadUIPreferences(""))
	assert.Equal(t, defaultUIPreferences(), loadUIPreferences(filepath.Join(t.TempDir(), "missing.json")))
}
