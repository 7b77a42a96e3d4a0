package ui

import (
	"fmt"
	"strings"

	"scenic/internal/app"
	"scenic/internal/model"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Options configures the root model.
type Options struct {
	// PrefsPath is where UI preferences are stored. Empty disables persistence.
	PrefsPath string
	// SaveKey persists an API key entered on the welcome screen. Optional.
	SaveKey func(key string) error
	Logger  *log.Logger
}

// welcome menu entries
const (
	optionLocate = iota
	optionDestination
	optionLibrary
	optionCount
)

// Model is the root Bubble Tea model.
type Model struct {
	orch      *app.Orchestrator
	logger    *log.Logger
	saveKey   func(string) error
	prefsPath string

	width  int
	height int

	error       string
	info        string
	showingHelp bool

	spinner     spinner.Model
	destination textinput.Model
	keyInput    textinput.Model
	details     viewport.Model

	welcomeCursor int
	cursor        int

	keys      KeyMap
	inputKeys InputKeyMap
	prefs     UIPreferences
	undoStack []undoAction
	redoStack []undoAction
}

// New creates a new root model around an orchestrator.
func New(orch *app.Orchestrator, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	m := Model{
		orch:        orch,
		logger:      logger,
		saveKey:     opts.SaveKey,
		prefsPath:   opts.PrefsPath,
		spinner:     sp,
		destination: newInput("e.g. Asheville, NC or Yosemite Valley", "to> ", 200),
		keyInput:    newInput("Paste a Gemini API key", "key> ", 300),
		details:     viewport.New(0, 0),
		keys:        DefaultKeyMap(),
		inputKeys:   DefaultInputKeyMap(),
		prefs:       loadUIPreferences(opts.PrefsPath),
	}
	m.keyInput.EchoMode = textinput.EchoPassword
	m.syncFocus()
	return m
}

func newInput(placeholder, prompt string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = prompt
	in.CharLimit = limit
	in.TextStyle = lipgloss.NewStyle().Foreground(ColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(ColorText).Background(ColorAccent)
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeDetails()
		return m, nil

	case spinner.TickMsg:
		// Let the tick chain die once loading is over.
		if m.orch.Screen() != model.ScreenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case model.PositionMsg, model.PositionFailedMsg, model.SearchResultMsg, model.SearchFailedMsg:
		prev := m.orch.Screen()
		cmd := m.orch.Handle(msg)
		return m, m.enter(prev, cmd)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.showingHelp {
			if msg.String() == "esc" || key.Matches(msg, m.keys.Help) {
				m.showingHelp = false
			}
			return m, nil
		}

		if m.typing() {
			return m.handleInputKey(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.showingHelp = true
			return m, nil
		case msg.String() == "q":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Units):
			m.toggleUnits()
			return m, nil
		case key.Matches(msg, m.keys.Library) && m.orch.Screen() != model.ScreenLibrary:
			return m.transition(func() tea.Cmd {
				m.orch.OpenLibrary()
				return nil
			})
		}

		switch m.orch.Screen() {
		case model.ScreenWelcome:
			return m.handleWelcomeNav(msg)
		case model.ScreenLoading:
			return m.handleLoadingNav(msg)
		case model.ScreenSuccess:
			return m.handleResultsNav(msg)
		case model.ScreenError:
			return m.handleErrorNav(msg)
		case model.ScreenLibrary:
			return m.handleLibraryNav(msg)
		}
		return m, nil
	}

	// Cursor blinks and pasted text go to whichever input has focus.
	return m.updateInputs(msg)
}

// typing reports whether a text input owns the keyboard.
func (m Model) typing() bool {
	switch m.orch.Screen() {
	case model.ScreenDestinationInput:
		return true
	case model.ScreenWelcome:
		return !m.orch.KeyReady()
	}
	return false
}

// transition runs an orchestrator transition and syncs view state with the
// resulting screen.
func (m Model) transition(fn func() tea.Cmd) (tea.Model, tea.Cmd) {
	prev := m.orch.Screen()
	cmd := fn()
	return m, m.enter(prev, cmd)
}

// enter resets per-screen state after the orchestrator may have changed screens.
func (m *Model) enter(prev model.Screen, cmd tea.Cmd) tea.Cmd {
	screen := m.orch.Screen()
	if screen == prev {
		return cmd
	}

	m.error = ""
	m.info = ""
	m.cursor = 0
	m.details.GotoTop()
	m.syncFocus()
	m.resizeDetails()
	m.logger.Debug("Screen changed", "from", prev, "to", screen)

	if screen == model.ScreenLoading {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *Model) syncFocus() {
	m.destination.Blur()
	m.keyInput.Blur()
	switch {
	case m.orch.Screen() == model.ScreenDestinationInput:
		m.destination.Focus()
	case m.orch.Screen() == model.ScreenWelcome && !m.orch.KeyReady():
		m.keyInput.Focus()
	}
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.destination.Focused():
		m.destination, cmd = m.destination.Update(msg)
	case m.keyInput.Focused():
		m.keyInput, cmd = m.keyInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.orch.Screen() == model.ScreenDestinationInput {
		switch {
		case key.Matches(msg, m.inputKeys.Submit):
			text := strings.TrimSpace(m.destination.Value())
			if text == "" {
				m.error = "Please enter a destination."
				return m, nil
			}
			m.destination.Reset()
			return m.transition(func() tea.Cmd {
				return m.orch.SubmitDestination(text)
			})
		case key.Matches(msg, m.inputKeys.Cancel):
			m.destination.Reset()
			return m.transition(func() tea.Cmd {
				m.orch.Back()
				return nil
			})
		}
		return m.updateInputs(msg)
	}

	// Welcome screen asking for a key.
	if key.Matches(msg, m.inputKeys.Submit) {
		k := strings.TrimSpace(m.keyInput.Value())
		if k == "" {
			m.error = "Enter an API key to continue."
			return m, nil
		}
		m.keyInput.Reset()
		m.orch.SelectKey(k)
		m.error = ""
		m.info = "API key set"
		if m.saveKey != nil {
			if err := m.saveKey(k); err != nil {
				m.logger.Warn("Failed to store API key", "err", err)
				m.info = "API key set for this session only"
			}
		}
		m.syncFocus()
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m Model) handleWelcomeNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.welcomeCursor > 0 {
			m.welcomeCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.welcomeCursor < optionCount-1 {
			m.welcomeCursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Locate):
		return m.runWelcomeOption(optionLocate)
	case key.Matches(msg, m.keys.Destination):
		return m.runWelcomeOption(optionDestination)
	case key.Matches(msg, m.keys.Select):
		return m.runWelcomeOption(m.welcomeCursor)
	}
	return m, nil
}

func (m Model) runWelcomeOption(option int) (tea.Model, tea.Cmd) {
	m.welcomeCursor = option
	switch option {
	case optionLocate:
		return m.transition(m.orch.UseCurrentLocation)
	case optionDestination:
		return m.transition(func() tea.Cmd {
			m.orch.EnterDestination()
			return nil
		})
	case optionLibrary:
		return m.transition(func() tea.Cmd {
			m.orch.OpenLibrary()
			return nil
		})
	}
	return m, nil
}

func (m Model) handleLoadingNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		return m.transition(func() tea.Cmd {
			m.orch.Reset()
			return nil
		})
	}
	return m, nil
}

func (m Model) handleResultsNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.details.LineDown(max(1, m.details.Height/2))
	case key.Matches(msg, m.keys.HalfPageUp):
		m.details.LineUp(max(1, m.details.Height/2))
	case key.Matches(msg, m.keys.Save):
		m.saveSelected()
	case key.Matches(msg, m.keys.NewSearch), key.Matches(msg, m.keys.Back):
		return m.transition(func() tea.Cmd {
			m.orch.Reset()
			return nil
		})
	}
	return m, nil
}

func (m Model) handleErrorNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		if m.orch.LastQuery() == nil {
			m.info = "Nothing to retry"
			return m, nil
		}
		return m.transition(m.orch.Retry)
	case key.Matches(msg, m.keys.NewSearch), key.Matches(msg, m.keys.Back):
		return m.transition(func() tea.Cmd {
			m.orch.Reset()
			return nil
		})
	}
	return m, nil
}

func (m Model) handleLibraryNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.details.LineDown(max(1, m.details.Height/2))
	case key.Matches(msg, m.keys.HalfPageUp):
		m.details.LineUp(max(1, m.details.Height/2))
	case key.Matches(msg, m.keys.Remove):
		m.removeSelected()
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Redo):
		m.redo()
	case key.Matches(msg, m.keys.Back):
		return m.transition(func() tea.Cmd {
			m.orch.Back()
			return nil
		})
	}
	return m, nil
}

// rows returns the roads listed on the current screen.
func (m Model) rows() []model.Road {
	switch m.orch.Screen() {
	case model.ScreenSuccess:
		if r := m.orch.Result(); r != nil {
			return r.Roads
		}
	case model.ScreenLibrary:
		return m.orch.Library()
	}
	return nil
}

func (m Model) selectedRoad() (model.Road, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return model.Road{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.details.GotoTop()
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.refreshDetails()
}

func (m *Model) saveSelected() {
	road, ok := m.selectedRoad()
	if !ok {
		return
	}
	if m.orch.IsSaved(road) {
		m.info = fmt.Sprintf("%q is already in your library", road.Name)
		return
	}
	if err := m.orch.SaveRoad(road); err != nil {
		m.error = fmt.Sprintf("Could not save %q: %v", road.Name, err)
		return
	}
	m.error = ""
	m.info = fmt.Sprintf("Saved %q to your library", road.Name)
	m.refreshDetails()
}

func (m *Model) removeSelected() {
	road, ok := m.selectedRoad()
	if !ok {
		return
	}
	if err := m.orch.RemoveRoad(road); err != nil {
		m.error = fmt.Sprintf("Could not remove %q: %v", road.Name, err)
		return
	}
	m.pushUndoAction(m.buildRemoveAction(road))
	m.error = ""
	m.info = fmt.Sprintf("Removed %q (u to undo)", road.Name)
	m.clampCursor()
}

func (m *Model) toggleUnits() {
	m.prefs = m.prefs.toggleUnits()
	if err := saveUIPreferences(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("Failed to save preferences", "err", err)
	}
	m.info = "Distances in " + m.prefs.Units
	m.refreshDetails()
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	contentHeight := m.contentHeight()

	var content string
	switch m.orch.Screen() {
	case model.ScreenWelcome:
		content = m.viewWelcome()
	case model.ScreenDestinationInput:
		content = m.viewDestination()
	case model.ScreenLoading:
		content = m.viewLoading()
	case model.ScreenSuccess:
		content = m.viewResults()
	case model.ScreenError:
		content = m.viewError()
	case model.ScreenLibrary:
		content = m.viewLibrary()
	}

	header := renderHeader(breadcrumb(m.orch.Screen()), m.orch.LibraryCount(), m.width)
	footer := RenderHelp(m.orch.Screen(), m.typing(), m.width)

	// Fill the available height so the footer stays at the bottom.
	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	parts := []string{header}
	if m.error != "" {
		parts = append(parts, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).Render(m.info))
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// contentHeight is the total height minus header, footer and banners.
func (m Model) contentHeight() int {
	h := m.height - 4
	if m.error != "" {
		h--
	}
	if m.info != "" {
		h--
	}
	return max(h, 1)
}

func breadcrumb(screen model.Screen) []string {
	switch screen {
	case model.ScreenDestinationInput:
		return []string{"Destination"}
	case model.ScreenLoading:
		return []string{"Searching"}
	case model.ScreenSuccess:
		return []string{"Results"}
	case model.ScreenError:
		return []string{"Error"}
	case model.ScreenLibrary:
		return []string{"My Library"}
	default:
		return nil
	}
}

func renderHeader(breadcrumbParts []string, saved, width int) string {
	title := HeaderStyle.Render("scenic")

	var crumbs string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		crumbs = separator + strings.Join(parts, separator)
	}

	left := "  " + title + crumbs
	right := BreadcrumbStyle.Render(fmt.Sprintf("My Library (%d)", saved)) + "  "

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}
