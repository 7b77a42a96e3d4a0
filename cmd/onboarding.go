package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OnboardingSettings records the first-run choices.
type OnboardingSettings struct {
	Completed       bool `json:"completed"`
	LocationEnabled bool `json:"location_enabled"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func secureAPIKeyPath(configDir string) string {
	return filepath.Join(configDir, "gemini_api_key")
}

func saveSecureAPIKey(configDir, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(secureAPIKeyPath(configDir), []byte(key+"\n"), 0600)
}

func loadSecureAPIKey(configDir string) (string, error) {
	data, err := os.ReadFile(secureAPIKeyPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// shouldRunOnboarding is false once setup completed or when stdin is not a terminal.
func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepLocation onboardingStep = iota
	stepKey
	stepDone
)

type onboardingModel struct {
	step        onboardingStep
	allow       bool
	existingKey string
	keyInput    textinput.Model
	settings    OnboardingSettings
	capturedKey string
	status      string
	width       int
	height      int
}

var (
	obColorMuted  = lipgloss.Color("#7A8794")
	obColorText   = lipgloss.Color("#DCE3EA")
	obColorAccent = lipgloss.Color("#E0A458")
	obColorDanger = lipgloss.Color("#F38BA8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obOptionStyle = lipgloss.NewStyle().
			Foreground(obColorText)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingModel(existingKey string) onboardingModel {
	in := textinput.New()
	in.Placeholder = "Paste a Gemini API key here"
	in.CharLimit = 300
	in.Prompt = "key> "
	in.EchoMode = textinput.EchoPassword
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	in.Focus()

	return onboardingModel{
		step:        stepLocation,
		allow:       true,
		existingKey: strings.TrimSpace(existingKey),
		keyInput:    in,
		settings: OnboardingSettings{
			Completed:       true,
			LocationEnabled: true,
		},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch m.step {
		case stepLocation:
			switch msg.String() {
			case "y", "Y":
				m.allow = true
				return m.nextStep()
			case "n", "N":
				m.allow = false
				return m.nextStep()
			case "up", "k", "left", "h":
				m.allow = true
				return m, nil
			case "down", "j", "right", "l":
				m.allow = false
				return m, nil
			case "enter":
				return m.nextStep()
			case "ctrl+c", "q":
				m.settings.LocationEnabled = false
				m.status = "Setup canceled. Location lookups disabled."
				m.step = stepDone
				return m, tea.Quit
			default:
				return m, nil
			}
		case stepKey:
			switch msg.String() {
			case "enter":
				key := strings.TrimSpace(m.keyInput.Value())
				if key == "" {
					m.status = "No key entered. You can paste one when the app starts."
				} else {
					m.capturedKey = key
					m.status = "Gemini API key saved."
				}
				m.step = stepDone
				return m, tea.Quit
			case "esc":
				m.status = "Skipped key setup. You can paste one when the app starts."
				m.step = stepDone
				return m, tea.Quit
			case "ctrl+c":
				m.status = "Setup canceled."
				m.step = stepDone
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.keyInput, cmd = m.keyInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) nextStep() (tea.Model, tea.Cmd) {
	m.settings.LocationEnabled = m.allow
	if m.existingKey != "" {
		m.status = "Using the Gemini API key from your environment or flags."
		m.step = stepDone
		return m, tea.Quit
	}
	m.step = stepKey
	return m, nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := max(height-6, 8)
	content := m.renderContent(width, contentHeight)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("scenic") + " " + obMutedStyle.Render("› Setup")
	return obHeaderStyle.Width(width).Render(left)
}

func (m onboardingModel) renderTabs(width int) string {
	locationTab := obTabInactive.Render("Location")
	keyTab := obTabInactive.Render("Gemini API Key")
	if m.step == stepLocation {
		locationTab = obTabActive.Render("Location")
	}
	if m.step == stepKey {
		keyTab = obTabActive.Render("Gemini API Key")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", locationTab, keyTab))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepLocation:
		return obFooterStyle.Width(width).Render("↑↓/jk to navigate  y/n enter to confirm  q cancel")
	case stepKey:
		return obFooterStyle.Width(width).Render("enter save  esc skip  ctrl+c cancel")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepLocation:
		on := "Allow approximate location lookups"
		off := "Don't look up my location"

		var onDisplay, offDisplay string
		if m.allow {
			onDisplay = "  " + obOptionSelected.Render("→ "+on)
			offDisplay = "    " + obOptionStyle.Render(off)
		} else {
			onDisplay = "    " + obOptionStyle.Render(on)
			offDisplay = "  " + obOptionSelected.Render("→ "+off)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Find roads near your current location?"),
			"",
			obMutedStyle.Render("Your approximate position is looked up from your IP address"),
			obMutedStyle.Render("when you ask for roads near you, and nowhere else."),
			"",
			onDisplay,
			offDisplay,
			"",
			obMutedStyle.Render("You can change this later in ~/.scenic/onboarding.json"),
		)
	case stepKey:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.keyInput.View())
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Get a Gemini API key:"),
			"",
			obMutedStyle.Render("1) https://aistudio.google.com/apikey"),
			obMutedStyle.Render("2) Create an API key"),
			obMutedStyle.Render("3) Paste it below"),
			"",
			obLabelStyle.Render("Gemini API Key"),
			input,
			"",
			obMutedStyle.Render("The key is stored in ~/.scenic/gemini_api_key, readable only by you."),
			obMutedStyle.Render("Press Enter to save, Esc to skip."),
		)
	default:
		msg := obMutedStyle.Render(m.status)
		if strings.Contains(strings.ToLower(m.status), "canceled") {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Setup Complete"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir string, existingKey string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(existingKey), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	return finishOnboarding(configDir, m)
}

// finishOnboarding persists the key first so a failed write leaves setup incomplete.
func finishOnboarding(configDir string, m onboardingModel) (OnboardingSettings, error) {
	if m.capturedKey != "" {
		if err := saveSecureAPIKey(configDir, m.capturedKey); err != nil {
			return OnboardingSettings{}, err
		}
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
