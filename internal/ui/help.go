package ui

import (
	"strings"

	"scenic/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders the context-sensitive help footer. keyPrompt is set when
// the welcome screen is asking for an API key.
func RenderHelp(screen model.Screen, keyPrompt bool, width int) string {
	switch screen {
	case model.ScreenWelcome:
		if keyPrompt {
			return renderHelpLine([]string{
				helpKey("enter", "use key"),
				helpKey("ctrl+c", "quit"),
			}, width)
		}
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			helpKey("enter", "select"),
			helpKey("c", "current location"),
			helpKey("d", "destination"),
			helpKey("L", "library"),
			helpKey("q", "quit"),
		}, width)
	case model.ScreenDestinationInput:
		return renderHelpLine([]string{
			helpKey("enter", "search"),
			helpKey("esc", "back"),
		}, width)
	case model.ScreenLoading:
		return renderHelpLine([]string{
			helpKey("esc", "cancel"),
			helpKey("L", "library"),
		}, width)
	case model.ScreenSuccess:
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			helpKey("s", "save"),
			helpKey("ctrl+d/u", "scroll"),
			helpKey("m", "km/mi"),
			helpKey("n", "new search"),
			helpKey("L", "library"),
			helpKey("?", "help"),
		}, width)
	case model.ScreenError:
		return renderHelpLine([]string{
			helpKey("r", "retry"),
			helpKey("n/esc", "new search"),
			helpKey("L", "library"),
		}, width)
	case model.ScreenLibrary:
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			helpKey("x", "remove"),
			helpKey("u/ctrl+r", "undo/redo"),
			helpKey("m", "km/mi"),
			helpKey("esc", "back"),
		}, width)
	default:
		return renderHelpLine([]string{helpKey("q", "quit")}, width)
	}
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Everywhere"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"L", "Open your library"},
			{"m", "Toggle km / miles"},
			{"?", "Toggle help"},
			{"q / ctrl+c", "Quit"},
		}),
		titleSection("Start"),
		helpSection([]helpItem{
			{"c", "Find roads near your current location"},
			{"d", "Find roads near a destination"},
			{"enter", "Run the highlighted option"},
		}),
		titleSection("Results"),
		helpSection([]helpItem{
			{"s", "Save the highlighted road to your library"},
			{"ctrl+d / ctrl+u", "Scroll the road details"},
			{"n / esc", "Start a new search"},
		}),
		titleSection("Errors"),
		helpSection([]helpItem{
			{"r", "Retry the last search"},
			{"n / esc", "Start over"},
		}),
		titleSection("Library"),
		helpSection([]helpItem{
			{"x", "Remove the highlighted road"},
			{"u / ctrl+r", "Undo / redo a removal"},
			{"esc / b", "Back to start"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
