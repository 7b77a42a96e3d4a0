package ui

import (
	"fmt"
	"strings"

	"scenic/internal/geo"
	"scenic/internal/model"
	"scenic/internal/util"

	"github.com/charmbracelet/lipgloss"
)

const listWidth = 34

func (m Model) viewWelcome() string {
	cardWidth := max(min(80, m.width-6), 20)

	var body string
	if !m.orch.KeyReady() {
		lines := []string{
			LabelStyle.Render("A Gemini API key is needed to find roads."),
			"",
		}
		if notice := m.orch.Notice(); notice != "" {
			lines = append(lines, ErrorStyle.Render(notice), "")
		}
		lines = append(lines,
			MutedStyle.Render("Create one at https://aistudio.google.com/apikey"),
			"",
			InputStyle.Width(max(30, cardWidth-10)).Render(m.keyInput.View()),
			"",
			MutedStyle.Render("Press Enter to use this key."),
		)
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	} else {
		options := []string{
			"Use my current location",
			"Enter a destination",
			fmt.Sprintf("My Library (%d)", m.orch.LibraryCount()),
		}
		lines := []string{
			LabelStyle.Render("Find the best driving roads nearby."),
			MutedStyle.Render("Curated scenic drives, twisty mountain passes and coastal highways."),
			"",
		}
		for i, opt := range options {
			if i == m.welcomeCursor {
				lines = append(lines, "  "+SelectedRowStyle.Render("→ "+opt))
			} else {
				lines = append(lines, "    "+NormalRowStyle.Render(opt))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	card := PanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Top, card)
}

func (m Model) viewDestination() string {
	cardWidth := max(min(80, m.width-6), 20)
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render("Where are you headed?"),
		MutedStyle.Render("A city, region, park or address."),
		"",
		InputStyle.Width(max(30, cardWidth-10)).Render(m.destination.View()),
	)
	card := PanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Top, card)
}

func (m Model) viewLoading() string {
	msg := m.orch.LoadingMessage()
	if msg == "" {
		msg = "Working..."
	}
	line := m.spinner.View() + " " + NormalRowStyle.Render(msg)
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, line)
}

func (m Model) viewError() string {
	cardWidth := max(min(80, m.width-6), 20)
	lines := []string{
		ErrorStyle.Render("Something went wrong"),
		"",
		NormalRowStyle.Render(m.orch.Err()),
		"",
	}
	if m.orch.LastQuery() != nil {
		lines = append(lines, MutedStyle.Render("Press r to try again or n to start over."))
	} else {
		lines = append(lines, MutedStyle.Render("Press n to start over."))
	}
	card := PanelStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Top, card)
}

func (m Model) viewResults() string {
	result := m.orch.Result()
	if result == nil {
		return EmptyStateStyle.Render("No results.")
	}

	title := LabelStyle.Render("Roads " + util.FormatQuery(m.orch.LastQuery()))
	list := m.renderRoadList(result.Roads, title)

	var sources string
	if len(result.Sources) > 0 {
		sources = renderSources(result.Sources, m.width-listWidth-4)
	}
	right := m.details.View()
	if sources != "" {
		right = lipgloss.JoinVertical(lipgloss.Left, right, sources)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, right)
}

func (m Model) viewLibrary() string {
	roads := m.orch.Library()
	if len(roads) == 0 {
		return EmptyStateStyle.Render("Your library is empty. Save roads from a search to see them here.")
	}
	title := LabelStyle.Render(fmt.Sprintf("Saved roads (%d)", len(roads)))
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderRoadList(roads, title), m.details.View())
}

func (m Model) renderRoadList(roads []model.Road, title string) string {
	lines := []string{title, ""}
	for i, road := range roads {
		marker := "  "
		if m.orch.Screen() == model.ScreenSuccess && m.orch.IsSaved(road) {
			marker = SavedStyle.Render("★ ")
		}
		name := util.TruncateString(road.Name, listWidth-6)
		if i == m.cursor {
			lines = append(lines, marker+SelectedRowStyle.Render(" "+name+" "))
		} else {
			lines = append(lines, marker+NormalRowStyle.Render(" "+name))
		}
	}
	return lipgloss.NewStyle().Width(listWidth).Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func renderSources(chunks []model.GroundingChunk, width int) string {
	lines := []string{LabelStyle.Render("Sources")}
	for _, c := range chunks {
		kind, label, uri, ok := c.Link()
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			MutedStyle.Render("["+kind+"]"),
			NormalRowStyle.Render(util.TruncateString(label, max(10, width/2))),
			LinkStyle.Render(uri)))
	}
	if len(lines) == 1 {
		return ""
	}
	return lipgloss.NewStyle().Width(max(width, 20)).Padding(1, 1, 0, 1).Render(strings.Join(lines, "\n"))
}

func (m *Model) resizeDetails() {
	m.details.Width = max(m.width-listWidth-2, 20)
	h := m.contentHeight()
	if m.orch.Screen() == model.ScreenSuccess {
		if r := m.orch.Result(); r != nil && len(r.Sources) > 0 {
			// Leave room for the sources block.
			h -= len(r.Sources) + 2
		}
	}
	m.details.Height = max(h, 3)
	m.refreshDetails()
}

// refreshDetails renders the selected road into the details viewport.
func (m *Model) refreshDetails() {
	road, ok := m.selectedRoad()
	if !ok {
		m.details.SetContent("")
		return
	}
	m.details.SetContent(m.roadDetails(road))
}

func (m Model) roadDetails(road model.Road) string {
	width := max(m.details.Width-2, 20)
	miles := m.prefs.Miles()

	lines := []string{LabelStyle.Render(road.Name), ""}
	for _, d := range road.Description {
		lines = append(lines, lipgloss.NewStyle().Width(width).Render("• "+d))
	}
	lines = append(lines, "")

	// Saved roads are not tied to the last search.
	q := m.orch.LastQuery()
	if m.orch.Screen() == model.ScreenLibrary {
		q = nil
	}

	stats := "Length " + util.FormatDistance(geo.Convert(geo.RoadSpan(road), miles), miles)
	if q != nil && q.Kind == model.QueryCoords {
		pos := model.Position{Lat: q.Lat, Lon: q.Lon}
		stats += "   From you " + util.FormatDistance(geo.Convert(geo.DistanceFrom(pos, road), miles), miles)
	}
	lines = append(lines,
		MutedStyle.Render(stats),
		MutedStyle.Render("Start "+util.FormatCoords(road.StartLat, road.StartLon)+"   End "+util.FormatCoords(road.EndLat, road.EndLon)),
		"",
	)

	lines = append(lines, LabelStyle.Render("Directions"), LinkStyle.Render(util.DirectionsURL(road, q)))
	if road.MapEmbedURL != "" {
		lines = append(lines, "", LabelStyle.Render("Map"), LinkStyle.Render(road.MapEmbedURL))
	}

	if m.orch.Screen() == model.ScreenSuccess {
		lines = append(lines, "")
		if m.orch.IsSaved(road) {
			lines = append(lines, SavedStyle.Render("Saved"))
		} else {
			lines = append(lines, MutedStyle.Render("Press s to save to your library"))
		}
	}
	return strings.Join(lines, "\n")
}
