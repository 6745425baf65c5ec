package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	mapCursorStyle = lipgloss.NewStyle().Reverse(true)
	mapDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// MinimapModel - Interactive segment browser
// =============================================================================

// MinimapModel is the bubbletea model for browsing segment occupancy.
type MinimapModel struct {
	Title string
	Map   *Minimap
	// Cursor is the selected segment.
	X, Y int
	// Offset is the first visible column and row when the grid is larger
	// than the terminal.
	OffsetX, OffsetY int
	Cols, Rows       int
}

// newMinimapModel creates a model with the cursor on the first segment.
func newMinimapModel(title string, m *Minimap) MinimapModel {
	return MinimapModel{Title: title, Map: m, Cols: 40, Rows: 20}
}

func (m MinimapModel) Init() tea.Cmd {
	return nil
}

func (m MinimapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.X = max(m.X-1, 0)
		case "right", "l":
			m.X = min(m.X+1, m.Map.Width-1)
		case "up", "k":
			m.Y = max(m.Y-1, 0)
		case "down", "j":
			m.Y = min(m.Y+1, m.Map.Height-1)
		case "home", "g":
			m.X, m.Y = 0, 0
		}
	case tea.WindowSizeMsg:
		// Two characters per cell; title, help and details take six lines.
		m.Cols = max(msg.Width/2, 1)
		m.Rows = max(msg.Height-6, 1)
	}
	m.scroll()
	return m, nil
}

// scroll keeps the cursor inside the visible window.
func (m *MinimapModel) scroll() {
	if m.X < m.OffsetX {
		m.OffsetX = m.X
	} else if m.X >= m.OffsetX+m.Cols {
		m.OffsetX = m.X - m.Cols + 1
	}
	if m.Y < m.OffsetY {
		m.OffsetY = m.Y
	} else if m.Y >= m.OffsetY+m.Rows {
		m.OffsetY = m.Y - m.Rows + 1
	}
}

func (m MinimapModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Segments " + m.Title))
	b.WriteString("\n")
	b.WriteString(mapDimStyle.Render("←/→/↑/↓ move  g origin  q quit"))
	b.WriteString("\n\n")

	xEnd := min(m.OffsetX+m.Cols, m.Map.Width)
	yEnd := min(m.OffsetY+m.Rows, m.Map.Height)
	for y := m.OffsetY; y < yEnd; y++ {
		for x := m.OffsetX; x < xEnd; x++ {
			cell, style := cellFree, StyleDim
			if m.Map.Occupied[x][y] {
				cell, style = cellOccupied, StyleOccupied
			}
			if x == m.X && y == m.Y {
				style = mapCursorStyle
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.details())
	return b.String()
}

// details describes the segment under the cursor.
func (m MinimapModel) details() string {
	status := StyleDim.Render("free")
	if m.Map.Occupied[m.X][m.Y] {
		status = StyleOccupied.Render("occupied")
	}
	parts := []string{
		StyleValue.Render(fmt.Sprintf("segment %d,%d", m.X, m.Y)),
		status,
		StyleNumber.Render(fmt.Sprintf("%d vertices", m.Map.Vertices[m.X][m.Y])),
	}
	if bg := m.Map.Backgrounds[m.X][m.Y]; bg != "" {
		parts = append(parts, StyleDim.Render(bg))
	}
	return "  " + strings.Join(parts, StyleDim.Render(" · "))
}
