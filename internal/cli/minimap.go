package cli

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/script"
)

const (
	cellOccupied = "██"
	cellFree     = "··"
)

// Minimap is a per-segment summary of a network, indexed [x][y].
type Minimap struct {
	Width, Height int
	Occupied      [][]bool
	Vertices      [][]int
	Backgrounds   [][]string
}

// newMinimap summarizes g's world grid.
func newMinimap(g *network.Graph) *Minimap {
	w := g.World()
	width, height := w.Dimensions()
	m := &Minimap{
		Width:       width,
		Height:      height,
		Occupied:    g.Occupancy(),
		Vertices:    make([][]int, width),
		Backgrounds: make([][]string, width),
	}
	for x := range width {
		m.Vertices[x] = make([]int, height)
		m.Backgrounds[x] = make([]string, height)
		for y := range height {
			m.Backgrounds[x][y] = w.Segment(x, y).Background()
		}
	}
	for _, v := range g.Vertices() {
		p := v.Position()
		if s := w.FindSegment(p.X, p.Y); s != nil {
			m.Vertices[s.X()][s.Y()]++
		}
	}
	return m
}

// OccupiedCount returns the number of occupied segments.
func (m *Minimap) OccupiedCount() int {
	n := 0
	for _, col := range m.Occupied {
		for _, o := range col {
			if o {
				n++
			}
		}
	}
	return n
}

// Plain renders the grid as a bordered table, one cell per segment, with
// row and column numbers.
func (m *Minimap) Plain() string {
	headers := make([]string, m.Width+1)
	for x := range m.Width {
		headers[x+1] = strconv.Itoa(x)
	}
	rows := make([][]string, m.Height)
	for y := range m.Height {
		row := make([]string, m.Width+1)
		row[0] = strconv.Itoa(y)
		for x := range m.Width {
			row[x+1] = cellFree
			if m.Occupied[x][y] {
				row[x+1] = cellOccupied
			}
		}
		rows[y] = row
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			if m.Occupied[col-1][row] {
				return StyleOccupied
			}
			return StyleDim
		})
	return t.Render()
}

// minimapCommand creates the minimap command.
func (c *CLI) minimapCommand() *cobra.Command {
	var plain, strict bool

	cmd := &cobra.Command{
		Use:   "minimap SCRIPT",
		Short: "Show which world segments the network occupies",
		Long: `Replay a script and show the world's segment grid. A segment is occupied
when it holds a vertex or a track passes through it.

The interactive view lets you move between segments to inspect them;
--plain prints the grid once, which also happens when stdout is not a
terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, true)
			if err != nil {
				return err
			}
			opts := c.pipelineOptions()
			if cmd.Flags().Changed("strict") {
				opts.StrictMoves = strict
			}
			g, _, err := runner.Replay(ctx, s, opts)
			if err != nil {
				return err
			}

			m := newMinimap(g)
			if plain || !isTerminal(os.Stdout) {
				fmt.Println(m.Plain())
				printDetail("%d of %d segments occupied", m.OccupiedCount(), m.Width*m.Height)
				return nil
			}
			_, err = tea.NewProgram(newMinimapModel(scriptName(args[0]), m), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the grid without the interactive view")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail a step when a move is refused")
	return cmd
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
