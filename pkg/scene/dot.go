package scene

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/trackyard/trackyard/pkg/network"
)

// DOTOptions configures the topology view.
type DOTOptions struct {
	// Positions pins nodes at their world coordinates (in meters / 100) so
	// neato keeps the map layout. When false dot lays the graph out freely.
	Positions bool
	// Stops adds the stop names of each track to its edge label.
	Stops bool
}

// ToDOT converts the network to Graphviz DOT. Vertices become nodes and
// tracks become undirected edges. Committed vertices are named v<ID>; the
// uncommitted vertices of an editable graph are numbered n1, n2, ... in
// iteration order.
func ToDOT(src Source, opts DOTOptions) string {
	names := dotNames{}
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=10, width=0.3];\n")
	buf.WriteString("  edge [fontsize=9];\n")
	buf.WriteString("\n")

	for _, v := range src.Vertices() {
		if v.IsDeleted() {
			continue
		}
		label := "new"
		if v.ID() != network.NoID {
			label = fmt.Sprint(v.ID())
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if v.Degree() < 2 {
			attrs = append(attrs, "fillcolor=\"#ffcc80\"")
		}
		if opts.Positions {
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", v.X()/100, -v.Y()/100))
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", names.of(v), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, t := range src.Tracks() {
		if t.IsDeleted() || t.Vertex(0) == nil || t.Vertex(1) == nil {
			continue
		}
		label := fmt.Sprintf("%s %.0fm", t.Kind(), t.Length())
		if opts.Stops {
			for _, o := range t.Objects() {
				label += "\n" + o.Name
			}
		}
		fmt.Fprintf(&buf, "  %s -- %s [label=%q];\n", names.of(t.Vertex(0)), names.of(t.Vertex(1)), label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// dotNames assigns node identifiers. Ghosts resolve to their origin's ID.
type dotNames map[*network.Vertex]string

func (n dotNames) of(v *network.Vertex) string {
	if v.ID() != network.NoID {
		return fmt.Sprintf("v%d", v.ID())
	}
	name, ok := n[v]
	if !ok {
		name = fmt.Sprintf("n%d", len(n)+1)
		n[v] = name
	}
	return name
}

// RenderDOT renders a DOT graph to SVG using Graphviz. Graphs built with
// pinned positions need the neato layout to keep them.
func RenderDOT(ctx context.Context, dot string, pinned bool) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if pinned {
		gv.SetLayout(graphviz.NEATO)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
