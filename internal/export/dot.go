// Package export writes the walked commit topology as Graphviz DOT or a
// rendered SVG.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/goccy/go-graphviz"

	"github.com/gitlanes/gitlanes/internal/graph"
	"github.com/gitlanes/gitlanes/internal/render"
)

// ToDOT converts the row sequence to DOT. Nodes carry their lane color;
// edges point from commit to parent and are emitted only when both ends
// were walked, keeping the graph closed over the visible history.
func ToDOT(rows []graph.Row) string {
	var buf bytes.Buffer
	buf.WriteString("digraph commits {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"monospace\"];\n")
	buf.WriteString("\n")

	walked := make(map[plumbing.Hash]struct{}, len(rows))
	for _, row := range rows {
		commit, ok := row.(graph.CommitRow)
		if !ok {
			continue
		}
		walked[commit.Commit.Hash] = struct{}{}
	}

	for _, row := range rows {
		commit, ok := row.(graph.CommitRow)
		if !ok {
			continue
		}
		attrs := []string{fmt.Sprintf("label=%q", render.Summary(commit.Commit))}
		if color := dotColor(commit.Cols); color != "" {
			attrs = append(attrs, fmt.Sprintf("color=%q", string(color)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", commit.Commit.Hash.String()[:7], strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, row := range rows {
		commit, ok := row.(graph.CommitRow)
		if !ok {
			continue
		}
		for _, parent := range commit.Commit.ParentHashes {
			if _, ok := walked[parent]; !ok {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n",
				commit.Commit.Hash.String()[:7], parent.String()[:7])
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// dotColor finds the color of the row's Dot segment.
func dotColor(cols []graph.Column) graph.Color {
	for _, col := range cols {
		for _, seg := range col {
			if seg.Kind == graph.Dot {
				return seg.Color
			}
		}
	}
	return ""
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
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

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
