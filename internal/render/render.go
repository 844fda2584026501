package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gitlanes/gitlanes/internal/graph"
)

const (
	checkingStatusText = "Checking for uncommitted changes"
	dirtyStatusText    = "Uncommitted changes"
)

// Renderer turns graph rows into terminal lines.
type Renderer struct {
	theme  Theme
	styles map[graph.Color]lipgloss.Style
	dim    lipgloss.Style
	status lipgloss.Style
}

func New(theme Theme) *Renderer {
	return &Renderer{
		theme:  theme,
		styles: map[graph.Color]lipgloss.Style{},
		dim:    lipgloss.NewStyle().Faint(true),
		status: lipgloss.NewStyle().Italic(true).Faint(true),
	}
}

// Row renders one row at the given graph width (in lanes), so all rows of a
// listing share gutter alignment. Compact mode keeps everything on a single
// line; otherwise the author follows on an indented second line.
func (r *Renderer) Row(row graph.Row, width int, compact bool) string {
	gutter := r.gutter(row.Columns(), width)
	switch row := row.(type) {
	case graph.StatusRow:
		text := dirtyStatusText
		if row.Checking {
			text = checkingStatusText
		}
		return gutter + r.status.Render(text)
	case graph.CommitRow:
		line := gutter + Summary(row.Commit)
		if compact {
			return line
		}
		pad := strings.Repeat(" ", width*2)
		author := fmt.Sprintf("%s <%s>", row.Commit.Author.Name, row.Commit.Author.Email)
		return line + "\n" + pad + r.dim.Render(author)
	}
	return gutter
}

// Rows renders every row, sized to the widest gutter in the sequence.
func (r *Renderer) Rows(rows []graph.Row, compact bool) string {
	width := 0
	for _, row := range rows {
		if n := len(row.Columns()); n > width {
			width = n
		}
	}
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Row(row, width, compact))
	}
	return b.String()
}

// gutter renders the lane cells of one row, two screen cells per lane.
func (r *Renderer) gutter(cols []graph.Column, width int) string {
	if width == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < len(cols) {
			glyph, color := cellGlyph(cols[i])
			b.WriteString(r.style(color).Render(string(glyph)))
		} else {
			b.WriteByte(' ')
		}
		b.WriteByte(' ')
	}
	return b.String()
}

func (r *Renderer) style(color graph.Color) lipgloss.Style {
	if r.theme.NoColor {
		return lipgloss.NewStyle()
	}
	if style, ok := r.styles[color]; ok {
		return style
	}
	style := lipgloss.NewStyle()
	if color != "" {
		style = style.Foreground(lipgloss.Color(string(color)))
	}
	r.styles[color] = style
	return style
}

// cellGlyph collapses a column's segments into a single cell. Dots win,
// then turn and crossing shapes, then plain verticals. The tainted lane's
// verticals render dashed.
func cellGlyph(col graph.Column) (rune, graph.Color) {
	var dot, top, middle, bottom, cross bool
	var leftIn, leftOut, rightIn, rightOut bool
	var dotColor, turnColor, vertColor graph.Color
	var haveTurn, haveVert bool

	for _, seg := range col {
		switch seg.Kind {
		case graph.Dot:
			dot = true
			dotColor = seg.Color
		case graph.Top:
			top = true
		case graph.Middle:
			middle = true
		case graph.Bottom:
			bottom = true
		case graph.Cross:
			cross = true
		case graph.LeftIn:
			leftIn = true
		case graph.LeftOut:
			leftOut = true
		case graph.RightIn:
			rightIn = true
		case graph.RightOut:
			rightOut = true
		}
		switch seg.Kind {
		case graph.LeftIn, graph.LeftOut, graph.RightIn, graph.RightOut, graph.Cross:
			if !haveTurn {
				turnColor = seg.Color
				haveTurn = true
			}
		case graph.Top, graph.Middle, graph.Bottom:
			if !haveVert {
				vertColor = seg.Color
				haveVert = true
			}
		}
	}

	vertical := top || middle || bottom
	switch {
	case dot:
		return '●', dotColor
	case (leftIn || leftOut) && vertical:
		return '┤', turnColor
	case (rightIn || rightOut) && vertical:
		return '├', turnColor
	case leftIn:
		return '╮', turnColor
	case rightIn:
		return '╭', turnColor
	case leftOut:
		return '╯', turnColor
	case rightOut:
		return '╰', turnColor
	case cross && vertical:
		return '┼', turnColor
	case cross:
		return '─', turnColor
	case vertical:
		if vertColor == graph.TaintedColor {
			return '┆', vertColor
		}
		return '│', vertColor
	}
	return ' ', ""
}

// Summary is the one-line commit listing: short hash, date, subject.
func Summary(c *object.Commit) string {
	subject := strings.SplitN(strings.TrimSpace(c.Message), "\n", 2)[0]
	if len(subject) > 80 {
		subject = subject[:77] + "..."
	}
	timestamp := c.Committer.When.Format("2006-01-02 15:04")
	return fmt.Sprintf("%s  %s  %s", c.Hash.String()[:7], timestamp, subject)
}
