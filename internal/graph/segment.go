package graph

import "github.com/go-git/go-git/v5/plumbing/object"

// SegmentKind identifies one drawable primitive occupying a lane cell.
type SegmentKind int

const (
	Dot SegmentKind = iota
	Top
	Middle
	Bottom
	Cross
	LeftIn
	LeftOut
	RightIn
	RightOut
)

func (k SegmentKind) String() string {
	switch k {
	case Dot:
		return "dot"
	case Top:
		return "top"
	case Middle:
		return "middle"
	case Bottom:
		return "bottom"
	case Cross:
		return "cross"
	case LeftIn:
		return "left-in"
	case LeftOut:
		return "left-out"
	case RightIn:
		return "right-in"
	case RightOut:
		return "right-out"
	}
	return "unknown"
}

// Color is a hex color drawn from the active palette. The zero value means
// the renderer's default foreground.
type Color string

type Segment struct {
	Kind  SegmentKind
	Color Color
}

// Column is the ordered segment list drawn in a single lane for one row:
// incoming Top segments first, then routing segments, then the terminal Dot
// or Middle. The ordering lets a renderer draw a continuous vertical line
// interrupted by the dot.
type Column []Segment

// Row is one record of the output sequence: either a walked commit or the
// synthetic uncommitted-changes row. Renderers type-switch on the two
// concrete variants.
type Row interface {
	Columns() []Column
}

type CommitRow struct {
	Commit *object.Commit
	Cols   []Column
}

func (r CommitRow) Columns() []Column { return r.Cols }

// StatusRow is the synthetic leading row that stands in for the working
// tree. Checking reports whether the status check was still outstanding
// when the row was built.
type StatusRow struct {
	Checking bool
	Cols     []Column
}

func (r StatusRow) Columns() []Column { return r.Cols }
