package graph

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// buildRow computes the columns for one commit row. snapshot is the lane
// order that existed before the commit advanced the table; the receiver
// holds the post-advance state, which is where outgoing edges find their
// target columns. root suppresses the incoming edge of the lane that was
// just opened for the commit itself.
func (t *laneTable) buildRow(commit *object.Commit, snapshot []Lane, root bool) []Column {
	count := len(snapshot)
	columns := make([]Column, count)

	// Incoming paths.
	incoming := count
	if root {
		incoming = count - 1
	}
	for i := 0; i < incoming; i++ {
		columns[i] = append(columns[i], Segment{Kind: Top, Color: snapshot[i].taintedColor(commit.Hash)})
	}

	// Outgoing paths.
	for i := 0; i < count; i++ {
		lane := snapshot[i]

		// The owning lane fans out to every parent; any other lane passes
		// straight through to the commit it is still waiting on.
		var successors []plumbing.Hash
		if lane.ID == commit.Hash {
			successors = commit.ParentHashes
		} else {
			successors = []plumbing.Hash{lane.ID}
		}

		for _, successor := range successors {
			j := t.indexOf(successor)
			if j < 0 {
				// Elided ancestor: already placed, or unreachable in a
				// shallow history. Its edge is simply not drawn.
				continue
			}

			// Edges converging on a shared parent keep the carried color of
			// the target lane so each incoming branch shows its own color.
			color := lane.taintedColor(commit.Hash)
			if len(successors) > 1 {
				color = t.lanes[j].Color
			}

			switch {
			case j < i:
				columns[j] = append(columns[j], Segment{Kind: RightIn, Color: color})
				for k := j + 1; k < i; k++ {
					columns[k] = append(columns[k], Segment{Kind: Cross, Color: color})
				}
				columns[i] = append(columns[i], Segment{Kind: LeftOut, Color: color})
			case j > i:
				columns[i] = append(columns[i], Segment{Kind: RightOut, Color: color})
				for k := i + 1; k < j; k++ {
					columns[k] = append(columns[k], Segment{Kind: Cross, Color: color})
				}
				if j == len(columns) {
					columns = append(columns, Column{})
				}
				columns[j] = append(columns[j], Segment{Kind: LeftIn, Color: color})
			default:
				columns[i] = append(columns[i], Segment{Kind: Bottom, Color: color})
			}
		}
	}

	// Terminal dot or pass-through line, always last within the column.
	for i := 0; i < count; i++ {
		lane := snapshot[i]
		kind := Middle
		if lane.ID == commit.Hash {
			kind = Dot
		}
		columns[i] = append(columns[i], Segment{Kind: kind, Color: lane.taintedColor(commit.Hash)})
	}

	return columns
}
