package graph

import (
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
)

// Lane is one in-flight vertical track: the next commit expected on an open
// branch, the color that branch keeps for its lifetime, and whether the
// lane is the speculative status placeholder.
type Lane struct {
	ID      plumbing.Hash
	Color   Color
	Tainted bool
}

// taintedColor resolves the drawable color of the lane relative to the row
// being built. A tainted lane keeps the placeholder color until the walk
// actually reaches its target commit.
func (l Lane) taintedColor(h plumbing.Hash) Color {
	if l.Tainted && l.ID != h {
		return TaintedColor
	}
	return l.Color
}

// laneTable is the ordered collection of active lanes. Lane lookups are
// linear scans; lane counts are bounded by concurrent branch fan-out, not
// history length.
type laneTable struct {
	lanes   []Lane
	palette []Color
}

func (t *laneTable) clear() {
	t.lanes = t.lanes[:0]
}

func (t *laneTable) indexOf(h plumbing.Hash) int {
	for i, lane := range t.lanes {
		if lane.ID == h {
			return i
		}
	}
	return -1
}

// snapshot copies the current lane order so a row can be built against the
// state that existed before the commit advanced it.
func (t *laneTable) snapshot() []Lane {
	return slices.Clone(t.lanes)
}

// insertRoot opens a new lane for a commit no existing lane is waiting on:
// the start of a newly visible branch.
func (t *laneTable) insertRoot(h plumbing.Hash) {
	t.lanes = append(t.lanes, Lane{ID: h, Color: nextColor(t.palette, t.lanes)})
}

// seedStatus opens the speculative lane linking the synthetic status row to
// the tracked branch tip before the tip commit has been walked.
func (t *laneTable) seedStatus(target plumbing.Hash) {
	t.lanes = append(t.lanes, Lane{ID: target, Color: nextColor(t.palette, t.lanes), Tainted: true})
}

// advance consumes the lane waiting on id after its row has been built.
// The lane is rebound to the first unseen parent so the branch continues in
// the same track and color; additional unseen parents open fresh lanes at
// the end of the table. With no unseen parents the lane terminates into an
// already-visible ancestor.
func (t *laneTable) advance(id plumbing.Hash, unseen []plumbing.Hash) {
	i := t.indexOf(id)
	if i < 0 {
		return
	}
	lane := t.lanes[i]
	t.lanes = slices.Delete(t.lanes, i, i+1)
	if len(unseen) == 0 {
		return
	}
	t.lanes = slices.Insert(t.lanes, i, Lane{ID: unseen[0], Color: lane.Color})
	for _, p := range unseen[1:] {
		t.lanes = append(t.lanes, Lane{ID: p, Color: nextColor(t.palette, t.lanes)})
	}
}
