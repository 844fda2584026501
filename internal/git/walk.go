package git

import (
	"bytes"
	"container/heap"
	"io"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/gitlanes/gitlanes/internal/graph"
)

// revWalk is a lazy multi-root commit walker. Commits are popped newest
// first by committer time; topological mode additionally holds a commit
// back while any discovered child has not been emitted yet (a lazy Kahn
// ordering over the discovered subgraph).
//
// Parents that cannot be resolved in the object store (shallow history) are
// skipped silently: they mark the edge of the visible graph, not an error.
type revWalk struct {
	store    storer.EncodedObjectStorer
	sort     graph.SortMode
	pathspec string

	queue commitQueue
	seen  map[plumbing.Hash]struct{}

	// children counts discovered, not-yet-emitted children per commit.
	// held parks commits popped while a child is still pending.
	children map[plumbing.Hash]int
	held     map[plumbing.Hash]*object.Commit
}

func newRevWalk(store storer.EncodedObjectStorer, sort graph.SortMode, pathspec string) *revWalk {
	return &revWalk{
		store:    store,
		sort:     sort,
		pathspec: pathspec,
		seen:     map[plumbing.Hash]struct{}{},
		children: map[plumbing.Hash]int{},
		held:     map[plumbing.Hash]*object.Commit{},
	}
}

// Push adds a start point. Pushing the same commit twice is a no-op.
func (w *revWalk) Push(h plumbing.Hash) error {
	if _, ok := w.seen[h]; ok {
		return nil
	}
	commit, err := object.GetCommit(w.store, h)
	if err != nil {
		return err
	}
	w.seen[h] = struct{}{}
	w.enqueue(commit)
	return nil
}

// pushQuiet adds a companion start point, tolerating unresolvable hashes.
func (w *revWalk) pushQuiet(h plumbing.Hash) {
	if h == plumbing.ZeroHash {
		return
	}
	if err := w.Push(h); err != nil {
		slog.Debug("skip unresolvable start point", slog.String("hash", h.String()))
	}
}

func (w *revWalk) enqueue(commit *object.Commit) {
	for _, parent := range commit.ParentHashes {
		w.children[parent]++
	}
	heap.Push(&w.queue, commit)
}

func (w *revWalk) topological() bool {
	return w.sort&graph.SortTopological != 0
}

// Next returns the next commit in the requested order, or io.EOF when the
// traversal is exhausted.
func (w *revWalk) Next() (*object.Commit, error) {
	for {
		if w.queue.Len() == 0 {
			if !w.releaseHeld() {
				return nil, io.EOF
			}
			continue
		}
		commit := heap.Pop(&w.queue).(*object.Commit)
		if w.topological() && w.children[commit.Hash] > 0 {
			w.held[commit.Hash] = commit
			continue
		}
		w.emit(commit)
		if w.pathspec != "" && !w.touchesPath(commit) {
			continue
		}
		return commit, nil
	}
}

// emit marks a commit as produced: its parents become discoverable and any
// parent whose last pending child this was is released from holding.
func (w *revWalk) emit(commit *object.Commit) {
	for _, ph := range commit.ParentHashes {
		w.children[ph]--
		if _, ok := w.seen[ph]; !ok {
			parent, err := object.GetCommit(w.store, ph)
			if err != nil {
				// Shallow edge; never materializes a lane.
				w.seen[ph] = struct{}{}
				continue
			}
			w.seen[ph] = struct{}{}
			w.enqueue(parent)
			continue
		}
		if w.topological() && w.children[ph] <= 0 {
			if held, ok := w.held[ph]; ok {
				delete(w.held, ph)
				heap.Push(&w.queue, held)
			}
		}
	}
}

// releaseHeld flushes parked commits when the queue drains with holds still
// outstanding. Child counts can stay positive when a counted child turned
// out to be unreachable, so this is the liveness backstop.
func (w *revWalk) releaseHeld() bool {
	if len(w.held) == 0 {
		return false
	}
	for h, commit := range w.held {
		delete(w.held, h)
		heap.Push(&w.queue, commit)
	}
	return true
}

// touchesPath reports whether the tree entry at the pathspec differs
// between the commit and its first parent (or exists at all on a root).
func (w *revWalk) touchesPath(commit *object.Commit) bool {
	entry, ok := w.pathEntry(commit)
	if len(commit.ParentHashes) == 0 {
		return ok
	}
	parent, err := object.GetCommit(w.store, commit.ParentHashes[0])
	if err != nil {
		return ok
	}
	parentEntry, parentOK := w.pathEntry(parent)
	if ok != parentOK {
		return true
	}
	if !ok {
		return false
	}
	return entry != parentEntry
}

func (w *revWalk) pathEntry(commit *object.Commit) (plumbing.Hash, bool) {
	tree, err := commit.Tree()
	if err != nil {
		return plumbing.ZeroHash, false
	}
	e, err := tree.FindEntry(w.pathspec)
	if err != nil {
		return plumbing.ZeroHash, false
	}
	return e.Hash, true
}

// commitQueue is a max-heap ordered by committer time, newest first, with
// the hash as a deterministic tie-break.
type commitQueue []*object.Commit

func (q commitQueue) Len() int { return len(q) }

func (q commitQueue) Less(i, j int) bool {
	ti, tj := q[i].Committer.When, q[j].Committer.When
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return bytes.Compare(q[i].Hash[:], q[j].Hash[:]) < 0
}

func (q commitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *commitQueue) Push(x any) {
	*q = append(*q, x.(*object.Commit))
}

func (q *commitQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}
