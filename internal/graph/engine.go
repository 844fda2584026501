package graph

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// batchSize bounds the work done per fetch so arbitrarily long histories
// stay responsive. Remaining commits are served on the next fetch request.
const batchSize = 64

// SortMode selects the traversal order requested from the walk source.
type SortMode uint8

const (
	SortTopological SortMode = 1 << iota
	SortTime
)

// SortNone requests the source's natural order.
const SortNone SortMode = 0

// Ref describes the reference a traversal starts from.
type Ref struct {
	Name          string
	Hash          plumbing.Hash
	IsHead        bool
	IsLocalBranch bool
}

// Settings are the walker toggles read at reset time.
type Settings struct {
	AllRefs      bool
	SortDate     bool
	CleanStatus  bool
	GraphVisible bool
	Compact      bool
}

// WalkOptions configures one traversal.
type WalkOptions struct {
	Sort     SortMode
	AllRefs  bool
	Pathspec string
}

// Walker yields commits in traversal order. It is lazy, finite and
// non-restartable; exhaustion is reported as io.EOF.
type Walker interface {
	Next() (*object.Commit, error)
}

// WalkSource creates walkers. Implementations push the reference itself
// plus any companion start points (upstream, merge head, all refs) before
// returning.
type WalkSource interface {
	Walk(ref Ref, opts WalkOptions) (Walker, error)
}

// StatusChecker is the asynchronous uncommitted-changes probe. At most one
// check runs at a time; Start cancels and awaits any previous check.
type StatusChecker interface {
	Start()
	Cancel()
	Finished() bool
	Dirty() bool
}

// Engine converts the commit stream into graph rows, one bounded batch per
// fetch, preserving lane continuity across batches. It is single-threaded
// and not reentrant: callers must not request more rows while a fetch is in
// progress.
type Engine struct {
	source WalkSource
	status StatusChecker

	lanes  laneTable
	output model
	walker Walker

	// placed tracks commits already emitted as rows (or buffered in the
	// current batch) so shared ancestors reachable via multiple paths do
	// not open duplicate lanes.
	placed map[plumbing.Hash]struct{}

	ref      *Ref
	pathspec string
	settings Settings
}

func New(source WalkSource, status StatusChecker, settings Settings, palette []Color) *Engine {
	return &Engine{
		source:   source,
		status:   status,
		settings: settings,
		lanes:    laneTable{palette: palette},
		placed:   map[plumbing.Hash]struct{}{},
	}
}

// SetReference retargets the engine. Tracking HEAD (or no reference at all)
// restarts the status check, since the working tree state is only
// meaningful relative to the checked-out branch.
func (e *Engine) SetReference(ref *Ref) {
	e.ref = ref
	if ref == nil || ref.IsHead {
		e.status.Start()
	}
	e.Reset()
}

// SetPathspec filters the traversal to commits touching the path. A
// non-empty pathspec suppresses graph segment computation entirely.
func (e *Engine) SetPathspec(pathspec string) {
	if e.pathspec == pathspec {
		return
	}
	e.pathspec = pathspec
	e.Reset()
}

func (e *Engine) Settings() Settings {
	return e.settings
}

func (e *Engine) Reference() *Ref {
	return e.ref
}

// Apply consumes a reset trigger.
func (e *Engine) Apply(ev Event) {
	switch ev := ev.(type) {
	case ReferenceChanged:
		if ev.Ref != nil && e.ref != nil && ev.Ref.Name == e.ref.Name {
			e.ref = ev.Ref
		}
		// Status is invalid after HEAD changes.
		if ev.Ref == nil || ev.Ref.IsHead {
			e.status.Start()
		}
		e.Reset()
	case SettingsChanged:
		e.settings = ev.Settings
		e.Reset()
	case WorkdirChanged:
		if e.ref == nil || e.ref.IsHead {
			e.status.Start()
		}
		e.Reset()
	case StatusResolved:
		e.Reset()
	}
}

// Reset discards the lane table and row sequence, re-evaluates the
// synthetic status row, restarts the traversal and fetches the first batch.
func (e *Engine) Reset() {
	e.lanes.clear()
	e.output.reset()
	e.placed = map[plumbing.Hash]struct{}{}
	e.walker = nil

	head := e.ref == nil || e.ref.IsHead
	valid := e.settings.CleanStatus || !e.status.Finished() || e.status.Dirty()
	if head && valid && e.pathspec == "" {
		var cols []Column
		if e.settings.GraphVisible && e.ref != nil && e.status.Finished() {
			// The dashed pending connector from the status row down into
			// real history, before the tip commit has been walked.
			cols = []Column{{
				{Kind: Bottom, Color: TaintedColor},
				{Kind: Dot},
			}}
			e.lanes.seedStatus(e.ref.Hash)
		}
		e.output.append(StatusRow{Checking: !e.status.Finished(), Cols: cols})
	}

	if e.ref != nil {
		walker, err := e.source.Walk(*e.ref, WalkOptions{
			Sort:     e.sortMode(),
			AllRefs:  e.settings.AllRefs,
			Pathspec: e.pathspec,
		})
		if err != nil {
			// Unstartable traversal leaves the model empty rather than
			// failing; a later reset re-evaluates.
			slog.Error("start traversal", slog.Any("error", err))
		} else {
			e.walker = walker
		}
	}
	slog.Debug("layout reset",
		slog.Bool("walking", e.walker != nil),
		slog.Int("rows", e.output.len()),
	)

	if e.CanFetchMore() {
		if _, err := e.FetchMore(); err != nil {
			slog.Error("fetch commits", slog.Any("error", err))
		}
	}
}

func (e *Engine) sortMode() SortMode {
	var sort SortMode
	if e.settings.GraphVisible {
		sort = SortTopological
		if e.settings.SortDate {
			sort |= SortTime
		}
	} else if !e.settings.SortDate {
		sort = SortTopological
	}
	return sort
}

// CanFetchMore reports whether the traversal may still yield commits.
func (e *Engine) CanFetchMore() bool {
	return e.walker != nil
}

// FetchMore walks up to one batch of commits, lays out their rows and
// appends them to the output in a single step. It returns the number of
// rows appended. The walker handle is released on exhaustion.
func (e *Engine) FetchMore() (int, error) {
	if e.walker == nil {
		return 0, nil
	}
	batch := make([]Row, 0, batchSize)
	for len(batch) < batchSize {
		commit, err := e.walker.Next()
		if err != nil {
			if err == io.EOF {
				e.walker = nil
				break
			}
			e.output.append(batch...)
			return len(batch), fmt.Errorf("walk commits: %w", err)
		}
		batch = append(batch, e.layoutCommit(commit))
	}
	e.output.append(batch...)
	slog.Debug("batch appended",
		slog.Int("rows", len(batch)),
		slog.Int("total", e.output.len()),
		slog.Bool("more", e.walker != nil),
	)
	return len(batch), nil
}

// layoutCommit updates the lane table for one commit and builds its row.
func (e *Engine) layoutCommit(commit *object.Commit) Row {
	root := e.lanes.indexOf(commit.Hash) < 0
	if root {
		e.lanes.insertRoot(commit.Hash)
	}

	snapshot := e.lanes.snapshot()

	var unseen []plumbing.Hash
	for _, parent := range commit.ParentHashes {
		if e.lanes.indexOf(parent) < 0 && !e.isPlaced(parent) {
			unseen = append(unseen, parent)
		}
	}
	e.lanes.advance(commit.Hash, unseen)

	var cols []Column
	if e.settings.GraphVisible && e.pathspec == "" {
		cols = e.lanes.buildRow(commit, snapshot, root)
	}

	e.placed[commit.Hash] = struct{}{}
	return CommitRow{Commit: commit, Cols: cols}
}

func (e *Engine) isPlaced(h plumbing.Hash) bool {
	_, ok := e.placed[h]
	return ok
}

// Len returns the number of rows currently available.
func (e *Engine) Len() int {
	return e.output.len()
}

// RowAt returns the row at index i. Emitted rows never change until the
// next reset.
func (e *Engine) RowAt(i int) Row {
	return e.output.at(i)
}

// Rows returns the full row sequence. The slice must be treated as
// read-only.
func (e *Engine) Rows() []Row {
	return e.output.rows
}

// Lanes returns a copy of the active lane table, exposed for invariant
// checks in tests.
func (e *Engine) Lanes() []Lane {
	return e.lanes.snapshot()
}
