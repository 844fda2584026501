package graph

import (
	"io"
	"slices"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type fakeWalker struct {
	commits []*object.Commit
}

func (w *fakeWalker) Next() (*object.Commit, error) {
	if len(w.commits) == 0 {
		return nil, io.EOF
	}
	c := w.commits[0]
	w.commits = w.commits[1:]
	return c, nil
}

type fakeSource struct {
	commits []*object.Commit
	walks   int
	lastOpt WalkOptions
}

func (s *fakeSource) Walk(ref Ref, opts WalkOptions) (Walker, error) {
	s.walks++
	s.lastOpt = opts
	return &fakeWalker{commits: slices.Clone(s.commits)}, nil
}

type fakeStatus struct {
	finished bool
	dirty    bool
	starts   int
	cancels  int
}

func (s *fakeStatus) Start()         { s.starts++ }
func (s *fakeStatus) Cancel()        { s.cancels++ }
func (s *fakeStatus) Finished() bool { return s.finished }
func (s *fakeStatus) Dirty() bool    { return s.dirty }

var testPalette = []Color{"#111111", "#222222", "#333333", "#444444"}

func testSettings() Settings {
	return Settings{AllRefs: false, SortDate: true, GraphVisible: true}
}

// linearChain builds n commits, newest first, each parenting the next.
func linearChain(n int) []*object.Commit {
	commits := make([]*object.Commit, 0, n)
	for i := 1; i <= n; i++ {
		if i == n {
			commits = append(commits, testCommit(i))
		} else {
			commits = append(commits, testCommit(i, i+1))
		}
	}
	return commits
}

func commitHashes(rows []Row) []plumbing.Hash {
	var out []plumbing.Hash
	for _, row := range rows {
		if c, ok := row.(CommitRow); ok {
			out = append(out, c.Commit.Hash)
		}
	}
	return out
}

func newTestEngine(commits []*object.Commit, status *fakeStatus) (*Engine, *fakeSource) {
	source := &fakeSource{commits: commits}
	engine := New(source, status, testSettings(), testPalette)
	return engine, source
}

func drainEngine(t *testing.T, e *Engine) {
	t.Helper()
	for e.CanFetchMore() {
		if _, err := e.FetchMore(); err != nil {
			t.Fatalf("fetch more: %v", err)
		}
	}
}

func TestEngineEmptyWithoutReference(t *testing.T) {
	status := &fakeStatus{}
	engine, source := newTestEngine(linearChain(3), status)
	engine.SetReference(nil)
	if source.walks != 0 {
		t.Fatalf("traversal must not start without a reference")
	}
	// No reference still tracks the working tree: the placeholder status
	// row appears while the check is outstanding.
	if engine.Len() != 1 {
		t.Fatalf("expected only the status row, got %d rows", engine.Len())
	}
	if _, ok := engine.RowAt(0).(StatusRow); !ok {
		t.Fatalf("expected a status row, got %T", engine.RowAt(0))
	}
	if status.starts != 1 {
		t.Fatalf("status check should start once, started %d times", status.starts)
	}
}

func TestEngineLinearChain(t *testing.T) {
	status := &fakeStatus{finished: true, dirty: false}
	engine, _ := newTestEngine(linearChain(3), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true, IsLocalBranch: true})
	drainEngine(t, engine)

	// Clean tree, clean-status disabled: no status row.
	if engine.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", engine.Len())
	}
	for i := 0; i < 3; i++ {
		row, ok := engine.RowAt(i).(CommitRow)
		if !ok {
			t.Fatalf("row %d: expected commit row, got %T", i, engine.RowAt(i))
		}
		if len(row.Cols) != 1 {
			t.Fatalf("row %d: linear history should have one column, got %d", i, len(row.Cols))
		}
	}
	if len(engine.Lanes()) != 0 {
		t.Fatalf("exhausted linear history should leave no lanes")
	}
}

func TestEngineRootDetection(t *testing.T) {
	// Two unrelated roots: the second opens a new column and color.
	commits := []*object.Commit{testCommit(1, 2), testCommit(3), testCommit(2)}
	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(commits, status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	drainEngine(t, engine)

	row := engine.RowAt(1).(CommitRow)
	if len(row.Cols) != 2 {
		t.Fatalf("second root should appear in a new column, got %d columns", len(row.Cols))
	}
	var dotCol, dotColor = -1, Color("")
	for i, col := range row.Cols {
		for _, seg := range col {
			if seg.Kind == Dot {
				dotCol, dotColor = i, seg.Color
			}
		}
	}
	if dotCol != 1 {
		t.Fatalf("new root's dot should sit in the appended column, got %d", dotCol)
	}
	first := engine.RowAt(0).(CommitRow)
	if dotColor == first.Cols[0][len(first.Cols[0])-1].Color {
		t.Fatalf("new root should get a fresh color")
	}
}

func TestEngineLaneUniqueness(t *testing.T) {
	// Diamond: M -> (A, B) -> C -> root chain.
	commits := []*object.Commit{
		testCommit(1, 2, 3),
		testCommit(2, 4),
		testCommit(3, 4),
		testCommit(4, 5),
		testCommit(5),
	}
	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(commits, status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	for engine.CanFetchMore() {
		assertUniqueLanes(t, engine.Lanes())
		if _, err := engine.FetchMore(); err != nil {
			t.Fatalf("fetch more: %v", err)
		}
	}
	assertUniqueLanes(t, engine.Lanes())
	if got := commitHashes(engine.Rows()); len(got) != 5 {
		t.Fatalf("expected 5 commit rows, got %d", len(got))
	}
}

func TestEngineParentAlreadyPlaced(t *testing.T) {
	// Y lists the already-emitted X as parent (out-of-order stream). No
	// lane may be created for X and the edge is silently elided.
	commits := []*object.Commit{
		testCommit(1, 2), // X
		testCommit(3, 1), // Y, parent already placed
		testCommit(2),
	}
	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(commits, status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	drainEngine(t, engine)

	for _, lane := range engine.Lanes() {
		if lane.ID == testHash(1) {
			t.Fatalf("placed commit must not get a lane")
		}
	}
	rowY := engine.RowAt(1).(CommitRow)
	last := rowY.Cols[len(rowY.Cols)-1]
	assertKinds(t, last, Dot)
}

func TestEngineAppendOnly(t *testing.T) {
	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(linearChain(200), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})

	var snapshots [][]plumbing.Hash
	snapshots = append(snapshots, commitHashes(engine.Rows()))
	for engine.CanFetchMore() {
		if _, err := engine.FetchMore(); err != nil {
			t.Fatalf("fetch more: %v", err)
		}
		snapshots = append(snapshots, commitHashes(engine.Rows()))
	}

	final := snapshots[len(snapshots)-1]
	for i, snap := range snapshots {
		if !slices.Equal(snap, final[:len(snap)]) {
			t.Fatalf("fetch %d mutated previously emitted rows", i)
		}
	}
	if len(final) != 200 {
		t.Fatalf("expected 200 rows, got %d", len(final))
	}
}

func TestEngineBatchTransparency(t *testing.T) {
	status := &fakeStatus{finished: true}

	run := func() []Row {
		engine, _ := newTestEngine(linearChain(200), status)
		engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
		drainEngine(t, engine)
		return engine.Rows()
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i].(CommitRow), second[i].(CommitRow)
		if a.Commit.Hash != b.Commit.Hash {
			t.Fatalf("row %d: commit differs across runs", i)
		}
		if len(a.Cols) != len(b.Cols) {
			t.Fatalf("row %d: column counts differ", i)
		}
		for j := range a.Cols {
			if !slices.Equal(a.Cols[j], b.Cols[j]) {
				t.Fatalf("row %d col %d: segments differ", i, j)
			}
		}
	}
}

func TestEngineDiamondAcrossBatchBoundary(t *testing.T) {
	// Place the merge at the end of batch one so its two branches and
	// their shared ancestor land in batch two.
	var commits []*object.Commit
	for i := 1; i <= 63; i++ {
		commits = append(commits, testCommit(i, i+1))
	}
	commits = append(commits,
		testCommit(64, 65, 66), // merge M, last row of batch one
		testCommit(65, 67),     // branch A
		testCommit(66, 67),     // branch B
		testCommit(67, 68),     // shared ancestor C
		testCommit(68),
	)

	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(commits, status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})

	if engine.Len() != batchSize {
		t.Fatalf("first batch should emit %d rows, got %d", batchSize, engine.Len())
	}
	lanes := engine.Lanes()
	if len(lanes) != 2 {
		t.Fatalf("merge should leave two open lanes across the boundary, got %d", len(lanes))
	}
	assertUniqueLanes(t, lanes)

	drainEngine(t, engine)
	assertUniqueLanes(t, engine.Lanes())
	if engine.Len() != 68 {
		t.Fatalf("expected 68 rows, got %d", engine.Len())
	}

	// The shared ancestor must get exactly one dot in one lane.
	rowC := engine.RowAt(66).(CommitRow)
	if rowC.Commit.Hash != testHash(67) {
		t.Fatalf("row 66 should be the shared ancestor, got %s", rowC.Commit.Hash)
	}
	dots := 0
	for _, col := range rowC.Cols {
		for _, seg := range col {
			if seg.Kind == Dot {
				dots++
			}
		}
	}
	if dots != 1 {
		t.Fatalf("shared ancestor should have exactly one dot, got %d", dots)
	}
}

func TestEngineStatusRowSeeding(t *testing.T) {
	status := &fakeStatus{finished: true, dirty: true}
	engine, _ := newTestEngine(linearChain(2), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true, IsLocalBranch: true})

	row, ok := engine.RowAt(0).(StatusRow)
	if !ok {
		t.Fatalf("first row should be the status row, got %T", engine.RowAt(0))
	}
	if row.Checking {
		t.Fatalf("finished check should not report checking")
	}
	if len(row.Cols) != 1 {
		t.Fatalf("status row should carry one column, got %d", len(row.Cols))
	}
	assertKinds(t, row.Cols[0], Bottom, Dot)
	if row.Cols[0][0].Color != TaintedColor {
		t.Fatalf("status connector should use the placeholder color, got %s", row.Cols[0][0].Color)
	}

	// The tip commit row reconnects with the lane's real color.
	tip := engine.RowAt(1).(CommitRow)
	top := tip.Cols[0][0]
	if top.Kind != Top || top.Color == TaintedColor {
		t.Fatalf("tip row should draw a real-colored Top, got %v %s", top.Kind, top.Color)
	}
}

func TestEngineStatusRowHiddenWhenClean(t *testing.T) {
	status := &fakeStatus{finished: true, dirty: false}
	engine, _ := newTestEngine(linearChain(2), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	if _, ok := engine.RowAt(0).(StatusRow); ok {
		t.Fatalf("clean tree without clean-status must not show a status row")
	}

	settings := testSettings()
	settings.CleanStatus = true
	engine.Apply(SettingsChanged{Settings: settings})
	if _, ok := engine.RowAt(0).(StatusRow); !ok {
		t.Fatalf("clean-status setting should force the status row")
	}
}

func TestEngineStatusRowSkippedOffHead(t *testing.T) {
	status := &fakeStatus{finished: true, dirty: true}
	engine, _ := newTestEngine(linearChain(2), status)
	engine.SetReference(&Ref{Name: "feature", Hash: testHash(1), IsHead: false, IsLocalBranch: true})
	if _, ok := engine.RowAt(0).(StatusRow); ok {
		t.Fatalf("status row only applies while tracking the checked-out branch")
	}
	if status.starts != 0 {
		t.Fatalf("status check should not start off-head, started %d times", status.starts)
	}
}

func TestEnginePathspecDisablesGraph(t *testing.T) {
	status := &fakeStatus{finished: true, dirty: true}
	engine, source := newTestEngine(linearChain(3), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	engine.SetPathspec("some/path")
	drainEngine(t, engine)

	if source.lastOpt.Pathspec != "some/path" {
		t.Fatalf("pathspec not forwarded to the traversal")
	}
	if _, ok := engine.RowAt(0).(StatusRow); ok {
		t.Fatalf("pathspec filtering suppresses the status row")
	}
	for i := 0; i < engine.Len(); i++ {
		if cols := engine.RowAt(i).Columns(); len(cols) != 0 {
			t.Fatalf("row %d: pathspec filtering must skip graph layout", i)
		}
	}
}

func TestEngineGraphHiddenSortMode(t *testing.T) {
	status := &fakeStatus{finished: true}
	engine, source := newTestEngine(linearChain(1), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	if source.lastOpt.Sort != SortTopological|SortTime {
		t.Fatalf("graph mode should request topological+time, got %v", source.lastOpt.Sort)
	}

	settings := testSettings()
	settings.GraphVisible = false
	settings.SortDate = true
	engine.Apply(SettingsChanged{Settings: settings})
	if source.lastOpt.Sort != SortNone {
		t.Fatalf("date-sorted list should request the natural order, got %v", source.lastOpt.Sort)
	}

	settings.SortDate = false
	engine.Apply(SettingsChanged{Settings: settings})
	if source.lastOpt.Sort != SortTopological {
		t.Fatalf("unsorted list should request topological order, got %v", source.lastOpt.Sort)
	}
}

func TestEngineReferenceChangedRetargets(t *testing.T) {
	status := &fakeStatus{finished: true}
	engine, _ := newTestEngine(linearChain(2), status)
	engine.SetReference(&Ref{Name: "main", Hash: testHash(1), IsHead: true})
	starts := status.starts

	// Updated ref with the tracked name retargets the engine.
	engine.Apply(ReferenceChanged{Ref: &Ref{Name: "main", Hash: testHash(9), IsHead: true}})
	if engine.Reference().Hash != testHash(9) {
		t.Fatalf("engine did not retarget to the updated reference")
	}
	if status.starts != starts+1 {
		t.Fatalf("HEAD update should restart the status check")
	}

	// An unrelated ref leaves the target alone but still resets.
	engine.Apply(ReferenceChanged{Ref: &Ref{Name: "other", Hash: testHash(5)}})
	if engine.Reference().Hash != testHash(9) {
		t.Fatalf("unrelated reference update must not retarget")
	}
}
