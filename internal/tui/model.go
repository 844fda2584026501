// Package tui is the interactive commit-graph viewer. Scrolling toward the
// end of the loaded rows pulls the next batch from the layout engine, so
// arbitrarily long histories load incrementally.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gitlanes/gitlanes/internal/graph"
	"github.com/gitlanes/gitlanes/internal/render"
	"github.com/gitlanes/gitlanes/internal/watch"
)

// fetchThreshold is how close to the end the cursor may get before the next
// batch is requested.
const fetchThreshold = 16

// statusTickInterval drives the busy indicator while the status check is
// outstanding. Purely cosmetic; it stops the moment the check finishes.
const statusTickInterval = 50 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

type (
	statusDoneMsg  struct{ done <-chan struct{} }
	workdirMsg     struct{}
	statusTickMsg  struct{}
	watcherGoneMsg struct{}
)

// Status is the slice of the status checker the viewer needs: completion
// signalling for arming waits and the busy indicator.
type Status interface {
	Done() <-chan struct{}
	Finished() bool
}

type Model struct {
	engine   *graph.Engine
	status   Status
	watcher  *watch.Watcher
	renderer *render.Renderer
	compact  bool

	cursor   int
	offset   int
	width    int
	height   int
	progress int
	err      error

	header lipgloss.Style
	footer lipgloss.Style
	marker lipgloss.Style
}

func New(engine *graph.Engine, status Status, watcher *watch.Watcher, renderer *render.Renderer, compact bool) Model {
	return Model{
		engine:   engine,
		status:   status,
		watcher:  watcher,
		renderer: renderer,
		compact:  compact,
		height:   24,
		width:    80,
		header:   lipgloss.NewStyle().Bold(true),
		footer:   lipgloss.NewStyle().Faint(true),
		marker:   lipgloss.NewStyle().Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.awaitStatus(), m.awaitWorkdir(), m.tick())
}

// awaitStatus arms a command on the current status run's completion
// channel. The channel is captured now so a later restart does not leak a
// stale wait.
func (m Model) awaitStatus() tea.Cmd {
	done := m.status.Done()
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return statusDoneMsg{done: done}
	}
}

func (m Model) awaitWorkdir() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	events := m.watcher.Events()
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return watcherGoneMsg{}
		}
		return workdirMsg{}
	}
}

func (m Model) tick() tea.Cmd {
	if m.status.Finished() {
		return nil
	}
	return tea.Tick(statusTickInterval, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case statusTickMsg:
		if m.status.Finished() {
			return m, nil
		}
		m.progress++
		return m, m.tick()

	case statusDoneMsg:
		if msg.done == m.status.Done() {
			m.engine.Apply(graph.StatusResolved{})
			m.clampScroll()
		}
		return m, nil

	case workdirMsg:
		slog.Debug("workdir changed, resetting layout")
		m.engine.Apply(graph.WorkdirChanged{})
		m.progress = 0
		m.clampScroll()
		return m, tea.Batch(m.awaitStatus(), m.awaitWorkdir(), m.tick())

	case watcherGoneMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup", "ctrl+u":
		m.moveCursor(-m.pageSize())
	case "pgdown", "ctrl+d":
		m.moveCursor(m.pageSize())
	case "g":
		m.cursor = 0
		m.offset = 0
	case "G":
		m.drainAll()
		m.moveCursor(m.engine.Len())
	case "r":
		m.engine.Apply(graph.WorkdirChanged{})
		m.progress = 0
		m.clampScroll()
		return m, tea.Batch(m.awaitStatus(), m.tick())
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.fetchAhead()
	if max := m.engine.Len() - 1; m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
}

// fetchAhead pulls the next batch when the cursor closes in on the loaded
// end. The engine is not reentrant; Update is the only caller, so running
// the batch synchronously here is safe.
func (m *Model) fetchAhead() {
	for m.engine.CanFetchMore() && m.cursor >= m.engine.Len()-fetchThreshold {
		n, err := m.engine.FetchMore()
		if err != nil {
			m.err = err
			return
		}
		if n == 0 {
			return
		}
	}
}

func (m *Model) drainAll() {
	for m.engine.CanFetchMore() {
		if _, err := m.engine.FetchMore(); err != nil {
			m.err = err
			return
		}
	}
}

func (m *Model) pageSize() int {
	rows := m.height - 2
	if !m.compact {
		rows /= 2
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampScroll() {
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	ref := "(no reference)"
	if r := m.engine.Reference(); r != nil {
		ref = r.Name
	}
	b.WriteString(m.header.Render(fmt.Sprintf("gitlanes — %s", ref)))
	b.WriteByte('\n')

	width := 0
	rows := m.engine.Rows()
	for _, row := range rows {
		if n := len(row.Columns()); n > width {
			width = n
		}
	}

	page := m.pageSize()
	end := m.offset + page
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		line := m.renderer.Row(rows[i], width, m.compact)
		if i == m.cursor {
			b.WriteString(m.marker.Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString(m.footer.Render(m.footerText(len(rows))))
	return b.String()
}

func (m Model) footerText(total int) string {
	var parts []string
	if !m.status.Finished() {
		frame := spinnerFrames[m.progress%len(spinnerFrames)]
		parts = append(parts, fmt.Sprintf("%c checking status", frame))
	}
	pos := fmt.Sprintf("%d/%d", m.cursor+1, total)
	if m.engine.CanFetchMore() {
		pos += "+"
	}
	parts = append(parts, pos)
	if m.err != nil {
		parts = append(parts, fmt.Sprintf("error: %v", m.err))
	}
	parts = append(parts, "q quit · j/k move · r reload")
	return strings.Join(parts, "  ·  ")
}
