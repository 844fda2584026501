package graph

// model is the append-only ordered row sequence exposed to renderers. Rows
// are never mutated or reordered once appended; the only destructive
// operation is a wholesale reset.
type model struct {
	rows []Row
}

func (m *model) append(rows ...Row) {
	m.rows = append(m.rows, rows...)
}

func (m *model) at(i int) Row {
	return m.rows[i]
}

func (m *model) len() int {
	return len(m.rows)
}

func (m *model) reset() {
	m.rows = nil
}
