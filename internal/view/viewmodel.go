// Package view projects the column schema and progress snapshots into a
// presentation surface. The projection (TableModel) is pure and testable
// without a terminal; the bubbletea program in tui.go is the paint step.
package view

import (
	"strconv"

	"github.com/leapstack-labs/harvest/internal/schema"
	"github.com/leapstack-labs/harvest/internal/tabular"
	"github.com/leapstack-labs/harvest/internal/task"
)

// Badge labels for terminal item outcomes.
const (
	BadgeMatch = "Match"
	BadgeMiss  = "Miss"
)

// badgeFor maps an item status through the closed badge vocabulary. The
// second return is true while the item is still loading, in which case the
// cell keeps its indicator instead of a badge.
func badgeFor(s task.ItemStatus) (string, bool) {
	switch s {
	case task.ItemCompletedRelevant:
		return BadgeMatch, false
	case task.ItemCompletedIrrelevant:
		return BadgeMiss, false
	case task.ItemError:
		return BadgeMiss, false
	case task.ItemPending, task.ItemProcessing:
		return "", true
	}
	return "", true
}

// Cell is one non-fixed cell of a progress row.
type Cell struct {
	Text    string
	Loading bool
}

// RowState is the presentation state of one item row. Version counts
// repaints so tests can assert that unrelated rows were left untouched.
type RowState struct {
	UID     string
	Fixed   []string
	Cells   []Cell
	Version int
}

// TableModel is the renderable projection of schema + snapshot state. It
// mutates incrementally: per progress tick only rows whose item status
// changed are touched, so repaint cost is proportional to the number of
// changes rather than the row count.
type TableModel struct {
	schema *schema.Model
	rows   []*RowState
	byUID  map[string]*RowState
	result tabular.Table
	final  bool
}

// NewTableModel creates a projection over the given schema. The schema is
// shared read-only; the view never mutates it except through Finalize.
func NewTableModel(s *schema.Model) *TableModel {
	return &TableModel{schema: s, byUID: make(map[string]*RowState)}
}

// Header returns the current display header.
func (m *TableModel) Header() []string {
	return m.schema.Names()
}

// Rows returns the live progress rows in display order.
func (m *TableModel) Rows() []*RowState {
	return m.rows
}

// Final reports whether the final result has superseded the progress view.
func (m *TableModel) Final() bool {
	return m.final
}

// Result returns the decoded final table once Final is true.
func (m *TableModel) Result() tabular.Table {
	return m.result
}

// Materialize builds one placeholder row per item, in the given order.
// Every non-fixed cell starts as a loading indicator.
func (m *TableModel) Materialize(items []task.Item) {
	userCols := len(m.schema.UserColumns())
	m.rows = make([]*RowState, 0, len(items))
	m.byUID = make(map[string]*RowState, len(items))
	m.final = false
	for _, item := range items {
		cells := make([]Cell, userCols)
		for i := range cells {
			cells[i].Loading = true
		}
		row := &RowState{
			UID:   item.UID,
			Fixed: []string{item.GroupKey, strconv.Itoa(item.Ordinal)},
			Cells: cells,
		}
		m.rows = append(m.rows, row)
		m.byUID[item.UID] = row
	}
}

// ApplyChanges repaints exactly the rows named in changes. Items that are
// still loading keep their indicator untouched; terminal outcomes stamp the
// badge into every non-fixed cell of that row.
func (m *TableModel) ApplyChanges(changes []task.Change) {
	for _, ch := range changes {
		row, ok := m.byUID[ch.UID]
		if !ok {
			continue
		}
		badge, loading := badgeFor(ch.Status)
		if loading {
			continue
		}
		for i := range row.Cells {
			row.Cells[i] = Cell{Text: badge}
		}
		row.Version++
	}
}

// LoadingRows counts rows that still show a loading indicator.
func (m *TableModel) LoadingRows() int {
	n := 0
	for _, row := range m.rows {
		if len(row.Cells) > 0 && row.Cells[0].Loading {
			n++
		}
	}
	return n
}

// Finalize reconciles the schema with the artifact header and replaces the
// progress rows with the decoded result wholesale.
func (m *TableModel) Finalize(tbl tabular.Table) {
	m.schema.ReconcileWithHeader(tbl.Header)
	m.result = tbl
	m.final = true
	m.rows = nil
	m.byUID = make(map[string]*RowState)
}
