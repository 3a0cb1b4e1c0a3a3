// Package schema holds the user-editable column schema for an extraction
// job and reconciles it with the header of the final artifact.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType tags a column as free text or numeric.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumeric
)

// String returns the wire form of the type tag.
func (t ColumnType) String() string {
	if t == TypeNumeric {
		return "NUMERIC"
	}
	return "TEXT"
}

// ParseType parses a wire type tag. Anything that is not NUMERIC is TEXT.
func ParseType(s string) ColumnType {
	if strings.EqualFold(strings.TrimSpace(s), "NUMERIC") {
		return TypeNumeric
	}
	return TypeText
}

// Column is one schema entry. Fixed columns are server-reserved identifier
// columns: always present, always first, never renamed or retyped.
type Column struct {
	Name  string
	Type  ColumnType
	Fixed bool
}

// FixedColumns are the reserved identifier columns anchoring every row.
var FixedColumns = []string{"Patent", "Table"}

// Model is the ordered column set. Names are unique under case-insensitive
// comparison. The zero value is not usable; call New.
type Model struct {
	cols    []Column
	counter int
}

// New returns a schema seeded with the fixed reserved columns.
func New() *Model {
	m := &Model{}
	for _, name := range FixedColumns {
		m.cols = append(m.cols, Column{Name: name, Type: TypeText, Fixed: true})
	}
	return m
}

// Columns returns a copy of the current column list in display order.
func (m *Model) Columns() []Column {
	out := make([]Column, len(m.cols))
	copy(out, m.cols)
	return out
}

// Names returns the column names in display order.
func (m *Model) Names() []string {
	names := make([]string, len(m.cols))
	for i, c := range m.cols {
		names[i] = c.Name
	}
	return names
}

// UserColumns returns the non-fixed columns in display order.
func (m *Model) UserColumns() []Column {
	var out []Column
	for _, c := range m.cols {
		if !c.Fixed {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of columns, fixed included.
func (m *Model) Len() int {
	return len(m.cols)
}

// AddColumn appends a new TEXT column named "Column {n}". The counter is
// monotonic: a retired number is never reused, and the probe skips any
// number whose name is already taken.
func (m *Model) AddColumn() Column {
	for {
		m.counter++
		name := fmt.Sprintf("Column %d", m.counter)
		if !m.hasExact(name) {
			col := Column{Name: name, Type: TypeText}
			m.cols = append(m.cols, col)
			return col
		}
	}
}

// AddNamed appends a column with an explicit name and type. It reports
// false if the name is empty or collides case-insensitively with an
// existing column.
func (m *Model) AddNamed(name string, typ ColumnType) bool {
	name = strings.TrimSpace(name)
	if name == "" || m.findFold(name) >= 0 {
		return false
	}
	m.cols = append(m.cols, Column{Name: name, Type: typ})
	return true
}

// Rename changes a column's name. It is a no-op (returning false) when the
// new name is empty, identical to the old one, or collides
// case-insensitively with a different existing column. Fixed columns
// cannot be renamed. Changing only the case of a column's own name is
// allowed.
func (m *Model) Rename(old, newName string) bool {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == old {
		return false
	}
	idx := m.findExact(old)
	if idx < 0 || m.cols[idx].Fixed {
		return false
	}
	if other := m.findFold(newName); other >= 0 && other != idx {
		return false
	}
	m.cols[idx].Name = newName
	return true
}

// Retype sets the type of a non-fixed column unconditionally.
func (m *Model) Retype(name string, typ ColumnType) bool {
	idx := m.findExact(name)
	if idx < 0 || m.cols[idx].Fixed {
		return false
	}
	m.cols[idx].Type = typ
	return true
}

// ReconcileWithHeader rebuilds the column list in header order once the
// final artifact arrives. A header name that existed before keeps its
// previously chosen type and fixed flag; new names default to TEXT. The
// replacement is wholesale: any uncommitted edit is discarded. The name
// counter is unaffected, so retired numbers stay retired.
func (m *Model) ReconcileWithHeader(header []string) {
	prev := m.cols
	next := make([]Column, 0, len(header))
	for _, name := range header {
		col := Column{Name: name, Type: TypeText}
		for _, p := range prev {
			if strings.EqualFold(p.Name, name) {
				col.Type = p.Type
				col.Fixed = p.Fixed
				break
			}
		}
		next = append(next, col)
	}
	m.cols = next
}

func (m *Model) hasExact(name string) bool {
	return m.findExact(name) >= 0
}

func (m *Model) findExact(name string) int {
	for i, c := range m.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) findFold(name string) int {
	for i, c := range m.cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
