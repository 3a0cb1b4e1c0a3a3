package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SeedsFixedColumns(t *testing.T) {
	m := New()

	cols := m.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "Patent", cols[0].Name)
	assert.Equal(t, "Table", cols[1].Name)
	assert.True(t, cols[0].Fixed)
	assert.True(t, cols[1].Fixed)
}

func TestAddColumn_SequentialNames(t *testing.T) {
	m := New()

	for i := 1; i <= 5; i++ {
		col := m.AddColumn()
		assert.Equal(t, fmt.Sprintf("Column %d", i), col.Name)
		assert.Equal(t, TypeText, col.Type)
	}
}

func TestAddColumn_NeverReusesRetiredNumber(t *testing.T) {
	m := New()
	m.AddColumn() // Column 1
	m.AddColumn() // Column 2
	require.True(t, m.Rename("Column 2", "Thickness"))

	col := m.AddColumn()

	// Counter keeps going even though "Column 2" is free again.
	assert.Equal(t, "Column 3", col.Name)
}

func TestAddColumn_ProbesPastCollision(t *testing.T) {
	m := New()
	m.AddColumn() // Column 1
	require.True(t, m.Rename("Column 1", "Column 2"))

	col := m.AddColumn()

	// Probe for "Column 2" collides, moves on to "Column 3".
	assert.Equal(t, "Column 3", col.Name)
}

func TestRename_NoOpCases(t *testing.T) {
	m := New()
	m.AddColumn() // Column 1
	m.AddColumn() // Column 2

	assert.False(t, m.Rename("Column 1", ""), "empty name")
	assert.False(t, m.Rename("Column 1", "Column 1"), "identical name")
	assert.False(t, m.Rename("Column 1", "column 2"), "case-insensitive collision")
	assert.False(t, m.Rename("Patent", "Document"), "fixed column")
	assert.False(t, m.Rename("Nope", "X"), "unknown column")

	// Changing only the case of its own name is allowed.
	assert.True(t, m.Rename("Column 1", "COLUMN 1"))
	assert.Equal(t, []string{"Patent", "Table", "COLUMN 1", "Column 2"}, m.Names())
}

func TestRetype(t *testing.T) {
	m := New()
	m.AddColumn()

	assert.True(t, m.Retype("Column 1", TypeNumeric))
	assert.Equal(t, TypeNumeric, m.Columns()[2].Type)

	assert.False(t, m.Retype("Patent", TypeNumeric), "fixed column keeps its type")
	assert.False(t, m.Retype("Missing", TypeNumeric))
}

func TestReconcileWithHeader(t *testing.T) {
	m := New()
	m.AddColumn()
	require.True(t, m.Retype("Column 1", TypeNumeric))
	require.True(t, m.Rename("Column 1", "Thickness"))

	m.ReconcileWithHeader([]string{"Patent", "Table", "Thickness", "Melting Point"})

	cols := m.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, []string{"Patent", "Table", "Thickness", "Melting Point"}, m.Names())
	assert.True(t, cols[0].Fixed)
	assert.Equal(t, TypeNumeric, cols[2].Type, "existing name keeps its chosen type")
	assert.Equal(t, TypeText, cols[3].Type, "new name defaults to TEXT")

	// Counter is untouched by reconciliation.
	assert.Equal(t, "Column 2", m.AddColumn().Name)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeNumeric, ParseType("numeric"))
	assert.Equal(t, TypeNumeric, ParseType(" NUMERIC "))
	assert.Equal(t, TypeText, ParseType("TEXT"))
	assert.Equal(t, TypeText, ParseType("anything"))
	assert.Equal(t, "NUMERIC", TypeNumeric.String())
	assert.Equal(t, "TEXT", TypeText.String())
}

func TestAddNamed(t *testing.T) {
	m := New()

	assert.True(t, m.AddNamed("Thickness", TypeNumeric))
	assert.False(t, m.AddNamed("thickness", TypeText), "case-insensitive collision")
	assert.False(t, m.AddNamed("  ", TypeText))
	assert.Len(t, m.UserColumns(), 1)
}
