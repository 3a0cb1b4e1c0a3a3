package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Empty(t *testing.T) {
	assert.Empty(t, Decode("").Rows)
	assert.Empty(t, Decode("   \n \n").Rows)
	assert.True(t, Decode("").Empty())
}

func TestDecode_Simple(t *testing.T) {
	tbl := Decode("a,b\n1,2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)
	assert.Equal(t, Row{"a": "1", "b": "2"}, tbl.Rows[0])
}

func TestDecode_QuotedComma(t *testing.T) {
	tbl := Decode("a,b\n\"x,y\",2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": "x,y", "b": "2"}, tbl.Rows[0])
}

func TestDecode_DoubledQuote(t *testing.T) {
	tbl := Decode("a\n\"he said \"\"hi\"\"\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, `he said "hi"`, tbl.Rows[0]["a"])
}

func TestDecode_QuotedLineBreak(t *testing.T) {
	tbl := Decode("a,b\n\"line1\nline2\",2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "line1\nline2", tbl.Rows[0]["a"])
}

func TestDecode_TrimsFields(t *testing.T) {
	tbl := Decode("a, b \n  1 ,\t2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)
	assert.Equal(t, Row{"a": "1", "b": "2"}, tbl.Rows[0])
}

func TestDecode_ShortRowPadded(t *testing.T) {
	tbl := Decode("a,b,c\n1,2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": "1", "b": "2", "c": ""}, tbl.Rows[0])
}

func TestDecode_LongRowTruncated(t *testing.T) {
	tbl := Decode("a,b\n1,2,3,4\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": "1", "b": "2"}, tbl.Rows[0])
}

func TestDecode_BlankLinesSkipped(t *testing.T) {
	tbl := Decode("a,b\n\n1,2\n   \n3,4\n\n")

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1", tbl.Rows[0]["a"])
	assert.Equal(t, "3", tbl.Rows[1]["a"])
}

func TestDecode_CRLF(t *testing.T) {
	tbl := Decode("a,b\r\n1,2\r\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": "1", "b": "2"}, tbl.Rows[0])
}

func TestDecode_NoTrailingNewline(t *testing.T) {
	tbl := Decode("a,b\n1,2")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, Row{"a": "1", "b": "2"}, tbl.Rows[0])
}

func TestDecode_DuplicateHeaderLastWins(t *testing.T) {
	tbl := Decode("a,a\n1,2\n")

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"a", "a"}, tbl.Header)
	assert.Equal(t, "2", tbl.Rows[0]["a"])
}

func TestEncode_RoundTrip(t *testing.T) {
	header := []string{"Material", "Notes", "Temp"}
	rows := []Row{
		{"Material": "PE, 25um", "Notes": `said "stable"`, "Temp": "130"},
		{"Material": "PP", "Notes": "line1\nline2", "Temp": "165"},
		{"Material": "", "Notes": "plain", "Temp": "90"},
	}

	decoded := Decode(Encode(header, rows))

	require.Equal(t, header, decoded.Header)
	require.Len(t, decoded.Rows, len(rows))
	for i, want := range rows {
		assert.Equal(t, want, decoded.Rows[i], "row %d", i)
	}
}
