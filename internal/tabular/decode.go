// Package tabular decodes and encodes the CSV artifacts produced by the
// extraction service.
//
// The service's serializer has a few behaviors that encoding/csv cannot be
// configured to match: every field is whitespace-trimmed after decoding,
// short records are padded against the header and long records truncated,
// blank lines are skipped outright, and a quote appearing mid-field is
// tolerated rather than rejected. Round-trip fidelity with that serializer
// is the correctness requirement, so the decoder is written against its
// exact rules instead of RFC 4180.
package tabular

import "strings"

// Row maps column names to decoded field values.
type Row map[string]string

// Table is a decoded artifact: the header in source order plus one Row per
// data record. Header names are kept as-is; duplicates are not deduplicated,
// and when a record is mapped into a Row a later duplicate column's value
// overwrites an earlier one.
type Table struct {
	Header []string
	Rows   []Row
}

// Empty reports whether the table holds no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Decode parses CSV text into a Table. The first record defines the header.
// Records with fewer fields than the header are padded with empty strings;
// excess fields are dropped. Empty or whitespace-only input yields an empty
// table.
func Decode(text string) Table {
	records := scan(text)
	if len(records) == 0 {
		return Table{}
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// scan splits text into records of trimmed fields using a two-state
// (unquoted/quoted) scanner. Inside quotes, commas and line breaks are
// literal and a doubled quote decodes to one literal quote. Blank lines
// produce no record.
func scan(text string) [][]string {
	var (
		records [][]string
		fields  []string
		field   strings.Builder
		quoted  bool
	)

	endField := func() {
		fields = append(fields, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRecord := func() {
		endField()
		if len(fields) == 1 && fields[0] == "" {
			// Blank line, not an empty record.
			fields = nil
			return
		}
		records = append(records, fields)
		fields = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if quoted {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				quoted = false
				continue
			}
			field.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			quoted = true
		case ',':
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRecord()
		case '\n':
			endRecord()
		default:
			field.WriteByte(c)
		}
	}

	// Flush a final record not terminated by a line break. An unterminated
	// quoted field is taken as-is.
	if field.Len() > 0 || len(fields) > 0 {
		endRecord()
	}

	return records
}
