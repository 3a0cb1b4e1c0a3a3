package tabular

import "strings"

// Encode serializes a header and rows to CSV text, quoting exactly the
// fields that need it. It is the inverse of Decode for values without
// leading or trailing whitespace (which Decode trims away).
func Encode(header []string, rows []Row) string {
	var b strings.Builder
	writeRecord(&b, header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, name := range header {
			rec[i] = row[name]
		}
		writeRecord(&b, rec)
	}
	return b.String()
}

func writeRecord(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeField(f))
	}
	b.WriteByte('\n')
}

// escapeField wraps a field in quotes when it contains a comma, quote, or
// line break, doubling any embedded quotes.
func escapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
