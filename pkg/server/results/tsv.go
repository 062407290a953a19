package results

import (
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/model"
)

var tsvEscaper = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n", "\r", "\\r")

// FormatRecordsTSV renders records as tab-separated values with a header
// row. Tabs and line breaks inside values are escaped.
func FormatRecordsTSV(records []model.Record) []byte {
	var builder strings.Builder
	builder.WriteString(strings.Join(header, "\t"))
	builder.WriteString("\n")

	for _, r := range records {
		for i, col := range flatten(r) {
			if i > 0 {
				builder.WriteString("\t")
			}
			builder.WriteString(tsvEscaper.Replace(col))
		}
		builder.WriteString("\n")
	}
	return []byte(builder.String())
}
