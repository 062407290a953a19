// Package results renders statement records for HTTP responses.
package results

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/model"
)

// Format names an output format for records.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatText Format = "text"
)

// ContentType returns the media type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Format renders records in format f.
func (f Format) Format(records []model.Record) ([]byte, error) {
	switch f {
	case FormatJSON:
		return FormatRecordsJSON(records)
	case FormatCSV:
		return FormatRecordsCSV(records)
	case FormatTSV:
		return FormatRecordsTSV(records), nil
	case FormatText:
		return FormatRecordsText(records), nil
	}
	return nil, fmt.Errorf("unknown format %q", string(f))
}

// Write renders records in format f to w.
func Write(w io.Writer, f Format, records []model.Record) error {
	data, err := f.Format(records)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// FormatRecordsText writes one statement per line, annotations indented
// below it.
func FormatRecordsText(records []model.Record) []byte {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Statement.String())
		b.WriteByte('\n')
		if r.Annotations == nil {
			continue
		}
		fmt.Fprintf(&b, "  rank: %s\n", r.Annotations.Rank)
		for _, q := range r.Annotations.Qualifiers {
			fmt.Fprintf(&b, "  qualifier: %s\n", q)
		}
		for i, ref := range r.Annotations.References {
			for _, snak := range ref {
				fmt.Fprintf(&b, "  reference %d: %s\n", i+1, snak)
			}
		}
	}
	return []byte(b.String())
}

// header names the columns of the flat form of a record.
var header = []string{"subject", "property", "snak", "value", "rank"}

// flatten returns the columns of r. Statements that are not statements of
// the data model yield their string form in the value column.
func flatten(r model.Record) []string {
	row := make([]string, len(header))
	if r.Annotations != nil {
		row[4] = r.Annotations.Rank.String()
	}
	st, ok := r.Statement.(model.Statement)
	if !ok {
		row[3] = r.Statement.String()
		return row
	}
	row[0] = termValue(st.Subject)
	switch snak := st.Snak.(type) {
	case model.ValueSnak:
		row[1], row[2], row[3] = termValue(snak.Property), "value", termValue(snak.Value)
	case model.SomeValueSnak:
		row[1], row[2] = termValue(snak.Property), "some"
	case model.NoValueSnak:
		row[1], row[2] = termValue(snak.Property), "none"
	}
	return row
}

// termValue renders a term the way a spreadsheet user expects: entities
// and IRIs bare, texts as content@language, everything else in its term
// syntax.
func termValue(t model.Term) string {
	switch x := t.(type) {
	case nil:
		return ""
	case model.Item:
		return x.IRI
	case model.Property:
		return x.IRI
	case model.Lexeme:
		return x.IRI
	case model.IRI:
		return x.Value
	case model.String:
		return x.Value
	case model.ExternalID:
		return x.Value
	case model.Integer:
		return strconv.FormatInt(x.Value, 10)
	case model.Decimal:
		return x.Value
	case model.DateTime:
		return x.Value
	case model.Text:
		return termValue(x.Content) + "@" + termValue(x.Language)
	}
	return t.String()
}
