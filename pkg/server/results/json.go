package results

import (
	"encoding/json"

	"github.com/aleksaelezovic/kifql/pkg/model"
)

// RecordJSON is the JSON form of a record.
type RecordJSON struct {
	Statement   TermJSON         `json:"statement"`
	Annotations *AnnotationsJSON `json:"annotations,omitempty"`
}

// AnnotationsJSON is the JSON form of statement annotations.
type AnnotationsJSON struct {
	Rank       string       `json:"rank"`
	Qualifiers []TermJSON   `json:"qualifiers"`
	References [][]TermJSON `json:"references"`
}

// TermJSON is the JSON form of a term: its kind, the lexical value of
// atomic terms and the named components of composite ones.
type TermJSON struct {
	Kind  string              `json:"kind"`
	Value string              `json:"value,omitempty"`
	Parts map[string]TermJSON `json:"parts,omitempty"`
}

// FormatRecordsJSON renders records as a JSON array.
func FormatRecordsJSON(records []model.Record) ([]byte, error) {
	out := make([]RecordJSON, 0, len(records))
	for _, r := range records {
		rec := RecordJSON{Statement: NewTermJSON(r.Statement)}
		if a := r.Annotations; a != nil {
			aj := &AnnotationsJSON{
				Rank:       a.Rank.String(),
				Qualifiers: make([]TermJSON, 0, len(a.Qualifiers)),
				References: make([][]TermJSON, 0, len(a.References)),
			}
			for _, q := range a.Qualifiers {
				aj.Qualifiers = append(aj.Qualifiers, NewTermJSON(q))
			}
			for _, ref := range a.References {
				snaks := make([]TermJSON, 0, len(ref))
				for _, s := range ref {
					snaks = append(snaks, NewTermJSON(s))
				}
				aj.References = append(aj.References, snaks)
			}
			rec.Annotations = aj
		}
		out = append(out, rec)
	}
	return json.MarshalIndent(out, "", "  ")
}

// NewTermJSON converts t. Absent optional components are left out.
func NewTermJSON(t model.Term) TermJSON {
	tj := TermJSON{Kind: t.Kind().String()}
	parts := func(kv ...any) {
		tj.Parts = make(map[string]TermJSON)
		for i := 0; i < len(kv); i += 2 {
			if c, ok := kv[i+1].(model.Term); ok && c != nil {
				tj.Parts[kv[i].(string)] = NewTermJSON(c)
			}
		}
	}
	switch x := t.(type) {
	case model.Text:
		parts("content", x.Content, "language", x.Language)
	case model.Quantity:
		parts("amount", x.Amount, "unit", x.Unit, "lower", x.Lower, "upper", x.Upper)
	case model.Time:
		parts("time", x.Time, "precision", x.Precision, "timezone", x.Timezone, "calendar", x.Calendar)
	case model.ValueSnak:
		parts("property", x.Property, "value", x.Value)
	case model.SomeValueSnak:
		parts("property", x.Property)
	case model.NoValueSnak:
		parts("property", x.Property)
	case model.Statement:
		parts("subject", x.Subject, "snak", x.Snak)
	default:
		tj.Value = termValue(t)
	}
	return tj
}
