// Package filterspec reads statement filters from their textual form, as
// given on the command line or in HTTP query parameters.
package filterspec

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/mapping/wikidata"
	"github.com/aleksaelezovic/kifql/pkg/model"
)

var (
	entityIDRegexp = regexp.MustCompile(`^([QPL])[0-9]+$`)
	textRegexp     = regexp.MustCompile(`^"(.*)"@([A-Za-z]+(?:-[A-Za-z0-9]+)*)$`)
)

var snakNames = map[string]model.Kind{
	"value": model.KindValueSnak,
	"some":  model.KindSomeValueSnak,
	"none":  model.KindNoValueSnak,
}

var rankNames = map[string]model.RankMask{
	"preferred":  model.RankMaskPreferred,
	"normal":     model.RankMaskNormal,
	"deprecated": model.RankMaskDeprecated,
}

var valueKindNames = map[string]model.Kind{
	"item":        model.KindItem,
	"property":    model.KindProperty,
	"lexeme":      model.KindLexeme,
	"iri":         model.KindIRI,
	"string":      model.KindString,
	"external_id": model.KindExternalID,
	"text":        model.KindText,
	"quantity":    model.KindQuantity,
	"time":        model.KindTime,
}

// Spec is the textual form of a model.Filter. Every list holds raw values
// as typed by the user.
type Spec struct {
	Subjects   []string
	Properties []string
	Values     []string
	Has        []string
	Snaks      []string
	Ranks      []string
	ValueKinds []string
	Language   string
	Annotated  bool
}

// FromQuery reads a spec from URL query parameters named like the command
// line flags. List parameters may repeat or hold comma-separated values.
func FromQuery(v url.Values) (*Spec, error) {
	s := &Spec{
		Subjects:   list(v, "subject"),
		Properties: list(v, "property"),
		Values:     v["value"],
		Has:        list(v, "has"),
		Snaks:      list(v, "snak"),
		Ranks:      list(v, "rank"),
		ValueKinds: list(v, "value-kind"),
		Language:   v.Get("language"),
	}
	if raw := v.Get("annotated"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid annotated %q: %w", raw, err)
		}
		s.Annotated = b
	}
	return s, nil
}

// list splits comma-separated parameters. The value parameter is read
// without list since strings may contain commas.
func list(v url.Values, key string) []string {
	var out []string
	for _, raw := range v[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Filter builds the filter s describes.
func (s *Spec) Filter() (*model.Filter, error) {
	f := model.NewFilter()
	f.Language = s.Language
	f.Annotated = s.Annotated

	subject, err := anyOf(s.Subjects, ParseEntity)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	var conj []model.Fingerprint
	if subject != nil {
		conj = append(conj, subject)
	}
	for _, h := range s.Has {
		p, v, ok := strings.Cut(h, "=")
		if !ok {
			return nil, fmt.Errorf("invalid has %q: want PROPERTY=VALUE", h)
		}
		property, err := ParseEntity(p)
		if err != nil {
			return nil, fmt.Errorf("invalid has %q: %w", h, err)
		}
		value, err := ParseValue(v)
		if err != nil {
			return nil, fmt.Errorf("invalid has %q: %w", h, err)
		}
		conj = append(conj, model.HasValue(property, model.Equals(value)))
	}
	switch len(conj) {
	case 0:
	case 1:
		f.Subject = conj[0]
	default:
		f.Subject = model.And(conj...)
	}

	if fp, err := anyOf(s.Properties, ParseEntity); err != nil {
		return nil, fmt.Errorf("invalid property: %w", err)
	} else if fp != nil {
		f.Property = fp
	}
	if fp, err := anyOf(s.Values, ParseValue); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	} else if fp != nil {
		f.Value = fp
	}

	if len(s.Snaks) > 0 {
		f.SnakMask = 0
		for _, name := range s.Snaks {
			k, ok := snakNames[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("unknown snak kind %q", name)
			}
			f.SnakMask |= model.Kinds(k)
		}
	}
	if len(s.Ranks) > 0 {
		f.RankMask = 0
		for _, name := range s.Ranks {
			r, ok := rankNames[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("unknown rank %q", name)
			}
			f.RankMask |= r
		}
	}
	if len(s.ValueKinds) > 0 {
		f.ValueMask = 0
		for _, name := range s.ValueKinds {
			k, ok := valueKindNames[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("unknown value kind %q", name)
			}
			f.ValueMask |= model.Kinds(k)
		}
	}
	return f, nil
}

// anyOf returns a fingerprint matching any of the parsed values, or nil when
// there are none.
func anyOf(raw []string, parse func(string) (model.Term, error)) (model.Fingerprint, error) {
	fps := make([]model.Fingerprint, 0, len(raw))
	for _, s := range raw {
		t, err := parse(s)
		if err != nil {
			return nil, err
		}
		fps = append(fps, model.Equals(t))
	}
	switch len(fps) {
	case 0:
		return nil, nil
	case 1:
		return fps[0], nil
	}
	return model.Or(fps...), nil
}

// ParseEntity reads an entity id (Q42, P31, L7) or a full entity IRI.
func ParseEntity(s string) (model.Term, error) {
	s = strings.TrimSpace(s)
	if iri, ok := strings.CutPrefix(s, "<"); ok {
		s = strings.TrimSuffix(iri, ">")
	}
	id := strings.TrimPrefix(s, wikidata.WD)
	m := entityIDRegexp.FindStringSubmatch(id)
	if m == nil {
		return nil, fmt.Errorf("not an entity: %q", s)
	}
	iri := wikidata.WD + id
	switch m[1] {
	case "Q":
		return model.NewItem(iri), nil
	case "P":
		return model.NewProperty(iri), nil
	default:
		return model.NewLexeme(iri), nil
	}
}

// ParseValue reads a value: an entity, an <iri>, a "string", a "text"@lang
// or a decimal quantity.
func ParseValue(s string) (model.Term, error) {
	s = strings.TrimSpace(s)
	if t, err := ParseEntity(s); err == nil {
		return t, nil
	}
	switch {
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return model.NewIRI(s[1 : len(s)-1]), nil
	case textRegexp.MatchString(s):
		m := textRegexp.FindStringSubmatch(s)
		return model.NewText(m[1], strings.ToLower(m[2])), nil
	case len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return model.NewString(s[1 : len(s)-1]), nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return model.NewQuantity(s), nil
	}
	return nil, fmt.Errorf("cannot parse value %q", s)
}
