package main

import (
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/kifql/internal/filterspec"
)

// bindFilterFlags registers the filter flags of cmd on spec.
func bindFilterFlags(cmd *cobra.Command, spec *filterspec.Spec) {
	f := cmd.Flags()
	f.StringSliceVarP(&spec.Subjects, "subject", "s", nil, "Subject entity, e.g. Q42 (repeatable, any of)")
	f.StringSliceVarP(&spec.Properties, "property", "p", nil, "Property, e.g. P31 (repeatable, any of)")
	f.StringSliceVarP(&spec.Values, "value", "o", nil, `Value: Q5, <iri>, "string", "text"@en or a number (repeatable, any of)`)
	f.StringSliceVar(&spec.Has, "has", nil, "Subject must have the statement PROPERTY=VALUE (repeatable, all of)")
	f.StringSliceVar(&spec.Snaks, "snak", nil, "Snak kinds: value, some, none")
	f.StringSliceVar(&spec.Ranks, "rank", nil, "Ranks: preferred, normal, deprecated")
	f.StringSliceVar(&spec.ValueKinds, "value-kind", nil, "Value kinds: item, property, lexeme, iri, string, external_id, text, quantity, time")
	f.StringVar(&spec.Language, "language", "", "Restrict text values to a language")
	f.BoolVar(&spec.Annotated, "annotated", false, "Retrieve qualifiers, references and rank")
}
