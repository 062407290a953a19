package wikidata

import (
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// Namespaces of the Wikidata RDF dump format.
const (
	WD       = "http://www.wikidata.org/entity/"
	P        = "http://www.wikidata.org/prop/"
	PS       = "http://www.wikidata.org/prop/statement/"
	PSV      = "http://www.wikidata.org/prop/statement/value/"
	PQ       = "http://www.wikidata.org/prop/qualifier/"
	PR       = "http://www.wikidata.org/prop/reference/"
	WDNO     = "http://www.wikidata.org/prop/novalue/"
	Wikibase = "http://wikiba.se/ontology#"
	Prov     = "http://www.w3.org/ns/prov#"

	// GenID prefixes the skolem IRIs standing for unknown values.
	GenID = "http://www.wikidata.org/.well-known/genid/"
)

var prefixes = map[string]string{
	"wd":       WD,
	"p":        P,
	"ps":       PS,
	"psv":      PSV,
	"pq":       PQ,
	"pr":       PR,
	"wdno":     WDNO,
	"wikibase": Wikibase,
	"prov":     Prov,
}

func wikibase(local string) *rdf.NamedNode { return rdf.NewNamedNode(Wikibase + local) }

var (
	claim             = wikibase("claim")
	statementProperty = wikibase("statementProperty")
	statementValue    = wikibase("statementValue")
	qualifier         = wikibase("qualifier")
	reference         = wikibase("reference")
	novalue           = wikibase("novalue")
	propertyType      = wikibase("propertyType")
	rank              = wikibase("rank")

	quantityAmount     = wikibase("quantityAmount")
	quantityUnit       = wikibase("quantityUnit")
	quantityLowerBound = wikibase("quantityLowerBound")
	quantityUpperBound = wikibase("quantityUpperBound")

	timeValue         = wikibase("timeValue")
	timePrecision     = wikibase("timePrecision")
	timeTimezone      = wikibase("timeTimezone")
	timeCalendarModel = wikibase("timeCalendarModel")

	wasDerivedFrom = rdf.NewNamedNode(Prov + "wasDerivedFrom")

	// unitOne is the unit of dimensionless quantities.
	unitOne = rdf.NewNamedNode(WD + "Q199")
)

var rankIRIs = map[model.Rank]*rdf.NamedNode{
	model.RankPreferred:  wikibase("PreferredRank"),
	model.RankNormal:     wikibase("NormalRank"),
	model.RankDeprecated: wikibase("DeprecatedRank"),
}

// entityLetter is the first letter of the local name of each entity kind.
var entityLetter = map[model.Kind]string{
	model.KindItem:     "Q",
	model.KindProperty: "P",
	model.KindLexeme:   "L",
}

var propertyTypes = map[model.Kind]*rdf.NamedNode{
	model.KindItem:       wikibase("WikibaseItem"),
	model.KindProperty:   wikibase("WikibaseProperty"),
	model.KindLexeme:     wikibase("WikibaseLexeme"),
	model.KindIRI:        wikibase("Url"),
	model.KindString:     wikibase("String"),
	model.KindExternalID: wikibase("ExternalId"),
	model.KindText:       wikibase("Monolingualtext"),
	model.KindQuantity:   wikibase("Quantity"),
	model.KindTime:       wikibase("Time"),
}

func usePrefixes(q *sparql.Query) {
	for name, ns := range prefixes {
		q.Prefix(name, ns)
	}
}

// isEntity reports whether t is the IRI of an entity of kind k.
func isEntity(t rdf.Term, k model.Kind) bool {
	n, ok := t.(*rdf.NamedNode)
	return ok && strings.HasPrefix(n.IRI, WD+entityLetter[k])
}

// isUnknown reports whether t stands for an unknown value.
func isUnknown(t rdf.Term) bool {
	switch x := t.(type) {
	case *rdf.BlankNode:
		return true
	case *rdf.NamedNode:
		return strings.HasPrefix(x.IRI, GenID)
	}
	return false
}

// entityKind returns the kind of the entity IRI iri.
func entityKind(iri string) (model.Kind, bool) {
	local, ok := strings.CutPrefix(iri, WD)
	if !ok || local == "" {
		return model.KindInvalid, false
	}
	for k, letter := range entityLetter {
		if strings.HasPrefix(local, letter) && len(local) > 1 && local[1] >= '0' && local[1] <= '9' {
			return k, true
		}
	}
	return model.KindInvalid, false
}
