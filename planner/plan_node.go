package planner

import (
	"math"
	"strings"

	"mit.edu/dsg/textdb/common"
)

// PlanNode represents the static structure of an operator tree.
// It is immutable and only describes what to compute; output schemas are derived from the
// stored tables when the corresponding operators are opened.
type PlanNode interface {
	// Children returns the child plan nodes.
	Children() []PlanNode

	// String returns a string representation of the plan node.
	String() string
}

// Unlimited is the default result limit of source operators.
const Unlimited = math.MaxInt

// KeywordMatchingType selects how query strings are matched against stored text.
type KeywordMatchingType int

const (
	// SubstringScanBased scans every tuple and looks for the literal query as a
	// case-insensitive substring.
	SubstringScanBased KeywordMatchingType = iota
	// ConjunctionIndexBased uses a term index and requires every query token to occur in
	// the tuple, in any order.
	ConjunctionIndexBased
	// PhraseIndexBased uses a term index and requires the query tokens to occur
	// consecutively and in order. Stop words are placeholders for any token.
	PhraseIndexBased
)

func (m KeywordMatchingType) String() string {
	switch m {
	case SubstringScanBased:
		return "substring"
	case ConjunctionIndexBased:
		return "conjunction"
	case PhraseIndexBased:
		return "phrase"
	}
	return "unknown"
}

// IsIndexBased reports whether the matching type needs a term index.
func (m KeywordMatchingType) IsIndexBased() bool {
	return m == ConjunctionIndexBased || m == PhraseIndexBased
}

func (m KeywordMatchingType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *KeywordMatchingType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "substring", "substring_scanbased":
		*m = SubstringScanBased
	case "conjunction", "conjunction_indexbased":
		*m = ConjunctionIndexBased
	case "phrase", "phrase_indexbased":
		*m = PhraseIndexBased
	default:
		return common.NewConfigurationError("unknown keyword matching type '%s'", string(text))
	}
	return nil
}
