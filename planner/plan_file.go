package planner

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
	"mit.edu/dsg/textdb/common"
)

// planSpec is the YAML form of one plan node. Exactly one member must be set.
//
//	regex:
//	  pattern: "<george> watson"
//	  attributes: [name]
//	  spanListName: fullName
//	  input:
//	    keyword:
//	      table: people
//	      query: george
//	      attributes: [name]
//	      matchingType: conjunction
type planSpec struct {
	Scan       *scanSpec       `yaml:"scan"`
	Keyword    *keywordSpec    `yaml:"keyword"`
	Dictionary *dictionarySpec `yaml:"dictionary"`
	Regex      *regexSpec      `yaml:"regex"`
}

type scanSpec struct {
	Table string `yaml:"table"`
}

type keywordSpec struct {
	Table        string              `yaml:"table"`
	Query        string              `yaml:"query"`
	Attributes   []string            `yaml:"attributes"`
	MatchingType KeywordMatchingType `yaml:"matchingType"`
}

type dictionarySpec struct {
	Table        string              `yaml:"table"`
	Entries      []string            `yaml:"entries"`
	Attributes   []string            `yaml:"attributes"`
	MatchingType KeywordMatchingType `yaml:"matchingType"`
	Limit        *int                `yaml:"limit"`
	Offset       int                 `yaml:"offset"`
}

type regexSpec struct {
	Pattern      string    `yaml:"pattern"`
	Attributes   []string  `yaml:"attributes"`
	SpanListName string    `yaml:"spanListName"`
	Input        *planSpec `yaml:"input"`
}

// ParsePlan decodes a YAML operator tree into plan nodes.
func ParsePlan(data []byte) (PlanNode, error) {
	var spec planSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "parsing plan")
	}
	return spec.toPlanNode()
}

func (s *planSpec) toPlanNode() (PlanNode, error) {
	set := 0
	for _, present := range []bool{s.Scan != nil, s.Keyword != nil, s.Dictionary != nil, s.Regex != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, common.NewConfigurationError("a plan node must have exactly one of scan, keyword, dictionary or regex; found %d", set)
	}

	switch {
	case s.Scan != nil:
		return NewScanNode(s.Scan.Table), nil
	case s.Keyword != nil:
		k := s.Keyword
		return NewKeywordNode(k.Table, k.Query, k.Attributes, k.MatchingType), nil
	case s.Dictionary != nil:
		d := s.Dictionary
		node := NewDictionaryNode(d.Table, d.Entries, d.Attributes, d.MatchingType)
		limit := Unlimited
		if d.Limit != nil {
			limit = *d.Limit
		}
		return node.WithPage(d.Offset, limit), nil
	default:
		r := s.Regex
		if r.Input == nil {
			return NewRegexNode(nil, r.Pattern, r.Attributes, r.SpanListName), nil
		}
		child, err := r.Input.toPlanNode()
		if err != nil {
			return nil, errors.Wrap(err, "regex input")
		}
		return NewRegexNode(child, r.Pattern, r.Attributes, r.SpanListName), nil
	}
}
