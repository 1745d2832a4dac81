package planner

import (
	"fmt"
	"strings"
)

// RegexNode matches a labeled pattern against the tuples produced by Child.
// Matches are recorded in a new span list attribute named SpanListName.
type RegexNode struct {
	Child          PlanNode
	Regex          string
	AttributeNames []string
	SpanListName   string
}

func NewRegexNode(child PlanNode, regex string, attributeNames []string, spanListName string) *RegexNode {
	return &RegexNode{
		Child:          child,
		Regex:          regex,
		AttributeNames: attributeNames,
		SpanListName:   spanListName,
	}
}

func (n *RegexNode) Children() []PlanNode {
	if n.Child == nil {
		return nil
	}
	return []PlanNode{n.Child}
}

func (n *RegexNode) String() string {
	return fmt.Sprintf("Regex: %q on (%s) -> %s", n.Regex, strings.Join(n.AttributeNames, ", "), n.SpanListName)
}
