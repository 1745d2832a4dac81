package planner

import (
	"fmt"
	"strings"
)

// DictionaryNode represents a source that emits the tuples of a table matching any entry
// of a dictionary.
//
// Offset suppresses the first matching results and Limit caps the number of results
// returned; the counting follows the natural match order of the selected strategy.
type DictionaryNode struct {
	TableName      string
	Entries        []string
	AttributeNames []string
	MatchingType   KeywordMatchingType
	Limit          int
	Offset         int
}

// NewDictionaryNode creates an unpaginated dictionary node.
func NewDictionaryNode(tableName string, entries []string, attributeNames []string, matchingType KeywordMatchingType) *DictionaryNode {
	return &DictionaryNode{
		TableName:      tableName,
		Entries:        entries,
		AttributeNames: attributeNames,
		MatchingType:   matchingType,
		Limit:          Unlimited,
	}
}

// WithPage returns a copy of the node with the given pagination.
func (n *DictionaryNode) WithPage(offset, limit int) *DictionaryNode {
	cp := *n
	cp.Offset = offset
	cp.Limit = limit
	return &cp
}

func (n *DictionaryNode) Children() []PlanNode {
	return nil
}

func (n *DictionaryNode) String() string {
	page := ""
	if n.Offset != 0 || n.Limit != Unlimited {
		page = fmt.Sprintf(" offset %d limit %d", n.Offset, n.Limit)
	}
	return fmt.Sprintf("Dictionary(%s): %d entries on %s(%s)%s",
		n.MatchingType, len(n.Entries), n.TableName, strings.Join(n.AttributeNames, ", "), page)
}
