package planner

import (
	"fmt"
	"strings"
)

// ScanNode represents a full scan over a stored table.
type ScanNode struct {
	TableName string
}

func NewScanNode(tableName string) *ScanNode {
	return &ScanNode{TableName: tableName}
}

func (n *ScanNode) Children() []PlanNode {
	return nil
}

func (n *ScanNode) String() string {
	return fmt.Sprintf("Scan: %s", n.TableName)
}

// KeywordNode represents an index-based keyword search over a stored table.
// The output spans are keyed by Query.
type KeywordNode struct {
	TableName      string
	Query          string
	AttributeNames []string
	MatchingType   KeywordMatchingType
}

func NewKeywordNode(tableName, query string, attributeNames []string, matchingType KeywordMatchingType) *KeywordNode {
	return &KeywordNode{
		TableName:      tableName,
		Query:          query,
		AttributeNames: attributeNames,
		MatchingType:   matchingType,
	}
}

func (n *KeywordNode) Children() []PlanNode {
	return nil
}

func (n *KeywordNode) String() string {
	return fmt.Sprintf("Keyword(%s): %q on %s(%s)", n.MatchingType, n.Query, n.TableName, strings.Join(n.AttributeNames, ", "))
}
