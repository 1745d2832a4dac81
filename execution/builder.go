package execution

import (
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/planner"
)

// BuildOperator turns a plan tree into the operator tree that evaluates it.
// Dictionary sources read the entries listed in their plan node.
func BuildOperator(plan planner.PlanNode) (Operator, error) {
	switch node := plan.(type) {
	case *planner.ScanNode:
		return NewScanSourceOperator(node), nil
	case *planner.KeywordNode:
		return NewKeywordMatcherSourceOperator(node), nil
	case *planner.DictionaryNode:
		return NewDictionaryMatcherSourceOperator(node, nil), nil
	case *planner.RegexNode:
		if node.Child == nil {
			return nil, common.NewConfigurationError("regex node %s has no input", node)
		}
		child, err := BuildOperator(node.Child)
		if err != nil {
			return nil, err
		}
		return NewRegexMatcher(node, child), nil
	case nil:
		return nil, common.NewConfigurationError("empty plan")
	default:
		return nil, common.NewConfigurationError("unsupported plan node %T", plan)
	}
}
