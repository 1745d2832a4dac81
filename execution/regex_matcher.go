package execution

import (
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// RegexMatcher matches a labeled pattern against the configured attributes of every tuple
// produced by its input. Tuples without a match are dropped; the others are extended with
// a new span list attribute holding the matches.
//
// The spans a label refers to are the spans keyed by the label name in any span list of the
// tuple, together with every span of a span list attribute named after the label.
type RegexMatcher struct {
	plan  *planner.RegexNode
	child Operator

	// Runtime state
	state        operatorState
	pattern      *LabeledPattern
	inputSchema  *storage.Schema
	outputSchema *storage.Schema
	current      storage.Tuple
	err          error
	logger       *zap.Logger
}

func NewRegexMatcher(plan *planner.RegexNode, child Operator) *RegexMatcher {
	return &RegexMatcher{
		plan:  plan,
		child: child,
	}
}

func (e *RegexMatcher) PlanNode() planner.PlanNode {
	return e.plan
}

// SetInputOperator attaches the input. It can only be changed while the matcher is closed.
func (e *RegexMatcher) SetInputOperator(child Operator) error {
	if e.state == stateOpened {
		return common.NewConfigurationError("cannot replace the input of an opened regex matcher")
	}
	e.child = child
	return nil
}

func (e *RegexMatcher) Open(ctx *ExecutorContext) error {
	if e.state == stateOpened {
		return nil
	}
	if e.child == nil {
		return common.NewConfigurationError("regex matcher %q has no input operator", e.plan.Regex)
	}
	if e.plan.SpanListName == "" {
		return common.NewConfigurationError("regex matcher %q has no span list name", e.plan.Regex)
	}
	pattern, err := CompileLabeledPattern(e.plan.Regex)
	if err != nil {
		return err
	}
	if err := e.child.Open(ctx); err != nil {
		return err
	}

	inputSchema := e.child.OutputSchema()
	outputSchema, err := e.deriveSchema(inputSchema)
	if err != nil {
		closeAfterFailure(ctx.Logger(), e.child)
		return err
	}

	e.pattern = pattern
	e.inputSchema = inputSchema
	e.outputSchema = outputSchema
	e.current = storage.Tuple{}
	e.err = nil
	e.logger = ctx.Logger()
	e.state = stateOpened
	e.logger.Debug("opened regex matcher", zap.Stringer("plan", e.plan), zap.Strings("labels", pattern.Labels()))
	return nil
}

func (e *RegexMatcher) deriveSchema(inputSchema *storage.Schema) (*storage.Schema, error) {
	if inputSchema.Contains(e.plan.SpanListName) {
		return nil, common.NewConfigurationError("attribute '%s' already exists in schema %s", e.plan.SpanListName, inputSchema)
	}
	if len(e.plan.AttributeNames) == 0 {
		return nil, common.NewConfigurationError("no attributes to match against")
	}
	for _, name := range e.plan.AttributeNames {
		if !inputSchema.Contains(name) {
			return nil, common.NewConfigurationError("attribute '%s' does not exist in schema %s", name, inputSchema)
		}
	}
	return inputSchema.Append(storage.Attribute{Name: e.plan.SpanListName, Type: common.ListType})
}

func (e *RegexMatcher) Next() bool {
	if e.state == stateClosed || e.err != nil {
		return false
	}
	for e.child.Next() {
		tuple := e.child.Current()
		spans, err := e.evaluate(&tuple)
		if err != nil {
			e.err = err
			return false
		}
		if len(spans) == 0 {
			continue
		}
		out, err := tuple.Extend(e.outputSchema, common.NewSpanListValue(spans))
		if err != nil {
			e.err = err
			return false
		}
		e.current = out
		return true
	}
	e.err = e.child.Error()
	return false
}

// evaluate matches the pattern against every configured attribute of tuple.
func (e *RegexMatcher) evaluate(tuple *storage.Tuple) ([]common.Span, error) {
	var spans []common.Span
	candidates := func(label string) []common.Span {
		return labelSpans(tuple, label)
	}
	for _, name := range e.plan.AttributeNames {
		attr, err := e.inputSchema.GetAttribute(name)
		if err != nil {
			return nil, err
		}
		if !attr.Type.IsStringLike() {
			return nil, common.NewConfigurationError("attribute '%s' has type %s; only string and text attributes can be matched", name, attr.Type)
		}
		v, err := tuple.GetField(name)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		spans = append(spans, e.pattern.Match(name, v.StringValue(), candidates)...)
	}
	return spans, nil
}

// labelSpans gathers the spans a label refers to. The returned spans are read-only views
// into the tuple.
func labelSpans(tuple *storage.Tuple, label string) []common.Span {
	schema := tuple.Schema()
	var out []common.Span
	for i := 0; i < schema.NumAttributes(); i++ {
		attr := schema.Attribute(i)
		if attr.Type != common.ListType {
			continue
		}
		v := tuple.GetValue(i)
		if v.IsNull() {
			continue
		}
		if attr.Name == label {
			out = append(out, v.Spans()...)
			continue
		}
		for _, s := range v.Spans() {
			if s.Key == label {
				out = append(out, s)
			}
		}
	}
	return out
}

func (e *RegexMatcher) Current() storage.Tuple {
	return e.current
}

func (e *RegexMatcher) Error() error {
	return e.err
}

func (e *RegexMatcher) OutputSchema() *storage.Schema {
	return e.outputSchema
}

func (e *RegexMatcher) Close() error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed
	e.current = storage.Tuple{}
	return closeAll(e.logger, e.child.Close)
}
