package execution

import (
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/indexing"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// keywordResult is one matching row and the locations to annotate it with.
type keywordResult struct {
	rid       storage.RowID
	intervals []common.Interval
}

// KeywordMatcherSourceOperator looks a query up in the term indexes of a table and emits the
// matching rows, annotated with one span per match keyed by the query string.
//
// In conjunction mode a row matches when every query term occurs in at least one of the
// configured attributes; every occurrence becomes a span. In phrase mode a row matches when
// the query terms occur at consecutive positions of one attribute; each phrase occurrence
// becomes a span. Matching rows are resolved from the index at open time and fetched from
// the table one at a time.
type KeywordMatcherSourceOperator struct {
	plan *planner.KeywordNode

	// Runtime state
	state        operatorState
	table        *storage.MemTable
	inputSchema  *storage.Schema
	outputSchema *storage.Schema
	results      []keywordResult
	cursor       int
	current      storage.Tuple
	err          error
	logger       *zap.Logger
}

func NewKeywordMatcherSourceOperator(plan *planner.KeywordNode) *KeywordMatcherSourceOperator {
	return &KeywordMatcherSourceOperator{
		plan: plan,
	}
}

func (e *KeywordMatcherSourceOperator) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *KeywordMatcherSourceOperator) Open(ctx *ExecutorContext) error {
	if e.state == stateOpened {
		return nil
	}
	if !e.plan.MatchingType.IsIndexBased() {
		return common.NewConfigurationError("keyword matcher needs an index-based matching type, got %s", e.plan.MatchingType)
	}
	table, err := ctx.GetTableManager().GetTable(e.plan.TableName)
	if err != nil {
		return err
	}
	inputSchema := table.Schema()
	if err := checkTextAttributes(inputSchema, e.plan.AttributeNames); err != nil {
		return err
	}

	var results []keywordResult
	switch e.plan.MatchingType {
	case planner.ConjunctionIndexBased:
		results, err = e.conjunction(ctx.GetIndexManager())
	default:
		results, err = e.phrase(ctx.GetIndexManager())
	}
	if err != nil {
		return errors.Wrapf(err, "keyword query %q", e.plan.Query)
	}

	e.table = table
	e.inputSchema = inputSchema
	e.outputSchema = inputSchema.WithSpanList()
	e.results = results
	e.cursor = 0
	e.err = nil
	e.logger = ctx.Logger()
	e.state = stateOpened
	e.logger.Debug("opened keyword matcher", zap.Stringer("plan", e.plan), zap.Int("matches", len(results)))
	return nil
}

// conjunction collects the occurrences of every query term per row and keeps the rows in
// which no term is missing.
func (e *KeywordMatcherSourceOperator) conjunction(indexes *indexing.IndexManager) ([]keywordResult, error) {
	queryTerms := make(map[string]struct{})
	found := make(map[storage.RowID]map[string]struct{})
	occurrences := make(map[storage.RowID][]common.Interval)

	var postings []indexing.Posting
	for _, attr := range e.plan.AttributeNames {
		idx, err := indexes.FindIndex(e.plan.TableName, attr)
		if err != nil {
			return nil, err
		}
		for _, tok := range idx.Metadata().Analyzer.Analyze(attr, e.plan.Query) {
			queryTerms[tok.Term] = struct{}{}
			postings = idx.ScanTerm(tok.Term, postings[:0])
			for _, p := range postings {
				if p.Attribute != attr {
					continue
				}
				if found[p.RID] == nil {
					found[p.RID] = make(map[string]struct{})
				}
				found[p.RID][tok.Term] = struct{}{}
				occurrences[p.RID] = append(occurrences[p.RID], common.Interval{Start: p.StartByte, End: p.EndByte, AttributeName: attr})
			}
		}
	}
	if len(queryTerms) == 0 {
		return nil, nil
	}

	results := make([]keywordResult, 0)
	for rid, terms := range found {
		if len(terms) == len(queryTerms) {
			results = append(results, keywordResult{rid: rid, intervals: dedupeIntervals(occurrences[rid])})
		}
	}
	sortResults(results)
	return results, nil
}

// phrase anchors on every occurrence of the first query term and checks that each
// following term sits at the same relative position.
func (e *KeywordMatcherSourceOperator) phrase(indexes *indexing.IndexManager) ([]keywordResult, error) {
	type rowPosition struct {
		rid      storage.RowID
		position int
	}
	byRow := make(map[storage.RowID][]common.Interval)

	for _, attr := range e.plan.AttributeNames {
		idx, err := indexes.FindIndex(e.plan.TableName, attr)
		if err != nil {
			return nil, err
		}
		tokens := idx.Metadata().Analyzer.Analyze(attr, e.plan.Query)
		if len(tokens) == 0 {
			continue
		}

		located := make(map[string]map[rowPosition]indexing.Posting)
		for _, tok := range tokens {
			if _, done := located[tok.Term]; done {
				continue
			}
			at := make(map[rowPosition]indexing.Posting)
			for _, p := range idx.ScanTerm(tok.Term, nil) {
				if p.Attribute == attr {
					at[rowPosition{p.RID, p.Position}] = p
				}
			}
			located[tok.Term] = at
		}

		first := tokens[0]
		for anchor, p := range located[first.Term] {
			end := p.EndByte
			matched := true
			for _, tok := range tokens[1:] {
				next, ok := located[tok.Term][rowPosition{anchor.rid, anchor.position + tok.Position - first.Position}]
				if !ok {
					matched = false
					break
				}
				end = next.EndByte
			}
			if matched {
				byRow[anchor.rid] = append(byRow[anchor.rid], common.Interval{Start: p.StartByte, End: end, AttributeName: attr})
			}
		}
	}

	results := make([]keywordResult, 0, len(byRow))
	for rid, intervals := range byRow {
		results = append(results, keywordResult{rid: rid, intervals: dedupeIntervals(intervals)})
	}
	sortResults(results)
	return results, nil
}

func (e *KeywordMatcherSourceOperator) Next() bool {
	if e.state == stateClosed || e.err != nil || e.cursor >= len(e.results) {
		return false
	}
	result := e.results[e.cursor]
	e.cursor++

	tuple, err := e.annotate(result)
	if err != nil {
		e.err = err
		return false
	}
	e.current = tuple
	return true
}

func (e *KeywordMatcherSourceOperator) annotate(result keywordResult) (storage.Tuple, error) {
	tuple, err := e.table.GetTuple(result.rid)
	if err != nil {
		return storage.Tuple{}, err
	}
	if !e.inputSchema.Contains(storage.SpanListName) {
		if tuple, err = tuple.Extend(e.outputSchema, common.NewSpanListValue(nil)); err != nil {
			return storage.Tuple{}, err
		}
	}
	spans := make([]common.Span, 0, len(result.intervals))
	for _, iv := range result.intervals {
		v, err := tuple.GetField(iv.AttributeName)
		if err != nil {
			return storage.Tuple{}, err
		}
		text := v.StringValue()
		spans = append(spans, common.NewSpan(iv.AttributeName, iv.Start, iv.End, e.plan.Query, text[iv.Start:iv.End]))
	}
	if err := tuple.AppendSpans(storage.SpanListName, spans...); err != nil {
		return storage.Tuple{}, err
	}
	return tuple, nil
}

func (e *KeywordMatcherSourceOperator) Current() storage.Tuple {
	return e.current
}

func (e *KeywordMatcherSourceOperator) Error() error {
	return e.err
}

func (e *KeywordMatcherSourceOperator) OutputSchema() *storage.Schema {
	return e.outputSchema
}

func (e *KeywordMatcherSourceOperator) Close() error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed
	e.results = nil
	e.current = storage.Tuple{}
	return nil
}

// checkTextAttributes verifies that every attribute exists and holds searchable text.
func checkTextAttributes(schema *storage.Schema, attributeNames []string) error {
	if len(attributeNames) == 0 {
		return common.NewConfigurationError("no attributes to match against")
	}
	for _, name := range attributeNames {
		attr, err := schema.GetAttribute(name)
		if err != nil {
			return common.NewConfigurationError("attribute '%s' does not exist in schema %s", name, schema)
		}
		if !attr.Type.IsStringLike() {
			return common.NewConfigurationError("attribute '%s' has type %s; only string and text attributes can be matched", name, attr.Type)
		}
	}
	return nil
}

func sortResults(results []keywordResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].rid < results[j].rid
	})
}

// dedupeIntervals orders intervals by attribute and position and drops repeats.
func dedupeIntervals(intervals []common.Interval) []common.Interval {
	sort.Slice(intervals, func(i, j int) bool {
		a, b := intervals[i], intervals[j]
		if a.AttributeName != b.AttributeName {
			return a.AttributeName < b.AttributeName
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	out := intervals[:0]
	for i, iv := range intervals {
		if i > 0 && iv == intervals[i-1] {
			continue
		}
		out = append(out, iv)
	}
	return out
}
