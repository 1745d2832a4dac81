package execution

import (
	"strings"
	"unicode/utf8"

	ac "github.com/petar-dambovaliev/aho-corasick"
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// dictionaryStrategy produces the unpaginated match stream of a dictionary source.
type dictionaryStrategy interface {
	// open prepares the strategy. first is the entry the dictionary cursor started on.
	open(ctx *ExecutorContext, first string) (*storage.Schema, error)
	// next returns the next matching tuple, or false at end-of-stream.
	next() (storage.Tuple, bool, error)
	close() error
}

// DictionaryMatcherSourceOperator emits the tuples of a table that match entries of a
// dictionary, annotated with one span per match keyed by the entry.
//
// Substring matching scans the table once and tests each tuple against the entry under the
// dictionary cursor, advancing the cursor after every tuple and wrapping around at the end.
// Conjunction and phrase matching run one keyword search per entry through the term index
// and drain them in dictionary order. In both cases Offset results are skipped and at most
// Limit are returned, counted in the strategy's natural match order.
type DictionaryMatcherSourceOperator struct {
	plan       *planner.DictionaryNode
	dictionary DictionarySupplier

	// Runtime state
	state        operatorState
	strategy     dictionaryStrategy
	outputSchema *storage.Schema
	resultCursor int
	exhausted    bool
	current      storage.Tuple
	err          error
	logger       *zap.Logger
}

// NewDictionaryMatcherSourceOperator creates a dictionary source over the given supplier.
// A nil supplier falls back to the entries listed in the plan.
func NewDictionaryMatcherSourceOperator(plan *planner.DictionaryNode, dictionary DictionarySupplier) *DictionaryMatcherSourceOperator {
	if dictionary == nil {
		dictionary = NewSliceDictionary(plan.Entries...)
	}
	return &DictionaryMatcherSourceOperator{
		plan:       plan,
		dictionary: dictionary,
	}
}

func (e *DictionaryMatcherSourceOperator) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *DictionaryMatcherSourceOperator) Open(ctx *ExecutorContext) error {
	if e.state == stateOpened {
		return nil
	}
	if e.plan.Offset < 0 || e.plan.Limit < 0 {
		return common.NewConfigurationError("invalid page: offset %d limit %d", e.plan.Offset, e.plan.Limit)
	}

	e.dictionary.Reset()
	first, ok := e.dictionary.NextEntry()
	if !ok {
		return common.NewConfigurationError("dictionary is empty")
	}

	var strategy dictionaryStrategy
	if e.plan.MatchingType.IsIndexBased() {
		strategy = &indexStrategy{plan: e.plan, dictionary: e.dictionary}
	} else {
		strategy = &scanStrategy{plan: e.plan, dictionary: e.dictionary}
	}
	schema, err := strategy.open(ctx, first)
	if err != nil {
		return err
	}

	e.strategy = strategy
	e.outputSchema = schema
	e.resultCursor = -1
	e.exhausted = e.plan.Limit == 0
	e.current = storage.Tuple{}
	e.err = nil
	e.logger = ctx.Logger()
	e.state = stateOpened
	e.logger.Debug("opened dictionary matcher", zap.Stringer("plan", e.plan))
	return nil
}

func (e *DictionaryMatcherSourceOperator) Next() bool {
	if e.state == stateClosed || e.exhausted || e.err != nil {
		return false
	}
	for {
		tuple, ok, err := e.strategy.next()
		if err != nil {
			e.err = err
			return false
		}
		if !ok {
			e.exhausted = true
			return false
		}
		e.resultCursor++
		if e.resultCursor < e.plan.Offset {
			continue
		}
		e.current = tuple
		if e.resultCursor-e.plan.Offset >= e.plan.Limit-1 {
			e.exhausted = true
		}
		return true
	}
}

func (e *DictionaryMatcherSourceOperator) Current() storage.Tuple {
	return e.current
}

func (e *DictionaryMatcherSourceOperator) Error() error {
	return e.err
}

func (e *DictionaryMatcherSourceOperator) OutputSchema() *storage.Schema {
	return e.outputSchema
}

func (e *DictionaryMatcherSourceOperator) Close() error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed
	e.current = storage.Tuple{}
	strategy := e.strategy
	e.strategy = nil
	return closeAll(e.logger, strategy.close)
}

// scanStrategy matches every tuple of a full table scan against one dictionary entry at a
// time, rotating through the dictionary as tuples go by.
type scanStrategy struct {
	plan       *planner.DictionaryNode
	dictionary DictionarySupplier

	scan         *ScanSourceOperator
	inputSchema  *storage.Schema
	outputSchema *storage.Schema
	entry        string
	automata     map[string]*ac.AhoCorasick
}

func (s *scanStrategy) open(ctx *ExecutorContext, first string) (*storage.Schema, error) {
	scan := NewScanSourceOperator(planner.NewScanNode(s.plan.TableName))
	if err := scan.Open(ctx); err != nil {
		return nil, err
	}
	inputSchema := scan.OutputSchema()
	if len(s.plan.AttributeNames) == 0 {
		closeAfterFailure(ctx.Logger(), scan)
		return nil, common.NewConfigurationError("no attributes to match against")
	}
	for _, name := range s.plan.AttributeNames {
		attr, err := inputSchema.GetAttribute(name)
		if err != nil {
			closeAfterFailure(ctx.Logger(), scan)
			return nil, common.NewConfigurationError("attribute '%s' does not exist in schema %s", name, inputSchema)
		}
		if attr.Type == common.ListType {
			closeAfterFailure(ctx.Logger(), scan)
			return nil, common.NewConfigurationError("attribute '%s' holds spans and cannot be matched against a dictionary", name)
		}
	}

	s.scan = scan
	s.inputSchema = inputSchema
	s.outputSchema = inputSchema.WithSpanList()
	s.entry = first
	s.automata = make(map[string]*ac.AhoCorasick)
	return s.outputSchema, nil
}

func (s *scanStrategy) next() (storage.Tuple, bool, error) {
	for s.scan.Next() {
		tuple := s.scan.Current()
		spans, err := s.match(s.entry, &tuple)
		if err != nil {
			return storage.Tuple{}, false, err
		}
		s.advance()
		if len(spans) == 0 {
			continue
		}
		if !s.inputSchema.Contains(storage.SpanListName) {
			if tuple, err = tuple.Extend(s.outputSchema, common.NewSpanListValue(nil)); err != nil {
				return storage.Tuple{}, false, err
			}
		}
		if err := tuple.AppendSpans(storage.SpanListName, spans...); err != nil {
			return storage.Tuple{}, false, err
		}
		return tuple, true, nil
	}
	return storage.Tuple{}, false, s.scan.Error()
}

// advance moves the dictionary cursor to the next entry, wrapping around at the end.
func (s *scanStrategy) advance() {
	entry, ok := s.dictionary.NextEntry()
	if !ok {
		s.dictionary.Reset()
		entry, _ = s.dictionary.NextEntry()
	}
	s.entry = entry
}

// match finds the occurrences of key in the configured attributes of tuple. Free-text
// attributes are searched case-insensitively for every non-overlapping occurrence; other
// attributes must equal key exactly.
func (s *scanStrategy) match(key string, tuple *storage.Tuple) ([]common.Span, error) {
	var spans []common.Span
	for _, name := range s.plan.AttributeNames {
		v, err := tuple.GetField(name)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		if v.Type() != common.TextType {
			if text := v.String(); text == key {
				spans = append(spans, common.NewSpan(name, 0, len(text), key, text))
			}
			continue
		}
		if key == "" {
			continue
		}
		text := v.StringValue()
		if !isASCII(key) {
			for _, m := range foldIndexAll(text, key) {
				spans = append(spans, common.NewSpan(name, m[0], m[1], key, text[m[0]:m[1]]))
			}
			continue
		}
		for _, m := range s.automaton(key).FindAll(text) {
			spans = append(spans, common.NewSpan(name, m.Start(), m.End(), key, text[m.Start():m.End()]))
		}
	}
	return spans, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// foldIndexAll returns the byte ranges of the leftmost non-overlapping occurrences of key in
// text under Unicode case folding. A match covers as many runes of text as key has, so its
// byte length may differ from len(key).
func foldIndexAll(text, key string) [][2]int {
	n := utf8.RuneCountInString(key)
	var out [][2]int
	for start := 0; start < len(text); {
		end, runes := start, 0
		for end < len(text) && runes < n {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
			runes++
		}
		if runes < n {
			break
		}
		if strings.EqualFold(text[start:end], key) {
			out = append(out, [2]int{start, end})
			start = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		start += size
	}
	return out
}

func (s *scanStrategy) automaton(key string) *ac.AhoCorasick {
	if automaton, ok := s.automata[key]; ok {
		return automaton
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: true,
		MatchKind:            ac.LeftMostLongestMatch,
	})
	automaton := builder.Build([]string{key})
	s.automata[key] = &automaton
	return &automaton
}

func (s *scanStrategy) close() error {
	if s.scan == nil {
		return nil
	}
	s.automata = nil
	return s.scan.Close()
}

// indexStrategy runs one keyword search per dictionary entry, draining each before moving
// on to the next entry.
type indexStrategy struct {
	plan       *planner.DictionaryNode
	dictionary DictionarySupplier

	ctx     *ExecutorContext
	keyword *KeywordMatcherSourceOperator
}

func (s *indexStrategy) open(ctx *ExecutorContext, first string) (*storage.Schema, error) {
	s.ctx = ctx
	if err := s.openEntry(first); err != nil {
		return nil, err
	}
	return s.keyword.OutputSchema(), nil
}

func (s *indexStrategy) openEntry(entry string) error {
	keyword := NewKeywordMatcherSourceOperator(
		planner.NewKeywordNode(s.plan.TableName, entry, s.plan.AttributeNames, s.plan.MatchingType))
	if err := keyword.Open(s.ctx); err != nil {
		return err
	}
	s.keyword = keyword
	return nil
}

func (s *indexStrategy) next() (storage.Tuple, bool, error) {
	for {
		if s.keyword.Next() {
			return s.keyword.Current(), true, nil
		}
		if err := s.keyword.Error(); err != nil {
			return storage.Tuple{}, false, err
		}
		entry, ok := s.dictionary.NextEntry()
		if !ok {
			return storage.Tuple{}, false, nil
		}
		if err := s.keyword.Close(); err != nil {
			return storage.Tuple{}, false, err
		}
		if err := s.openEntry(entry); err != nil {
			return storage.Tuple{}, false, err
		}
	}
}

func (s *indexStrategy) close() error {
	if s.keyword == nil {
		return nil
	}
	return s.keyword.Close()
}
