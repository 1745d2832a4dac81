package execution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"mit.edu/dsg/textdb/catalog"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/indexing"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

var petColumns = []catalog.Column{
	{Name: "id", Type: common.IntType},
	{Name: "name", Type: common.StringType},
	{Name: "story", Type: common.TextType},
}

// setupTable creates a table with the given columns and rows, with a standard term index over
// indexColumns when any are given.
func setupTable(t *testing.T, tableName string, columns []catalog.Column, indexColumns []string, rows ...[]common.Value) *ExecutorContext {
	provider := &catalog.MemoryCatalogManager{}
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	table, err := c.AddTable(tableName, columns, provider)
	require.NoError(t, err)
	if len(indexColumns) > 0 {
		_, err = c.AddIndex(tableName+"_idx", tableName, indexing.StandardAnalyzerName, indexColumns, provider)
		require.NoError(t, err)
	}

	im, err := indexing.NewIndexManager(c)
	require.NoError(t, err)
	tm, err := NewTableManager(c, im)
	require.NoError(t, err)

	schema, err := table.Schema()
	require.NoError(t, err)
	for _, row := range rows {
		_, err := tm.InsertTuple(tableName, storage.MustNewTuple(schema, row...))
		require.NoError(t, err)
	}
	return NewExecutorContext(tm, zaptest.NewLogger(t))
}

// setupPets creates the pets table with one row per story, ids counting from 1.
func setupPets(t *testing.T, stories ...string) *ExecutorContext {
	rows := make([][]common.Value, len(stories))
	for i, story := range stories {
		rows[i] = []common.Value{
			common.NewIntValue(int64(i + 1)),
			common.NewStringValue("pet"),
			common.NewTextValue(story),
		}
	}
	return setupTable(t, "pets", petColumns, []string{"story"}, rows...)
}

// drain opens op, reads it to the end and closes it.
func drain(t *testing.T, ctx *ExecutorContext, op Operator) []storage.Tuple {
	require.NoError(t, op.Open(ctx))
	var out []storage.Tuple
	for op.Next() {
		out = append(out, op.Current())
	}
	require.NoError(t, op.Error())
	require.NoError(t, op.Close())
	return out
}

func ids(t *testing.T, tuples []storage.Tuple) []int64 {
	out := make([]int64, len(tuples))
	for i, tup := range tuples {
		v, err := tup.GetField("id")
		require.NoError(t, err)
		out[i] = v.IntValue()
	}
	return out
}

func spansOf(t *testing.T, tup storage.Tuple, name string) []common.Span {
	spans, err := tup.Spans(name)
	require.NoError(t, err)
	return spans
}

// requireValidSpans checks every span against the text it claims to cover.
func requireValidSpans(t *testing.T, tup storage.Tuple, spans []common.Span) {
	for _, s := range spans {
		v, err := tup.GetField(s.AttributeName)
		require.NoError(t, err)
		require.True(t, s.Valid(v.StringValue()), "span %s does not match %q", s, v.StringValue())
	}
}

// sliceOperator replays fixed tuples and records how it is driven.
type sliceOperator struct {
	schema   *storage.Schema
	tuples   []storage.Tuple
	pos      int
	state    operatorState
	opens    int
	closes   int
	closeErr error
	nextErr  error // reported once the tuples run out
	err      error
}

func newSliceOperator(schema *storage.Schema, tuples ...storage.Tuple) *sliceOperator {
	return &sliceOperator{schema: schema, tuples: tuples}
}

func (o *sliceOperator) PlanNode() planner.PlanNode { return planner.NewScanNode("slice") }

func (o *sliceOperator) Open(*ExecutorContext) error {
	if o.state == stateOpened {
		return nil
	}
	o.opens++
	o.pos = 0
	o.err = nil
	o.state = stateOpened
	return nil
}

func (o *sliceOperator) Next() bool {
	if o.state == stateClosed || o.err != nil {
		return false
	}
	if o.pos >= len(o.tuples) {
		o.err = o.nextErr
		return false
	}
	o.pos++
	return true
}

func (o *sliceOperator) Current() storage.Tuple { return o.tuples[o.pos-1].Copy() }

func (o *sliceOperator) Error() error { return o.err }

func (o *sliceOperator) OutputSchema() *storage.Schema { return o.schema }

func (o *sliceOperator) Close() error {
	if o.state == stateClosed {
		return nil
	}
	o.state = stateClosed
	o.closes++
	return o.closeErr
}

func TestScanSource_ReturnsAllRows(t *testing.T) {
	ctx := setupPets(t, "a cat sat", "a dog ran", "a bird flew")
	scan := NewScanSourceOperator(planner.NewScanNode("pets"))

	result := drain(t, ctx, scan)
	assert.Equal(t, []int64{1, 2, 3}, ids(t, result))

	table, err := ctx.GetTableManager().GetTable("pets")
	require.NoError(t, err)
	assert.True(t, scan.OutputSchema().Equals(table.Schema()))
}

func TestScanSource_ProtocolIdempotence(t *testing.T) {
	ctx := setupPets(t, "one", "two")
	scan := NewScanSourceOperator(planner.NewScanNode("pets"))

	require.NoError(t, scan.Open(ctx))
	require.True(t, scan.Next())
	// A second open is a no-op and must not restart the scan.
	require.NoError(t, scan.Open(ctx))
	require.True(t, scan.Next())
	assert.False(t, scan.Next())
	assert.False(t, scan.Next(), "end-of-stream must be sticky")

	require.NoError(t, scan.Close())
	require.NoError(t, scan.Close())
	assert.False(t, scan.Next())
	assert.NoError(t, scan.Error())

	// Close then open rescans from the start.
	assert.Len(t, drain(t, ctx, scan), 2)
}

func TestScanSource_SnapshotIgnoresLaterInserts(t *testing.T) {
	ctx := setupPets(t, "one")
	scan := NewScanSourceOperator(planner.NewScanNode("pets"))
	require.NoError(t, scan.Open(ctx))

	table, err := ctx.GetTableManager().GetTable("pets")
	require.NoError(t, err)
	_, err = ctx.GetTableManager().InsertTuple("pets", storage.MustNewTuple(table.Schema(),
		common.NewIntValue(2), common.NewStringValue("pet"), common.NewTextValue("two")))
	require.NoError(t, err)

	count := 0
	for scan.Next() {
		count++
	}
	assert.Equal(t, 1, count)
	require.NoError(t, scan.Close())
}

func TestScanSource_UnknownTable(t *testing.T) {
	ctx := setupPets(t)
	err := NewScanSourceOperator(planner.NewScanNode("missing")).Open(ctx)
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
}

func TestBuildOperator(t *testing.T) {
	scan := planner.NewScanNode("pets")
	dict := planner.NewDictionaryNode("pets", []string{"cat"}, []string{"story"}, planner.SubstringScanBased)
	keyword := planner.NewKeywordNode("pets", "cat", []string{"story"}, planner.ConjunctionIndexBased)
	regex := planner.NewRegexNode(dict, "<cat>", []string{"story"}, "cats")

	op, err := BuildOperator(scan)
	require.NoError(t, err)
	assert.IsType(t, &ScanSourceOperator{}, op)

	op, err = BuildOperator(keyword)
	require.NoError(t, err)
	assert.IsType(t, &KeywordMatcherSourceOperator{}, op)

	op, err = BuildOperator(regex)
	require.NoError(t, err)
	require.IsType(t, &RegexMatcher{}, op)
	assert.IsType(t, &DictionaryMatcherSourceOperator{}, op.(*RegexMatcher).child)

	_, err = BuildOperator(planner.NewRegexNode(nil, "x", []string{"story"}, "out"))
	assert.True(t, common.IsErrorCode(err, common.ConfigurationError))
	_, err = BuildOperator(nil)
	assert.True(t, common.IsErrorCode(err, common.ConfigurationError))
}

func TestCloseAll_LogsSecondaryFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	first := errors.New("first")
	second := errors.New("second")
	calls := 0
	closer := func(err error) func() error {
		return func() error {
			calls++
			return err
		}
	}

	err := closeAll(logger, closer(nil), closer(first), closer(second))
	assert.Equal(t, first, err)
	assert.Equal(t, 3, calls, "every closer runs even after a failure")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "second", logs.All()[0].ContextMap()["error"])
}
