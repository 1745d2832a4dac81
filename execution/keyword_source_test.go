package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

var keywordStories = []string{
	"The quick brown fox",
	"a brown dog and a quick cat",
	"quick thinking",
}

func TestKeywordMatcher_Conjunction(t *testing.T) {
	ctx := setupPets(t, keywordStories...)
	op := NewKeywordMatcherSourceOperator(
		planner.NewKeywordNode("pets", "Quick Brown", []string{"story"}, planner.ConjunctionIndexBased))

	result := drain(t, ctx, op)
	require.Equal(t, []int64{1, 2}, ids(t, result))
	assert.True(t, op.OutputSchema().Contains(storage.SpanListName))

	first := spansOf(t, result[0], storage.SpanListName)
	assert.Equal(t, []common.Span{
		common.NewSpan("story", 4, 9, "Quick Brown", "quick"),
		common.NewSpan("story", 10, 15, "Quick Brown", "brown"),
	}, first)

	second := spansOf(t, result[1], storage.SpanListName)
	assert.Equal(t, []common.Span{
		common.NewSpan("story", 2, 7, "Quick Brown", "brown"),
		common.NewSpan("story", 18, 23, "Quick Brown", "quick"),
	}, second)

	for _, tup := range result {
		requireValidSpans(t, tup, spansOf(t, tup, storage.SpanListName))
	}
}

func TestKeywordMatcher_Phrase(t *testing.T) {
	ctx := setupPets(t, keywordStories...)
	op := NewKeywordMatcherSourceOperator(
		planner.NewKeywordNode("pets", "quick brown", []string{"story"}, planner.PhraseIndexBased))

	result := drain(t, ctx, op)
	require.Equal(t, []int64{1}, ids(t, result))
	assert.Equal(t, []common.Span{common.NewSpan("story", 4, 15, "quick brown", "quick brown")},
		spansOf(t, result[0], storage.SpanListName))
}

func TestKeywordMatcher_PhraseStopWordsArePlaceholders(t *testing.T) {
	ctx := setupPets(t, keywordStories...)
	op := NewKeywordMatcherSourceOperator(
		planner.NewKeywordNode("pets", "brown dog with a quick", []string{"story"}, planner.PhraseIndexBased))

	result := drain(t, ctx, op)
	require.Equal(t, []int64{2}, ids(t, result))
	assert.Equal(t, []common.Span{common.NewSpan("story", 2, 23, "brown dog with a quick", "brown dog and a quick")},
		spansOf(t, result[0], storage.SpanListName))
}

func TestKeywordMatcher_QueryWithoutTerms(t *testing.T) {
	ctx := setupPets(t, keywordStories...)
	for _, mt := range []planner.KeywordMatchingType{planner.ConjunctionIndexBased, planner.PhraseIndexBased} {
		op := NewKeywordMatcherSourceOperator(planner.NewKeywordNode("pets", "the a", []string{"story"}, mt))
		assert.Empty(t, drain(t, ctx, op), mt.String())
	}
}

func TestKeywordMatcher_ConfigurationErrors(t *testing.T) {
	ctx := setupPets(t, keywordStories...)

	testCases := []struct {
		name string
		node *planner.KeywordNode
		code common.TextDBErrorCode
	}{
		{"substring", planner.NewKeywordNode("pets", "fox", []string{"story"}, planner.SubstringScanBased), common.ConfigurationError},
		{"missing attribute", planner.NewKeywordNode("pets", "fox", []string{"plot"}, planner.ConjunctionIndexBased), common.ConfigurationError},
		{"not text", planner.NewKeywordNode("pets", "fox", []string{"id"}, planner.ConjunctionIndexBased), common.ConfigurationError},
		{"not indexed", planner.NewKeywordNode("pets", "fox", []string{"name"}, planner.ConjunctionIndexBased), common.NoSuchObjectError},
		{"missing table", planner.NewKeywordNode("zoo", "fox", []string{"story"}, planner.ConjunctionIndexBased), common.NoSuchObjectError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewKeywordMatcherSourceOperator(tc.node).Open(ctx)
			require.Error(t, err)
			code, ok := common.ErrorCodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
		})
	}
}
