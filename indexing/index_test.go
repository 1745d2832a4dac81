package indexing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/textdb/catalog"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/storage"
)

func TestStandardAnalyzer(t *testing.T) {
	text := "The Quick, brown fox is in Zürich"
	tokens := NewStandardAnalyzer().Analyze("f", text)

	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
		assert.Equal(t, tok.Term, strings.ToLower(text[tok.StartByte:tok.EndByte]))
	}
	assert.Equal(t, []string{"quick", "brown", "fox", "zürich"}, terms)
	// Stop words keep their positions.
	assert.Equal(t, 1, tokens[0].Position)
	assert.Equal(t, 6, tokens[3].Position)
}

func TestSimpleAnalyzerKeepsStopWords(t *testing.T) {
	tokens := SimpleAnalyzer{}.Analyze("f", "a cat, the hat")
	require.Len(t, tokens, 4)
	assert.Equal(t, "the", tokens[2].Term)
	assert.Equal(t, 7, tokens[2].StartByte)
}

func TestGetAnalyzer(t *testing.T) {
	a, err := GetAnalyzer("")
	require.NoError(t, err)
	assert.IsType(t, &StandardAnalyzer{}, a)

	_, err = GetAnalyzer("klingon")
	assert.True(t, common.IsErrorCode(err, common.ConfigurationError))
}

func TestMemTermIndexScanTerm(t *testing.T) {
	schema := storage.MustNewSchema(
		storage.Attribute{Name: "title", Type: common.StringType},
		storage.Attribute{Name: "body", Type: common.TextType},
	)
	idx := NewMemTermIndex(&IndexMetadata{
		Name:       "docs_idx",
		TableName:  "docs",
		Attributes: []string{"title", "body"},
		Analyzer:   NewStandardAnalyzer(),
	})

	require.NoError(t, idx.InsertEntry(2, storage.MustNewTuple(schema,
		common.NewStringValue("Cats"), common.NewTextValue("cats chase mice; cats nap"))))
	require.NoError(t, idx.InsertEntry(1, storage.MustNewTuple(schema,
		common.NewStringValue("Dogs"), common.NewTextValue("dogs chase cats"))))
	require.NoError(t, idx.InsertEntry(3, storage.MustNewTuple(schema,
		common.NewStringValue("Birds"), common.NewNullValue(common.TextType))))

	postings := idx.ScanTerm("cats", nil)
	require.Len(t, postings, 4)
	assert.Equal(t, Posting{RID: 1, Attribute: "body", Position: 2, StartByte: 11, EndByte: 15}, postings[0])
	assert.Equal(t, storage.RowID(2), postings[1].RID)
	assert.Equal(t, "body", postings[1].Attribute)
	assert.Equal(t, 0, postings[1].Position)
	assert.Equal(t, "body", postings[2].Attribute)
	assert.Equal(t, 3, postings[2].Position)
	assert.Equal(t, "title", postings[3].Attribute)

	assert.Empty(t, idx.ScanTerm("cat", nil))
	assert.Len(t, idx.ScanTerm("birds", nil), 1)
}

func TestIndexManagerFromCatalog(t *testing.T) {
	provider := &catalog.MemoryCatalogManager{}
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	_, err = c.AddTable("docs", []catalog.Column{
		{Name: "title", Type: common.StringType},
		{Name: "body", Type: common.TextType},
	}, provider)
	require.NoError(t, err)
	def, err := c.AddIndex("docs_body", "docs", "simple", []string{"body"}, provider)
	require.NoError(t, err)

	im, err := NewIndexManager(c)
	require.NoError(t, err)

	idx, err := im.GetIndex(def.Oid)
	require.NoError(t, err)
	assert.Equal(t, "docs_body", idx.Metadata().Name)

	found, err := im.FindIndex("docs", "body")
	require.NoError(t, err)
	assert.Same(t, idx, found)

	_, err = im.FindIndex("docs", "title")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
	_, err = im.GetIndex(99)
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))

	table, err := c.GetTableMetadata("docs")
	require.NoError(t, err)
	_, err = im.RegisterIndex(table, *def)
	assert.True(t, common.IsErrorCode(err, common.DuplicateObjectError))
}
