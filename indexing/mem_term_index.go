package indexing

import (
	"sync"

	"github.com/tidwall/btree"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/storage"
)

type postingItem struct {
	term string
	Posting
}

// MemTermIndex is an inverted index kept in a B-Tree.
// It is a wrapper around github.com/tidwall/btree; all postings of one term are adjacent in
// the tree, ordered by (RID, Attribute, Position), so a term lookup is a single range scan.
type MemTermIndex struct {
	latch    sync.RWMutex
	tree     *btree.BTreeG[postingItem]
	metadata *IndexMetadata
}

func NewMemTermIndex(metadata *IndexMetadata) *MemTermIndex {
	less := func(a, b postingItem) bool {
		if a.term != b.term {
			return a.term < b.term
		}
		if a.RID != b.RID {
			return a.RID < b.RID
		}
		if a.Attribute != b.Attribute {
			return a.Attribute < b.Attribute
		}
		return a.Position < b.Position
	}
	return &MemTermIndex{
		tree:     btree.NewBTreeG(less),
		metadata: metadata,
	}
}

func (index *MemTermIndex) Metadata() *IndexMetadata {
	return index.metadata
}

func (index *MemTermIndex) InsertEntry(rid storage.RowID, tuple storage.Tuple) error {
	items := make([]postingItem, 0)
	for _, attr := range index.metadata.Attributes {
		v, err := tuple.GetField(attr)
		if err != nil {
			return err
		}
		if !v.Type().IsStringLike() {
			return common.NewConfigurationError("attribute '%s' of type %s cannot be term indexed", attr, v.Type())
		}
		if v.IsNull() {
			continue
		}
		for _, tok := range index.metadata.Analyzer.Analyze(attr, v.StringValue()) {
			items = append(items, postingItem{
				term: tok.Term,
				Posting: Posting{
					RID:       rid,
					Attribute: attr,
					Position:  tok.Position,
					StartByte: tok.StartByte,
					EndByte:   tok.EndByte,
				},
			})
		}
	}

	index.latch.Lock()
	defer index.latch.Unlock()
	for _, item := range items {
		index.tree.Set(item)
	}
	return nil
}

func (index *MemTermIndex) ScanTerm(term string, output []Posting) []Posting {
	index.latch.RLock()
	defer index.latch.RUnlock()

	// The zero posting sorts before every real posting of the term.
	pivot := postingItem{term: term}
	index.tree.Ascend(pivot, func(item postingItem) bool {
		if item.term != term {
			return false // Stop iterating once the term changes
		}
		output = append(output, item.Posting)
		return true
	})
	return output
}
