package indexing

import (
	"mit.edu/dsg/textdb/storage"
)

// IndexMetadata describes the structure of the index and how it relates to the base table.
type IndexMetadata struct {
	Name      string
	TableName string
	// Attributes lists the indexed text attributes of the base table.
	Attributes []string
	// Analyzer tokenizes both indexed text and queries.
	Analyzer Analyzer
}

// Covers reports whether the index holds postings for the attribute.
func (md *IndexMetadata) Covers(attribute string) bool {
	for _, a := range md.Attributes {
		if a == attribute {
			return true
		}
	}
	return false
}

// Posting records one occurrence of a term in one attribute of one row.
type Posting struct {
	RID       storage.RowID
	Attribute string
	// Position is the token position within the attribute, counting dropped stop words.
	Position  int
	StartByte int
	EndByte   int
}

// Index defines the interface for term indexes.
// An index maps each analyzed term of its attributes to the postings where it occurs.
type Index interface {
	// Metadata returns the metadata associated with this index.
	Metadata() *IndexMetadata

	// InsertEntry analyzes the indexed attributes of tuple and records their postings
	// under rid.
	InsertEntry(rid storage.RowID, tuple storage.Tuple) error

	// ScanTerm finds all postings of the exact term, ordered by (RID, Attribute, Position).
	// The results are appended to the provided `output` slice, which allows the caller
	// to reuse memory and avoid allocations.
	ScanTerm(term string, output []Posting) []Posting
}
