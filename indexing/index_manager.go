package indexing

import (
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"mit.edu/dsg/textdb/catalog"
	"mit.edu/dsg/textdb/common"
)

// IndexManager manages the runtime lifecycle of term indexes.
// Indexes are created empty from the catalog; the table manager feeds them rows as they
// are inserted. The registry is concurrent so indexes can be registered while other
// pipelines look them up.
type IndexManager struct {
	// runtimeIndexes maps index oid -> index implementation
	runtimeIndexes *xsync.MapOf[common.ObjectID, Index]
	// tableIndexes maps table name -> indexes defined on it
	tableIndexes *xsync.MapOf[string, []Index]
}

// NewIndexManager initializes the IndexManager by creating empty runtime index
// structures for every index defined in the Catalog.
func NewIndexManager(c *catalog.Catalog) (*IndexManager, error) {
	im := &IndexManager{
		runtimeIndexes: xsync.NewMapOf[common.ObjectID, Index](),
		tableIndexes:   xsync.NewMapOf[string, []Index](),
	}

	for _, table := range c.Tables {
		for _, def := range table.Indexes {
			if _, err := im.RegisterIndex(table, def); err != nil {
				return nil, err
			}
		}
	}

	return im, nil
}

// RegisterIndex creates the runtime structure of a newly defined index.
func (im *IndexManager) RegisterIndex(table *catalog.Table, def catalog.Index) (Index, error) {
	analyzer, err := GetAnalyzer(def.Analyzer)
	if err != nil {
		return nil, errors.Wrapf(err, "index '%s' on table '%s'", def.Name, table.Name)
	}
	idx := NewMemTermIndex(&IndexMetadata{
		Name:       def.Name,
		TableName:  table.Name,
		Attributes: def.KeySchema,
		Analyzer:   analyzer,
	})
	if _, loaded := im.runtimeIndexes.LoadOrStore(def.Oid, idx); loaded {
		return nil, common.NewError(common.DuplicateObjectError, "index %d is already registered", def.Oid)
	}
	im.tableIndexes.Compute(table.Name, func(old []Index, _ bool) ([]Index, bool) {
		updated := make([]Index, 0, len(old)+1)
		updated = append(updated, old...)
		return append(updated, idx), false
	})
	return idx, nil
}

// GetIndex retrieves an active index by its oid.
func (im *IndexManager) GetIndex(oid common.ObjectID) (Index, error) {
	if idx, exists := im.runtimeIndexes.Load(oid); exists {
		return idx, nil
	}
	return nil, common.NewError(common.NoSuchObjectError, "index %d not found", oid)
}

// TableIndexes returns all indexes defined on a table.
func (im *IndexManager) TableIndexes(tableName string) []Index {
	indexes, _ := im.tableIndexes.Load(tableName)
	return indexes
}

// FindIndex returns the first index of the table covering the attribute.
func (im *IndexManager) FindIndex(tableName string, attribute string) (Index, error) {
	for _, idx := range im.TableIndexes(tableName) {
		if idx.Metadata().Covers(attribute) {
			return idx, nil
		}
	}
	return nil, common.NewError(common.NoSuchObjectError,
		"no term index covers attribute '%s' of table '%s'", attribute, tableName)
}
