package execution

import (
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"mit.edu/dsg/textdb/catalog"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/indexing"
	"mit.edu/dsg/textdb/storage"
)

// TableManager manages the lifecycle of MemTable objects and keeps the term indexes of
// every table in sync with its rows.
type TableManager struct {
	tables  *xsync.MapOf[string, *storage.MemTable]
	indexes *indexing.IndexManager
}

// NewTableManager initializes the TableManager and eagerly creates MemTable instances
// for all tables defined in the Catalog.
func NewTableManager(c *catalog.Catalog, indexes *indexing.IndexManager) (*TableManager, error) {
	tm := &TableManager{
		tables:  xsync.NewMapOf[string, *storage.MemTable](),
		indexes: indexes,
	}

	for _, tableDef := range c.Tables {
		if _, err := tm.RegisterTable(tableDef); err != nil {
			return nil, errors.Wrapf(err, "failed to initialize table '%s'", tableDef.Name)
		}
	}

	return tm, nil
}

// RegisterTable creates the runtime table for a catalog definition.
func (tm *TableManager) RegisterTable(tableDef *catalog.Table) (*storage.MemTable, error) {
	schema, err := tableDef.Schema()
	if err != nil {
		return nil, err
	}
	table := storage.NewMemTable(tableDef.Oid, tableDef.Name, schema)
	if _, loaded := tm.tables.LoadOrStore(tableDef.Name, table); loaded {
		return nil, common.NewError(common.DuplicateObjectError, "table '%s' is already registered", tableDef.Name)
	}
	return table, nil
}

// GetTable retrieves the MemTable for a given table name.
func (tm *TableManager) GetTable(name string) (*storage.MemTable, error) {
	if table, exists := tm.tables.Load(name); exists {
		return table, nil
	}
	return nil, common.NewError(common.NoSuchObjectError, "table '%s' not found", name)
}

func (tm *TableManager) Indexes() *indexing.IndexManager {
	return tm.indexes
}

// InsertTuple stores the tuple and adds it to every term index of the table.
func (tm *TableManager) InsertTuple(tableName string, tuple storage.Tuple) (storage.RowID, error) {
	table, err := tm.GetTable(tableName)
	if err != nil {
		return storage.InvalidRowID, err
	}
	rid, err := table.InsertTuple(tuple)
	if err != nil {
		return storage.InvalidRowID, err
	}
	for _, idx := range tm.indexes.TableIndexes(tableName) {
		if err := idx.InsertEntry(rid, tuple); err != nil {
			return rid, errors.Wrapf(err, "indexing row %d of '%s' in '%s'", rid, tableName, idx.Metadata().Name)
		}
	}
	return rid, nil
}

// BackfillIndex adds every row already stored in the table to a newly created index.
func (tm *TableManager) BackfillIndex(tableName string, idx indexing.Index) error {
	table, err := tm.GetTable(tableName)
	if err != nil {
		return err
	}
	it := table.Iterator()
	defer it.Close()
	for it.Next() {
		if err := idx.InsertEntry(it.RowID(), it.Current()); err != nil {
			return err
		}
	}
	return nil
}
