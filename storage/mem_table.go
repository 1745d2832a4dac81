package storage

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"
	"mit.edu/dsg/textdb/common"
)

// RowID identifies a tuple within a MemTable. IDs are assigned in insertion order and
// never reused.
type RowID uint64

const InvalidRowID RowID = 0

type row struct {
	rid   RowID
	tuple Tuple
}

// MemTable is an in-memory table of tuples ordered by RowID.
// It is a wrapper around github.com/tidwall/btree; scans iterate over a copy-on-write
// snapshot, so inserts made while a scan is running are not visible to that scan.
type MemTable struct {
	oid    common.ObjectID
	name   string
	schema *Schema

	latch  sync.RWMutex
	rows   *btree.BTreeG[row]
	nextID RowID
}

func NewMemTable(oid common.ObjectID, name string, schema *Schema) *MemTable {
	return &MemTable{
		oid:    oid,
		name:   name,
		schema: schema,
		rows: btree.NewBTreeG(func(a, b row) bool {
			return a.rid < b.rid
		}),
	}
}

func (mt *MemTable) Oid() common.ObjectID {
	return mt.oid
}

func (mt *MemTable) Name() string {
	return mt.name
}

// Schema returns the schema all stored tuples conform to.
func (mt *MemTable) Schema() *Schema {
	return mt.schema
}

// Len returns the number of stored tuples.
func (mt *MemTable) Len() int {
	mt.latch.RLock()
	defer mt.latch.RUnlock()
	return mt.rows.Len()
}

// InsertTuple stores a private copy of the tuple and returns its new RowID.
func (mt *MemTable) InsertTuple(tuple Tuple) (RowID, error) {
	if !mt.schema.Equals(tuple.Schema()) {
		return InvalidRowID, common.NewEvaluationError(
			"tuple schema %s does not match table '%s' schema %s", tuple.Schema(), mt.name, mt.schema)
	}
	stored := tuple.Copy()
	stored.schema = mt.schema

	mt.latch.Lock()
	defer mt.latch.Unlock()
	mt.nextID++
	mt.rows.Set(row{rid: mt.nextID, tuple: stored})
	return mt.nextID, nil
}

// GetTuple returns a copy of the tuple stored under rid.
func (mt *MemTable) GetTuple(rid RowID) (Tuple, error) {
	mt.latch.RLock()
	item, ok := mt.rows.Get(row{rid: rid})
	mt.latch.RUnlock()
	if !ok {
		return Tuple{}, common.NewError(common.NoSuchObjectError, "row %d does not exist in table '%s'", rid, mt.name)
	}
	return item.tuple.Copy(), nil
}

// Iterator returns an iterator over a snapshot of the table in RowID order.
func (mt *MemTable) Iterator() *MemTableIterator {
	mt.latch.RLock()
	snapshot := mt.rows.Copy()
	mt.latch.RUnlock()

	return &MemTableIterator{
		snapshot: snapshot,
		iter:     snapshot.Iter(),
	}
}

func (mt *MemTable) String() string {
	return fmt.Sprintf("MemTable(%d, %s)", mt.oid, mt.name)
}

// MemTableIterator walks a MemTable snapshot.
// It follows the standard Iterator pattern (Next -> Current -> Close).
type MemTableIterator struct {
	snapshot *btree.BTreeG[row]
	iter     btree.IterG[row]
	started  bool
	done     bool
	current  row
}

// Next advances the iterator. Returns false once the snapshot is exhausted or the
// iterator was closed.
func (it *MemTableIterator) Next() bool {
	if it.done {
		return false
	}
	var ok bool
	if !it.started {
		it.started = true
		ok = it.iter.First()
	} else {
		ok = it.iter.Next()
	}
	if !ok {
		it.done = true
		return false
	}
	it.current = it.iter.Item()
	return true
}

// RowID returns the id of the current tuple.
func (it *MemTableIterator) RowID() RowID {
	return it.current.rid
}

// Current returns a copy of the current tuple, which the caller may annotate freely.
func (it *MemTableIterator) Current() Tuple {
	return it.current.tuple.Copy()
}

// Close releases the snapshot. It is safe to call more than once.
func (it *MemTableIterator) Close() error {
	if it.snapshot != nil {
		it.iter.Release()
		it.snapshot = nil
	}
	it.done = true
	return nil
}
