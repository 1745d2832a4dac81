package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/storage"
)

// Catalog manages the table schemas and term index definitions and provides fast lookups.
// The catalog is serialized as a single JSON blob through a PersistenceProvider.
//
// IMMUTABILITY & SCHEMA EVOLUTION:
// Tables and indexes can be added, but never altered or dropped. Operators capture their
// schemas at open time, so a table definition must not change underneath a running
// pipeline.
type Catalog struct {
	catalogState

	// In-memory structures for fast lookups
	tableMap  map[string]*Table   // TableName -> Table
	columnMap map[string][]*Table // ColumnName -> List of Tables containing this column
}

// Column represents the basic unit of a table schema.
type Column struct {
	Name string      `json:"name"`
	Type common.Type `json:"type"`
}

// Index describes a term index over some text columns of a table. The analyzer names the
// tokenizer used both when indexing and when analyzing keyword queries against it.
type Index struct {
	Oid       common.ObjectID `json:"oid"`
	TableOid  common.ObjectID `json:"table_oid"`
	Name      string          `json:"name"`
	Analyzer  string          `json:"analyzer"`
	KeySchema []string        `json:"key_schema"` // List of column names
}

// Table is the primary metadata structure. It groups columns and their
// associated indexes under a unique ObjectID.
type Table struct {
	Oid     common.ObjectID `json:"oid"`
	Name    string          `json:"name"`
	Columns []Column        `json:"columns"`
	Indexes []Index         `json:"indexes"`
}

// PersistenceProvider abstracts how the catalog is saved to and loaded from disk.
type PersistenceProvider interface {
	LoadCatalogState() (json string, err error)
	SaveCatalogState(json string) error
}

// Schema builds the tuple schema of the table.
func (t *Table) Schema() (*storage.Schema, error) {
	attrs := make([]storage.Attribute, len(t.Columns))
	for i, col := range t.Columns {
		attrs[i] = storage.Attribute{Name: col.Name, Type: col.Type}
	}
	return storage.NewSchema(attrs...)
}

func (t *Table) String() string {
	b, _ := json.MarshalIndent(t, "", "  ")
	return string(b)
}

type catalogState struct {
	NextId uint32   `json:"next_id"`
	Tables []*Table `json:"tables"`
}

func (c *Catalog) String() string {
	b, _ := json.MarshalIndent(c, "", "  ")
	return string(b)
}

func (c *Catalog) toJSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Catalog) fromJSON(jsonData string) error {
	if err := json.Unmarshal([]byte(jsonData), c); err != nil {
		return err
	}
	for _, t := range c.Tables {
		c.tableMap[t.Name] = t
		for _, f := range t.Columns {
			c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
		}
	}
	return nil
}

// NewCatalog initializes a catalog. It attempts to load existing state
// from the provider; if no state exists, it starts with an empty database.
func NewCatalog(provider PersistenceProvider) (*Catalog, error) {
	result := &Catalog{
		catalogState: catalogState{
			NextId: 0,
			Tables: make([]*Table, 0),
		},
		tableMap:  make(map[string]*Table),
		columnMap: make(map[string][]*Table),
	}

	jsonData, err := provider.LoadCatalogState()
	if errors.Is(err, os.ErrNotExist) {
		// Start from scratch
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err = result.fromJSON(jsonData); err != nil {
		// Parsing errors are fatal system errors, usually indicating corruption
		return nil, errors.Wrap(err, "failed to parse catalog state")
	}

	return result, nil
}

// AddTable registers a new table in the catalog.
// It assigns a globally unique ObjectID to the table and persists the updated state. If the table with that name
// already exists, it returns DuplicateObjectError.
func (c *Catalog) AddTable(tableName string, columns []Column, provider PersistenceProvider) (*Table, error) {
	if _, exists := c.tableMap[tableName]; exists {
		return nil, common.NewError(common.DuplicateObjectError, "table '%s' already exists", tableName)
	}

	t := &Table{
		Name:    tableName,
		Columns: columns,
		Indexes: make([]Index, 0),
	}
	// Reject duplicate columns before consuming an oid.
	if _, err := t.Schema(); err != nil {
		return nil, err
	}

	// oid 0 is reserved for INVALID
	c.NextId++
	t.Oid = common.ObjectID(c.NextId)

	c.Tables = append(c.Tables, t)
	c.tableMap[tableName] = t
	for _, f := range columns {
		c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
	}

	jsonData, err := c.toJSON()
	if err != nil {
		return nil, err
	}
	return t, provider.SaveCatalogState(jsonData)
}

// GetTableMetadata fetches the schema for a specific table name.
func (c *Catalog) GetTableMetadata(tableName string) (*Table, error) {
	table, exists := c.tableMap[tableName]
	if !exists {
		return nil, common.NewError(common.NoSuchObjectError, "table '%s' does not exist", tableName)
	}
	return table, nil
}

// FindTablesWithColumnName returns all tables that contain a column with
// the given name.
func (c *Catalog) FindTablesWithColumnName(columnName string) []*Table {
	return c.columnMap[columnName]
}

// AddIndex attaches a new term index definition to a table. If an index with that name
// already exists, it returns DuplicateObjectError. Only string-like columns can be indexed.
func (c *Catalog) AddIndex(indexName string, tableName string, analyzer string, columnNames []string, provider PersistenceProvider) (*Index, error) {
	table, err := c.GetTableMetadata(tableName)
	if err != nil {
		return nil, err
	}

	// Check for duplicate index name on this table
	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			return nil, common.NewError(common.DuplicateObjectError,
				"index '%s' already exists on table '%s'", indexName, tableName)
		}
	}

	// Validate columns exist
	tableCols := make(map[string]common.Type)
	for _, col := range table.Columns {
		tableCols[col.Name] = col.Type
	}
	for _, colName := range columnNames {
		colType, ok := tableCols[colName]
		if !ok {
			return nil, common.NewError(common.NoSuchObjectError,
				"column '%s' does not exist in table '%s'", colName, tableName)
		}
		if !colType.IsStringLike() {
			return nil, common.NewConfigurationError(
				"column '%s' of table '%s' has type %s and cannot be term indexed", colName, tableName, colType)
		}
	}

	c.NextId++
	idx := Index{
		Oid:       common.ObjectID(c.NextId),
		TableOid:  table.Oid,
		Name:      indexName,
		Analyzer:  analyzer,
		KeySchema: columnNames,
	}

	table.Indexes = append(table.Indexes, idx)

	jsonData, err := c.toJSON()
	if err != nil {
		return nil, err
	}
	return &idx, provider.SaveCatalogState(jsonData)
}

const CatalogFileName = "catalog.json"

type DiskCatalogManager struct {
	rootPath string
}

func NewDiskCatalogManager(rootPath string) *DiskCatalogManager {
	return &DiskCatalogManager{
		rootPath: rootPath,
	}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) LoadCatalogState() (string, error) {
	path := filepath.Join(dcm.rootPath, CatalogFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err // Let the caller (Catalog) handle os.ErrNotExist
	}
	return string(content), nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) SaveCatalogState(jsonData string) error {
	// perform an atomic write using a temporary file.
	tmpPath := filepath.Join(dcm.rootPath, CatalogFileName+".tmp")
	finalPath := filepath.Join(dcm.rootPath, CatalogFileName)

	if err := os.WriteFile(tmpPath, []byte(jsonData), 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, finalPath)
}

// MemoryCatalogManager keeps the catalog state in memory only. Used for throwaway
// databases and tests.
type MemoryCatalogManager struct {
	state string
}

func (m *MemoryCatalogManager) LoadCatalogState() (string, error) {
	if m.state == "" {
		return "", fmt.Errorf("no catalog state: %w", os.ErrNotExist)
	}
	return m.state, nil
}

func (m *MemoryCatalogManager) SaveCatalogState(jsonData string) error {
	m.state = jsonData
	return nil
}
