package textdb

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	// Imports all sub-components
	"mit.edu/dsg/textdb/catalog"
	"mit.edu/dsg/textdb/common"
	"mit.edu/dsg/textdb/execution"
	"mit.edu/dsg/textdb/indexing"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// TextDB is the top-level container for the text matching engine. Table and index
// definitions live in the catalog; rows and term indexes are held in memory.
type TextDB struct {
	Catalog      *catalog.Catalog
	TableManager *execution.TableManager
	IndexManager *indexing.IndexManager
	Logger       *zap.Logger

	provider catalog.PersistenceProvider
	// ddlLatch serializes catalog changes.
	ddlLatch sync.Mutex
}

// NewTextDB opens an instance. Tables and indexes already recorded in the catalog are
// recreated empty.
func NewTextDB(cfg Config) (*TextDB, error) {
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}
	return NewTextDBWithLogger(cfg, logger)
}

// NewTextDBWithLogger opens an instance that logs to the given logger.
func NewTextDBWithLogger(cfg Config, logger *zap.Logger) (*TextDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var provider catalog.PersistenceProvider = &catalog.MemoryCatalogManager{}
	if cfg.CatalogDir != "" {
		if err := os.MkdirAll(cfg.CatalogDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating catalog directory %s", cfg.CatalogDir)
		}
		provider = catalog.NewDiskCatalogManager(cfg.CatalogDir)
	}

	c, err := catalog.NewCatalog(provider)
	if err != nil {
		return nil, err
	}
	indexManager, err := indexing.NewIndexManager(c)
	if err != nil {
		return nil, err
	}
	tableManager, err := execution.NewTableManager(c, indexManager)
	if err != nil {
		return nil, err
	}

	logger.Info("textdb opened", zap.String("catalogDir", cfg.CatalogDir), zap.Int("tables", len(c.Tables)))
	return &TextDB{
		Catalog:      c,
		TableManager: tableManager,
		IndexManager: indexManager,
		Logger:       logger,
		provider:     provider,
	}, nil
}

// CreateTable defines a new table.
func (db *TextDB) CreateTable(name string, columns []catalog.Column) error {
	db.ddlLatch.Lock()
	defer db.ddlLatch.Unlock()

	table, err := db.Catalog.AddTable(name, columns, db.provider)
	if err != nil {
		return err
	}
	if _, err := db.TableManager.RegisterTable(table); err != nil {
		return err
	}
	db.Logger.Debug("created table", zap.String("table", name), zap.Int("columns", len(columns)))
	return nil
}

// CreateIndex defines a term index over text columns of a table and indexes the rows the
// table already holds.
func (db *TextDB) CreateIndex(name, tableName, analyzer string, columns []string) error {
	db.ddlLatch.Lock()
	defer db.ddlLatch.Unlock()

	if _, err := indexing.GetAnalyzer(analyzer); err != nil {
		return err
	}
	def, err := db.Catalog.AddIndex(name, tableName, analyzer, columns, db.provider)
	if err != nil {
		return err
	}
	table, err := db.Catalog.GetTableMetadata(tableName)
	if err != nil {
		return err
	}
	idx, err := db.IndexManager.RegisterIndex(table, *def)
	if err != nil {
		return err
	}
	if err := db.TableManager.BackfillIndex(tableName, idx); err != nil {
		return errors.Wrapf(err, "backfilling index '%s'", name)
	}
	db.Logger.Debug("created index", zap.String("index", name), zap.String("table", tableName), zap.Strings("columns", columns))
	return nil
}

// Insert stores a row in a table.
func (db *TextDB) Insert(tableName string, values ...common.Value) (storage.RowID, error) {
	table, err := db.TableManager.GetTable(tableName)
	if err != nil {
		return storage.InvalidRowID, err
	}
	tuple, err := storage.NewTuple(table.Schema(), values...)
	if err != nil {
		return storage.InvalidRowID, err
	}
	return db.TableManager.InsertTuple(tableName, tuple)
}

// Query evaluates a plan and returns every tuple it produces.
func (db *TextDB) Query(plan planner.PlanNode) ([]storage.Tuple, error) {
	op, err := execution.BuildOperator(plan)
	if err != nil {
		return nil, err
	}
	return db.run(op)
}

// run opens op, drains it and closes it. A close failure that follows an evaluation failure
// is logged and the evaluation failure is returned.
func (db *TextDB) run(op execution.Operator) ([]storage.Tuple, error) {
	if err := op.Open(execution.NewExecutorContext(db.TableManager, db.Logger)); err != nil {
		return nil, err
	}

	var results []storage.Tuple
	for op.Next() {
		results = append(results, op.Current())
	}
	if err := op.Error(); err != nil {
		if closeErr := op.Close(); closeErr != nil {
			db.Logger.Warn("failure while closing after error", zap.Stringer("plan", op.PlanNode()), zap.Error(closeErr))
		}
		return nil, err
	}
	if err := op.Close(); err != nil {
		return nil, err
	}
	db.Logger.Debug("query done", zap.Stringer("plan", op.PlanNode()), zap.Int("results", len(results)))
	return results, nil
}

// QueryYAML parses a YAML plan and evaluates it.
func (db *TextDB) QueryYAML(data []byte) ([]storage.Tuple, error) {
	plan, err := planner.ParsePlan(data)
	if err != nil {
		return nil, err
	}
	return db.Query(plan)
}
