package execution

import (
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/indexing"
)

// ExecutorContext holds all the state and resources required for running an operator tree.
// It is passed to every Operator when it is opened.
type ExecutorContext struct {
	tables *TableManager
	logger *zap.Logger
}

// NewExecutorContext creates a context over the given tables. A nil logger disables logging.
func NewExecutorContext(tables *TableManager, logger *zap.Logger) *ExecutorContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutorContext{
		tables: tables,
		logger: logger,
	}
}

func (ctx *ExecutorContext) GetTableManager() *TableManager {
	return ctx.tables
}

func (ctx *ExecutorContext) GetIndexManager() *indexing.IndexManager {
	return ctx.tables.Indexes()
}

func (ctx *ExecutorContext) Logger() *zap.Logger {
	return ctx.logger
}
