package execution

import (
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// ScanSourceOperator implements a full scan over a stored table.
// Each open scans a fresh snapshot of the table once; close and open again to rescan.
type ScanSourceOperator struct {
	plan *planner.ScanNode

	// Runtime state
	state        operatorState
	outputSchema *storage.Schema
	iterator     *storage.MemTableIterator
	current      storage.Tuple
	logger       *zap.Logger
}

// NewScanSourceOperator creates a new ScanSourceOperator.
func NewScanSourceOperator(plan *planner.ScanNode) *ScanSourceOperator {
	return &ScanSourceOperator{
		plan: plan,
	}
}

func (e *ScanSourceOperator) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *ScanSourceOperator) Open(ctx *ExecutorContext) error {
	if e.state == stateOpened {
		return nil
	}
	table, err := ctx.GetTableManager().GetTable(e.plan.TableName)
	if err != nil {
		return err
	}
	e.logger = ctx.Logger()
	e.outputSchema = table.Schema()
	e.iterator = table.Iterator()
	e.state = stateOpened
	e.logger.Debug("opened scan", zap.String("table", e.plan.TableName), zap.Int("rows", table.Len()))
	return nil
}

func (e *ScanSourceOperator) Next() bool {
	if e.state == stateClosed {
		return false
	}
	if !e.iterator.Next() {
		return false
	}
	e.current = e.iterator.Current()
	return true
}

func (e *ScanSourceOperator) Current() storage.Tuple {
	return e.current
}

// Error always returns nil: reading an in-memory snapshot cannot fail.
func (e *ScanSourceOperator) Error() error {
	return nil
}

func (e *ScanSourceOperator) OutputSchema() *storage.Schema {
	return e.outputSchema
}

func (e *ScanSourceOperator) Close() error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed
	e.current = storage.Tuple{}
	err := e.iterator.Close()
	e.iterator = nil
	return err
}
