package execution

import (
	"go.uber.org/zap"
	"mit.edu/dsg/textdb/planner"
	"mit.edu/dsg/textdb/storage"
)

// Operator is the interface that all pipeline stages must implement.
//
// Operators move between two states. They start CLOSED; a successful Open moves them to
// OPENED and Close moves them back. Open and Close are idempotent: opening an opened
// operator and closing a closed one are no-ops. Open recursively opens upstream operators
// and fixes the output schema; Close recursively closes them and must leave the operator
// CLOSED even when it reports an error.
//
// Iteration is pull-based and single-threaded. Next advances to the next tuple and returns
// false at end-of-stream or on failure; Error tells the two apart. A CLOSED operator
// reports end-of-stream without error. Once exhausted, an operator keeps reporting
// end-of-stream until it is closed and opened again.
type Operator interface {
	PlanNode() planner.PlanNode

	// Open prepares the operator and everything upstream of it.
	Open(ctx *ExecutorContext) error

	// Next retrieves the next tuple from the operator.
	Next() bool

	// Current returns the tuple most recently read by Next(). The tuple belongs to the
	// caller; the operator does not touch it again.
	Current() storage.Tuple

	// Error returns the last error encountered by the operator, if any.
	Error() error

	// OutputSchema returns the schema of produced tuples. Only valid once opened.
	OutputSchema() *storage.Schema

	// Close cleans up any resources held by the operator.
	Close() error
}

type operatorState int

const (
	stateClosed operatorState = iota
	stateOpened
)

func (s operatorState) String() string {
	if s == stateOpened {
		return "OPENED"
	}
	return "CLOSED"
}

// closeAll runs every close function, returns the first failure and logs the others, so
// that one failing sub-resource does not prevent the rest from being released.
func closeAll(logger *zap.Logger, closers ...func() error) error {
	var first error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			if first == nil {
				first = err
				continue
			}
			logger.Warn("secondary failure while closing", zap.Error(err))
		}
	}
	return first
}

// closeAfterFailure closes op when a primary error is already being reported. A failure
// to close is logged, not returned.
func closeAfterFailure(logger *zap.Logger, op Operator) {
	if err := op.Close(); err != nil {
		logger.Warn("failure while closing after error",
			zap.Stringer("plan", op.PlanNode()), zap.Error(err))
	}
}
