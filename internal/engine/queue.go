package engine

import (
	"vidar/internal/common"
)

// ExecutionQueue buffers completed executions, in the order matching
// produced them, until the session layer drains them for reporting.
// It is a hand-off buffer: nothing blocks here.
type ExecutionQueue struct {
	execs []*common.Execution
}

func (q *ExecutionQueue) push(e *common.Execution) {
	q.execs = append(q.execs, e)
}

func (q *ExecutionQueue) Len() int {
	return len(q.execs)
}

// Drain hands every queued execution to the caller and empties the
// queue. Ownership of the records transfers with the slice.
func (q *ExecutionQueue) Drain() []*common.Execution {
	out := q.execs
	q.execs = nil
	return out
}
