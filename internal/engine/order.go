package engine

import (
	"github.com/shopspring/decimal"

	"vidar/internal/common"
)

// Order is a resting order in the book. It lives inside exactly one
// Limit's FIFO queue; the queue links and the limit back-reference are
// maintained by the Limit, never by callers.
type Order struct {
	ID       uint64
	ClientID uint32
	Side     common.Side
	Price    int64

	Shares      int64 // remaining unfilled quantity, > 0 while resting
	ExecutedQty int64
	AvgPrice    decimal.Decimal

	limit *Limit
	next  *Order
	prev  *Order
}
