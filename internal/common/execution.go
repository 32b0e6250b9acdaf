package common

import (
	"github.com/shopspring/decimal"
)

// Execution records a single trade between a resting maker order and an
// incoming taker order. Executions are immutable once constructed; the
// book appends them to its output queue and the session layer drains
// them for reporting.
type Execution struct {
	Symbol      string
	ExecutionID uint64

	MakerOrderID uint64
	TakerOrderID uint64

	ExecPrice int64 // always the maker's limit price
	ExecSize  int64

	MakerSide Side
	TakerSide Side

	MakerExecType ExecutionType
	TakerExecType ExecutionType

	MakerClientID uint32
	TakerClientID uint32

	MakerCumQty int64
	TakerCumQty int64

	MakerLeavesQty int64
	TakerLeavesQty int64

	MakerAvgPrice decimal.Decimal
	TakerAvgPrice decimal.Decimal
}

// LevelInfo summarizes one price level for depth queries.
type LevelInfo struct {
	Price       int64
	TotalVolume int64
	Orders      int
}

// TopOfBook carries the best level on each side for market-data
// publication. A nil side means the book is empty on that side.
type TopOfBook struct {
	Symbol string
	Bid    *LevelInfo
	Ask    *LevelInfo
}
