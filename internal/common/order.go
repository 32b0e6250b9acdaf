package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderData is the order intent a session hands to the book. The engine
// mutates its own copy while matching; whatever quantity survives the
// sweep rests in the book under a fresh order id.
type OrderData struct {
	ClientID    uint32          // submitting client
	Side        Side            // order side
	LimitPrice  int64           // limit price in ticks
	Shares      int64           // remaining unfilled quantity
	ExecutedQty int64           // cumulative filled quantity
	AvgPrice    decimal.Decimal // volume-weighted average fill price
}

func (d OrderData) String() string {
	return fmt.Sprintf("%s %d @ %d (client %d)", d.Side, d.Shares, d.LimitPrice, d.ClientID)
}
