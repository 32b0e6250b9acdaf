package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"vidar/internal/common"
)

// Book is the matching coordinator for one symbol. It owns both
// ladders, the index of resting orders, and the execution queue, and
// drives price/time-priority matching for every incoming intent.
//
// The book is a synchronous, single-threaded state machine: callers
// must serialize Submit, Cancel, and DrainExecutions externally.
type Book struct {
	symbol string
	bids   *Ladder
	asks   *Ladder
	orders orderIndex
	execs  ExecutionQueue
	seq    Sequencer
}

func NewBook(symbol string, seq Sequencer) *Book {
	return &Book{
		symbol: symbol,
		bids:   NewLadder(common.Buy),
		asks:   NewLadder(common.Sell),
		orders: make(orderIndex),
		seq:    seq,
	}
}

func (b *Book) Symbol() string {
	return b.symbol
}

// Submit matches the intent against the opposite side of the book and
// rests any surviving quantity on its own side. The returned id
// identifies the submission: it is the taker id on every execution the
// sweep produced, and the resting order id if a residual rested.
//
// On ErrSelfTrade, executions produced earlier in the sweep against
// other clients remain queued and the residual is discarded.
func (b *Book) Submit(data common.OrderData) (uint64, error) {
	if err := validate(data); err != nil {
		return 0, err
	}

	takerID := b.seq.NextOrderID()
	opposite := b.ladder(data.Side.Opposite())

	// Sweep the opposite ladder best-level first while prices cross.
	for data.Shares > 0 {
		best, ok := opposite.Best()
		if !ok || !crosses(data.Side, data.LimitPrice, best.Price) {
			break
		}

		err := best.processFill(&data, takerID, b)
		if best.Empty() {
			opposite.Remove(best.Price)
		}
		if err != nil {
			return takerID, err
		}
	}

	if data.Shares > 0 {
		b.rest(takerID, data)
	}
	return takerID, nil
}

// Cancel removes a resting order, unwinding its level aggregates and,
// if it was the last order at its price, the level itself.
func (b *Book) Cancel(orderID uint64) error {
	o, ok := b.orders.get(orderID)
	if !ok {
		return ErrUnknownOrder
	}

	level := o.limit
	level.unlink(o)
	if level.Empty() {
		b.ladder(o.Side).Remove(level.Price)
	}
	b.orders.remove(orderID)
	return nil
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (int64, bool) {
	return bestPrice(b.bids)
}

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (int64, bool) {
	return bestPrice(b.asks)
}

// Depth reports up to levels price levels on one side, best first.
func (b *Book) Depth(side common.Side, levels int) []common.LevelInfo {
	out := make([]common.LevelInfo, 0, levels)
	b.ladder(side).Walk(func(l *Limit) bool {
		if len(out) == levels {
			return false
		}
		out = append(out, common.LevelInfo{
			Price:       l.Price,
			TotalVolume: l.TotalVolume,
			Orders:      l.Size,
		})
		return true
	})
	return out
}

// Top summarizes the best level on each side for market data.
func (b *Book) Top() common.TopOfBook {
	top := common.TopOfBook{Symbol: b.symbol}
	if bid := b.Depth(common.Buy, 1); len(bid) == 1 {
		top.Bid = &bid[0]
	}
	if ask := b.Depth(common.Sell, 1); len(ask) == 1 {
		top.Ask = &ask[0]
	}
	return top
}

// DrainExecutions transfers every queued execution to the caller.
func (b *Book) DrainExecutions() []*common.Execution {
	return b.execs.Drain()
}

// PendingExecutions reports how many executions await draining.
func (b *Book) PendingExecutions() int {
	return b.execs.Len()
}

// recordExecution builds the trade record for one fill and appends it
// to the queue. Called before any quantity moves, so maker.Shares and
// taker.Shares still hold their pre-fill values.
func (b *Book) recordExecution(vol int64, takerID uint64, taker *common.OrderData, maker *Order) {
	makerLeaves := maker.Shares - vol
	takerLeaves := taker.Shares - vol

	makerType := common.PartialFill
	if makerLeaves == 0 {
		makerType = common.FullFill
	}
	takerType := common.PartialFill
	if takerLeaves == 0 {
		takerType = common.FullFill
	}

	makerCum := maker.ExecutedQty + vol
	takerCum := taker.ExecutedQty + vol

	// newAvg = (oldCum*oldAvg + vol*price) / newCum. Div rounds a
	// quotient that does not terminate to 16 fractional digits.
	price := decimal.NewFromInt(maker.Price)
	notional := price.Mul(decimal.NewFromInt(vol))
	maker.AvgPrice = maker.AvgPrice.
		Mul(decimal.NewFromInt(maker.ExecutedQty)).
		Add(notional).
		Div(decimal.NewFromInt(makerCum))
	taker.AvgPrice = taker.AvgPrice.
		Mul(decimal.NewFromInt(taker.ExecutedQty)).
		Add(notional).
		Div(decimal.NewFromInt(takerCum))

	maker.ExecutedQty = makerCum
	taker.ExecutedQty = takerCum

	b.execs.push(&common.Execution{
		Symbol:         b.symbol,
		ExecutionID:    b.seq.NextExecutionID(),
		MakerOrderID:   maker.ID,
		TakerOrderID:   takerID,
		ExecPrice:      maker.Price,
		ExecSize:       vol,
		MakerSide:      maker.Side,
		TakerSide:      taker.Side,
		MakerExecType:  makerType,
		TakerExecType:  takerType,
		MakerClientID:  maker.ClientID,
		TakerClientID:  taker.ClientID,
		MakerCumQty:    makerCum,
		TakerCumQty:    takerCum,
		MakerLeavesQty: makerLeaves,
		TakerLeavesQty: takerLeaves,
		MakerAvgPrice:  maker.AvgPrice,
		TakerAvgPrice:  taker.AvgPrice,
	})
}

// rest inserts the residual of a submission as a new resting order.
func (b *Book) rest(id uint64, data common.OrderData) {
	level := b.ladder(data.Side).FindOrInsert(data.LimitPrice)
	o := &Order{
		ID:          id,
		ClientID:    data.ClientID,
		Side:        data.Side,
		Price:       data.LimitPrice,
		Shares:      data.Shares,
		ExecutedQty: data.ExecutedQty,
		AvgPrice:    data.AvgPrice,
	}
	level.enqueue(o)
	b.orders.add(o)
}

func (b *Book) ladder(side common.Side) *Ladder {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

func bestPrice(ld *Ladder) (int64, bool) {
	level, ok := ld.Best()
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// crosses reports whether an incoming order at limit trades against the
// opposite side's best price.
func crosses(side common.Side, limit, best int64) bool {
	if side == common.Buy {
		return best <= limit
	}
	return best >= limit
}

func validate(data common.OrderData) error {
	if data.Side != common.Buy && data.Side != common.Sell {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, data.Side)
	}
	if data.Shares <= 0 {
		return fmt.Errorf("%w: shares must be positive", ErrInvalidOrder)
	}
	if data.LimitPrice <= 0 {
		return fmt.Errorf("%w: limit price must be positive", ErrInvalidOrder)
	}
	return nil
}
