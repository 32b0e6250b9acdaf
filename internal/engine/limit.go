package engine

import (
	"vidar/internal/common"
)

// Limit is one price level on one side of the book: a FIFO queue of
// resting orders at the same price, plus the level aggregates the
// ladder and depth queries read.
type Limit struct {
	Price       int64
	Side        common.Side
	Size        int   // number of resting orders
	TotalVolume int64 // sum of remaining shares across the queue

	head *Order // earliest arrival, first to match
	tail *Order
}

// Empty reports whether the level holds no orders. An empty level must
// not stay in its ladder.
func (l *Limit) Empty() bool {
	return l.Size == 0
}

// Head returns the earliest-arrived resting order, or nil.
func (l *Limit) Head() *Order {
	return l.head
}

// enqueue appends o at the tail of the queue, giving it the lowest time
// priority at this price.
func (l *Limit) enqueue(o *Order) {
	o.limit = l
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		o.prev = l.tail
		l.tail.next = o
		l.tail = o
	}
	l.Size++
	l.TotalVolume += o.Shares
}

// unlink removes o from the queue and folds its remaining shares out of
// the level aggregates. o must be resting at this level.
func (l *Limit) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.limit = nil
	l.Size--
	l.TotalVolume -= o.Shares
}

// processFill walks the queue from the head, trading the incoming taker
// against resting makers until either side is exhausted. Every fill is
// recorded on the book's execution queue. A resting order from the
// taker's own client aborts the walk with ErrSelfTrade; fills already
// recorded stand.
func (l *Limit) processFill(taker *common.OrderData, takerID uint64, book *Book) error {
	for taker.Shares > 0 && !l.Empty() {
		maker := l.head
		if maker == nil {
			panic("limit: non-zero size with empty queue")
		}
		if maker.ClientID == taker.ClientID {
			return ErrSelfTrade
		}

		vol := min(maker.Shares, taker.Shares)
		book.recordExecution(vol, takerID, taker, maker)

		if vol == maker.Shares {
			l.unlink(maker)
			book.orders.remove(maker.ID)
		} else {
			maker.Shares -= vol
			l.TotalVolume -= vol
		}
		taker.Shares -= vol
	}
	return nil
}
