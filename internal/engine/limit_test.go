package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

func restingOrder(id uint64, client uint32, shares int64) *Order {
	return &Order{ID: id, ClientID: client, Side: common.Buy, Price: 100, Shares: shares}
}

func queueIDs(l *Limit) []uint64 {
	var ids []uint64
	for o := l.Head(); o != nil; o = o.next {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestLimit_EnqueueKeepsArrivalOrder(t *testing.T) {
	l := &Limit{Price: 100, Side: common.Buy}

	l.enqueue(restingOrder(1, 1, 5))
	l.enqueue(restingOrder(2, 2, 7))
	l.enqueue(restingOrder(3, 3, 9))

	assert.Equal(t, []uint64{1, 2, 3}, queueIDs(l))
	assert.Equal(t, 3, l.Size)
	assert.Equal(t, int64(21), l.TotalVolume)
	assert.False(t, l.Empty())
}

func TestLimit_Unlink(t *testing.T) {
	l := &Limit{Price: 100, Side: common.Buy}

	head := restingOrder(1, 1, 5)
	mid := restingOrder(2, 2, 7)
	tail := restingOrder(3, 3, 9)
	l.enqueue(head)
	l.enqueue(mid)
	l.enqueue(tail)

	l.unlink(mid)
	assert.Equal(t, []uint64{1, 3}, queueIDs(l))
	assert.Equal(t, 2, l.Size)
	assert.Equal(t, int64(14), l.TotalVolume)
	assert.Nil(t, mid.limit)

	l.unlink(head)
	assert.Equal(t, []uint64{3}, queueIDs(l))
	assert.Same(t, l.Head(), l.tail)

	l.unlink(tail)
	assert.Empty(t, queueIDs(l))
	assert.True(t, l.Empty())
	assert.Zero(t, l.TotalVolume)
	assert.Nil(t, l.Head())
	assert.Nil(t, l.tail)
}

func TestLimit_ProcessFillWalksFIFO(t *testing.T) {
	b := newTestBook()
	l := b.bids.FindOrInsert(100)

	for i, shares := range []int64{5, 7, 9} {
		o := restingOrder(uint64(i+1), uint32(i+1), shares)
		l.enqueue(o)
		b.orders.add(o)
	}

	taker := common.OrderData{ClientID: 9, Side: common.Sell, LimitPrice: 100, Shares: 13}
	require.NoError(t, l.processFill(&taker, 99, b))

	// 5 + 7 consumed fully, 1 off the front of the third order.
	assert.Zero(t, taker.Shares)
	assert.Equal(t, []uint64{3}, queueIDs(l))
	assert.Equal(t, 1, l.Size)
	assert.Equal(t, int64(8), l.TotalVolume)
	assert.Equal(t, int64(13), taker.ExecutedQty)

	execs := b.DrainExecutions()
	require.Len(t, execs, 3)
	assert.Equal(t, uint64(99), execs[0].TakerOrderID)
	assert.Equal(t, []int64{5, 7, 1}, []int64{execs[0].ExecSize, execs[1].ExecSize, execs[2].ExecSize})

	// Fully drained makers leave the index; the partial stays.
	_, ok := b.orders.get(1)
	assert.False(t, ok)
	_, ok = b.orders.get(3)
	assert.True(t, ok)
}

func TestLimit_ProcessFillSelfTradeStopsWalk(t *testing.T) {
	b := newTestBook()
	l := b.bids.FindOrInsert(100)

	other := restingOrder(1, 1, 2)
	same := restingOrder(2, 7, 3)
	l.enqueue(other)
	l.enqueue(same)
	b.orders.add(other)
	b.orders.add(same)

	taker := common.OrderData{ClientID: 7, Side: common.Sell, LimitPrice: 100, Shares: 10}
	err := l.processFill(&taker, 99, b)
	assert.ErrorIs(t, err, ErrSelfTrade)

	// The fill against the other client happened before the abort.
	assert.Len(t, b.DrainExecutions(), 1)
	assert.Equal(t, int64(8), taker.Shares)
	assert.Equal(t, []uint64{2}, queueIDs(l))
}
