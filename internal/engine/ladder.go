package engine

import (
	"github.com/tidwall/btree"

	"vidar/internal/common"
)

// Ladder is the ordered index of price levels for one side of the book.
// The btree comparator is fixed per side so that Min always yields the
// best level: highest price first for bids, lowest first for asks.
type Ladder struct {
	side   common.Side
	levels *btree.BTreeG[*Limit]
}

func NewLadder(side common.Side) *Ladder {
	var less func(a, b *Limit) bool
	if side == common.Buy {
		less = func(a, b *Limit) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *Limit) bool { return a.Price < b.Price }
	}
	return &Ladder{
		side:   side,
		levels: btree.NewBTreeG(less),
	}
}

func (ld *Ladder) Side() common.Side {
	return ld.side
}

func (ld *Ladder) Len() int {
	return ld.levels.Len()
}

// Best returns the level next in line to match against.
func (ld *Ladder) Best() (*Limit, bool) {
	return ld.levels.MinMut()
}

// FindOrInsert returns the level at price, creating it if absent.
func (ld *Ladder) FindOrInsert(price int64) *Limit {
	if level, ok := ld.levels.GetMut(&Limit{Price: price}); ok {
		return level
	}
	level := &Limit{Price: price, Side: ld.side}
	ld.levels.Set(level)
	return level
}

// Remove drops the level at price from the ladder.
func (ld *Ladder) Remove(price int64) {
	ld.levels.Delete(&Limit{Price: price})
}

// Walk visits levels in priority order until fn returns false.
func (ld *Ladder) Walk(fn func(*Limit) bool) {
	ld.levels.Scan(fn)
}

// Levels returns every level in priority order.
func (ld *Ladder) Levels() []*Limit {
	return ld.levels.Items()
}
