package engine

// orderIndex maps order ids to resting orders for cancellation and
// lookup. It holds non-owning handles; the owning Limit's queue decides
// an order's lifetime. An order is indexed iff it is resting.
type orderIndex map[uint64]*Order

func (ix orderIndex) add(o *Order) {
	ix[o.ID] = o
}

func (ix orderIndex) get(id uint64) (*Order, bool) {
	o, ok := ix[id]
	return o, ok
}

func (ix orderIndex) remove(id uint64) {
	delete(ix, id)
}
