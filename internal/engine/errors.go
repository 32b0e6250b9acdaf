package engine

import "errors"

var (
	// ErrInvalidOrder rejects intents with non-positive shares or price,
	// or an unknown side. The book is left untouched.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrSelfTrade rejects a submission that would match a resting order
	// from the same client. Executions produced earlier in the same
	// submission against other clients stay on the queue; the residual
	// of the rejected order is discarded.
	ErrSelfTrade = errors.New("self trade rejected")

	// ErrUnknownOrder is returned by Cancel when the id is not resting.
	ErrUnknownOrder = errors.New("unknown order")
)
