package engine

import (
	"testing"

	"vidar/internal/common"
)

func BenchmarkBook_SubmitResting(b *testing.B) {
	book := newTestBook()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.Submit(common.OrderData{
			ClientID:   uint32(i%64 + 1),
			Side:       common.Buy,
			LimitPrice: int64(100 + i%10),
			Shares:     1,
		})
	}
}

func BenchmarkBook_SubmitMatching(b *testing.B) {
	book := newTestBook()
	for i := 0; i < 1000; i++ {
		_, _ = book.Submit(common.OrderData{
			ClientID:   1,
			Side:       common.Sell,
			LimitPrice: int64(100 + i%10),
			Shares:     1,
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.Submit(common.OrderData{
			ClientID:   2,
			Side:       common.Buy,
			LimitPrice: 105,
			Shares:     1,
		})
		book.DrainExecutions()
		// Replenish so the ask side never runs dry.
		_, _ = book.Submit(common.OrderData{
			ClientID:   1,
			Side:       common.Sell,
			LimitPrice: int64(100 + i%10),
			Shares:     1,
		})
	}
}

func BenchmarkBook_SubmitCancel(b *testing.B) {
	book := newTestBook()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, _ := book.Submit(common.OrderData{
			ClientID:   1,
			Side:       common.Buy,
			LimitPrice: int64(100 + i%100),
			Shares:     10,
		})
		_ = book.Cancel(id)
	}
}
