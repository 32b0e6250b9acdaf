package net

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
)

func TestParseMessage_NewOrderRoundTrip(t *testing.T) {
	frame := SerializeNewOrder(NewOrderMessage{
		ClientID:   42,
		Side:       common.Sell,
		LimitPrice: 10150,
		Shares:     250,
	})

	msg, err := parseMessage(frame)
	require.NoError(t, err)

	order, ok := msg.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, NewOrder, order.GetType())
	assert.Equal(t, uint32(42), order.ClientID)
	assert.Equal(t, common.Sell, order.Side)
	assert.Equal(t, int64(10150), order.LimitPrice)
	assert.Equal(t, int64(250), order.Shares)

	data := order.OrderData()
	assert.Equal(t, uint32(42), data.ClientID)
	assert.Zero(t, data.ExecutedQty)
	assert.True(t, data.AvgPrice.IsZero())
}

func TestParseMessage_CancelOrderRoundTrip(t *testing.T) {
	frame := SerializeCancelOrder(CancelOrderMessage{OrderID: 7777})

	msg, err := parseMessage(frame)
	require.NoError(t, err)

	cancel, ok := msg.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, CancelOrder, cancel.GetType())
	assert.Equal(t, uint64(7777), cancel.OrderID)
}

func TestParseMessage_Heartbeat(t *testing.T) {
	msg, err := parseMessage([]byte{0, byte(Heartbeat)})
	require.NoError(t, err)
	assert.Equal(t, Heartbeat, msg.GetType())
}

func TestParseMessage_Errors(t *testing.T) {
	_, err := parseMessage([]byte{0})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	frame := SerializeNewOrder(NewOrderMessage{ClientID: 1, Side: common.Buy, LimitPrice: 1, Shares: 1})
	_, err = parseMessage(frame[:8])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestReport_ExecutionRoundTrip(t *testing.T) {
	makerAvg := decimal.NewFromInt(101)
	takerAvg := decimal.NewFromInt(711).Div(decimal.NewFromInt(7))

	exec := &common.Execution{
		Symbol:         "VDR",
		ExecutionID:    9,
		MakerOrderID:   3,
		TakerOrderID:   5,
		ExecPrice:      101,
		ExecSize:       4,
		MakerSide:      common.Sell,
		TakerSide:      common.Buy,
		MakerExecType:  common.FullFill,
		TakerExecType:  common.PartialFill,
		MakerClientID:  1,
		TakerClientID:  2,
		MakerCumQty:    4,
		TakerCumQty:    7,
		MakerLeavesQty: 0,
		TakerLeavesQty: 3,
		MakerAvgPrice:  makerAvg,
		TakerAvgPrice:  takerAvg,
	}

	payload := NewExecutionReport(exec).Serialize()
	got, err := ParseReport(bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, ExecutionReport, got.MessageType)
	assert.Equal(t, "VDR", got.Symbol)
	assert.Equal(t, uint64(9), got.ExecutionID)
	assert.Equal(t, uint64(3), got.MakerOrderID)
	assert.Equal(t, uint64(5), got.TakerOrderID)
	assert.Equal(t, int64(101), got.ExecPrice)
	assert.Equal(t, int64(4), got.ExecSize)
	assert.Equal(t, common.Sell, got.MakerSide)
	assert.Equal(t, common.Buy, got.TakerSide)
	assert.Equal(t, common.FullFill, got.MakerExecType)
	assert.Equal(t, common.PartialFill, got.TakerExecType)
	assert.Equal(t, uint32(1), got.MakerClientID)
	assert.Equal(t, uint32(2), got.TakerClientID)
	assert.Equal(t, int64(4), got.MakerCumQty)
	assert.Equal(t, int64(7), got.TakerCumQty)
	assert.Equal(t, int64(0), got.MakerLeavesQty)
	assert.Equal(t, int64(3), got.TakerLeavesQty)
	assert.Empty(t, got.Err)

	maker, taker, err := got.AvgPrices()
	require.NoError(t, err)
	assert.True(t, maker.Equal(makerAvg))
	assert.True(t, taker.Equal(takerAvg))
}

func TestReport_ErrorRoundTrip(t *testing.T) {
	payload := NewErrorReport(assert.AnError).Serialize()

	got, err := ParseReport(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, ErrorReport, got.MessageType)
	assert.Equal(t, assert.AnError.Error(), got.Err)
	assert.Empty(t, got.MakerAvgPrice)
	assert.Empty(t, got.TakerAvgPrice)
}

func TestReport_TwoFramesOnOneStream(t *testing.T) {
	first := NewErrorReport(assert.AnError).Serialize()
	second := NewExecutionReport(&common.Execution{
		Symbol:        "VDR",
		ExecutionID:   1,
		MakerAvgPrice: decimal.NewFromInt(100),
		TakerAvgPrice: decimal.NewFromInt(100),
	}).Serialize()

	stream := bytes.NewReader(append(first, second...))

	got, err := ParseReport(stream)
	require.NoError(t, err)
	assert.Equal(t, ErrorReport, got.MessageType)

	got, err = ParseReport(stream)
	require.NoError(t, err)
	assert.Equal(t, ExecutionReport, got.MessageType)
	assert.Equal(t, uint64(1), got.ExecutionID)
}
