package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"vidar/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 4 + 1 + 8 + 8
	CancelOrderMessageHeaderLen = 8
	symbolFieldLen              = 8
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, fmt.Errorf("%w: missing header", ErrMessageTooShort)
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	ClientID   uint32      // 4 bytes
	Side       common.Side // 1 byte
	LimitPrice int64       // 8 bytes, ticks
	Shares     int64       // 8 bytes
}

// OrderData converts the wire message into the intent the book consumes.
func (m NewOrderMessage) OrderData() common.OrderData {
	return common.OrderData{
		ClientID:   m.ClientID,
		Side:       m.Side,
		LimitPrice: m.LimitPrice,
		Shares:     m.Shares,
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.ClientID = binary.BigEndian.Uint32(msg[0:4])
	m.Side = common.Side(msg[4])
	m.LimitPrice = int64(binary.BigEndian.Uint64(msg[5:13]))
	m.Shares = int64(binary.BigEndian.Uint64(msg[13:21]))
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID uint64 // 8 bytes
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}

	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.OrderID = binary.BigEndian.Uint64(msg[0:8])
	return m, nil
}

// SerializeNewOrder frames a NewOrder message for the wire.
func SerializeNewOrder(m NewOrderMessage) []byte {
	buf := make([]byte, BaseMessageHeaderLen+NewOrderMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint32(buf[2:6], m.ClientID)
	buf[6] = byte(m.Side)
	binary.BigEndian.PutUint64(buf[7:15], uint64(m.LimitPrice))
	binary.BigEndian.PutUint64(buf[15:23], uint64(m.Shares))
	return buf
}

// SerializeCancelOrder frames a CancelOrder message for the wire.
func SerializeCancelOrder(m CancelOrderMessage) []byte {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	return buf
}

// Report is the outbound frame delivered back to sessions: either one
// side of an execution, or an error for a rejected request. Average
// prices travel as decimal strings to keep them exact on the wire.
type Report struct {
	MessageType ReportMessageType // 1 byte
	Symbol      string            // 8 bytes, padded

	ExecutionID  uint64 // 8 bytes
	MakerOrderID uint64 // 8 bytes
	TakerOrderID uint64 // 8 bytes

	ExecPrice int64 // 8 bytes
	ExecSize  int64 // 8 bytes

	MakerSide     common.Side          // 1 byte
	TakerSide     common.Side          // 1 byte
	MakerExecType common.ExecutionType // 1 byte
	TakerExecType common.ExecutionType // 1 byte

	MakerClientID uint32 // 4 bytes
	TakerClientID uint32 // 4 bytes

	MakerCumQty    int64 // 8 bytes
	TakerCumQty    int64 // 8 bytes
	MakerLeavesQty int64 // 8 bytes
	TakerLeavesQty int64 // 8 bytes

	MakerAvgLen uint16 // 2 bytes
	TakerAvgLen uint16 // 2 bytes
	ErrStrLen   uint32 // 4 bytes

	MakerAvgPrice string // n bytes
	TakerAvgPrice string // n bytes
	Err           string // n bytes
}

const ReportFixedHeaderLen = 1 + symbolFieldLen + 8 + 8 + 8 + 8 + 8 + 1 + 1 + 1 + 1 + 4 + 4 + 8 + 8 + 8 + 8 + 2 + 2 + 4

// NewExecutionReport wraps an execution record for the wire.
func NewExecutionReport(e *common.Execution) Report {
	makerAvg := e.MakerAvgPrice.String()
	takerAvg := e.TakerAvgPrice.String()
	return Report{
		MessageType:    ExecutionReport,
		Symbol:         e.Symbol,
		ExecutionID:    e.ExecutionID,
		MakerOrderID:   e.MakerOrderID,
		TakerOrderID:   e.TakerOrderID,
		ExecPrice:      e.ExecPrice,
		ExecSize:       e.ExecSize,
		MakerSide:      e.MakerSide,
		TakerSide:      e.TakerSide,
		MakerExecType:  e.MakerExecType,
		TakerExecType:  e.TakerExecType,
		MakerClientID:  e.MakerClientID,
		TakerClientID:  e.TakerClientID,
		MakerCumQty:    e.MakerCumQty,
		TakerCumQty:    e.TakerCumQty,
		MakerLeavesQty: e.MakerLeavesQty,
		TakerLeavesQty: e.TakerLeavesQty,
		MakerAvgLen:    uint16(len(makerAvg)),
		TakerAvgLen:    uint16(len(takerAvg)),
		MakerAvgPrice:  makerAvg,
		TakerAvgPrice:  takerAvg,
	}
}

// NewErrorReport wraps a rejection for the wire.
func NewErrorReport(err error) Report {
	errStr := err.Error()
	return Report{
		MessageType: ErrorReport,
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
}

// Serialize converts the report to be sent on the wire.
func (r Report) Serialize() []byte {
	totalSize := ReportFixedHeaderLen + len(r.MakerAvgPrice) + len(r.TakerAvgPrice) + len(r.Err)
	buf := make([]byte, totalSize)

	buf[0] = byte(r.MessageType)
	copy(buf[1:9], r.Symbol)
	binary.BigEndian.PutUint64(buf[9:17], r.ExecutionID)
	binary.BigEndian.PutUint64(buf[17:25], r.MakerOrderID)
	binary.BigEndian.PutUint64(buf[25:33], r.TakerOrderID)
	binary.BigEndian.PutUint64(buf[33:41], uint64(r.ExecPrice))
	binary.BigEndian.PutUint64(buf[41:49], uint64(r.ExecSize))
	buf[49] = byte(r.MakerSide)
	buf[50] = byte(r.TakerSide)
	buf[51] = byte(r.MakerExecType)
	buf[52] = byte(r.TakerExecType)
	binary.BigEndian.PutUint32(buf[53:57], r.MakerClientID)
	binary.BigEndian.PutUint32(buf[57:61], r.TakerClientID)
	binary.BigEndian.PutUint64(buf[61:69], uint64(r.MakerCumQty))
	binary.BigEndian.PutUint64(buf[69:77], uint64(r.TakerCumQty))
	binary.BigEndian.PutUint64(buf[77:85], uint64(r.MakerLeavesQty))
	binary.BigEndian.PutUint64(buf[85:93], uint64(r.TakerLeavesQty))
	binary.BigEndian.PutUint16(buf[93:95], r.MakerAvgLen)
	binary.BigEndian.PutUint16(buf[95:97], r.TakerAvgLen)
	binary.BigEndian.PutUint32(buf[97:101], r.ErrStrLen)

	offset := ReportFixedHeaderLen
	copy(buf[offset:], r.MakerAvgPrice)
	offset += len(r.MakerAvgPrice)
	copy(buf[offset:], r.TakerAvgPrice)
	offset += len(r.TakerAvgPrice)
	copy(buf[offset:], r.Err)
	return buf
}

// ParseReport reads one report frame off the stream. Shared by the
// server's tests and the CLI client.
func ParseReport(rd io.Reader) (Report, error) {
	header := make([]byte, ReportFixedHeaderLen)
	if _, err := io.ReadFull(rd, header); err != nil {
		return Report{}, err
	}

	r := Report{
		MessageType:    ReportMessageType(header[0]),
		Symbol:         trimPadding(header[1:9]),
		ExecutionID:    binary.BigEndian.Uint64(header[9:17]),
		MakerOrderID:   binary.BigEndian.Uint64(header[17:25]),
		TakerOrderID:   binary.BigEndian.Uint64(header[25:33]),
		ExecPrice:      int64(binary.BigEndian.Uint64(header[33:41])),
		ExecSize:       int64(binary.BigEndian.Uint64(header[41:49])),
		MakerSide:      common.Side(header[49]),
		TakerSide:      common.Side(header[50]),
		MakerExecType:  common.ExecutionType(header[51]),
		TakerExecType:  common.ExecutionType(header[52]),
		MakerClientID:  binary.BigEndian.Uint32(header[53:57]),
		TakerClientID:  binary.BigEndian.Uint32(header[57:61]),
		MakerCumQty:    int64(binary.BigEndian.Uint64(header[61:69])),
		TakerCumQty:    int64(binary.BigEndian.Uint64(header[69:77])),
		MakerLeavesQty: int64(binary.BigEndian.Uint64(header[77:85])),
		TakerLeavesQty: int64(binary.BigEndian.Uint64(header[85:93])),
		MakerAvgLen:    binary.BigEndian.Uint16(header[93:95]),
		TakerAvgLen:    binary.BigEndian.Uint16(header[95:97]),
		ErrStrLen:      binary.BigEndian.Uint32(header[97:101]),
	}

	varLen := int(r.MakerAvgLen) + int(r.TakerAvgLen) + int(r.ErrStrLen)
	if varLen > 0 {
		varBuf := make([]byte, varLen)
		if _, err := io.ReadFull(rd, varBuf); err != nil {
			return Report{}, err
		}
		r.MakerAvgPrice = string(varBuf[:r.MakerAvgLen])
		r.TakerAvgPrice = string(varBuf[r.MakerAvgLen : int(r.MakerAvgLen)+int(r.TakerAvgLen)])
		r.Err = string(varBuf[int(r.MakerAvgLen)+int(r.TakerAvgLen):])
	}
	return r, nil
}

// AvgPrices decodes the report's average price strings.
func (r *Report) AvgPrices() (maker, taker decimal.Decimal, err error) {
	if r.MakerAvgLen > 0 {
		if maker, err = decimal.NewFromString(r.MakerAvgPrice); err != nil {
			return
		}
	}
	if r.TakerAvgLen > 0 {
		taker, err = decimal.NewFromString(r.TakerAvgPrice)
	}
	return
}

func trimPadding(b []byte) string {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
