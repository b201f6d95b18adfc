package net

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrTextTooLong        = errors.New("report text too long")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	StartAuction
	PlaceBid
	CancelOrder
	FillOrder
	EndAuction
)

var messageTypeNames = map[MessageType]string{
	Heartbeat:    "heartbeat",
	StartAuction: "start_auction",
	PlaceBid:     "place_bid",
	CancelOrder:  "cancel_order",
	FillOrder:    "fill_order",
	EndAuction:   "end_auction",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

type ReportMessageType uint8

const (
	Accepted ReportMessageType = iota
	Rejected
	ErrorReport
)

type Message interface {
	GetType() MessageType
	Encode() []byte
}

// Message format constants
const (
	BaseMessageHeaderLen     = 2
	AuctionMessageLen        = 16
	OrderMessageLen          = 16
	PlaceBidMessageHeaderLen = 16 + 8 + 1
)

// Generic message type. Heartbeats carry nothing else.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func (m BaseMessage) Encode() []byte {
	buf := make([]byte, BaseMessageHeaderLen)
	m.putHeader(buf)
	return buf
}

func (m BaseMessage) putHeader(buf []byte) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(m.TypeOf))
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, errors.New("message too short to contain header")
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case StartAuction, EndAuction:
		return parseAuctionMessage(typeOf, msg)
	case PlaceBid:
		return parsePlaceBid(msg)
	case CancelOrder, FillOrder:
		return parseOrderMessage(typeOf, msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// AuctionMessage starts or ends an auction.
type AuctionMessage struct {
	BaseMessage
	AuctionID uuid.UUID // 16 bytes
}

func NewAuctionMessage(typeOf MessageType, auctionID uuid.UUID) AuctionMessage {
	return AuctionMessage{BaseMessage: BaseMessage{TypeOf: typeOf}, AuctionID: auctionID}
}

func (m AuctionMessage) Encode() []byte {
	buf := make([]byte, BaseMessageHeaderLen+AuctionMessageLen)
	m.putHeader(buf)
	copy(buf[2:18], m.AuctionID[:])
	return buf
}

func parseAuctionMessage(typeOf MessageType, msg []byte) (AuctionMessage, error) {
	if len(msg) < AuctionMessageLen {
		return AuctionMessage{}, ErrMessageTooShort
	}
	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return AuctionMessage{}, err
	}
	return NewAuctionMessage(typeOf, id), nil
}

type PlaceBidMessage struct {
	BaseMessage
	AuctionID uuid.UUID // 16 bytes
	Amount    float64   // 8 bytes
	BidderLen uint8     // 1 byte
	Bidder    string    // n bytes
}

func NewPlaceBidMessage(auctionID uuid.UUID, bidder string, amount float64) PlaceBidMessage {
	if len(bidder) > math.MaxUint8 {
		bidder = bidder[:math.MaxUint8]
	}
	return PlaceBidMessage{
		BaseMessage: BaseMessage{TypeOf: PlaceBid},
		AuctionID:   auctionID,
		Amount:      amount,
		BidderLen:   uint8(len(bidder)),
		Bidder:      bidder,
	}
}

func (m PlaceBidMessage) Encode() []byte {
	buf := make([]byte, BaseMessageHeaderLen+PlaceBidMessageHeaderLen+int(m.BidderLen))
	m.putHeader(buf)
	copy(buf[2:18], m.AuctionID[:])
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(m.Amount))
	buf[26] = m.BidderLen
	copy(buf[27:], m.Bidder)
	return buf
}

func parsePlaceBid(msg []byte) (PlaceBidMessage, error) {
	if len(msg) < PlaceBidMessageHeaderLen {
		return PlaceBidMessage{}, ErrMessageTooShort
	}

	m := PlaceBidMessage{BaseMessage: BaseMessage{TypeOf: PlaceBid}}
	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return PlaceBidMessage{}, err
	}
	m.AuctionID = id
	m.Amount = math.Float64frombits(binary.BigEndian.Uint64(msg[16:24]))
	m.BidderLen = msg[24]

	// Calculate expected total length.
	expectedTotalLen := PlaceBidMessageHeaderLen + int(m.BidderLen)
	if len(msg) < expectedTotalLen {
		return PlaceBidMessage{}, ErrMessageTooShort
	}
	m.Bidder = string(msg[25:expectedTotalLen])

	return m, nil
}

// OrderMessage fills or cancels a ledger order.
type OrderMessage struct {
	BaseMessage
	OrderID uuid.UUID // 16 bytes
}

func NewOrderMessage(typeOf MessageType, orderID uuid.UUID) OrderMessage {
	return OrderMessage{BaseMessage: BaseMessage{TypeOf: typeOf}, OrderID: orderID}
}

func (m OrderMessage) Encode() []byte {
	buf := make([]byte, BaseMessageHeaderLen+OrderMessageLen)
	m.putHeader(buf)
	copy(buf[2:18], m.OrderID[:])
	return buf
}

func parseOrderMessage(typeOf MessageType, msg []byte) (OrderMessage, error) {
	if len(msg) < OrderMessageLen {
		return OrderMessage{}, ErrMessageTooShort
	}
	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return OrderMessage{}, err
	}
	return NewOrderMessage(typeOf, id), nil
}

// Report answers exactly one request message.
type Report struct {
	MessageType ReportMessageType // 1 byte
	Request     MessageType       // 2 bytes
	Timestamp   uint64            // 8 bytes, unix nanoseconds
	Price       float64           // 8 bytes
	Ref         uuid.UUID         // 16 bytes, order or auction
	TextLen     uint16            // 2 bytes
	Text        string            // n bytes, rejection reason, error or winner
}

const ReportFixedHeaderLen = 1 + 2 + 8 + 8 + 16 + 2

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() ([]byte, error) {
	if len(r.Text) > math.MaxUint16 {
		return nil, ErrTextTooLong
	}
	r.TextLen = uint16(len(r.Text))

	buf := make([]byte, ReportFixedHeaderLen+len(r.Text))
	buf[0] = byte(r.MessageType)
	binary.BigEndian.PutUint16(buf[1:3], uint16(r.Request))
	binary.BigEndian.PutUint64(buf[3:11], r.Timestamp)
	binary.BigEndian.PutUint64(buf[11:19], math.Float64bits(r.Price))
	copy(buf[19:35], r.Ref[:])
	binary.BigEndian.PutUint16(buf[35:37], r.TextLen)
	copy(buf[ReportFixedHeaderLen:], r.Text)
	return buf, nil
}

// ReadReport reads one serialized report off r.
func ReadReport(r io.Reader) (Report, error) {
	header := make([]byte, ReportFixedHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Report{}, err
	}

	report := Report{
		MessageType: ReportMessageType(header[0]),
		Request:     MessageType(binary.BigEndian.Uint16(header[1:3])),
		Timestamp:   binary.BigEndian.Uint64(header[3:11]),
		Price:       math.Float64frombits(binary.BigEndian.Uint64(header[11:19])),
		TextLen:     binary.BigEndian.Uint16(header[35:37]),
	}
	copy(report.Ref[:], header[19:35])

	if report.TextLen > 0 {
		text := make([]byte, report.TextLen)
		if _, err := io.ReadFull(r, text); err != nil {
			return Report{}, err
		}
		report.Text = string(text)
	}
	return report, nil
}
