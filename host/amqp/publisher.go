// Package amqp forwards requested transfers to a settlement service over
// RabbitMQ. The Publisher implements host.TransferRequester and is meant to
// sit behind host.Custody as its settlement requester.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	streadway "github.com/streadway/amqp"

	"github.com/xraph/recur/host"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

// MessageType is set on every published transfer request.
const MessageType = "recur.transfer.requested"

var _ host.TransferRequester = (*Publisher)(nil)

// Channel is the subset of *streadway.Channel the publisher needs.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg streadway.Publishing) error
}

// Message is the JSON body of a published transfer request.
type Message struct {
	TransferID  string       `json:"transfer_id"`
	ScheduleID  string       `json:"schedule_id"`
	Recipient   string       `json:"recipient"`
	Amount      types.Amount `json:"amount"`
	RequestedAt time.Time    `json:"requested_at"`
}

// Publisher publishes transfer requests to an exchange.
type Publisher struct {
	ch         Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
	closer     func() error
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithExchange publishes to exchange instead of the default exchange.
func WithExchange(exchange string) Option {
	return func(p *Publisher) { p.exchange = exchange }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a Publisher over an open channel. With the default exchange
// routingKey is the queue name.
func New(ch Channel, routingKey string, opts ...Option) *Publisher {
	p := &Publisher{
		ch:         ch,
		routingKey: routingKey,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to url, declares a durable queue and returns a Publisher
// routing to it through the default exchange.
func Dial(url, queue string, opts ...Option) (*Publisher, error) {
	conn, err := streadway.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare queue %s: %w", queue, err)
	}

	p := New(ch, queue, opts...)
	p.closer = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return p, nil
}

// RequestTransfer implements host.TransferRequester. The returned handle is
// forwarded, referencing the published message.
func (p *Publisher) RequestTransfer(ctx context.Context, req transfer.Request) (*transfer.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	body, err := Encode(req, now)
	if err != nil {
		return nil, err
	}

	msg := streadway.Publishing{
		ContentType:  "application/json",
		DeliveryMode: streadway.Persistent,
		MessageId:    req.ID.String(),
		Timestamp:    now,
		Type:         MessageType,
		Body:         body,
	}
	if err := p.ch.Publish(p.exchange, p.routingKey, false, false, msg); err != nil {
		return nil, fmt.Errorf("amqp: publish to %s: %w", p.routingKey, err)
	}

	p.logger.Debug("transfer published",
		"transfer_id", req.ID.String(),
		"routing_key", p.routingKey,
	)

	return &transfer.Handle{
		ID:          req.ID,
		ScheduleID:  req.ScheduleID,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Reference:   p.exchange + "/" + p.routingKey + "/" + req.ID.String(),
		Status:      transfer.StatusForwarded,
		RequestedAt: now,
	}, nil
}

// Close closes the channel and connection opened by Dial.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Encode renders req as a Message body.
func Encode(req transfer.Request, at time.Time) ([]byte, error) {
	body, err := json.Marshal(Message{
		TransferID:  req.ID.String(),
		ScheduleID:  req.ScheduleID,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		RequestedAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("amqp: encode transfer %s: %w", req.ID, err)
	}
	return body, nil
}

// Decode parses a Message body back into a transfer request.
func Decode(body []byte) (transfer.Request, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return transfer.Request{}, fmt.Errorf("amqp: decode transfer: %w", err)
	}
	transferID, err := id.ParseTransferID(m.TransferID)
	if err != nil {
		return transfer.Request{}, fmt.Errorf("amqp: decode transfer: %w", err)
	}
	return transfer.Request{
		ID:         transferID,
		ScheduleID: m.ScheduleID,
		Recipient:  m.Recipient,
		Amount:     m.Amount,
	}, nil
}
