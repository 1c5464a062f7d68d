package amqp_test

import (
	"context"
	"errors"
	"testing"

	streadway "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur/host"
	"github.com/xraph/recur/host/amqp"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

type fakeChannel struct {
	exchange, key string
	published     []streadway.Publishing
	err           error
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg streadway.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	return nil
}

func TestRequestTransferPublishes(t *testing.T) {
	ch := &fakeChannel{}
	p := amqp.New(ch, "settlements")

	req := transfer.NewRequest("alice_3", "bob.near", types.Whole(2))
	h, err := p.RequestTransfer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, transfer.StatusForwarded, h.Status)
	assert.Equal(t, req.ID.String(), h.ID.String())
	assert.Contains(t, h.Reference, req.ID.String())

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, "settlements", ch.key)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, streadway.Persistent, msg.DeliveryMode)
	assert.Equal(t, req.ID.String(), msg.MessageId)
	assert.Equal(t, amqp.MessageType, msg.Type)

	decoded, err := amqp.Decode(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, req.ID.String(), decoded.ID.String())
	assert.Equal(t, "alice_3", decoded.ScheduleID)
	assert.True(t, decoded.Amount.Equal(types.Whole(2)))
	assert.Contains(t, string(msg.Body), `"amount":"2000000000000000000000000"`)
}

func TestRequestTransferPublishFailure(t *testing.T) {
	p := amqp.New(&fakeChannel{err: errors.New("channel closed")}, "settlements")
	_, err := p.RequestTransfer(context.Background(), transfer.NewRequest("s", "bob", types.NewAmount(1)))
	require.Error(t, err)
}

func TestRequestTransferCanceledContext(t *testing.T) {
	ch := &fakeChannel{}
	p := amqp.New(ch, "settlements")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RequestTransfer(ctx, transfer.NewRequest("s", "bob", types.NewAmount(1)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ch.published)
}

func TestCustodyForwardsToPublisher(t *testing.T) {
	ch := &fakeChannel{}
	custody := host.NewCustody(
		host.WithInitialBalance(types.NewAmount(10)),
		host.WithSettlement(amqp.New(ch, "settlements", amqp.WithExchange("payments"))),
	)

	h, err := custody.RequestTransfer(context.Background(), transfer.NewRequest("s", "bob", types.NewAmount(4)))
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusForwarded, h.Status)
	assert.Equal(t, "payments", ch.exchange)
	assert.Equal(t, "6", custody.Balance().String())
}

func TestCustodyRecreditsOnPublishFailure(t *testing.T) {
	custody := host.NewCustody(
		host.WithInitialBalance(types.NewAmount(10)),
		host.WithSettlement(amqp.New(&fakeChannel{err: errors.New("down")}, "settlements")),
	)

	_, err := custody.RequestTransfer(context.Background(), transfer.NewRequest("s", "bob", types.NewAmount(4)))
	require.Error(t, err)
	assert.Equal(t, "10", custody.Balance().String())
	assert.Empty(t, custody.Transfers())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := amqp.Decode([]byte(`{"transfer_id":"nope"}`))
	require.Error(t, err)
	_, err = amqp.Decode([]byte(`not json`))
	require.Error(t, err)
}
