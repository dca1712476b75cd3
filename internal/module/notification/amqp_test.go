package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPSender_Send(t *testing.T) {
	t.Run("publishes envelope", func(t *testing.T) {
		ch := &fakeChannel{}
		s := &AMQPSender{ch: ch, exchange: "sportsclub.notifications", logger: zap.NewNop()}

		require.NoError(t, s.Send(context.Background(), "runner@example.com", "Payment Received", "<p>ok</p>"))
		assert.Equal(t, "sportsclub.notifications", ch.exchange)
		assert.Equal(t, RoutingKey, ch.key)
		assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
		assert.Equal(t, "application/json", ch.msg.ContentType)

		var env Envelope
		require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
		assert.Equal(t, "runner@example.com", env.To)
		assert.Equal(t, "<p>ok</p>", env.HTML)
		assert.False(t, env.QueuedAt.IsZero())

		require.NoError(t, s.Close())
		assert.True(t, ch.closed)
	})

	t.Run("publish error", func(t *testing.T) {
		s := &AMQPSender{ch: &fakeChannel{err: errors.New("channel closed")}, exchange: "x", logger: zap.NewNop()}
		assert.ErrorContains(t, s.Send(context.Background(), "a@b.c", "s", "b"), "channel closed")
	})
}
