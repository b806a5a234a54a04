package rabbitmq

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"tableflow/internal/xpkg/logger"
)

func TestForwardResubscribesOnChannelClose(t *testing.T) {
	r := &RabbitMQ{mylog: logger.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan amqp.Delivery, 1)
	second := make(chan amqp.Delivery, 1)
	resubscribed := make(chan struct{}, 1)

	out := make(chan amqp.Delivery)
	go r.forward(ctx, "order.#", first, out, func() (<-chan amqp.Delivery, error) {
		resubscribed <- struct{}{}
		return second, nil
	})

	first <- amqp.Delivery{Body: []byte("one")}
	d := <-out
	assert.Equal(t, "one", string(d.Body))

	// The broker channel dies under the consumer.
	close(first)
	select {
	case <-resubscribed:
	case <-time.After(time.Second):
		t.Fatal("consumer was not re-established")
	}

	second <- amqp.Delivery{Body: []byte("two")}
	select {
	case d = <-out:
		assert.Equal(t, "two", string(d.Body))
	case <-time.After(time.Second):
		t.Fatal("no delivery after re-subscribe")
	}

	cancel()
	close(second)
	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("out channel still open after context cancel")
	}
}
