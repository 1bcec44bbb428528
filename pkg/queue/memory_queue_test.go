package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Queue = (*MemoryQueue)(nil)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("NewMemoryQueue", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		assert.NoError(t, err)
		assert.NotNil(t, mq)
		defer mq.Close()

		mq2, err := NewMemoryQueue(&MemoryQueueConfig{
			BufferSize:    500,
			Topic:         "newsletter.dispatch",
			ProducerID:    "storefront-api",
			ConsumerGroup: "storefront-newsletter",
			Timeout:       10 * time.Second,
		})
		assert.NoError(t, err)
		assert.NotNil(t, mq2)
		defer mq2.Close()
	})

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)
		defer mq.Close()

		topic := "newsletter.dispatch"
		payload, _ := json.Marshal(map[string]string{
			"email":   "alice@example.com",
			"subject": "New phones in stock",
		})
		received := make(chan []byte, 1)

		err = mq.Subscribe(ctx, topic, func(ctx context.Context, topic string, msg []byte) error {
			received <- msg
			return nil
		})
		assert.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		err = mq.Publish(ctx, topic, payload)
		assert.NoError(t, err)

		select {
		case got := <-received:
			assert.Equal(t, payload, got)
		case <-time.After(time.Second):
			t.Fatal("message not received within timeout")
		}
	})

	t.Run("MultipleMessagesArrive", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)
		defer mq.Close()

		topic := "newsletter.dispatch"
		const messageCount = 10
		received := make(chan []byte, messageCount)

		err = mq.Subscribe(ctx, topic, func(ctx context.Context, topic string, msg []byte) error {
			received <- msg
			return nil
		})
		assert.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		for i := 0; i < messageCount; i++ {
			err = mq.Publish(ctx, topic, []byte(fmt.Sprintf("campaign %d", i)))
			assert.NoError(t, err)
		}

		timeout := time.After(2 * time.Second)
		for got := 0; got < messageCount; got++ {
			select {
			case <-received:
			case <-timeout:
				t.Fatalf("only received %d of %d messages", got, messageCount)
			}
		}
	})

	t.Run("TopicsAreIsolated", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)
		defer mq.Close()

		newsletters := make(chan []byte, 1)
		receipts := make(chan []byte, 1)

		err = mq.Subscribe(ctx, "newsletter.dispatch", func(ctx context.Context, topic string, msg []byte) error {
			newsletters <- msg
			return nil
		})
		assert.NoError(t, err)
		err = mq.Subscribe(ctx, "order.receipt", func(ctx context.Context, topic string, msg []byte) error {
			receipts <- msg
			return nil
		})
		assert.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		assert.NoError(t, mq.Publish(ctx, "newsletter.dispatch", []byte("campaign")))
		assert.NoError(t, mq.Publish(ctx, "order.receipt", []byte("receipt SO1001")))

		select {
		case got := <-newsletters:
			assert.Equal(t, []byte("campaign"), got)
		case <-time.After(time.Second):
			t.Fatal("newsletter message not received")
		}

		select {
		case got := <-receipts:
			assert.Equal(t, []byte("receipt SO1001"), got)
		case <-time.After(time.Second):
			t.Fatal("receipt message not received")
		}
	})

	t.Run("PublishTimesOutOnFullBuffer", func(t *testing.T) {
		mq, err := NewMemoryQueue(&MemoryQueueConfig{
			BufferSize: 1,
			Timeout:    10 * time.Millisecond,
		})
		require.NoError(t, err)
		defer mq.Close()

		topic := "newsletter.dispatch"

		assert.NoError(t, mq.Publish(ctx, topic, []byte("first")))

		// no consumer is draining, second publish hits the full buffer
		err = mq.Publish(ctx, topic, []byte("second"))
		assert.Equal(t, ErrPublishTimeout, err)
	})

	t.Run("SubscriberStopsOnContextCancel", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)
		defer mq.Close()

		cancelCtx, cancel := context.WithCancel(ctx)

		var wg sync.WaitGroup
		wg.Add(1)
		err = mq.Subscribe(cancelCtx, "newsletter.dispatch", func(ctx context.Context, topic string, msg []byte) error {
			defer wg.Done()
			return nil
		})
		assert.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		assert.NoError(t, mq.Publish(ctx, "newsletter.dispatch", []byte("campaign")))
		wg.Wait()

		cancel()
		time.Sleep(10 * time.Millisecond)
	})

	t.Run("Close", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)

		handler := func(ctx context.Context, topic string, msg []byte) error {
			return nil
		}
		assert.NoError(t, mq.Subscribe(ctx, "newsletter.dispatch", handler))

		assert.NoError(t, mq.Close())

		assert.Equal(t, ErrQueueClosed, mq.Publish(ctx, "newsletter.dispatch", []byte("x")))
		assert.Equal(t, ErrQueueClosed, mq.Subscribe(ctx, "newsletter.dispatch", handler))

		// second close is a no-op
		assert.NoError(t, mq.Close())
	})

	t.Run("Health", func(t *testing.T) {
		mq, err := NewMemoryQueue(nil)
		require.NoError(t, err)

		assert.NoError(t, mq.Health())

		mq.Close()
		assert.Equal(t, ErrQueueClosed, mq.Health())
	})

	t.Run("GetStats", func(t *testing.T) {
		mq, err := NewMemoryQueue(&MemoryQueueConfig{
			Topic:         "newsletter.dispatch",
			ProducerID:    "storefront-api",
			ConsumerGroup: "storefront-newsletter",
		})
		require.NoError(t, err)
		defer mq.Close()

		stats := mq.GetStats()
		assert.Equal(t, "newsletter.dispatch", stats.Topic)
		assert.Equal(t, "storefront-api", stats.ProducerID)
		assert.Equal(t, "storefront-newsletter", stats.ConsumerGroup)
		assert.True(t, stats.Connected)

		mq.Close()
		assert.False(t, mq.GetStats().Connected)
	})
}
