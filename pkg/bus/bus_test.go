package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeyedSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus[string, int](zap.NewNop())
	b.Start(ctx)

	sub := b.Subscribe(ctx, "a")
	b.Publish(ctx, "b", 1)
	b.Publish(ctx, "a", 2)

	select {
	case msg := <-sub:
		assert.Equal(t, "a", msg.Key)
		assert.Equal(t, 2, msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keyed message")
	}
}

func TestGlobalSubscriptionAndPublisher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBus[string, string](zap.NewNop())
	b.Start(ctx)

	sub := b.Subscribe(ctx)
	pub := b.CreatePublisher("dev0")
	pub(ctx, "attached")

	select {
	case msg := <-sub:
		assert.Equal(t, "dev0", msg.Key)
		assert.Equal(t, "attached", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for global message")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	// no Start, nothing drains the channel
	b := NewBus[int, int](zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			b.Publish(context.Background(), 0, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a backed-up bus")
	}
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	b := NewBus[string, int](zap.NewNop())
	b.Start(context.Background())

	subCtx, subCancel := context.WithCancel(context.Background())
	sub := b.Subscribe(subCtx, "a")
	subCancel()

	select {
	case _, ok := <-sub:
		require.False(t, ok, "channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}
