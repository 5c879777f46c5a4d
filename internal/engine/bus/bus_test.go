// internal/engine/bus/bus_test.go
package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"opsdesk-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestBus_PreservesPublishOrderPerType(t *testing.T) {
	b := New(logger.NewTestLogger(t), 64)

	var mu sync.Mutex
	var got []string

	b.Subscribe(TypeFormSubmitted, "recorder", func(ctx context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.(FormSubmitted).SubmissionID)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		err := b.Publish(ctx, FormSubmitted{
			WorkspaceID:  "ws-1",
			SubmissionID: fmt.Sprintf("sub-%02d", i),
			TemplateID:   "tpl-1",
		})
		assert.NoError(t, err)
	}

	b.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 20)
	for i, id := range got {
		assert.Equal(t, fmt.Sprintf("sub-%02d", i), id)
	}
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	b := New(logger.NewNoOpLogger(), 8)

	var mu sync.Mutex
	calls := map[string]int{}

	b.Subscribe(TypeInventoryChanged, "failing", func(ctx context.Context, evt Event) error {
		mu.Lock()
		calls["failing"]++
		mu.Unlock()
		return fmt.Errorf("boom")
	})
	b.Subscribe(TypeInventoryChanged, "healthy", func(ctx context.Context, evt Event) error {
		mu.Lock()
		calls["healthy"]++
		mu.Unlock()
		return nil
	})

	err := b.Publish(context.Background(), InventoryChanged{WorkspaceID: "ws-1", ItemID: "item-1"})
	assert.NoError(t, err)

	b.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls["failing"])
	assert.Equal(t, 1, calls["healthy"])
}

func TestBus_DistinctTypesDispatchIndependently(t *testing.T) {
	b := New(logger.NewNoOpLogger(), 8)

	blocked := make(chan struct{})
	messageSeen := make(chan struct{})

	b.Subscribe(TypeFormSubmitted, "slow", func(ctx context.Context, evt Event) error {
		<-blocked
		return nil
	})
	b.Subscribe(TypeMessageReceived, "fast", func(ctx context.Context, evt Event) error {
		close(messageSeen)
		return nil
	})

	ctx := context.Background()
	assert.NoError(t, b.Publish(ctx, FormSubmitted{WorkspaceID: "ws-1", SubmissionID: "sub-1"}))
	assert.NoError(t, b.Publish(ctx, MessageReceived{WorkspaceID: "ws-1", ConversationID: "conv-1"}))

	select {
	case <-messageSeen:
		// message.received handled while form.submitted still in flight
	case <-time.After(2 * time.Second):
		t.Fatal("message.received was blocked behind form.submitted dispatch")
	}

	close(blocked)
	b.Close()
}

func TestBus_ConcurrentPublishAndCloseDoesNotPanic(t *testing.T) {
	b := New(logger.NewNoOpLogger(), 4)

	b.Subscribe(TypeFormSubmitted, "noop", func(ctx context.Context, evt Event) error {
		return nil
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				// Publishes racing Close either enqueue or report the bus
				// closed; neither may hit a closed channel.
				_ = b.Publish(context.Background(), FormSubmitted{WorkspaceID: "ws-1"})
			}
		}()
	}

	time.Sleep(time.Millisecond)
	b.Close()
	wg.Wait()
}

func TestBus_PublishAfterCloseFails(t *testing.T) {
	b := New(logger.NewNoOpLogger(), 8)
	b.Close()

	err := b.Publish(context.Background(), FormSubmitted{WorkspaceID: "ws-1"})
	assert.Error(t, err)
}
