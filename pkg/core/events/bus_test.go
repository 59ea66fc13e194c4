package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan *TaskStatusEvent, 1)
	err := bus.Subscribe(context.Background(), EventTaskSucceeded, func(event *TaskStatusEvent) error {
		received <- event
		return nil
	})
	require.NoError(t, err)

	event := NewTaskStatusEvent(EventTaskSucceeded, "task1", "抓取页面", "io", "SUCCEEDED").
		WithDuration(120 * time.Millisecond)
	require.NoError(t, bus.Publish(event))

	select {
	case got := <-received:
		assert.Equal(t, EventTaskSucceeded, got.Type)
		assert.Equal(t, "task1", got.TaskID)
		assert.Equal(t, "io", got.Tag)
		assert.Equal(t, int64(120), got.DurationMs)
		assert.NotEmpty(t, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("等待事件超时")
	}
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var failedEvents []string
	err := bus.Subscribe(context.Background(), EventTaskFailed, func(event *TaskStatusEvent) error {
		mu.Lock()
		failedEvents = append(failedEvents, event.TaskID)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	// 发布不同类型的事件，订阅者只收到task.failed
	require.NoError(t, bus.Publish(NewTaskStatusEvent(EventTaskSucceeded, "ok", "", "default", "SUCCEEDED")))
	require.NoError(t, bus.Publish(NewTaskStatusEvent(EventTaskFailed, "broken", "", "default", "FAILED")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failedEvents) == 1 && failedEvents[0] == "broken"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(NewTaskStatusEvent(EventTaskReady, "task1", "", "default", "READY"))
	require.Error(t, err)
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())

	err := bus.Subscribe(context.Background(), EventTaskReady, func(event *TaskStatusEvent) error {
		return nil
	})
	require.Error(t, err)
}

func TestBus_NilEvent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	require.Error(t, bus.Publish(nil))
	require.Error(t, bus.Subscribe(context.Background(), EventTaskReady, nil))
}
