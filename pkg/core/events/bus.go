package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus 进程内事件总线（对外导出）
// 基于Watermill的GoChannel Pub/Sub实现，单进程内存传递，无持久化
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// BusOption Bus创建选项
type BusOption func(*busOptions)

type busOptions struct {
	debug bool
	trace bool
}

// WithDebugLogging 开启调试日志
func WithDebugLogging() BusOption {
	return func(o *busOptions) {
		o.debug = true
	}
}

// WithTraceLogging 开启跟踪日志
func WithTraceLogging() BusOption {
	return func(o *busOptions) {
		o.trace = true
	}
}

// NewBus 创建事件总线（对外导出）
func NewBus(opts ...BusOption) *Bus {
	options := &busOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := watermill.NewStdLogger(options.debug, options.trace)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return &Bus{
		pubsub: pubsub,
		logger: logger,
	}
}

// Publish 发布事件到总线（对外导出）
// 事件按类型作为topic投递；没有订阅者时事件被丢弃（通知是尽力而为的）
func (b *Bus) Publish(event *TaskStatusEvent) error {
	if event == nil {
		return fmt.Errorf("事件不能为空")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("事件总线已关闭")
	}
	b.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubsub.Publish(string(event.Type), msg)
}

// Subscribe 订阅指定类型的事件（对外导出）
// handler在独立goroutine中按到达顺序逐条执行；返回错误仅记录日志，不中断订阅
func (b *Bus) Subscribe(ctx context.Context, eventType EventType, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("事件处理器不能为空")
	}

	// closed检查与wg.Add必须在同一临界区内，与Close的wg.Wait互斥
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("事件总线已关闭")
	}
	messages, err := b.pubsub.Subscribe(ctx, string(eventType))
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("订阅事件失败: %s, Error=%w", eventType, err)
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for msg := range messages {
			var event TaskStatusEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Printf("警告: 反序列化事件失败: %v", err)
				msg.Ack()
				continue
			}
			if err := handler(&event); err != nil {
				log.Printf("警告: 事件处理器执行失败: Type=%s, TaskID=%s, Error=%v", event.Type, event.TaskID, err)
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close 关闭事件总线，等待所有订阅goroutine退出（对外导出）
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.pubsub.Close(); err != nil {
		return err
	}
	b.wg.Wait()
	return nil
}
