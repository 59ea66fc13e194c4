// Package events 提供任务状态转换的事件通知总线
// 调度器和执行器在每次状态转换时发布一个事件，调用方可按事件类型订阅处理器
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// 任务状态事件
	EventTaskReady     EventType = "task.ready"     // 依赖全部完成，任务就绪
	EventTaskStarted   EventType = "task.started"   // 任务开始执行
	EventTaskSucceeded EventType = "task.succeeded" // 任务执行成功
	EventTaskFailed    EventType = "task.failed"    // 任务执行失败
	EventTaskCancelled EventType = "task.cancelled" // 任务被取消

	// 运行生命周期事件
	EventRunStarted  EventType = "run.started"  // 一次运行开始
	EventRunFinished EventType = "run.finished" // 一次运行结束
)

// TaskStatusEvent 任务状态转换事件（对外导出）
type TaskStatusEvent struct {
	ID         string    `json:"id"`          // 事件ID（UUID）
	Type       EventType `json:"type"`        // 事件类型
	TaskID     string    `json:"task_id"`     // 关联任务ID
	TaskName   string    `json:"task_name"`   // 任务名称
	Tag        string    `json:"tag"`         // 资源组Tag
	Status     string    `json:"status"`      // 转换后的状态
	Error      string    `json:"error"`       // 错误信息（失败/取消时）
	Timestamp  time.Time `json:"timestamp"`   // 事件时间
	DurationMs int64     `json:"duration_ms"` // 执行耗时（毫秒，终态事件）
}

// NewTaskStatusEvent 创建任务状态事件
func NewTaskStatusEvent(eventType EventType, taskID, taskName, tag, status string) *TaskStatusEvent {
	return &TaskStatusEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		TaskID:    taskID,
		TaskName:  taskName,
		Tag:       tag,
		Status:    status,
		Timestamp: time.Now(),
	}
}

// WithError 记录错误信息
func (e *TaskStatusEvent) WithError(err error) *TaskStatusEvent {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration 记录执行耗时
func (e *TaskStatusEvent) WithDuration(d time.Duration) *TaskStatusEvent {
	e.DurationMs = d.Milliseconds()
	return e
}

// EventHandler 事件处理器函数类型
type EventHandler func(event *TaskStatusEvent) error
