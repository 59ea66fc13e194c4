package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusPending   = "PENDING"
	TaskStatusReady     = "READY"
	TaskStatusRunning   = "RUNNING"
	TaskStatusSucceeded = "SUCCEEDED"
	TaskStatusFailed    = "FAILED"
	TaskStatusCancelled = "CANCELLED"
)

// DefaultTag 未指定资源组时使用的默认Tag
const DefaultTag = "default"

// JobFunc Job函数类型：用户自定义的业务逻辑
// 首个参数是context.Context（超时控制），返回执行结果或错误
type JobFunc func(ctx context.Context) (interface{}, error)

// Task 任务核心结构体（对外导出）
// ID、Tag、依赖集合在创建后不可变；Status、Result、FailureCause仅在执行期间
// 由完成该状态转换的goroutine写入一次
type Task struct {
	id           string
	name         string
	tag          string
	dependencies []string
	jobFunc      JobFunc
	timeout      time.Duration

	mu           sync.RWMutex
	status       string
	result       interface{}
	failureCause error
}

// Option Task创建选项
type Option func(*Task)

// WithID 指定Task ID（默认自动生成UUID）
func WithID(id string) Option {
	return func(t *Task) {
		t.id = id
	}
}

// WithName 指定Task名称（默认与ID相同）
func WithName(name string) Option {
	return func(t *Task) {
		t.name = name
	}
}

// WithTag 指定资源组Tag（默认"default"）
func WithTag(tag string) Option {
	return func(t *Task) {
		if tag != "" {
			t.tag = tag
		}
	}
}

// WithDependencies 声明依赖的前置Task ID集合
func WithDependencies(ids ...string) Option {
	return func(t *Task) {
		t.dependencies = append(t.dependencies, ids...)
	}
}

// WithTimeout 指定Task执行超时时间（0表示不限制）
func WithTimeout(timeout time.Duration) Option {
	return func(t *Task) {
		t.timeout = timeout
	}
}

// NewTask 创建Task实例（对外导出）
// jobFunc: 用户自定义业务函数，仅在Task进入RUNNING状态后被调用一次
func NewTask(jobFunc JobFunc, opts ...Option) *Task {
	t := &Task{
		tag:     DefaultTag,
		jobFunc: jobFunc,
		status:  TaskStatusPending,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.id == "" {
		t.id = uuid.NewString()
	}
	if t.name == "" {
		t.name = t.id
	}

	// 依赖去重
	seen := make(map[string]struct{}, len(t.dependencies))
	deduped := make([]string, 0, len(t.dependencies))
	for _, dep := range t.dependencies {
		if _, exists := seen[dep]; exists {
			continue
		}
		seen[dep] = struct{}{}
		deduped = append(deduped, dep)
	}
	t.dependencies = deduped

	return t
}

// ID 获取Task ID（实现go-dag的Identifiable接口）
func (t *Task) ID() string {
	return t.id
}

// Name 获取Task名称
func (t *Task) Name() string {
	return t.name
}

// Tag 获取资源组Tag
func (t *Task) Tag() string {
	return t.tag
}

// Dependencies 获取依赖的前置Task ID列表（副本）
func (t *Task) Dependencies() []string {
	deps := make([]string, len(t.dependencies))
	copy(deps, t.dependencies)
	return deps
}

// Timeout 获取超时时间（0表示不限制）
func (t *Task) Timeout() time.Duration {
	return t.timeout
}

// Status 获取当前状态
func (t *Task) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result 获取执行结果（仅在SUCCEEDED状态下有值）
func (t *Task) Result() interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// FailureCause 获取失败原因（FAILED或CANCELLED状态下有值）
func (t *Task) FailureCause() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.failureCause
}

// IsTerminal 判断是否处于终态（SUCCEEDED/FAILED/CANCELLED）
func (t *Task) IsTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return isTerminal(t.status)
}

func isTerminal(status string) bool {
	return status == TaskStatusSucceeded || status == TaskStatusFailed || status == TaskStatusCancelled
}

// MarkReady 状态转换 PENDING -> READY
// 返回false表示Task不在PENDING状态（已被取消或重复转换）
func (t *Task) MarkReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusPending {
		return false
	}
	t.status = TaskStatusReady
	return true
}

// BeginRun 状态转换 READY -> RUNNING
// Worker在取出Task后调用；返回false表示Task已被取消，不得执行Job函数
// 与Cancel互斥：二者只有一个能成功
func (t *Task) BeginRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusReady {
		return false
	}
	t.status = TaskStatusRunning
	return true
}

// Succeed 状态转换 RUNNING -> SUCCEEDED，记录执行结果
func (t *Task) Succeed(result interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusRunning {
		return
	}
	t.status = TaskStatusSucceeded
	t.result = result
}

// Fail 状态转换 RUNNING -> FAILED，记录失败原因
func (t *Task) Fail(cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusRunning {
		return
	}
	t.status = TaskStatusFailed
	t.failureCause = cause
}

// Cancel 状态转换 PENDING/READY -> CANCELLED，记录取消原因
// 返回false表示Task已处于终态或正在运行（运行中的Task允许执行完成）
// 多个上游失败同时取消同一Task时，首个调用者生效
func (t *Task) Cancel(cause error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusPending && t.status != TaskStatusReady {
		return false
	}
	t.status = TaskStatusCancelled
	t.failureCause = cause
	return true
}

// Invoke 调用Job函数（仅供executor在RUNNING状态下调用）
func (t *Task) Invoke(ctx context.Context) (interface{}, error) {
	return t.jobFunc(ctx)
}
