// Package executor 实现按Tag分区的并发执行器
// 每个Tag对应一个独立的有界Worker池，互不争抢；执行器驱动调度循环直到
// 所有任务进入终态，并聚合每个任务的结果
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djordjijeK/taskflow/pkg/core/events"
	"github.com/djordjijeK/taskflow/pkg/core/scheduler"
	"github.com/djordjijeK/taskflow/pkg/core/task"
)

const (
	maxTagWorkers     = 1000 // 单个Tag池的最大并发数上限
	defaultTagWorkers = 4    // 未配置时每个Tag池的默认Worker数
)

// Executor 执行器核心结构体（对外导出）
type Executor struct {
	scheduler      *scheduler.Scheduler
	defaultWorkers int
	tagWorkers     map[string]int
	defaultTimeout time.Duration
	failFast       bool
	bus            *events.Bus

	queues    map[string]chan *task.Task
	wg        sync.WaitGroup
	durations sync.Map // Task ID -> time.Duration

	mu  sync.Mutex
	ran bool
}

// Option Executor创建选项
type Option func(*Executor)

// WithDefaultWorkers 设置未单独配置的Tag池的Worker数
func WithDefaultWorkers(workers int) Option {
	return func(e *Executor) {
		e.defaultWorkers = workers
	}
}

// WithWorkersPerTag 按Tag设置Worker数，未覆盖的Tag使用默认值
func WithWorkersPerTag(workers map[string]int) Option {
	return func(e *Executor) {
		for tag, count := range workers {
			e.tagWorkers[tag] = count
		}
	}
}

// WithTagWorkers 设置单个Tag的Worker数
func WithTagWorkers(tag string, workers int) Option {
	return func(e *Executor) {
		e.tagWorkers[tag] = workers
	}
}

// WithDefaultTaskTimeout 设置默认任务超时时间（0表示不限制）
// 作用于未单独指定超时的任务；任务自身的WithTimeout优先
func WithDefaultTaskTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.defaultTimeout = timeout
	}
}

// WithFailFast 首个任务失败后取消所有未开始的任务
// 默认策略是运行到底：失败只取消其传递闭包内的下游，独立分支继续执行
func WithFailFast() Option {
	return func(e *Executor) {
		e.failFast = true
	}
}

// WithBus 设置事件总线，执行器为每次状态转换发布通知事件
func WithBus(bus *events.Bus) Option {
	return func(e *Executor) {
		e.bus = bus
	}
}

// NewExecutor 创建执行器实例（对外导出）
func NewExecutor(sched *scheduler.Scheduler, opts ...Option) (*Executor, error) {
	if sched == nil {
		return nil, fmt.Errorf("调度器不能为空")
	}

	e := &Executor{
		scheduler:      sched,
		defaultWorkers: defaultTagWorkers,
		tagWorkers:     make(map[string]int),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.defaultWorkers <= 0 || e.defaultWorkers > maxTagWorkers {
		return nil, fmt.Errorf("默认Worker数必须在 1-%d 之间", maxTagWorkers)
	}
	for tag, count := range e.tagWorkers {
		if count <= 0 || count > maxTagWorkers {
			return nil, fmt.Errorf("Tag %s 的Worker数必须在 1-%d 之间", tag, maxTagWorkers)
		}
	}
	if e.defaultTimeout < 0 {
		return nil, fmt.Errorf("默认任务超时时间不能为负数")
	}

	return e, nil
}

// Run 运行执行器（对外导出）
// 为每个Tag创建Worker池，播种初始就绪任务，阻塞直到所有任务进入终态，
// 返回聚合结果。任何任务失败时返回非nil错误；运行到底策略下所有失败
// 都记录在Summary中。每个Executor实例仅支持运行一次
func (e *Executor) Run(ctx context.Context) (*Summary, error) {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		return nil, fmt.Errorf("执行器已运行过，每个实例仅支持运行一次")
	}
	e.ran = true
	e.mu.Unlock()

	startTime := time.Now()
	runID := uuid.NewString()
	graph := e.scheduler.Graph()

	log.Printf("🚀 [执行器启动] RunID=%s, 任务数=%d, Tag数=%d", runID, graph.Size(), len(e.scheduler.Tags()))
	e.publishRunEvent(events.EventRunStarted, runID)

	// 每个Tag一个队列和一个有界Worker池
	// 队列容量等于任务总数，协调循环的分发永不阻塞
	e.queues = make(map[string]chan *task.Task, len(e.scheduler.Tags()))
	for _, tag := range e.scheduler.Tags() {
		queue := make(chan *task.Task, graph.Size())
		e.queues[tag] = queue

		workers := e.tagWorkers[tag]
		if workers == 0 {
			workers = e.defaultWorkers
		}
		for i := 0; i < workers; i++ {
			e.wg.Add(1)
			go e.worker(tag, queue)
		}
	}

	dispatch := func(t *task.Task) {
		e.queues[t.Tag()] <- t
	}

	// 协调循环阻塞运行，返回时所有任务均已进入终态
	runErr := e.scheduler.Run(ctx, e.failFast, dispatch)

	// 关闭所有队列并等待Worker退出
	for _, queue := range e.queues {
		close(queue)
	}
	e.wg.Wait()

	summary := e.buildSummary(runID, startTime)
	e.publishRunEvent(events.EventRunFinished, runID)
	log.Printf("✅ [执行器结束] RunID=%s, 成功=%d, 失败=%d, 取消=%d, 耗时=%v",
		runID, summary.Succeeded, summary.Failed, summary.Cancelled, summary.Duration)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return summary, fmt.Errorf("运行被外部取消: %w", runErr)
		}
		return summary, runErr
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d 个任务执行失败", summary.Failed)
	}
	return summary, nil
}

// worker 单个Worker循环（内部方法）
// 从所属Tag的队列中取出就绪任务并执行；同一Tag同时运行的任务数
// 不会超过该Tag的Worker数
func (e *Executor) worker(tag string, queue <-chan *task.Task) {
	defer e.wg.Done()

	for t := range queue {
		// 入队后被取消的任务在此跳过，其Job函数不会执行
		if !t.BeginRun() {
			continue
		}

		startTime := time.Now()
		e.publishTaskEvent(events.EventTaskStarted, t, 0)

		result, err := e.invoke(t)
		duration := time.Since(startTime)
		e.durations.Store(t.ID(), duration)

		if err != nil {
			t.Fail(err)
			log.Printf("❌ [任务失败] TaskID=%s, Name=%s, Tag=%s, 耗时=%v, 错误=%v",
				t.ID(), t.Name(), tag, duration, err)
			e.publishTaskEvent(events.EventTaskFailed, t, duration)
		} else {
			t.Succeed(result)
			log.Printf("✅ [任务成功] TaskID=%s, Name=%s, Tag=%s, 耗时=%v",
				t.ID(), t.Name(), tag, duration)
			e.publishTaskEvent(events.EventTaskSucceeded, t, duration)
		}

		e.scheduler.Report(t)
	}
}

// invoke 调用任务的Job函数（内部方法）
// 超时控制基于独立context：外部取消不打断已运行的任务（见调度器策略），
// 超时到期返回TimeoutError，传播语义与普通失败一致
func (e *Executor) invoke(t *task.Task) (interface{}, error) {
	timeout := t.Timeout()
	if timeout == 0 {
		timeout = e.defaultTimeout
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result interface{}
		err    error
	}
	outcomeCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- outcome{nil, &task.ExecutionError{TaskID: t.ID(), Err: fmt.Errorf("任务发生panic: %v", r)}}
			}
		}()
		result, err := t.Invoke(ctx)
		if err != nil {
			outcomeCh <- outcome{nil, wrapExecutionError(t.ID(), timeout, err)}
			return
		}
		outcomeCh <- outcome{result, nil}
	}()

	select {
	case out := <-outcomeCh:
		return out.result, out.err
	case <-ctx.Done():
		return nil, &task.TimeoutError{TaskID: t.ID(), Timeout: timeout}
	}
}

// wrapExecutionError 统一包装Job函数返回的错误
// Job函数自己感知到超时（context到期）时同样记录为TimeoutError
func wrapExecutionError(taskID string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &task.TimeoutError{TaskID: taskID, Timeout: timeout}
	}
	var execErr *task.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &task.ExecutionError{TaskID: taskID, Err: err}
}

// buildSummary 从终态任务构建聚合结果（内部方法）
func (e *Executor) buildSummary(runID string, startTime time.Time) *Summary {
	summary := &Summary{
		RunID:     runID,
		Results:   make(map[string]*TaskResult),
		StartTime: startTime,
		Duration:  time.Since(startTime),
	}

	for id, t := range e.scheduler.Graph().Tasks() {
		result := &TaskResult{
			TaskID: id,
			Name:   t.Name(),
			Tag:    t.Tag(),
			Status: t.Status(),
			Result: t.Result(),
			Error:  t.FailureCause(),
		}
		if d, ok := e.durations.Load(id); ok {
			result.Duration = d.(time.Duration)
		}
		summary.Results[id] = result

		switch result.Status {
		case task.TaskStatusSucceeded:
			summary.Succeeded++
		case task.TaskStatusFailed:
			summary.Failed++
		case task.TaskStatusCancelled:
			summary.Cancelled++
		}
	}

	return summary
}

func (e *Executor) publishTaskEvent(eventType events.EventType, t *task.Task, duration time.Duration) {
	if e.bus == nil {
		return
	}
	event := events.NewTaskStatusEvent(eventType, t.ID(), t.Name(), t.Tag(), t.Status()).
		WithError(t.FailureCause()).
		WithDuration(duration)
	_ = e.bus.Publish(event)
}

func (e *Executor) publishRunEvent(eventType events.EventType, runID string) {
	if e.bus == nil {
		return
	}
	event := events.NewTaskStatusEvent(eventType, runID, "", "", "")
	_ = e.bus.Publish(event)
}
