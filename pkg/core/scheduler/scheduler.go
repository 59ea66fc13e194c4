// Package scheduler 实现依赖图的调度协调器
// 协调器是除 RUNNING -> 终态 之外所有状态转换的唯一决策者：
// 维护每个任务的剩余依赖计数，处理完成/失败/取消事件，决定哪些任务就绪
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/djordjijeK/taskflow/pkg/core/dag"
	"github.com/djordjijeK/taskflow/pkg/core/events"
	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// DispatchFunc 就绪任务分发函数：将READY状态的任务投递到其Tag对应的Worker池
type DispatchFunc func(t *task.Task)

// Scheduler 调度协调器（对外导出）
// 所有调度状态（remaining计数、就绪判定、取消传播）仅由Run中的单个
// 协调循环goroutine修改，事件通过channel串行化，无需细粒度锁
type Scheduler struct {
	graph     *dag.Graph
	remaining map[string]int
	reportCh  chan *task.Task
	bus       *events.Bus

	mu  sync.Mutex
	ran bool
}

// Option Scheduler创建选项
type Option func(*Scheduler)

// WithBus 设置事件总线，每次状态转换发布一个通知事件
func WithBus(bus *events.Bus) Option {
	return func(s *Scheduler) {
		s.bus = bus
	}
}

// NewScheduler 创建调度器并立即校验依赖图（对外导出）
// 校验在任何任务执行前完成：引用缺失返回MissingDependencyError，
// 循环依赖返回CyclicDependencyError
func NewScheduler(tasks []*task.Task, opts ...Option) (*Scheduler, error) {
	graph, err := dag.Build(tasks)
	if err != nil {
		return nil, err
	}

	remaining := make(map[string]int, graph.Size())
	for id, t := range graph.Tasks() {
		remaining[id] = len(t.Dependencies())
	}

	s := &Scheduler{
		graph:     graph,
		remaining: remaining,
		reportCh:  make(chan *task.Task, graph.Size()),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Graph 获取校验完成的依赖图
func (s *Scheduler) Graph() *dag.Graph {
	return s.graph
}

// Tags 获取任务集合中出现的所有Tag
func (s *Scheduler) Tags() []string {
	return s.graph.Tags()
}

// Report Worker完成一个任务（SUCCEEDED或FAILED）后上报协调循环
func (s *Scheduler) Report(t *task.Task) {
	s.reportCh <- t
}

// Run 运行协调循环（对外导出，由executor调用）
// 播种初始就绪任务后持续处理上报事件，直到所有任务进入终态：
//   - 任务成功：原子递减每个下游任务的remaining计数，减到0则 PENDING -> READY 并分发
//   - 任务失败：递归取消其传递闭包内的所有未终态下游任务（首个取消者生效）
//   - failFast: 首个失败额外取消所有剩余未开始的任务
//   - ctx取消：取消所有未开始的任务；运行中的任务允许执行完成
//
// 每个Run实例只能调用一次
func (s *Scheduler) Run(ctx context.Context, failFast bool, dispatch DispatchFunc) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return fmt.Errorf("调度器已运行过，每个实例仅支持运行一次")
	}
	s.ran = true
	s.mu.Unlock()

	total := s.graph.Size()
	terminal := 0
	externallyCancelled := false

	// 播种初始就绪任务（remaining == 0）
	for id, count := range s.remaining {
		if count != 0 {
			continue
		}
		t, _ := s.graph.Task(id)
		if t.MarkReady() {
			s.publishReady(t)
			dispatch(t)
		}
	}

	done := ctx.Done()
	for terminal < total {
		select {
		case t := <-s.reportCh:
			terminal++
			switch t.Status() {
			case task.TaskStatusSucceeded:
				s.propagateSuccess(t, dispatch)
			case task.TaskStatusFailed:
				terminal += s.cancelDependents(t.ID(), t.FailureCause())
				if failFast && !externallyCancelled {
					terminal += s.cancelRemaining(t.FailureCause())
				}
			}

		case <-done:
			// 外部取消：未开始的任务全部取消，运行中的任务继续等待其上报
			terminal += s.cancelRemaining(ctx.Err())
			externallyCancelled = true
			done = nil
		}
	}

	if externallyCancelled {
		return ctx.Err()
	}
	return nil
}

// propagateSuccess 任务成功后的传播：递减下游remaining计数，就绪则分发
// remaining减到0当且仅当所有依赖都成功；PENDING -> READY 恰好发生一次
func (s *Scheduler) propagateSuccess(t *task.Task, dispatch DispatchFunc) {
	for _, depID := range s.graph.Dependents(t.ID()) {
		s.remaining[depID]--
		if s.remaining[depID] != 0 {
			continue
		}
		dep, _ := s.graph.Task(depID)
		if dep.MarkReady() {
			s.publishReady(dep)
			dispatch(dep)
		}
	}
}

// cancelDependents 失败传播：递归取消失败任务的所有未终态下游任务
// 幂等：已被其他失败祖先取消的任务不再重复取消（首个记录的原因生效），
// 其闭包在首次取消时已处理完毕，无需继续下探
// 返回被取消的任务数
func (s *Scheduler) cancelDependents(failedID string, cause error) int {
	count := 0
	var cancel func(id string)
	cancel = func(id string) {
		for _, depID := range s.graph.Dependents(id) {
			dep, _ := s.graph.Task(depID)
			if dep.Cancel(&task.CancelledError{TaskID: depID, Cause: cause}) {
				count++
				s.publishCancelled(dep)
				cancel(depID)
			}
		}
	}
	cancel(failedID)
	return count
}

// cancelRemaining 取消所有未开始的任务（PENDING/READY）
// 运行中的任务不被打断，允许执行完成并保留其终态
// 返回被取消的任务数
func (s *Scheduler) cancelRemaining(cause error) int {
	count := 0
	for id, t := range s.graph.Tasks() {
		if t.Cancel(&task.CancelledError{TaskID: id, Cause: cause}) {
			count++
			s.publishCancelled(t)
		}
	}
	return count
}

func (s *Scheduler) publishReady(t *task.Task) {
	if s.bus == nil {
		return
	}
	event := events.NewTaskStatusEvent(events.EventTaskReady, t.ID(), t.Name(), t.Tag(), t.Status())
	// 通知是尽力而为的，发布失败不影响调度
	_ = s.bus.Publish(event)
}

func (s *Scheduler) publishCancelled(t *task.Task) {
	if s.bus == nil {
		return
	}
	event := events.NewTaskStatusEvent(events.EventTaskCancelled, t.ID(), t.Name(), t.Tag(), t.Status()).
		WithError(t.FailureCause())
	_ = s.bus.Publish(event)
}
