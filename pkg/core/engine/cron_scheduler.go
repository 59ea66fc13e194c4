// Package engine 提供周期性运行Pipeline的定时调度能力
// 调度器和执行器均为一次性实例，定时运行通过Pipeline工厂在每次触发时
// 重新构建任务集合来实现
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/djordjijeK/taskflow/pkg/core/executor"
	"github.com/djordjijeK/taskflow/pkg/core/scheduler"
	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// PipelineFactory Pipeline工厂函数：每次触发时构建一组全新的Task实例
// Task实例不可重用（仅支持执行一次），工厂必须每次返回新实例
type PipelineFactory func() ([]*task.Task, error)

// CronScheduler 定时调度器（对外导出）
type CronScheduler struct {
	cron      *cron.Cron
	factories map[string]PipelineFactory
	entries   map[string]cron.EntryID
	execOpts  map[string][]executor.Option
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewCronScheduler 创建定时调度器（对外导出）
func NewCronScheduler() *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron:      cron.New(cron.WithSeconds()), // 支持秒级精度
		factories: make(map[string]PipelineFactory),
		entries:   make(map[string]cron.EntryID),
		execOpts:  make(map[string][]executor.Option),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RegisterPipeline 注册Pipeline到定时调度器（对外导出）
// name: Pipeline名称（唯一）
// cronExpr: Cron表达式（支持秒级精度）
// factory: 每次触发时构建任务集合的工厂
// opts: 传递给每次运行的Executor选项
func (cs *CronScheduler) RegisterPipeline(name, cronExpr string, factory PipelineFactory, opts ...executor.Option) error {
	if factory == nil {
		return fmt.Errorf("Pipeline工厂不能为空")
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	// 检查是否已注册
	if _, exists := cs.entries[name]; exists {
		return fmt.Errorf("Pipeline %s 已注册到定时调度器", name)
	}

	// 验证Cron表达式（使用Parser支持秒级精度）
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("Pipeline %s 的Cron表达式无效: %w", name, err)
	}

	// 添加Cron任务
	entryID, err := cs.cron.AddFunc(cronExpr, func() {
		cs.triggerPipeline(name)
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	cs.factories[name] = factory
	cs.entries[name] = entryID
	cs.execOpts[name] = opts

	log.Printf("✅ [Cron调度器] 已注册Pipeline: Name=%s, CronExpr=%s", name, cronExpr)
	return nil
}

// UnregisterPipeline 取消注册Pipeline（对外导出）
func (cs *CronScheduler) UnregisterPipeline(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entryID, exists := cs.entries[name]
	if !exists {
		return fmt.Errorf("Pipeline %s 未注册到定时调度器", name)
	}

	cs.cron.Remove(entryID)
	delete(cs.entries, name)
	delete(cs.factories, name)
	delete(cs.execOpts, name)

	log.Printf("✅ [Cron调度器] 已取消注册Pipeline: Name=%s", name)
	return nil
}

// Start 启动定时调度器（对外导出）
func (cs *CronScheduler) Start() {
	cs.cron.Start()
	log.Printf("✅ [Cron调度器] 已启动")
}

// Stop 停止定时调度器（对外导出）
// 等待正在执行的触发回调完成
func (cs *CronScheduler) Stop() {
	cs.cancel()
	stopCtx := cs.cron.Stop()
	<-stopCtx.Done()
	log.Printf("✅ [Cron调度器] 已停止")
}

// RegisteredPipelines 获取已注册的Pipeline名称列表（对外导出）
func (cs *CronScheduler) RegisteredPipelines() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.entries))
	for name := range cs.entries {
		names = append(names, name)
	}
	return names
}

// triggerPipeline 触发一次Pipeline运行（内部方法）
// 每次触发构建全新的Scheduler和Executor，保持运行之间完全隔离
func (cs *CronScheduler) triggerPipeline(name string) {
	cs.mu.RLock()
	factory, exists := cs.factories[name]
	opts := cs.execOpts[name]
	cs.mu.RUnlock()

	if !exists {
		return
	}

	log.Printf("⏰ [Cron调度器] 触发Pipeline: Name=%s", name)

	tasks, err := factory()
	if err != nil {
		log.Printf("❌ [Cron调度器] 构建Pipeline失败: Name=%s, Error=%v", name, err)
		return
	}

	sched, err := scheduler.NewScheduler(tasks)
	if err != nil {
		log.Printf("❌ [Cron调度器] 依赖图校验失败: Name=%s, Error=%v", name, err)
		return
	}

	exec, err := executor.NewExecutor(sched, opts...)
	if err != nil {
		log.Printf("❌ [Cron调度器] 创建执行器失败: Name=%s, Error=%v", name, err)
		return
	}

	summary, err := exec.Run(cs.ctx)
	if err != nil {
		log.Printf("❌ [Cron调度器] Pipeline运行失败: Name=%s, Error=%v", name, err)
		return
	}

	log.Printf("✅ [Cron调度器] Pipeline运行完成: Name=%s, 成功=%d, 耗时=%v", name, summary.Succeeded, summary.Duration)
}
