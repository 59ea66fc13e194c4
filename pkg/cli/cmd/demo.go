package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/djordjijeK/taskflow/pkg/cli/output"
	"github.com/djordjijeK/taskflow/pkg/config"
	"github.com/djordjijeK/taskflow/pkg/core/events"
	"github.com/djordjijeK/taskflow/pkg/core/executor"
	"github.com/djordjijeK/taskflow/pkg/core/scheduler"
	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// demoCmd demo命令：运行一条内置的演示Pipeline
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "运行内置的演示Pipeline（io/cpu双资源池的菱形依赖）",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	// 加载配置（未指定时使用默认值）
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctx := context.Background()

	// 事件总线：按配置启用，打印每次状态转换
	var bus *events.Bus
	if cfg.IsEventsEnabled() {
		busOpts := make([]events.BusOption, 0, 2)
		if cfg.TaskFlow.Events.Debug {
			busOpts = append(busOpts, events.WithDebugLogging())
		}
		if cfg.TaskFlow.Events.Trace {
			busOpts = append(busOpts, events.WithTraceLogging())
		}
		bus = events.NewBus(busOpts...)
		defer bus.Close()

		for _, eventType := range []events.EventType{
			events.EventTaskReady,
			events.EventTaskStarted,
			events.EventTaskSucceeded,
			events.EventTaskFailed,
			events.EventTaskCancelled,
		} {
			if err := bus.Subscribe(ctx, eventType, func(event *events.TaskStatusEvent) error {
				output.Info("事件: %s, Task=%s, Tag=%s", event.Type, event.TaskName, event.Tag)
				return nil
			}); err != nil {
				return err
			}
		}
	}

	tasks := demoPipeline()

	sched, err := scheduler.NewScheduler(tasks, scheduler.WithBus(bus))
	if err != nil {
		return fmt.Errorf("依赖图校验失败: %w", err)
	}

	execOpts := []executor.Option{
		executor.WithDefaultWorkers(cfg.GetDefaultWorkers()),
		executor.WithWorkersPerTag(cfg.GetWorkersPerTag()),
		executor.WithDefaultTaskTimeout(cfg.GetDefaultTaskTimeout()),
		executor.WithBus(bus),
	}
	if cfg.IsFailFast() {
		execOpts = append(execOpts, executor.WithFailFast())
	}

	exec, err := executor.NewExecutor(sched, execOpts...)
	if err != nil {
		return err
	}

	summary, runErr := exec.Run(ctx)

	if bus != nil {
		// 事件是异步投递的，留出一点时间让输出落盘
		time.Sleep(100 * time.Millisecond)
	}

	if outputJSON {
		return output.PrintJSON(summary)
	}

	output.RenderSummary(summary)
	if runErr != nil {
		output.Error("运行失败: %v", runErr)
		return runErr
	}
	output.Success("运行完成: RunID=%s, 耗时=%v", summary.RunID, summary.Duration)
	return nil
}

// demoPipeline 构建演示Pipeline：模拟"下载 -> 解析/统计 -> 汇总"的典型流程
func demoPipeline() []*task.Task {
	download := func(name string, d time.Duration) task.JobFunc {
		return func(ctx context.Context) (interface{}, error) {
			time.Sleep(d) // 模拟网络IO
			return fmt.Sprintf("%s 下载完成", name), nil
		}
	}
	compute := func(name string, d time.Duration) task.JobFunc {
		return func(ctx context.Context) (interface{}, error) {
			time.Sleep(d) // 模拟CPU密集计算
			return fmt.Sprintf("%s 计算完成", name), nil
		}
	}

	return []*task.Task{
		task.NewTask(download("页面A", 80*time.Millisecond),
			task.WithID("fetch-a"), task.WithName("下载页面A"), task.WithTag("io")),
		task.NewTask(download("页面B", 120*time.Millisecond),
			task.WithID("fetch-b"), task.WithName("下载页面B"), task.WithTag("io")),
		task.NewTask(compute("解析", 60*time.Millisecond),
			task.WithID("parse"), task.WithName("解析内容"), task.WithTag("cpu"),
			task.WithDependencies("fetch-a", "fetch-b")),
		task.NewTask(compute("词频统计", 60*time.Millisecond),
			task.WithID("stats"), task.WithName("词频统计"), task.WithTag("cpu"),
			task.WithDependencies("fetch-a", "fetch-b")),
		task.NewTask(compute("汇总", 30*time.Millisecond),
			task.WithID("report"), task.WithName("生成报告"), task.WithTag("cpu"),
			task.WithDependencies("parse", "stats")),
	}
}
