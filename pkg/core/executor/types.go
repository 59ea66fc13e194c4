package executor

import (
	"time"

	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// TaskResult 单个任务的执行结果（对外导出）
type TaskResult struct {
	TaskID   string
	Name     string
	Tag      string
	Status   string
	Result   interface{}
	Error    error
	Duration time.Duration
}

// Summary 一次运行的聚合结果（对外导出）
type Summary struct {
	RunID     string
	Results   map[string]*TaskResult // Task ID -> 结果
	Succeeded int
	Failed    int
	Cancelled int
	StartTime time.Time
	Duration  time.Duration
}

// Failures 收集所有失败任务的错误
func (s *Summary) Failures() []error {
	failures := make([]error, 0, s.Failed)
	for _, result := range s.Results {
		if result.Error != nil && result.Status == task.TaskStatusFailed {
			failures = append(failures, result.Error)
		}
	}
	return failures
}
