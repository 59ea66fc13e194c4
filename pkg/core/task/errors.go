package task

import (
	"fmt"
	"time"
)

// ExecutionError Job函数执行失败错误（对外导出）
type ExecutionError struct {
	TaskID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("任务 %s 执行失败: %v", e.TaskID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CancelledError 任务取消错误（对外导出）
// Cause记录导致取消的源头错误（上游失败或外部取消），用于问题定位
type CancelledError struct {
	TaskID string
	Cause  error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("任务 %s 已取消: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("任务 %s 已取消", e.TaskID)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// TimeoutError 任务执行超时错误（对外导出）
// 传播语义与ExecutionError一致：下游依赖全部被取消
type TimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("任务 %s 执行超时（%v）", e.TaskID, e.Timeout)
}
