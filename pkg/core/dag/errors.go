package dag

import (
	"fmt"
	"strings"
)

// MissingDependencyError 依赖缺失错误（对外导出）
// 某个Task声明的依赖ID在给定任务集合中不存在
type MissingDependencyError struct {
	TaskID       string
	DependencyID string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("任务 %s 引用了不存在的依赖: %s", e.TaskID, e.DependencyID)
}

// CyclicDependencyError 循环依赖错误（对外导出）
// Cycle记录一条代表性的循环路径
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("检测到循环依赖: %s", strings.Join(e.Cycle, " -> "))
}
