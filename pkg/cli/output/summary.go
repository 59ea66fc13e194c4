package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/djordjijeK/taskflow/pkg/core/executor"
	"github.com/djordjijeK/taskflow/pkg/core/task"
)

// 结果表格的列定义，statusColumn是着色列的下标
var summaryColumns = []string{"TASK ID", "NAME", "TAG", "STATUS", "DURATION", "ERROR"}

const statusColumn = 3

// SummaryTable 运行结果表格：每行对应一个任务的终态
type SummaryTable struct {
	rows [][]string
}

// NewSummaryTable 创建结果表格
func NewSummaryTable() *SummaryTable {
	return &SummaryTable{}
}

// AddResult 添加一个任务结果行
// 未执行过的任务（被取消）没有耗时，展示为"-"
func (st *SummaryTable) AddResult(result *executor.TaskResult) {
	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	st.rows = append(st.rows, []string{
		result.TaskID,
		result.Name,
		result.Tag,
		result.Status,
		formatDuration(result.Duration),
		errMsg,
	})
}

// Render 渲染表格
// 列宽按未着色文本计算，状态列在补齐后再着色，避免ANSI转义破坏对齐
func (st *SummaryTable) Render() {
	widths := make([]int, len(summaryColumns))
	for i, header := range summaryColumns {
		widths[i] = len(header)
	}
	for _, row := range st.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerColor := color.New(color.FgCyan, color.Bold)
	for i, header := range summaryColumns {
		headerColor.Printf("%-*s  ", widths[i], header)
	}
	fmt.Println()
	for i := range summaryColumns {
		fmt.Print(strings.Repeat("-", widths[i]), "  ")
	}
	fmt.Println()

	for _, row := range st.rows {
		for i, cell := range row {
			padded := fmt.Sprintf("%-*s", widths[i], cell)
			if i == statusColumn {
				padded = colorizeStatus(row[statusColumn], padded)
			}
			fmt.Print(padded, "  ")
		}
		fmt.Println()
	}
}

// RenderSummary 渲染一次运行的聚合结果：按Task ID排序的结果表格加统计行
func RenderSummary(summary *executor.Summary) {
	table := NewSummaryTable()

	ids := make([]string, 0, len(summary.Results))
	for id := range summary.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		table.AddResult(summary.Results[id])
	}
	table.Render()

	fmt.Printf("\n成功=%d, 失败=%d, 取消=%d, 耗时=%v\n",
		summary.Succeeded, summary.Failed, summary.Cancelled, summary.Duration.Round(time.Millisecond))
}

// colorizeStatus 按任务终态给补齐后的状态单元格着色
func colorizeStatus(status, text string) string {
	switch status {
	case task.TaskStatusSucceeded:
		return color.GreenString("%s", text)
	case task.TaskStatusFailed:
		return color.RedString("%s", text)
	case task.TaskStatusCancelled:
		return color.YellowString("%s", text)
	default:
		return text
	}
}

// formatDuration 终态耗时展示，毫秒精度
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
