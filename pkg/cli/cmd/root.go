package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	configPath string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow CLI - 依赖图任务调度工具",
	Long: `TaskFlow CLI 是一个依赖图任务调度工具。

核心能力：
  - 依赖图校验（引用完整性、循环检测）
  - 按依赖顺序并发执行，无依赖关系的任务并行运行
  - 按Tag划分资源池，每个Tag独立限制并发数
  - 失败沿依赖闭包传播取消，独立分支不受影响

使用示例：
  # 运行演示Pipeline
  taskflow demo

  # 指定配置文件运行
  taskflow demo --config ./taskflow.yaml

  # 查看版本信息
  taskflow version`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（可选）")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}
