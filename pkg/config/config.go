package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 框架配置（对外导出）
type Config struct {
	TaskFlow struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
		} `yaml:"general"`
		Execution struct {
			DefaultWorkers            int            `yaml:"default_workers"`
			WorkersPerTag             map[string]int `yaml:"workers_per_tag"`
			DefaultTaskTimeoutSeconds int            `yaml:"default_task_timeout_seconds"`
			FailFast                  bool           `yaml:"fail_fast"`
		} `yaml:"execution"`
		Events struct {
			Enabled *bool `yaml:"enabled"` // 未配置时默认启用
			Debug   bool  `yaml:"debug"`
			Trace   bool  `yaml:"trace"`
		} `yaml:"events"`
	} `yaml:"taskflow"`
}

// LoadConfig 从YAML文件加载配置（对外导出）
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %s, Error=%w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %s, Error=%w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// DefaultConfig 创建带默认值的配置（对外导出）
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() {
	// General默认值
	if c.TaskFlow.General.InstanceName == "" {
		c.TaskFlow.General.InstanceName = "taskflow"
	}
	if c.TaskFlow.General.LogLevel == "" {
		c.TaskFlow.General.LogLevel = "info"
	}

	// Execution默认值
	if c.TaskFlow.Execution.DefaultWorkers <= 0 {
		c.TaskFlow.Execution.DefaultWorkers = 4
	}
	if c.TaskFlow.Execution.WorkersPerTag == nil {
		c.TaskFlow.Execution.WorkersPerTag = make(map[string]int)
	}
}

// GetDefaultWorkers 获取默认Worker数
func (c *Config) GetDefaultWorkers() int {
	workers := c.TaskFlow.Execution.DefaultWorkers
	if workers <= 0 {
		return 4 // 默认值
	}
	return workers
}

// GetWorkersPerTag 获取按Tag配置的Worker数
func (c *Config) GetWorkersPerTag() map[string]int {
	return c.TaskFlow.Execution.WorkersPerTag
}

// GetDefaultTaskTimeout 获取默认任务超时时间（0表示不限制）
func (c *Config) GetDefaultTaskTimeout() time.Duration {
	return time.Duration(c.TaskFlow.Execution.DefaultTaskTimeoutSeconds) * time.Second
}

// IsFailFast 是否在首个失败后取消剩余任务
func (c *Config) IsFailFast() bool {
	return c.TaskFlow.Execution.FailFast
}

// IsEventsEnabled 是否启用事件总线（未配置时默认启用）
func (c *Config) IsEventsEnabled() bool {
	if c.TaskFlow.Events.Enabled == nil {
		return true
	}
	return *c.TaskFlow.Events.Enabled
}
