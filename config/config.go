// Package config 提供引擎的 YAML 配置加载与默认值。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是推荐引擎的全部可调参数。
// 零值字段在 Load/Default 中回填默认值；训练超参的合法性由训练器把关
// （factors <= 0 在训练时报配置错误）。
type Config struct {
	// 训练
	Factors        int     `yaml:"factors"`         // 嵌入维度上限
	Epochs         int     `yaml:"epochs"`          // 固定训练轮数
	BatchSize      int     `yaml:"batch_size"`      // mini-batch 大小
	LearningRate   float64 `yaml:"learning_rate"`   // SGD 学习率
	Regularization float64 `yaml:"regularization"`  // L2 系数
	WindowDays     int     `yaml:"window_days"`     // 训练窗口（天）

	// 召回
	ContentWindowDays int `yaml:"content_window_days"` // 内容种子窗口（天）
	SeedLimit         int `yaml:"seed_limit"`          // 内容召回种子数
	TopK              int `yaml:"top_k"`               // 每路召回的候选上限

	// 混合
	CollabWeight  float64 `yaml:"collab_weight"`
	ContentWeight float64 `yaml:"content_weight"`
	ThinThreshold int     `yaml:"thin_threshold"`

	// 编排
	ComputeTimeoutMS    int `yaml:"compute_timeout_ms"`    // 主链路硬超时
	TrainTimeoutSeconds int `yaml:"train_timeout_seconds"` // 训练作业超时
	ResultTTLSeconds    int `yaml:"result_ttl_seconds"`    // 结果缓存 TTL
	ModelTTLSeconds     int `yaml:"model_ttl_seconds"`     // 模型工件 TTL
	IndexTTLSeconds     int `yaml:"index_ttl_seconds"`     // 索引工件 TTL

	// FilterRules 是 CEL 淘汰规则表达式列表
	FilterRules []string `yaml:"filter_rules"`
}

// Default 返回带全部默认值的配置。
func Default() Config {
	return Config{
		Factors:             16,
		Epochs:              20,
		BatchSize:           32,
		LearningRate:        0.01,
		Regularization:      0.02,
		WindowDays:          30,
		ContentWindowDays:   7,
		SeedLimit:           5,
		TopK:                50,
		CollabWeight:        0.7,
		ContentWeight:       0.3,
		ThinThreshold:       5,
		ComputeTimeoutMS:    800,
		TrainTimeoutSeconds: 120,
		ResultTTLSeconds:    60,
		ModelTTLSeconds:     24 * 3600,
		IndexTTLSeconds:     24 * 3600,
	}
}

// Load 读取 YAML 配置文件；缺失的字段保留默认值。
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults 回填被显式置零/置负的字段。
func (c Config) withDefaults() Config {
	d := Default()
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Regularization <= 0 {
		c.Regularization = d.Regularization
	}
	if c.WindowDays <= 0 {
		c.WindowDays = d.WindowDays
	}
	if c.ContentWindowDays <= 0 {
		c.ContentWindowDays = d.ContentWindowDays
	}
	if c.SeedLimit <= 0 {
		c.SeedLimit = d.SeedLimit
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.CollabWeight <= 0 && c.ContentWeight <= 0 {
		c.CollabWeight, c.ContentWeight = d.CollabWeight, d.ContentWeight
	}
	if c.ThinThreshold <= 0 {
		c.ThinThreshold = d.ThinThreshold
	}
	if c.ComputeTimeoutMS <= 0 {
		c.ComputeTimeoutMS = d.ComputeTimeoutMS
	}
	if c.TrainTimeoutSeconds <= 0 {
		c.TrainTimeoutSeconds = d.TrainTimeoutSeconds
	}
	if c.ResultTTLSeconds <= 0 {
		c.ResultTTLSeconds = d.ResultTTLSeconds
	}
	if c.ModelTTLSeconds <= 0 {
		c.ModelTTLSeconds = d.ModelTTLSeconds
	}
	if c.IndexTTLSeconds <= 0 {
		c.IndexTTLSeconds = d.IndexTTLSeconds
	}
	return c
}

// ComputeTimeout 返回主链路硬超时。
func (c Config) ComputeTimeout() time.Duration {
	return time.Duration(c.ComputeTimeoutMS) * time.Millisecond
}

// TrainTimeout 返回训练作业超时。
func (c Config) TrainTimeout() time.Duration {
	return time.Duration(c.TrainTimeoutSeconds) * time.Second
}

// TrainWindow 返回训练交互窗口。
func (c Config) TrainWindow() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// ContentWindow 返回内容召回的种子窗口。
func (c Config) ContentWindow() time.Duration {
	return time.Duration(c.ContentWindowDays) * 24 * time.Hour
}
