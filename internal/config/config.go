package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PRStrategy はゲート通過後のPRの扱いを決めるポリシー
type PRStrategy string

const (
	// PRStrategyAuto はゲート通過後にPRを自動マージする
	PRStrategyAuto PRStrategy = "auto"
	// PRStrategyReview はゲート通過後にレビューラベルを付けて人間に委ねる
	PRStrategyReview PRStrategy = "review"
	// PRStrategyManual は何も行わない（意図的なno-op）
	PRStrategyManual PRStrategy = "manual"
)

const (
	// DefaultMaxConcurrentWorkers は同時に稼働できるワーカー数のデフォルト
	DefaultMaxConcurrentWorkers = 3
	// DefaultWorkerTimeout は外部ワーカーに引き渡すタイムアウトのデフォルト
	DefaultWorkerTimeout = 30 * time.Minute
)

// Config はアプリケーション全体の設定
type Config struct {
	GitHub    GitHubConfig    `mapstructure:"github"`
	Autopilot AutopilotConfig `mapstructure:"autopilot"`
	Features  FeaturesConfig  `mapstructure:"features"`
}

// GitHubConfig はGitHub関連の設定
type GitHubConfig struct {
	Token        string        `mapstructure:"token"`
	Owner        string        `mapstructure:"owner"`
	Repo         string        `mapstructure:"repo"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// AutopilotConfig はワーカー投入とマージゲートのポリシー設定
type AutopilotConfig struct {
	PRStrategy           PRStrategy `mapstructure:"pr_strategy"`
	MaxConcurrentWorkers int        `mapstructure:"max_concurrent_workers"`
	WorkerTimeout        string     `mapstructure:"worker_timeout"`
	RequiredChecks       []string   `mapstructure:"required_checks"`
	WorkerLabel          string     `mapstructure:"worker_label"`
	ReviewLabel          string     `mapstructure:"review_label"`
	BranchPattern        string     `mapstructure:"branch_pattern"`
}

// FeaturesConfig はフィーチャーリストの永続化設定
type FeaturesConfig struct {
	Path string `mapstructure:"path"`
}

// NewConfig はデフォルト値を持つ新しいConfigを作成する
func NewConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			PollInterval: 30 * time.Second,
		},
		Autopilot: AutopilotConfig{
			PRStrategy:           PRStrategyReview,
			MaxConcurrentWorkers: DefaultMaxConcurrentWorkers,
			WorkerTimeout:        "30m",
			RequiredChecks:       []string{"test", "build"},
			WorkerLabel:          "omakase:worker",
			ReviewLabel:          "omakase:review",
			BranchPattern:        "feature/{feature-id}",
		},
		Features: FeaturesConfig{
			Path: "features.json",
		},
	}
}

// Load は設定ファイルから設定を読み込む
func (c *Config) Load(configPath string) error {
	v := viper.New()
	v.SetConfigFile(configPath)

	v.SetEnvPrefix("OMAKASE")
	v.AutomaticEnv()

	// GITHUB_TOKENもサポート
	v.BindEnv("github.token", "GITHUB_TOKEN", "OMAKASE_GITHUB_TOKEN")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	if err := v.Unmarshal(c); err != nil {
		return err
	}

	return nil
}

// LoadOrDefault は設定ファイルを読み込み、失敗した場合はデフォルト値を使用する
func (c *Config) LoadOrDefault(configPath string) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return
	}
	_ = c.Load(configPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.poll_interval", 30*time.Second)
	v.SetDefault("autopilot.pr_strategy", string(PRStrategyReview))
	v.SetDefault("autopilot.max_concurrent_workers", DefaultMaxConcurrentWorkers)
	v.SetDefault("autopilot.worker_timeout", "30m")
	v.SetDefault("autopilot.required_checks", []string{"test", "build"})
	v.SetDefault("autopilot.worker_label", "omakase:worker")
	v.SetDefault("autopilot.review_label", "omakase:review")
	v.SetDefault("autopilot.branch_pattern", "feature/{feature-id}")
	v.SetDefault("features.path", "features.json")
}

// Validate は設定の妥当性を検証する
// 不正な設定はディスパッチやゲート処理が始まる前にフィールド名付きで拒否する
func (c *Config) Validate() error {
	switch c.Autopilot.PRStrategy {
	case PRStrategyAuto, PRStrategyReview, PRStrategyManual:
	default:
		return fmt.Errorf("autopilot.pr_strategy must be one of auto, review, manual (got %q)", c.Autopilot.PRStrategy)
	}

	if c.Autopilot.MaxConcurrentWorkers < 1 || c.Autopilot.MaxConcurrentWorkers > 10 {
		return fmt.Errorf("autopilot.max_concurrent_workers must be between 1 and 10 (got %d)", c.Autopilot.MaxConcurrentWorkers)
	}

	if !strings.Contains(c.Autopilot.BranchPattern, "{feature-id}") {
		return fmt.Errorf("autopilot.branch_pattern must contain the {feature-id} placeholder (got %q)", c.Autopilot.BranchPattern)
	}

	if c.Autopilot.WorkerLabel == "" {
		return fmt.Errorf("autopilot.worker_label must not be empty")
	}
	if c.Autopilot.ReviewLabel == "" {
		return fmt.Errorf("autopilot.review_label must not be empty")
	}

	if c.GitHub.PollInterval < time.Second {
		return fmt.Errorf("github.poll_interval must be at least 1 second (got %v)", c.GitHub.PollInterval)
	}

	return nil
}

// WorkerTimeoutDuration はworker_timeoutをパースして返す
func (c *Config) WorkerTimeoutDuration() time.Duration {
	return ParseWorkerTimeout(c.Autopilot.WorkerTimeout)
}
