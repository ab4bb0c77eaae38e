package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/douhashi/omakase/internal/config"
	"github.com/douhashi/omakase/internal/logger"
	"github.com/douhashi/omakase/internal/version"
)

var (
	cfgFile   string
	verbose   bool
	rootCmd   *cobra.Command
	appLog    logger.Logger
	appConfig *config.Config
)

func init() {
	rootCmd = newRootCmd()
	addCommands(rootCmd)
}

func addCommands(cmd *cobra.Command) {
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDispatchCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newPhaseCmd())
}

// NewRootCmd creates a new root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	addCommands(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "omakase",
		Short: "フィーチャーバックログの自律オーケストレーションツール",
		Long: `omakaseは、フィーチャーバックログをGitHubリポジトリに対して
自律的にオーケストレーションするCLIツールです。

依存関係を解決して投入可能なフィーチャーを外部ワーカーに割り当て、
ワーカーが作成したPRをCIチェックとレビュー判定でゲートして昇格させます。`,
		Version: version.Get().Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 設定ファイルを先に読み込む
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			// ロガーの初期化
			if verbose {
				os.Setenv("DEBUG", "true")
			}
			var err error
			appLog, err = logger.NewFromEnv()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "設定ファイルのパス")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "詳細出力")

	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	return cmd
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	appConfig = config.NewConfig()

	if cfgFile != "" {
		if err := appConfig.Load(cfgFile); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", cfgFile, err)
		}
	} else {
		// デフォルトの探索パス
		for _, candidate := range []string{"omakase.yml", "omakase.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				appConfig.LoadOrDefault(candidate)
				break
			}
		}
	}

	// 環境変数からのトークン上書き（設定ファイルなしでも動くように）
	if appConfig.GitHub.Token == "" {
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			appConfig.GitHub.Token = token
		}
	}

	return appConfig.Validate()
}
