package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/storage"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名称
	Name = "risk_radar"
	// Version 服务版本号
	Version string

	flagconf string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "risk_radar",
		Short:        "Adverse media screening for companies and individuals",
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagconf, "conf", "app/risk_radar/configs/config.yaml", "config path, eg: --conf config.yaml")

	root.AddCommand(newScreenCmd(), newServeCmd(), newExportCmd())
	return root
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}

// openStorage 未配置数据库时返回 nil
func openStorage(ctx context.Context, cfg *config.Config) (*storage.Storage, error) {
	if !cfg.DB.Enabled() {
		logger.Log.Info("未配置数据库，筛查结果不会持久化")
		return nil, nil
	}
	store, err := storage.NewStorage(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	return store, nil
}
