package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/engine"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/export"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
)

func newScreenCmd() *cobra.Command {
	var (
		daysBack    int
		maxArticles int
		outDir      string
		format      string
	)
	cmd := &cobra.Command{
		Use:   "screen <entity name>",
		Short: "Fetch recent news for an entity, score it and export the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var store engine.ReportStore
			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				store = st
			}

			eng, err := engine.NewFromConfig(ctx, cfg, store, metrics.New())
			if err != nil {
				return err
			}

			res, err := eng.Run(ctx, engine.RunOptions{
				Entity:      args[0],
				DaysBack:    daysBack,
				MaxArticles: maxArticles,
				ProgressCallback: func(status string, progress int) {
					logger.Log.Infof("[%3d%%] %s", progress, status)
				},
			})
			if err != nil {
				return err
			}

			path, err := export.WriteFile(outDir, res.Report, f)
			if err != nil {
				return fmt.Errorf("导出报告失败: %w", err)
			}

			r := res.Report
			out := cmd.OutOrStdout()
			if r.NoData {
				fmt.Fprintf(out, "%s: no articles found\n", r.EntityName)
			} else {
				fmt.Fprintf(out, "%s: severity %d, primary risk %s, %d articles (%d high risk, %d fallback)\n",
					r.EntityName, r.OverallSeverity, r.PrimaryRisk, r.ArticlesAnalyzed, len(r.HighRiskArticles), r.FallbackCount())
			}
			if res.ID != "" {
				fmt.Fprintf(out, "report id: %s\n", res.ID)
			}
			fmt.Fprintf(out, "exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().IntVar(&daysBack, "days", 0, "days of news to search (default from config)")
	cmd.Flags().IntVar(&maxArticles, "max", 0, "maximum articles to analyse (default from config)")
	cmd.Flags().StringVar(&outDir, "out", ".", "export directory")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json or yaml")
	return cmd
}
