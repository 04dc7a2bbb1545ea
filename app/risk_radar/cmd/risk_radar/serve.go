package main

import (
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/server"
	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/service"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/engine"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the screening HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			id, _ := os.Hostname()
			kl := log.With(log.NewStdLogger(os.Stdout),
				"ts", log.DefaultTimestamp,
				"caller", log.DefaultCaller,
				"service.id", id,
				"service.name", Name,
				"service.version", Version,
			)

			var (
				store   engine.ReportStore
				reports service.ReportReader
			)
			st, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				store, reports = st, st
			}

			m := metrics.New()
			eng, err := engine.NewFromConfig(ctx, cfg, store, m)
			if err != nil {
				return err
			}

			svc := service.NewScreeningService(eng, reports, kl)
			hs := server.NewHTTPServer(cfg.Server.HTTP, svc, m, kl)

			app := kratos.New(
				kratos.ID(id),
				kratos.Name(Name),
				kratos.Version(Version),
				kratos.Metadata(map[string]string{}),
				kratos.Logger(kl),
				kratos.Server(hs),
			)
			return app.Run()
		},
	}
}
