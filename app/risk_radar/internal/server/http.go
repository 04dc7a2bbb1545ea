package server

import (
	"context"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/service"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
)

// NewHTTPServer 创建筛查 HTTP 服务
func NewHTTPServer(c config.HTTPConfig, s *service.ScreeningService, m *metrics.Metrics, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(recovery.WithHandler(func(ctx context.Context, req, err any) error {
				log.NewHelper(logger).Errorf("panic recovered: %v", err)
				return recovery.ErrUnknownRequest
			})),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			log.NewHelper(logger).Warnf("忽略无效的 http timeout %q: %v", c.Timeout, err)
		} else {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	registerScreeningHTTPServer(srv, s)

	if m != nil {
		srv.Handle("/metrics", m.Handler())
	}
	srv.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return srv
}

func registerScreeningHTTPServer(srv *http.Server, s *service.ScreeningService) {
	r := srv.Route("/")
	r.POST("/v1/screenings", screenHandler(s))
	r.POST("/v1/screenings/articles", screenArticlesHandler(s))
	r.GET("/v1/screenings/{id}", getReportHandler(s))
	r.GET("/v1/screenings", listReportsHandler(s))
}

func screenHandler(s *service.ScreeningService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.ScreenRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, "/risk_radar.v1.Screening/Screen")
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return s.Screen(ctx, req.(*service.ScreenRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func screenArticlesHandler(s *service.ScreeningService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.ScreenArticlesRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, "/risk_radar.v1.Screening/ScreenArticles")
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return s.ScreenArticles(ctx, req.(*service.ScreenArticlesRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func getReportHandler(s *service.ScreeningService) http.HandlerFunc {
	return func(ctx http.Context) error {
		id := ctx.Vars().Get("id")
		http.SetOperation(ctx, "/risk_radar.v1.Screening/GetReport")
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return s.GetReport(ctx, req.(string))
		})
		out, err := h(ctx, id)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func listReportsHandler(s *service.ScreeningService) http.HandlerFunc {
	return func(ctx http.Context) error {
		q := ctx.Query()
		entity := q.Get("entity")
		limit, _ := strconv.Atoi(q.Get("limit"))
		http.SetOperation(ctx, "/risk_radar.v1.Screening/ListReports")
		h := ctx.Middleware(func(ctx context.Context, _ any) (any, error) {
			return s.ListReports(ctx, entity, limit)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
