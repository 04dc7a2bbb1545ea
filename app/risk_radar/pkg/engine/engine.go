package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/aggregator"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/classifier"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/corpus"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/corrector"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/factory"
)

// Corpus 新闻语料提供方
type Corpus interface {
	Fetch(ctx context.Context, entityName string, daysBack, maxArticles int) ([]model.Article, error)
}

// ReportStore 报告持久化
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.EntityReport) (string, error)
}

// Engine 核心处理引擎：检索语料、筛查、持久化
type Engine struct {
	corpus   Corpus
	screener *Screener
	store    ReportStore
	defaults config.ScreeningConfig
}

// NewEngine 组装引擎，store 可为 nil
func NewEngine(c Corpus, screener *Screener, store ReportStore, defaults config.ScreeningConfig) *Engine {
	return &Engine{corpus: c, screener: screener, store: store, defaults: defaults}
}

// NewFromConfig 根据配置创建 LLM 分类器、搜索客户端和语料提供方
func NewFromConfig(ctx context.Context, cfg *config.Config, store ReportStore, m *metrics.Metrics) (*Engine, error) {
	cls, err := classifier.New(ctx, classifier.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.GetTemperature(),
		MaxTokens:     cfg.LLM.MaxTokens,
		Timeout:       time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:    cfg.LLM.GetMaxRetries(),
		AppURL:        cfg.LLM.AppURL,
		AppName:       cfg.LLM.AppName,
		FailurePolicy: classifier.FailurePolicy(cfg.Failure.Policy),
		QPS:           cfg.Concurrency.QPS,
		RPM:           cfg.Concurrency.RPM,
	})
	if err != nil {
		return nil, err
	}

	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}
	provider := corpus.NewProvider(searcher, corpus.Options{
		MinContentLength: cfg.Screening.MinContentLength,
		FetchFullText:    cfg.Screening.FetchFullText,
		CacheTTL:         time.Duration(cfg.Screening.CacheTTLMinutes) * time.Minute,
	})

	policy, err := aggregator.ParsePolicy(cfg.Aggregation.Policy)
	if err != nil {
		return nil, err
	}
	d := cfg.Corrector.Dampening
	screener := NewScreener(cls,
		corrector.New(corrector.Config{Dampening: corrector.DampeningConfig{
			Enabled: d.Enabled,
			Factor:  d.Factor,
			Ceiling: d.Ceiling,
			Roster:  d.Roster,
		}}),
		aggregator.New(policy),
		WithWorkers(cfg.Screening.Workers),
		WithCallTimeout(time.Duration(cfg.Screening.CallTimeoutSeconds)*time.Second),
		WithMetrics(m),
	)
	return NewEngine(provider, screener, store, cfg.Screening), nil
}

// RunOptions 运行选项
type RunOptions struct {
	Entity           string
	DaysBack         int
	MaxArticles      int
	ProgressCallback func(status string, progress int)
}

// Result 一次筛查的结果，未配置存储或保存失败时 ID 为空
type Result struct {
	ID     string
	Report *model.EntityReport
}

// Run 检索实体新闻并筛查
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	entity := strings.TrimSpace(opts.Entity)
	if entity == "" {
		return nil, ErrEmptyEntity
	}
	progress := opts.ProgressCallback
	if progress == nil {
		progress = func(string, int) {}
	}
	daysBack := firstPositive(opts.DaysBack, e.defaults.DaysBack)
	maxArticles := firstPositive(opts.MaxArticles, e.defaults.MaxArticles)

	logger.L().Infof("开始筛查实体 [%s]，回溯 %d 天，最多 %d 篇", entity, daysBack, maxArticles)
	progress("fetching articles", 0)

	articles, err := e.corpus.Fetch(ctx, entity, daysBack, maxArticles)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	progress(fmt.Sprintf("fetched %d articles", len(articles)), 10)

	return e.screenAndSave(ctx, entity, articles, progress)
}

// ScreenArticles 筛查调用方提供的文章
func (e *Engine) ScreenArticles(ctx context.Context, entity string, articles []model.Article) (*Result, error) {
	return e.screenAndSave(ctx, entity, articles, func(string, int) {})
}

func (e *Engine) screenAndSave(ctx context.Context, entity string, articles []model.Article, progress func(string, int)) (*Result, error) {
	report, err := e.screener.screen(ctx, articles, entity, func(done, total int) {
		progress(fmt.Sprintf("classified %d/%d articles", done, total), 10+done*80/total)
	})
	if err != nil {
		return nil, err
	}
	progress("saving report", 95)

	res := &Result{Report: report}
	if e.store != nil {
		id, err := e.store.SaveReport(ctx, report)
		if err != nil {
			logger.L().Errorf("保存筛查报告失败 [%s]: %v", entity, err)
		} else {
			res.ID = id
		}
	}

	progress("completed", 100)
	return res, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
