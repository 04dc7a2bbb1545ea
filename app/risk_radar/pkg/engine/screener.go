package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/aggregator"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/corrector"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// ErrEmptyEntity 实体名为空
var ErrEmptyEntity = errors.New("entity name is empty")

const (
	defaultWorkers     = 4
	defaultCallTimeout = 90 * time.Second
)

// Classifier 单篇文章风险分类，失败时自行回退，不返回错误
type Classifier interface {
	Classify(ctx context.Context, articleText, entityName string) model.ArticleAssessment
}

// Screener 对一组文章执行 分类 → 修正 → 聚合
type Screener struct {
	classifier  Classifier
	corrector   *corrector.Corrector
	aggregator  *aggregator.Aggregator
	workers     int
	callTimeout time.Duration
	metrics     *metrics.Metrics
}

// ScreenerOption 筛查器可选项
type ScreenerOption func(*Screener)

// WithWorkers 并发分类的上限
func WithWorkers(n int) ScreenerOption {
	return func(s *Screener) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCallTimeout 单次分类调用的超时
func WithCallTimeout(d time.Duration) ScreenerOption {
	return func(s *Screener) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithMetrics 记录 Prometheus 指标
func WithMetrics(m *metrics.Metrics) ScreenerOption {
	return func(s *Screener) { s.metrics = m }
}

// NewScreener 创建筛查器
func NewScreener(cls Classifier, cor *corrector.Corrector, agg *aggregator.Aggregator, opts ...ScreenerOption) *Screener {
	s := &Screener{
		classifier:  cls,
		corrector:   cor,
		aggregator:  agg,
		workers:     defaultWorkers,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScreenEntity 并发分类全部文章，全部完成后再聚合。
// 仅在实体名为空或 ctx 被取消时返回错误，取消时已完成的部分结果被丢弃。
func (s *Screener) ScreenEntity(ctx context.Context, articles []model.Article, entityName string) (*model.EntityReport, error) {
	return s.screen(ctx, articles, entityName, nil)
}

func (s *Screener) screen(ctx context.Context, articles []model.Article, entityName string, onDone func(done, total int)) (*model.EntityReport, error) {
	entityName = strings.TrimSpace(entityName)
	if entityName == "" {
		return nil, ErrEmptyEntity
	}
	start := time.Now()

	assessments := make([]model.ArticleAssessment, len(articles))
	var done atomic.Int32

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, art := range articles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			assessments[i] = s.assess(ctx, art, entityName)
			if onDone != nil {
				onDone(int(done.Add(1)), len(articles))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		logger.L().Warnf("实体 [%s] 筛查被取消，丢弃 %d 篇已完成的评估: %v", entityName, done.Load(), err)
		s.metrics.ObserveScreening(nil, time.Since(start))
		return nil, err
	}

	report := s.aggregator.Aggregate(assessments, entityName)
	s.metrics.ObserveScreening(report, time.Since(start))
	logger.L().Infof("实体 [%s] 筛查完成: %d 篇文章, 总体严重度 %d, 主要风险 %q, 回退 %d 篇",
		entityName, report.ArticlesAnalyzed, report.OverallSeverity, report.PrimaryRisk, report.FallbackCount())
	return report, nil
}

func (s *Screener) assess(ctx context.Context, art model.Article, entityName string) model.ArticleAssessment {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	raw := s.classifier.Classify(callCtx, art.Text(), entityName)
	s.metrics.ObserveClassification(raw, time.Since(start))

	// 先写入文章元数据，退化修复按文章 URL 轮转
	raw.AttachArticle(art)
	return s.corrector.Correct(raw, entityName)
}
