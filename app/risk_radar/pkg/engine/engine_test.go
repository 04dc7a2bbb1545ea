package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/aggregator"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/classifier"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/corrector"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// severityClassifier 从文章标题读取 fraud 分数，标题为 "fail" 时模拟回退
type severityClassifier struct {
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (c *severityClassifier) Classify(ctx context.Context, text, _ string) model.ArticleAssessment {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return classifier.Fallback(classifier.FailClosed, ctx.Err())
		case <-time.After(c.delay):
		}
	}

	title, _, _ := strings.Cut(text, "\n\n")
	if title == "fail" {
		return classifier.Fallback(classifier.FailClosed, errors.New("boom"))
	}
	sev, _ := strconv.Atoi(title)
	a := model.ArticleAssessment{Confidence: 70}
	a.SetValues([model.NumCategories]int{sev, 1, 2, 3, 4, 5, 6})
	return a
}

func articles(titles ...string) []model.Article {
	out := make([]model.Article, len(titles))
	for i, title := range titles {
		out[i] = model.Article{Title: title, Content: "body", URL: fmt.Sprintf("https://example.com/%d", i), Source: "Wire"}
	}
	return out
}

func newScreener(cls Classifier, opts ...ScreenerOption) *Screener {
	return NewScreener(cls, corrector.New(corrector.Config{}), aggregator.New(aggregator.Blended), opts...)
}

func TestScreenEntity_EndToEnd(t *testing.T) {
	cls := &severityClassifier{}
	s := newScreener(cls, WithWorkers(2), WithMetrics(metrics.New()))

	r, err := s.ScreenEntity(context.Background(), articles("10", "55", "80", "40", "51"), "Acme")
	require.NoError(t, err)

	assert.Equal(t, 5, r.ArticlesAnalyzed)
	require.Len(t, r.AllAssessments, 5)
	for i, a := range r.AllAssessments {
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), a.ArticleURL)
		assert.Equal(t, "Wire", a.Source)
		assert.Equal(t, "fraud", a.PrimaryRisk)
	}
	var high []int
	for _, a := range r.HighRiskArticles {
		high = append(high, a.OverallSeverity)
	}
	assert.Equal(t, []int{80, 55, 51}, high)
	assert.Equal(t, "fraud", r.PrimaryRisk)
}

func TestScreenEntity_BoundedConcurrency(t *testing.T) {
	cls := &severityClassifier{delay: 20 * time.Millisecond}
	s := newScreener(cls, WithWorkers(3))

	_, err := s.ScreenEntity(context.Background(), articles("1", "2", "3", "4", "5", "6", "7", "8", "9"), "Acme")
	require.NoError(t, err)
	assert.LessOrEqual(t, cls.peak.Load(), int32(3))
	assert.GreaterOrEqual(t, cls.peak.Load(), int32(2))
}

func TestScreenEntity_FallbackDoesNotAbortBatch(t *testing.T) {
	s := newScreener(&severityClassifier{})
	r, err := s.ScreenEntity(context.Background(), articles("70", "fail", "30"), "Acme")
	require.NoError(t, err)

	require.Len(t, r.AllAssessments, 3)
	fb := r.AllAssessments[1]
	assert.True(t, fb.Fallback)
	assert.Equal(t, model.PrimaryRiskError, fb.PrimaryRisk)
	assert.Equal(t, "https://example.com/1", fb.ArticleURL)
	assert.Equal(t, 1, r.FallbackCount())
}

func TestScreenEntity_CallTimeoutDegradesToFallback(t *testing.T) {
	s := newScreener(&severityClassifier{delay: time.Second}, WithCallTimeout(10*time.Millisecond))
	r, err := s.ScreenEntity(context.Background(), articles("90", "90"), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, r.FallbackCount())
	assert.Contains(t, r.AllAssessments[0].Explanation, "deadline exceeded")
}

func TestScreenEntity_CancelledDiscardsPartialResults(t *testing.T) {
	s := newScreener(&severityClassifier{delay: time.Second}, WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	r, err := s.ScreenEntity(ctx, articles("1", "2", "3"), "Acme")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
}

// flatClassifier 每篇文章都返回相同的常规分数
type flatClassifier struct{}

func (flatClassifier) Classify(context.Context, string, string) model.ArticleAssessment {
	a := model.ArticleAssessment{Confidence: 40}
	a.SetValues([model.NumCategories]int{20, 20, 20, 20, 20, 20, 20})
	return a
}

func TestScreenEntity_RepairVariesPerArticle(t *testing.T) {
	s := newScreener(flatClassifier{})
	r, err := s.ScreenEntity(context.Background(), articles("a", "b", "c"), "Acme")
	require.NoError(t, err)
	require.Len(t, r.AllAssessments, 3)

	vectors := map[[model.NumCategories]int]struct{}{}
	risks := map[string]struct{}{}
	for _, a := range r.AllAssessments {
		vectors[a.Values()] = struct{}{}
		risks[a.PrimaryRisk] = struct{}{}
	}
	assert.Len(t, vectors, 3)
	assert.Len(t, risks, 3)
}

func TestScreenEntity_EmptyCorpus(t *testing.T) {
	s := newScreener(&severityClassifier{})
	r, err := s.ScreenEntity(context.Background(), nil, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 0, r.ArticlesAnalyzed)
	assert.Equal(t, 0, r.OverallSeverity)
	assert.True(t, r.NoData)
	assert.Empty(t, r.PrimaryRisk)
}

func TestScreenEntity_EmptyEntity(t *testing.T) {
	s := newScreener(&severityClassifier{})
	_, err := s.ScreenEntity(context.Background(), articles("10"), "  ")
	assert.ErrorIs(t, err, ErrEmptyEntity)
}

type fakeCorpus struct {
	articles []model.Article
	err      error
	gotDays  int
	gotMax   int
}

func (f *fakeCorpus) Fetch(_ context.Context, _ string, daysBack, maxArticles int) ([]model.Article, error) {
	f.gotDays, f.gotMax = daysBack, maxArticles
	return f.articles, f.err
}

type memStore struct {
	mu      sync.Mutex
	reports []*model.EntityReport
	err     error
}

func (m *memStore) SaveReport(_ context.Context, r *model.EntityReport) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.reports = append(m.reports, r)
	return fmt.Sprintf("id-%d", len(m.reports)), nil
}

func TestEngine_Run(t *testing.T) {
	fc := &fakeCorpus{articles: articles("65", "20")}
	store := &memStore{}
	e := NewEngine(fc, newScreener(&severityClassifier{}), store, config.ScreeningConfig{DaysBack: 30, MaxArticles: 50})

	var mu sync.Mutex
	var steps []int
	res, err := e.Run(context.Background(), RunOptions{
		Entity:   " Acme ",
		DaysBack: 7,
		ProgressCallback: func(_ string, p int) {
			mu.Lock()
			steps = append(steps, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", res.ID)
	assert.Equal(t, "Acme", res.Report.EntityName)
	assert.Equal(t, 7, fc.gotDays)
	assert.Equal(t, 50, fc.gotMax)
	require.Len(t, store.reports, 1)

	require.NotEmpty(t, steps)
	assert.Equal(t, 0, steps[0])
	assert.Equal(t, 100, steps[len(steps)-1])
	assert.Contains(t, steps, 90)
}

func TestEngine_RunFetchError(t *testing.T) {
	e := NewEngine(&fakeCorpus{err: errors.New("rss down")}, newScreener(&severityClassifier{}), nil, config.ScreeningConfig{})
	_, err := e.Run(context.Background(), RunOptions{Entity: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rss down")
}

func TestEngine_SaveFailureIsNotFatal(t *testing.T) {
	e := NewEngine(&fakeCorpus{articles: articles("65")}, newScreener(&severityClassifier{}),
		&memStore{err: errors.New("db down")}, config.ScreeningConfig{})
	res, err := e.Run(context.Background(), RunOptions{Entity: "Acme"})
	require.NoError(t, err)
	assert.Empty(t, res.ID)
	assert.Equal(t, 65, res.Report.OverallSeverity)
}

func TestEngine_ScreenArticlesNoData(t *testing.T) {
	store := &memStore{}
	e := NewEngine(&fakeCorpus{}, newScreener(&severityClassifier{}), store, config.ScreeningConfig{})
	res, err := e.ScreenArticles(context.Background(), "Acme", nil)
	require.NoError(t, err)
	assert.True(t, res.Report.NoData)
	assert.Equal(t, "id-1", res.ID)
}

func TestNewFromConfig_RequiresCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	_, err := NewFromConfig(context.Background(), cfg, nil, nil)
	assert.ErrorIs(t, err, classifier.ErrMissingAPIKey)
}
