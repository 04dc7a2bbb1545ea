package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveClassification(model.ArticleAssessment{}, time.Second)
	m.ObserveClassification(model.ArticleAssessment{Fallback: true}, time.Second)
	m.ObserveClassification(model.ArticleAssessment{Fallback: true}, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.classifications.WithLabelValues("fallback")))

	m.ObserveScreening(&model.EntityReport{OverallSeverity: 74}, time.Second)
	m.ObserveScreening(&model.EntityReport{NoData: true}, time.Second)
	m.ObserveScreening(nil, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenings.WithLabelValues("report")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenings.WithLabelValues("no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenings.WithLabelValues("cancelled")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveClassification(model.ArticleAssessment{}, time.Second)
	m.ObserveScreening(nil, time.Second)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveClassification(model.ArticleAssessment{}, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `risk_radar_classifier_articles_total{outcome="ok"} 1`)
}
