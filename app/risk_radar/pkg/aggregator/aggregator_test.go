package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

func withSeverity(sev int, url string) model.ArticleAssessment {
	a := model.ArticleAssessment{ArticleURL: url, OverallSeverity: sev, PrimaryRisk: "fraud"}
	a.Fraud = sev
	return a
}

func fixedClock(a *Aggregator) *Aggregator {
	a.now = func() time.Time { return time.Date(2025, 6, 3, 8, 30, 0, 0, time.UTC) }
	return a
}

func TestBlended(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   int
	}{
		{"wide spread blends", []int{10, 90}, 74},
		{"narrow spread mean", []int{20, 25}, 22},
		{"zeros ignored", []int{0, 20, 25, 0}, 22},
		{"all zero", []int{0, 0}, 0},
		{"single", []int{37}, 37},
		{"spread exactly 20", []int{10, 30}, 20},
		{"rounds to nearest", []int{10, 36}, 31}, // 0.6*36 + 0.4*23 = 30.8
		{"uneven mean", []int{15, 16, 90}, 70},   // 0.6*90 + 0.4*40.33 = 70.13
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blended(tt.scores))
		})
	}
}

func TestAggregate_BlendedScenario(t *testing.T) {
	a1 := withSeverity(10, "u1")
	a1.Sanctions = 20
	a2 := withSeverity(90, "u2")
	a2.Sanctions = 25

	r := fixedClock(New(Blended)).Aggregate([]model.ArticleAssessment{a1, a2}, "Acme")
	require.NotNil(t, r.RiskScores)
	assert.Equal(t, 74, r.RiskScores.Fraud)
	assert.Equal(t, 22, r.RiskScores.Sanctions)
	assert.Equal(t, 0, r.RiskScores.Insolvency)
	assert.Equal(t, 74, r.OverallSeverity)
	assert.Equal(t, "fraud", r.PrimaryRisk)
	assert.Equal(t, 2, r.ArticlesAnalyzed)
	assert.Equal(t, "Acme", r.EntityName)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 30, 0, 0, time.UTC), r.ScreeningDate)
	assert.False(t, r.NoData)
}

func TestAggregate_MaxPolicy(t *testing.T) {
	a1 := withSeverity(10, "u1")
	a1.Sanctions = 20
	a2 := withSeverity(90, "u2")
	a2.Sanctions = 25

	r := New(Max).Aggregate([]model.ArticleAssessment{a1, a2}, "Acme")
	assert.Equal(t, 90, r.RiskScores.Fraud)
	assert.Equal(t, 25, r.RiskScores.Sanctions)
	assert.Equal(t, 90, r.OverallSeverity)
}

func TestAggregate_TieBreaksByCategoryOrder(t *testing.T) {
	a := model.ArticleAssessment{}
	a.Insolvency = 40
	a.Sanctions = 40
	r := New(Blended).Aggregate([]model.ArticleAssessment{a}, "Acme")
	assert.Equal(t, "sanctions", r.PrimaryRisk)
}

func TestAggregate_Empty(t *testing.T) {
	r := New(Blended).Aggregate(nil, "Acme")
	assert.Equal(t, 0, r.ArticlesAnalyzed)
	assert.Equal(t, 0, r.OverallSeverity)
	assert.True(t, r.NoData)
	assert.Equal(t, model.NoArticlesFound, r.Error)
	assert.Nil(t, r.RiskScores)
	assert.Empty(t, r.PrimaryRisk)
	assert.Empty(t, r.AllAssessments)
	assert.Empty(t, r.HighRiskArticles)
}

func TestAggregate_HighRiskOrdering(t *testing.T) {
	var in []model.ArticleAssessment
	for i, sev := range []int{10, 55, 80, 40, 51} {
		in = append(in, withSeverity(sev, string(rune('a'+i))))
	}
	r := New(Blended).Aggregate(in, "Acme")

	var got []int
	for _, a := range r.HighRiskArticles {
		got = append(got, a.OverallSeverity)
	}
	assert.Equal(t, []int{80, 55, 51}, got)

	var order []string
	for _, a := range r.AllAssessments {
		order = append(order, a.ArticleURL)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
}

func TestAggregate_HighRiskStableTies(t *testing.T) {
	in := []model.ArticleAssessment{withSeverity(60, "first"), withSeverity(70, "top"), withSeverity(60, "second")}
	r := New(Blended).Aggregate(in, "Acme")
	require.Len(t, r.HighRiskArticles, 3)
	assert.Equal(t, "top", r.HighRiskArticles[0].ArticleURL)
	assert.Equal(t, "first", r.HighRiskArticles[1].ArticleURL)
	assert.Equal(t, "second", r.HighRiskArticles[2].ArticleURL)
}

func TestAggregate_NoAliasing(t *testing.T) {
	in := []model.ArticleAssessment{withSeverity(80, "u")}
	in[0].KeySentences = []model.SentenceEvidence{{Sentence: "original"}}

	r := New(Blended).Aggregate(in, "Acme")
	r.AllAssessments[0].KeySentences[0].Sentence = "mutated"
	assert.Equal(t, "original", in[0].KeySentences[0].Sentence)
	assert.Equal(t, "original", r.HighRiskArticles[0].KeySentences[0].Sentence)
}

func TestAggregate_Deterministic(t *testing.T) {
	in := []model.ArticleAssessment{withSeverity(30, "a"), withSeverity(75, "b")}
	agg := fixedClock(New(Blended))
	assert.Equal(t, agg.Aggregate(in, "Acme"), agg.Aggregate(in, "Acme"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Blended, p)

	p, err = ParsePolicy("max")
	require.NoError(t, err)
	assert.Equal(t, Max, p)

	_, err = ParsePolicy("median")
	assert.Error(t, err)
}
