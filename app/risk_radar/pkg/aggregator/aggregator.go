package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// Policy 类别聚合策略
type Policy string

const (
	// Blended 非零分数中离散度超过阈值时取 0.6·max + 0.4·mean，否则取截断均值
	Blended Policy = "blended"
	// Max 取全部分数（含 0）的最大值
	Max Policy = "max"
)

const (
	spreadThreshold = 20
	// HighRiskThreshold 文章 overall_severity 严格大于该值才计入高风险列表
	HighRiskThreshold = 50
)

// ParsePolicy 解析聚合策略名
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Blended, Max:
		return Policy(s), nil
	case "":
		return Blended, nil
	}
	return "", fmt.Errorf("unknown aggregation policy: %q", s)
}

// Aggregator 将单篇评估合并为实体报告，纯函数，结果只取决于输入
type Aggregator struct {
	policy Policy
	now    func() time.Time
}

// New 创建聚合器
func New(policy Policy) *Aggregator {
	if policy == "" {
		policy = Blended
	}
	return &Aggregator{policy: policy, now: time.Now}
}

// Policy 当前聚合策略
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// Aggregate 生成实体报告。输入为空时返回带 no_data 标记的报告。
func (a *Aggregator) Aggregate(assessments []model.ArticleAssessment, entityName string) *model.EntityReport {
	report := &model.EntityReport{
		EntityName:       entityName,
		ScreeningDate:    a.now().UTC(),
		ArticlesAnalyzed: len(assessments),
		HighRiskArticles: []model.ArticleAssessment{},
		AllAssessments:   make([]model.ArticleAssessment, len(assessments)),
	}
	if len(assessments) == 0 {
		report.NoData = true
		report.Error = model.NoArticlesFound
		return report
	}

	for i, as := range assessments {
		report.AllAssessments[i] = as.Clone()
	}

	var scores model.RiskCategoryScores
	for _, c := range model.Categories() {
		column := make([]int, len(assessments))
		for i, as := range assessments {
			column[i] = as.Get(c)
		}
		scores.Set(c, a.category(column))
	}
	primary, severity := scores.Max()
	report.RiskScores = &scores
	report.PrimaryRisk = string(primary)
	report.OverallSeverity = severity

	for _, as := range report.AllAssessments {
		if as.OverallSeverity > HighRiskThreshold {
			report.HighRiskArticles = append(report.HighRiskArticles, as.Clone())
		}
	}
	sort.SliceStable(report.HighRiskArticles, func(i, j int) bool {
		return report.HighRiskArticles[i].OverallSeverity > report.HighRiskArticles[j].OverallSeverity
	})
	return report
}

func (a *Aggregator) category(scores []int) int {
	if a.policy == Max {
		return worstCase(scores)
	}
	return blended(scores)
}

func worstCase(scores []int) int {
	best := 0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return best
}

func blended(scores []int) int {
	var n, sum int
	lo, hi := 0, 0
	for _, s := range scores {
		if s <= 0 {
			continue
		}
		if n == 0 || s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0
	}
	if hi-lo > spreadThreshold {
		// round(0.6·hi + 0.4·sum/n) 的整数形式，避免浮点误差
		num := 6*hi*n + 4*sum
		den := 10 * n
		return (2*num + den) / (2 * den)
	}
	return sum / n
}
