package model

import "fmt"

// Category 风险类别
type Category string

const (
	Fraud             Category = "fraud"
	Sanctions         Category = "sanctions"
	MoneyLaundering   Category = "money_laundering"
	BriberyCorruption Category = "bribery_corruption"
	CyberIncident     Category = "cyber_incident"
	Insolvency        Category = "insolvency"
	ESGViolation      Category = "esg_violation"
)

// categories 固定顺序，同分时按此顺序取第一个
var categories = [...]Category{
	Fraud,
	Sanctions,
	MoneyLaundering,
	BriberyCorruption,
	CyberIncident,
	Insolvency,
	ESGViolation,
}

// NumCategories 类别数量
const NumCategories = len(categories)

// RoutineScoreMax 常规报道区间 [0, RoutineScoreMax] 的上界，评分提示词与退化修复共用
const RoutineScoreMax = 20

// Categories 返回固定顺序的全部类别
func Categories() []Category {
	out := make([]Category, NumCategories)
	copy(out, categories[:])
	return out
}

// ParseCategory 解析类别名
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown risk category: %q", s)
}

// RiskCategoryScores 七个类别的 0-100 整数评分
type RiskCategoryScores struct {
	Fraud             int `json:"fraud" yaml:"fraud"`
	Sanctions         int `json:"sanctions" yaml:"sanctions"`
	MoneyLaundering   int `json:"money_laundering" yaml:"money_laundering"`
	BriberyCorruption int `json:"bribery_corruption" yaml:"bribery_corruption"`
	CyberIncident     int `json:"cyber_incident" yaml:"cyber_incident"`
	Insolvency        int `json:"insolvency" yaml:"insolvency"`
	ESGViolation      int `json:"esg_violation" yaml:"esg_violation"`
}

func (s *RiskCategoryScores) field(c Category) *int {
	switch c {
	case Fraud:
		return &s.Fraud
	case Sanctions:
		return &s.Sanctions
	case MoneyLaundering:
		return &s.MoneyLaundering
	case BriberyCorruption:
		return &s.BriberyCorruption
	case CyberIncident:
		return &s.CyberIncident
	case Insolvency:
		return &s.Insolvency
	case ESGViolation:
		return &s.ESGViolation
	}
	panic(fmt.Sprintf("unknown risk category: %q", c))
}

// Get 读取某类别评分
func (s RiskCategoryScores) Get(c Category) int {
	return *s.field(c)
}

// Set 写入某类别评分
func (s *RiskCategoryScores) Set(c Category, v int) {
	*s.field(c) = v
}

// Values 按固定顺序返回评分
func (s RiskCategoryScores) Values() [NumCategories]int {
	var out [NumCategories]int
	for i, c := range categories {
		out[i] = s.Get(c)
	}
	return out
}

// SetValues 按固定顺序写入评分
func (s *RiskCategoryScores) SetValues(v [NumCategories]int) {
	for i, c := range categories {
		s.Set(c, v[i])
	}
}

// Max 返回最高分及其类别，同分取固定顺序中的第一个
func (s RiskCategoryScores) Max() (Category, int) {
	best, bestScore := categories[0], s.Get(categories[0])
	for _, c := range categories[1:] {
		if v := s.Get(c); v > bestScore {
			best, bestScore = c, v
		}
	}
	return best, bestScore
}

// Clamp 将全部评分限制在 [0,100]
func (s *RiskCategoryScores) Clamp() {
	for _, c := range categories {
		s.Set(c, ClampScore(s.Get(c)))
	}
}

// ClampScore 将单个评分限制在 [0,100]
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
