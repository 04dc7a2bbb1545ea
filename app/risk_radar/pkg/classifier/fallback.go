package classifier

import (
	"unicode/utf8"

	dm "github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const (
	maxErrorLength = 200
	// closed 策略下回退分数的区间下限，步长 2，共 15..27
	unknownRiskBase = 15
	unknownRiskStep = 2
)

// Fallback 构造分类失败时的回退评估：primary_risk 为 "error"，置信度 0，无证据句
func Fallback(policy FailurePolicy, cause error) dm.ArticleAssessment {
	var scores dm.RiskCategoryScores
	if policy != FailOpen {
		var values [dm.NumCategories]int
		for i := range values {
			values[i] = unknownRiskBase + unknownRiskStep*i
		}
		scores.SetValues(values)
	}
	_, severity := scores.Max()

	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return dm.ArticleAssessment{
		RiskCategoryScores: scores,
		PrimaryRisk:        dm.PrimaryRiskError,
		OverallSeverity:    severity,
		Confidence:         0,
		KeySentences:       []dm.SentenceEvidence{},
		Explanation:        "classification failed: " + truncate(reason, maxErrorLength),
		Fallback:           true,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
