package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dm "github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var validate = validator.New()

type rawSentence struct {
	Sentence        string   `json:"sentence" validate:"required"`
	ImportanceScore *float64 `json:"importance_score" validate:"required,min=0,max=1"`
}

// rawAssessment LLM 输出的结构化契约，指针字段用于区分缺失与 0
type rawAssessment struct {
	Fraud             *int          `json:"fraud" validate:"required,min=0,max=100"`
	Sanctions         *int          `json:"sanctions" validate:"required,min=0,max=100"`
	MoneyLaundering   *int          `json:"money_laundering" validate:"required,min=0,max=100"`
	BriberyCorruption *int          `json:"bribery_corruption" validate:"required,min=0,max=100"`
	CyberIncident     *int          `json:"cyber_incident" validate:"required,min=0,max=100"`
	Insolvency        *int          `json:"insolvency" validate:"required,min=0,max=100"`
	ESGViolation      *int          `json:"esg_violation" validate:"required,min=0,max=100"`
	PrimaryRisk       string        `json:"primary_risk" validate:"required"`
	OverallSeverity   *int          `json:"overall_severity" validate:"required,min=0,max=100"`
	Confidence        *int          `json:"confidence" validate:"required,min=0,max=100"`
	KeySentences      []rawSentence `json:"key_sentences" validate:"max=3,dive"`
	Explanation       string        `json:"explanation" validate:"max=800"`
}

// parseAssessment 清理模型输出并按契约严格解码，不符合契约即视为失败
func parseAssessment(content string) (dm.ArticleAssessment, error) {
	body, err := extractJSON(content)
	if err != nil {
		return dm.ArticleAssessment{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var raw rawAssessment
	if err := dec.Decode(&raw); err != nil {
		return dm.ArticleAssessment{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if err := validate.Struct(&raw); err != nil {
		return dm.ArticleAssessment{}, fmt.Errorf("schema validation: %w", err)
	}
	return raw.toAssessment(), nil
}

func extractJSON(content string) ([]byte, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}
	return []byte(clean[start : end+1]), nil
}

func (r *rawAssessment) toAssessment() dm.ArticleAssessment {
	a := dm.ArticleAssessment{
		RiskCategoryScores: dm.RiskCategoryScores{
			Fraud:             *r.Fraud,
			Sanctions:         *r.Sanctions,
			MoneyLaundering:   *r.MoneyLaundering,
			BriberyCorruption: *r.BriberyCorruption,
			CyberIncident:     *r.CyberIncident,
			Insolvency:        *r.Insolvency,
			ESGViolation:      *r.ESGViolation,
		},
		PrimaryRisk:     strings.ToLower(strings.TrimSpace(r.PrimaryRisk)),
		OverallSeverity: *r.OverallSeverity,
		Confidence:      *r.Confidence,
		Explanation:     r.Explanation,
		KeySentences:    make([]dm.SentenceEvidence, 0, len(r.KeySentences)),
	}
	for _, s := range r.KeySentences {
		a.KeySentences = append(a.KeySentences, dm.SentenceEvidence{
			Sentence:        s.Sentence,
			ImportanceScore: *s.ImportanceScore,
		})
	}
	return a
}
