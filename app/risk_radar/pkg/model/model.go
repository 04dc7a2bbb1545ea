package model

import "time"

// Article 基础文章信息（由新闻语料提供方产出）
type Article struct {
	Title       string `json:"title" yaml:"title"`
	Content     string `json:"content" yaml:"content"`
	URL         string `json:"url" yaml:"url"`
	Source      string `json:"source" yaml:"source"`
	PublishDate string `json:"publish_date" yaml:"publish_date"` // 尽力解析，格式不保证
}

// Text 拼接送入分类器的文章文本
func (a Article) Text() string {
	return a.Title + "\n\n" + a.Content
}

// SentenceEvidence 支撑评分的关键句
type SentenceEvidence struct {
	Sentence        string  `json:"sentence" yaml:"sentence"`
	ImportanceScore float64 `json:"importance_score" yaml:"importance_score"`
}

// PrimaryRiskError 分类失败时回退评估使用的主要风险标记
const PrimaryRiskError = "error"

// MaxKeySentences 单篇评估最多保留的关键句数量
const MaxKeySentences = 3

// MaxExplanationLength 解释文本的最大字符数
const MaxExplanationLength = 800

// ArticleAssessment 单篇文章的风险评估
type ArticleAssessment struct {
	RiskCategoryScores `yaml:",inline"`

	PrimaryRisk     string             `json:"primary_risk" yaml:"primary_risk"`
	OverallSeverity int                `json:"overall_severity" yaml:"overall_severity"`
	Confidence      int                `json:"confidence" yaml:"confidence"`
	KeySentences    []SentenceEvidence `json:"key_sentences" yaml:"key_sentences"`
	Explanation     string             `json:"explanation" yaml:"explanation"`
	// Fallback 为 true 表示该评估由分类失败回退生成，并非模型结论
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	ArticleURL   string `json:"article_url" yaml:"article_url"`
	ArticleTitle string `json:"article_title" yaml:"article_title"`
	PublishDate  string `json:"publish_date" yaml:"publish_date"`
	Source       string `json:"source" yaml:"source"`
}

// AttachArticle 将文章元数据写入评估
func (a *ArticleAssessment) AttachArticle(art Article) {
	a.ArticleURL = art.URL
	a.ArticleTitle = art.Title
	a.PublishDate = art.PublishDate
	a.Source = art.Source
}

// Clone 深拷贝，避免关键句切片在不同报告之间共享
func (a ArticleAssessment) Clone() ArticleAssessment {
	if a.KeySentences != nil {
		ks := make([]SentenceEvidence, len(a.KeySentences))
		copy(ks, a.KeySentences)
		a.KeySentences = ks
	}
	return a
}

// NoArticlesFound 空语料报告的错误说明
const NoArticlesFound = "No articles found"

// EntityReport 实体级风险报告
type EntityReport struct {
	EntityName       string              `json:"entity_name" yaml:"entity_name"`
	ScreeningDate    time.Time           `json:"screening_date" yaml:"screening_date"`
	ArticlesAnalyzed int                 `json:"articles_analyzed" yaml:"articles_analyzed"`
	OverallSeverity  int                 `json:"overall_severity" yaml:"overall_severity"`
	PrimaryRisk      string              `json:"primary_risk,omitempty" yaml:"primary_risk,omitempty"`
	RiskScores       *RiskCategoryScores `json:"risk_scores,omitempty" yaml:"risk_scores,omitempty"`
	HighRiskArticles []ArticleAssessment `json:"high_risk_articles" yaml:"high_risk_articles"`
	AllAssessments   []ArticleAssessment `json:"all_assessments" yaml:"all_assessments"`

	// NoData 为 true 时表示没有任何文章可供分析，区别于"零风险"
	NoData bool   `json:"no_data,omitempty" yaml:"no_data,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FallbackCount 统计回退评估数量
func (r *EntityReport) FallbackCount() int {
	n := 0
	for _, a := range r.AllAssessments {
		if a.Fallback {
			n++
		}
	}
	return n
}

// ReportSummary 历史记录列表使用的报告摘要
type ReportSummary struct {
	ID               string    `json:"id"`
	EntityName       string    `json:"entity_name"`
	ScreeningDate    time.Time `json:"screening_date"`
	ArticlesAnalyzed int       `json:"articles_analyzed"`
	OverallSeverity  int       `json:"overall_severity"`
	PrimaryRisk      string    `json:"primary_risk"`
	HighRiskCount    int       `json:"high_risk_count"`
}

// Summarize 生成报告摘要
func (r *EntityReport) Summarize(id string) ReportSummary {
	return ReportSummary{
		ID:               id,
		EntityName:       r.EntityName,
		ScreeningDate:    r.ScreeningDate,
		ArticlesAnalyzed: r.ArticlesAnalyzed,
		OverallSeverity:  r.OverallSeverity,
		PrimaryRisk:      r.PrimaryRisk,
		HighRiskCount:    len(r.HighRiskArticles),
	}
}
