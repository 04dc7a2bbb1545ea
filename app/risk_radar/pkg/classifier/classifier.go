package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	dm "github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var (
	// ErrMissingAPIKey 未配置 LLM 凭据
	ErrMissingAPIKey = errors.New("classifier: missing LLM API key")
	// ErrMissingModel 未配置模型标识
	ErrMissingModel = errors.New("classifier: missing model identifier")
)

// FailurePolicy 分类失败时回退评估的取值策略
type FailurePolicy string

const (
	// FailClosed 回退到非零的"未知风险"区间
	FailClosed FailurePolicy = "closed"
	// FailOpen 回退到全零
	FailOpen FailurePolicy = "open"
)

// Config 分类器配置
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string // 原样透传，例如 "openai/gpt-4o"
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	AppURL      string
	AppName     string

	FailurePolicy FailurePolicy
	QPS           int
	RPM           int
}

// Classifier 调用 LLM 对单篇文章做七类风险评分
type Classifier struct {
	cm         model.BaseChatModel
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	policy     FailurePolicy
}

// New 创建基于 OpenAI 兼容接口的分类器，缺少凭据或模型时拒绝创建
func New(ctx context.Context, cfg Config) (*Classifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrMissingModel
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Timeout:     cfg.Timeout,
		HTTPClient:  newHTTPClient(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewWithModel(chatModel, cfg)
}

// NewWithModel 使用外部提供的 ChatModel 创建分类器
func NewWithModel(cm model.BaseChatModel, cfg Config) (*Classifier, error) {
	if cm == nil {
		return nil, errors.New("classifier: nil chat model")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrMissingModel
	}

	limit := rate.Inf
	if cfg.RPM > 0 {
		limit = rate.Limit(float64(cfg.RPM) / 60.0)
	}
	burst := cfg.QPS
	if burst <= 0 {
		burst = 1
	}
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = FailClosed
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Classifier{
		cm:         cm,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: retries,
		baseDelay:  2 * time.Second,
		policy:     policy,
	}, nil
}

// Classify 对文章打分。任何失败都会被转换为带标记的回退评估，不会返回错误。
func (c *Classifier) Classify(ctx context.Context, articleText, entityName string) dm.ArticleAssessment {
	assessment, err := c.classify(ctx, articleText, entityName)
	if err != nil {
		logger.L().Warnf("实体 [%s] 文章分类失败，使用回退评估: %v", entityName, err)
		return Fallback(c.policy, err)
	}
	return assessment
}

func (c *Classifier) classify(ctx context.Context, articleText, entityName string) (dm.ArticleAssessment, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(articleText, entityName)),
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return dm.ArticleAssessment{}, err
		}

		resp, err := c.cm.Generate(ctx, messages)
		if err != nil {
			lastErr = err
			if isRateLimited(err) && i < c.maxRetries {
				if err := sleep(ctx, c.baseDelay*time.Duration(1<<i)); err != nil {
					return dm.ArticleAssessment{}, err
				}
				continue
			}
			return dm.ArticleAssessment{}, err
		}
		if resp == nil {
			lastErr = errors.New("empty response")
			continue
		}

		assessment, err := parseAssessment(resp.Content)
		if err != nil {
			lastErr = err
			logger.L().Debugf("第 %d 次响应未通过校验: %v", i+1, err)
			continue
		}
		return assessment, nil
	}
	return dm.ArticleAssessment{}, fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// headerTransport 为 OpenRouter 附加来源标识
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

func newHTTPClient(cfg Config) *http.Client {
	headers := map[string]string{}
	if cfg.AppURL != "" {
		headers["HTTP-Referer"] = cfg.AppURL
	}
	if cfg.AppName != "" {
		headers["X-Title"] = cfg.AppName
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
	}
}
