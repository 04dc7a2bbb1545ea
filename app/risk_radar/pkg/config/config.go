package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid config")

const (
	defaultTemperature float32 = 0.35
	defaultMaxRetries          = 3
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Screening   ScreeningConfig   `yaml:"screening"`
	Corrector   CorrectorConfig   `yaml:"corrector"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Failure     FailureConfig     `yaml:"failure"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"api_key"`
	Model          string   `yaml:"model"`       // 透传给服务商，例如 "openai/gpt-4o"
	Temperature    *float32 `yaml:"temperature"` // 未配置时为 nil，显式 0 保留
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     *int     `yaml:"max_retries"`
	AppURL         string   `yaml:"app_url"`
	AppName        string   `yaml:"app_name"`
}

// GetTemperature 返回采样温度，未配置时使用默认值
func (c LLMConfig) GetTemperature() float32 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

// GetMaxRetries 返回重试次数，未配置时使用默认值
func (c LLMConfig) GetMaxRetries() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider   string           `yaml:"provider"`
	GoogleNews GoogleNewsConfig `yaml:"googlenews"`
	Tavily     TavilyConfig     `yaml:"tavily"`
	SearXNG    SearXNGConfig    `yaml:"searxng"`
}

// GoogleNewsConfig Google News RSS 配置
type GoogleNewsConfig struct {
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
	Region   string `yaml:"region"`
	Timeout  int    `yaml:"timeout"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// ScreeningConfig 单次筛查的参数
type ScreeningConfig struct {
	DaysBack           int  `yaml:"days_back"`
	MaxArticles        int  `yaml:"max_articles"`
	Workers            int  `yaml:"workers"`
	CallTimeoutSeconds int  `yaml:"call_timeout_seconds"`
	MinContentLength   int  `yaml:"min_content_length"`
	FetchFullText      bool `yaml:"fetch_full_text"`
	CacheTTLMinutes    int  `yaml:"cache_ttl_minutes"`
}

// CorrectorConfig 评估修正配置
type CorrectorConfig struct {
	Dampening DampeningConfig `yaml:"dampening"`
}

// DampeningConfig 大型实体降权配置
type DampeningConfig struct {
	Enabled bool     `yaml:"enabled"`
	Factor  float64  `yaml:"factor"`
	Ceiling int      `yaml:"ceiling"`
	Roster  []string `yaml:"roster"`
}

// AggregationConfig 聚合策略配置
type AggregationConfig struct {
	Policy string `yaml:"policy"` // blended | max
}

// FailureConfig 分类失败时的回退策略
type FailureConfig struct {
	Policy string `yaml:"policy"` // closed | open
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Enabled 是否配置了数据库
func (c DBConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

// ConnString 生成 lib/pq 连接串
func (c DBConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

// HTTPConfig HTTP 监听配置
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LoadConfig 从指定路径加载配置，补全默认值、应用环境变量并校验
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 使用环境变量覆盖敏感配置
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := firstNonEmpty(getenv("RISK_RADAR_LLM_API_KEY"), getenv("OPENROUTER_API_KEY")); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv("RISK_RADAR_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("TAVILY_API_KEY"); v != "" {
		c.Search.Tavily.APIKey = v
	}
	if v := getenv("RISK_RADAR_DB_DSN"); v != "" {
		c.DB.DSN = v
	}
}

// ApplyDefaults 补全未配置的默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai/gpt-3.5-turbo"
	}
	if c.LLM.Temperature == nil {
		t := defaultTemperature
		c.LLM.Temperature = &t
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.MaxRetries == nil {
		n := defaultMaxRetries
		c.LLM.MaxRetries = &n
	}
	if c.LLM.AppName == "" {
		c.LLM.AppName = "Risk Radar"
	}

	if c.Search.Provider == "" {
		if c.Search.Tavily.APIKey != "" {
			c.Search.Provider = "tavily"
		} else {
			c.Search.Provider = "googlenews"
		}
	}

	if c.Screening.DaysBack == 0 {
		c.Screening.DaysBack = 30
	}
	if c.Screening.MaxArticles == 0 {
		c.Screening.MaxArticles = 50
	}
	if c.Screening.Workers == 0 {
		c.Screening.Workers = 4
	}
	if c.Screening.CallTimeoutSeconds == 0 {
		c.Screening.CallTimeoutSeconds = 90
	}
	if c.Screening.MinContentLength == 0 {
		c.Screening.MinContentLength = 50
	}
	if c.Screening.CacheTTLMinutes == 0 {
		c.Screening.CacheTTLMinutes = 60
	}

	if c.Corrector.Dampening.Factor == 0 {
		c.Corrector.Dampening.Factor = 0.75
	}
	if c.Corrector.Dampening.Ceiling == 0 {
		c.Corrector.Dampening.Ceiling = 95
	}

	if c.Aggregation.Policy == "" {
		c.Aggregation.Policy = "blended"
	}
	if c.Failure.Policy == "" {
		c.Failure.Policy = "closed"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 2
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 60
	}
	if c.Server.HTTP.Addr == "" {
		c.Server.HTTP.Addr = "0.0.0.0:8000"
	}
	if c.Server.HTTP.Timeout == "" {
		c.Server.HTTP.Timeout = "300s"
	}
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	var problems []string
	switch c.Search.Provider {
	case "googlenews", "tavily", "searxng":
	default:
		problems = append(problems, fmt.Sprintf("unknown search provider %q", c.Search.Provider))
	}
	switch c.Aggregation.Policy {
	case "blended", "max":
	default:
		problems = append(problems, fmt.Sprintf("unknown aggregation policy %q", c.Aggregation.Policy))
	}
	switch c.Failure.Policy {
	case "closed", "open":
	default:
		problems = append(problems, fmt.Sprintf("unknown failure policy %q", c.Failure.Policy))
	}
	if f := c.Corrector.Dampening.Factor; f <= 0 || f > 1 {
		problems = append(problems, fmt.Sprintf("dampening factor %v out of (0,1]", f))
	}
	if v := c.Corrector.Dampening.Ceiling; v < 0 || v > 100 {
		problems = append(problems, fmt.Sprintf("dampening ceiling %d out of [0,100]", v))
	}
	if t := c.LLM.GetTemperature(); t < 0 || t > 2 {
		problems = append(problems, fmt.Sprintf("llm temperature %v out of [0,2]", t))
	}
	if c.LLM.GetMaxRetries() < 0 {
		problems = append(problems, "llm max_retries must not be negative")
	}
	if c.Screening.DaysBack < 0 || c.Screening.MaxArticles < 0 || c.Screening.Workers < 0 {
		problems = append(problems, "screening limits must not be negative")
	}
	if c.Server.HTTP.Timeout != "" {
		if d, err := time.ParseDuration(c.Server.HTTP.Timeout); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("invalid server http timeout %q", c.Server.HTTP.Timeout))
		} else if call := time.Duration(c.Screening.CallTimeoutSeconds) * time.Second; d <= call {
			problems = append(problems, fmt.Sprintf("server http timeout %s must exceed call timeout %s", d, call))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
