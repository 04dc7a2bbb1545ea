package factory

import (
	"fmt"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/googlenews"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/searxng"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		// 默认回退逻辑：有 tavily key 则使用 tavily，否则使用免 key 的 Google News
		if cfg.Search.Tavily.APIKey != "" {
			provider = "tavily"
		} else {
			provider = "googlenews"
		}
	}

	switch provider {
	case "googlenews":
		gn := cfg.Search.GoogleNews
		return googlenews.NewClient(gn.BaseURL, gn.Language, gn.Region, gn.Timeout), nil

	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey), nil

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
