package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/bytedance/gg/gson"
	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

const (
	// 摘要短于该长度时尝试抓取正文
	fullTextThreshold = 500
	// 送入 LLM 的正文上限（字符）
	maxContentLength = 5000
	enrichWorkers    = 4
)

// TextFetcher 抓取 URL 正文
type TextFetcher func(ctx context.Context, pageURL string) (string, error)

// Options 语料提供方配置
type Options struct {
	MinContentLength int
	FetchFullText    bool
	CacheTTL         time.Duration
	Fetcher          TextFetcher
}

// Provider 新闻语料提供方：检索、正文补全、去重、截断、缓存
type Provider struct {
	searcher  search.Searcher
	opts      Options
	cache     *Cache
	now       func() time.Time
	fetchText TextFetcher
}

// NewProvider 创建语料提供方
func NewProvider(searcher search.Searcher, opts Options) *Provider {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetchAndCleanContent
	}
	return &Provider{
		searcher:  searcher,
		opts:      opts,
		cache:     NewCache(opts.CacheTTL),
		now:       time.Now,
		fetchText: fetcher,
	}
}

// Fetch 获取实体最近 daysBack 天的文章，按 URL 去重并截断到 maxArticles。
// 没有结果时返回空切片而不是错误。
func (p *Provider) Fetch(ctx context.Context, entity string, daysBack, maxArticles int) ([]model.Article, error) {
	if cached, ok := p.cache.Get(entity, daysBack, maxArticles); ok {
		logger.L().Infof("从缓存加载 [%s] %d 篇文章", entity, len(cached))
		return cached, nil
	}

	req := search.NewsRequest(entity, daysBack, maxArticles, p.now())
	resp, err := p.searcher.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search news for %q: %w", entity, err)
	}
	logger.L().Debugf("检索 [%s] 成功: %s", entity, gson.ToString(resp))

	articles := make([]model.Article, len(resp.Results))
	for i, item := range resp.Results {
		articles[i] = model.Article{
			Title:       item.Title,
			Content:     item.Content,
			URL:         item.URL,
			Source:      item.Source,
			PublishDate: item.PublishedDate,
		}
	}

	if p.opts.FetchFullText {
		if err := p.enrich(ctx, articles); err != nil {
			return nil, err
		}
	}

	final := Normalize(articles, p.opts.MinContentLength, maxArticles)
	logger.L().Infof("实体 [%s] 检索到 %d 篇，去重过滤后保留 %d 篇", entity, len(articles), len(final))

	p.cache.Put(entity, daysBack, maxArticles, final)
	return final, nil
}

// enrich 并发抓取摘要过短文章的正文，抓取失败时保留摘要
func (p *Provider) enrich(ctx context.Context, articles []model.Article) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for i := range articles {
		if len(articles[i].Content) >= fullTextThreshold || articles[i].URL == "" {
			continue
		}
		g.Go(func() error {
			fetched, err := p.fetchText(gctx, articles[i].URL)
			if err != nil {
				logger.L().Debugf("正文抓取失败，使用摘要 [%s]: %v", articles[i].URL, err)
				return nil
			}
			if len(fetched) > len(articles[i].Content) {
				articles[i].Content = fetched
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Normalize 截断过长正文、过滤过短文章、按 URL 去重（丢弃空 URL），再截取前 maxArticles 篇
func Normalize(articles []model.Article, minContentLength, maxArticles int) []model.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]model.Article, 0, len(articles))
	for _, art := range articles {
		if art.URL == "" {
			continue
		}
		if _, dup := seen[art.URL]; dup {
			continue
		}
		art.Content = truncateRunes(art.Content, maxContentLength)
		if utf8.RuneCountInString(art.Content) < minContentLength {
			continue
		}
		seen[art.URL] = struct{}{}
		out = append(out, art)
		if maxArticles > 0 && len(out) >= maxArticles {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// fetchAndCleanContent 抓取 URL 并提取核心文本
func fetchAndCleanContent(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
