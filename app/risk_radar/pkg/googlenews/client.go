package googlenews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed/rss"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

const defaultBaseURL = "https://news.google.com/rss/search"

// Client Google News RSS 搜索客户端，不需要 API Key
type Client struct {
	baseURL  string
	language string
	region   string
	client   *http.Client
}

// NewClient 创建 Google News 客户端，language/region 为空时使用 en-US / US
func NewClient(baseURL, language, region string, timeout int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if language == "" {
		language = "en-US"
	}
	if region == "" {
		region = "US"
	}
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		language: language,
		region:   region,
		client:   &http.Client{Timeout: t},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// FeedURL 构造 RSS 查询地址：实体名加引号，不附加任何负面关键词，避免检索偏置
func (c *Client) FeedURL(req *search.Request) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	query := fmt.Sprintf("%q", req.Query)
	if req.StartDate != "" {
		query += " after:" + req.StartDate
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("hl", c.language)
	q.Set("gl", c.region)
	q.Set("ceid", c.region+":"+strings.SplitN(c.language, "-", 2)[0])
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Search 拉取并解析 RSS
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	feedURL, err := c.FeedURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; risk-radar/1.0)")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("google news error (status %d): %s", res.StatusCode, string(body))
	}

	fp := &rss.Parser{}
	feed, err := fp.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss failed: %w", err)
	}

	var results []search.Result
	for _, item := range feed.Items {
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			break
		}
		source := "Unknown"
		if item.Source != nil && item.Source.Title != "" {
			source = item.Source.Title
		}
		results = append(results, search.Result{
			Title:         item.Title,
			URL:           item.Link,
			Content:       HTMLToText(item.Description),
			Source:        source,
			PublishedDate: item.PubDate,
		})
	}
	return &search.Response{Results: results}, nil
}

// HTMLToText 去除 RSS 摘要中的 HTML 标记，合并空白
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
