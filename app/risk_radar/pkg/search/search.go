package search

import (
	"context"
	"time"
)

// Searcher 定义通用的新闻搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Source        string
	Score         float64
	PublishedDate string
}

// NewsRequest 构造实体新闻检索请求，日期范围为最近 daysBack 天
func NewsRequest(entity string, daysBack, maxResults int, now time.Time) *Request {
	return &Request{
		Query:      entity,
		Topic:      "news",
		MaxResults: maxResults,
		StartDate:  now.AddDate(0, 0, -daysBack).Format(time.DateOnly),
		EndDate:    now.Format(time.DateOnly),
	}
}
