package corpus

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

type cacheEntry struct {
	articles []model.Article
	storedAt time.Time
}

// Cache 按 (实体, 回溯天数, 上限, 自然日) 缓存检索结果，跨日或超过 TTL 即失效
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache 创建缓存，ttl <= 0 时禁用
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(entity string, daysBack, maxArticles int, day time.Time) string {
	name := strings.ToLower(strings.TrimSpace(entity))
	return fmt.Sprintf("%s|%d|%d|%s", name, daysBack, maxArticles, day.Format(time.DateOnly))
}

// Get 读取缓存，返回副本
func (c *Cache) Get(entity string, daysBack, maxArticles int) ([]model.Article, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[cacheKey(entity, daysBack, maxArticles, now)]
	c.mu.RUnlock()
	if !ok || now.Sub(e.storedAt) > c.ttl {
		return nil, false
	}
	out := make([]model.Article, len(e.articles))
	copy(out, e.articles)
	return out, true
}

// Put 写入缓存，同时清理过期条目
func (c *Cache) Put(entity string, daysBack, maxArticles int, articles []model.Article) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := c.now()
	stored := make([]model.Article, len(articles))
	copy(stored, articles)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[cacheKey(entity, daysBack, maxArticles, now)] = cacheEntry{articles: stored, storedAt: now}
}

// Len 当前缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
