// Package news 按关键词收集近期新闻，归并为有界的证据集合
package news

import (
	"context"
	"time"
)

type Item struct {
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	Link        string    `json:"link"`
	Source      string    `json:"source"` // 发布方
	PublishedAt time.Time `json:"published_at"`
	Query       string    `json:"query"` // 命中的关键词
}

// Evidence 一个周期内的新闻证据，Items 按发布时间倒序
type Evidence struct {
	Keywords       []string
	Items          []Item
	FailedKeywords []string
	CollectedAt    time.Time
}

func (e Evidence) Empty() bool {
	return len(e.Items) == 0
}

type Query struct {
	Keywords []string
	Window   time.Duration
	MaxItems int
}

type Source interface {
	Name() string
	Search(ctx context.Context, keyword string, window time.Duration) ([]Item, error)
}
