package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type Collector struct {
	source         Source
	timeout        time.Duration
	maxConcurrency int
	now            func() time.Time
}

type CollectorOption func(c *Collector)

func WithTimeout(timeout time.Duration) CollectorOption {
	return func(c *Collector) {
		c.timeout = timeout
	}
}

func WithMaxConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		c.maxConcurrency = n
	}
}

func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

func NewCollector(source Source, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:         source,
		timeout:        10 * time.Second,
		maxConcurrency: 4,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect 单个关键词失败只记录到 FailedKeywords，不影响整体；没有结果时返回空证据
func (c *Collector) Collect(ctx context.Context, q Query) (Evidence, error) {
	if q.MaxItems <= 0 {
		return Evidence{}, errs.Dataf("news.collect", "max items must be positive, got %d", q.MaxItems)
	}
	keywords := lo.Uniq(lo.Filter(q.Keywords, func(k string, _ int) bool { return strings.TrimSpace(k) != "" }))
	if len(keywords) == 0 {
		return Evidence{}, errs.Dataf("news.collect", "no keywords")
	}

	now := c.now()
	// 每个 goroutine 只写自己下标的元素
	results := make([][]Item, len(keywords))
	failed := make([]bool, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()
			items, err := c.source.Search(fctx, kw, q.Window)
			if err != nil {
				slog.Warn("news keyword fetch failed", "keyword", kw, "source", c.source.Name(), "error", err)
				failed[i] = true
				return nil
			}
			for j := range items {
				items[j].Query = kw
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Evidence{}, errs.Transport("news.collect", err)
	}

	ev := Evidence{
		Keywords:    keywords,
		CollectedAt: now,
	}
	for i, kw := range keywords {
		if failed[i] {
			ev.FailedKeywords = append(ev.FailedKeywords, kw)
		}
	}
	ev.Items = Reduce(lo.Flatten(results), now.Add(-q.Window), q.MaxItems)
	return ev, nil
}

// Reduce 丢弃早于 since 的条目，按 (标题, 来源) 去重，按时间倒序截断到 max 条
func Reduce(items []Item, since time.Time, max int) []Item {
	recent := lo.Filter(items, func(it Item, _ int) bool {
		return !it.PublishedAt.IsZero() && !it.PublishedAt.Before(since) && strings.TrimSpace(it.Title) != ""
	})
	// 先排序再去重，保留同一新闻最新的一条
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})
	uniq := lo.UniqBy(recent, dedupeKey)
	if len(uniq) > max {
		uniq = uniq[:max]
	}
	return uniq
}

func dedupeKey(it Item) string {
	return normalize(it.Title) + "\x00" + normalize(it.Source)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MultiSource 依次查询多个来源，全部失败时才返回错误
type MultiSource struct {
	sources []Source
}

func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

func (m *MultiSource) Name() string {
	return strings.Join(lo.Map(m.sources, func(s Source, _ int) string { return s.Name() }), "+")
}

func (m *MultiSource) Search(ctx context.Context, keyword string, window time.Duration) ([]Item, error) {
	var (
		all     []Item
		errList []error
	)
	for _, s := range m.sources {
		items, err := s.Search(ctx, keyword, window)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		all = append(all, items...)
	}
	if len(errList) == len(m.sources) && len(errList) > 0 {
		return nil, errors.Join(errList...)
	}
	return all, nil
}
