package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const googleNewsRSS = "https://news.google.com/rss/search"

// GoogleNewsSource 通过 Google News RSS 搜索
type GoogleNewsSource struct {
	baseURL  string
	language string
	region   string
	timeout  time.Duration
}

type GoogleOption func(s *GoogleNewsSource)

func WithGoogleBaseURL(u string) GoogleOption {
	return func(s *GoogleNewsSource) {
		s.baseURL = u
	}
}

func WithGoogleLocale(language, region string) GoogleOption {
	return func(s *GoogleNewsSource) {
		s.language = language
		s.region = region
	}
}

func NewGoogleNewsSource(timeout time.Duration, opts ...GoogleOption) *GoogleNewsSource {
	s := &GoogleNewsSource{
		baseURL:  googleNewsRSS,
		language: "en-US",
		region:   "US",
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GoogleNewsSource) Name() string {
	return "google"
}

func (s *GoogleNewsSource) searchURL(keyword string, window time.Duration) string {
	q := keyword
	if hours := int(window.Hours()); hours > 0 {
		q = fmt.Sprintf("%s when:%dh", keyword, hours)
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("hl", s.language)
	params.Set("gl", s.region)
	params.Set("ceid", s.region+":"+strings.Split(s.language, "-")[0])
	return s.baseURL + "?" + params.Encode()
}

func (s *GoogleNewsSource) Search(ctx context.Context, keyword string, window time.Duration) ([]Item, error) {
	var (
		items    []Item
		fetchErr error
	)
	c := newCollector(ctx, s.timeout)
	c.OnXML("//channel/item", func(e *colly.XMLElement) {
		title := strings.TrimSpace(e.ChildText("title"))
		source := strings.TrimSpace(e.ChildText("source"))
		// Google 的标题形如 "headline - Publisher"
		if source != "" {
			title = strings.TrimSuffix(title, " - "+source)
		}
		items = append(items, Item{
			Title:       title,
			Snippet:     stripMarkup(e.ChildText("description")),
			Link:        strings.TrimSpace(e.ChildText("link")),
			Source:      source,
			PublishedAt: parsePubDate(e.ChildText("pubDate")),
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("google news status %d: %w", r.StatusCode, err)
	})
	if err := c.Visit(s.searchURL(keyword, window)); err != nil {
		return nil, err
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}
	return items, nil
}
