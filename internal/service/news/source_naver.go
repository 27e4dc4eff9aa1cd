package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const naverNewsAPI = "https://openapi.naver.com/v1/search/news.json"

// NaverSource 调用 Naver 新闻搜索 API，按时间排序
type NaverSource struct {
	baseURL      string
	clientID     string
	clientSecret string
	display      int
	timeout      time.Duration
}

func NewNaverSource(clientID, clientSecret string, display int, timeout time.Duration) *NaverSource {
	if display <= 0 || display > 100 {
		display = 10
	}
	return &NaverSource{
		baseURL:      naverNewsAPI,
		clientID:     clientID,
		clientSecret: clientSecret,
		display:      display,
		timeout:      timeout,
	}
}

func (s *NaverSource) WithBaseURL(u string) *NaverSource {
	s.baseURL = u
	return s
}

func (s *NaverSource) Name() string {
	return "naver"
}

type naverResponse struct {
	Items []struct {
		Title        string `json:"title"`
		OriginalLink string `json:"originallink"`
		Link         string `json:"link"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

func (s *NaverSource) Search(ctx context.Context, keyword string, window time.Duration) ([]Item, error) {
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("display", strconv.Itoa(s.display))
	params.Set("start", "1")
	params.Set("sort", "date")

	var (
		items    []Item
		fetchErr error
	)
	c := newCollector(ctx, s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("X-Naver-Client-Id", s.clientID)
		r.Headers.Set("X-Naver-Client-Secret", s.clientSecret)
	})
	c.OnResponse(func(r *colly.Response) {
		var resp naverResponse
		if err := json.Unmarshal(r.Body, &resp); err != nil {
			fetchErr = fmt.Errorf("decode naver response: %w", err)
			return
		}
		for _, it := range resp.Items {
			link := it.OriginalLink
			if link == "" {
				link = it.Link
			}
			items = append(items, Item{
				Title:       stripMarkup(it.Title),
				Snippet:     stripMarkup(it.Description),
				Link:        link,
				Source:      hostOf(link),
				PublishedAt: parsePubDate(it.PubDate),
			})
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("naver status %d: %w", r.StatusCode, err)
	})
	if err := c.Visit(s.baseURL + "?" + params.Encode()); err != nil {
		return nil, err
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}
	return items, nil
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
