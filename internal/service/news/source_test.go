package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item>
  <title>Bitcoin climbs past resistance - Reuters</title>
  <link>https://news.example.com/a</link>
  <pubDate>Fri, 01 Mar 2024 10:00:00 GMT</pubDate>
  <description>&lt;a href="https://news.example.com/a"&gt;Bitcoin climbs&lt;/a&gt; past resistance</description>
  <source url="https://www.reuters.com">Reuters</source>
</item>
<item>
  <title>Nasdaq futures flat - CNBC</title>
  <link>https://news.example.com/b</link>
  <pubDate>Fri, 01 Mar 2024 09:00:00 GMT</pubDate>
  <source url="https://www.cnbc.com">CNBC</source>
</item>
</channel></rss>`

func TestGoogleNewsSource_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	src := NewGoogleNewsSource(time.Second, WithGoogleBaseURL(srv.URL+"/rss/search"))
	items, err := src.Search(context.Background(), "bitcoin", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin when:24h", gotQuery)
	require.Len(t, items, 2)
	assert.Equal(t, "Bitcoin climbs past resistance", items[0].Title)
	assert.Equal(t, "Reuters", items[0].Source)
	assert.Equal(t, "Bitcoin climbs past resistance", items[0].Snippet)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())
}

func TestGoogleNewsSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGoogleNewsSource(time.Second, WithGoogleBaseURL(srv.URL)).Search(context.Background(), "bitcoin", time.Hour)
	assert.Error(t, err)
}

func TestNaverSource_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "date", r.URL.Query().Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
			"title":"<b>비트코인</b> 사상 최고가 &quot;경신&quot;",
			"originallink":"https://www.hankyung.com/article/1",
			"link":"https://n.news.naver.com/1",
			"description":"<b>비트코인</b>이 상승했다",
			"pubDate":"Fri, 01 Mar 2024 19:00:00 +0900"}]}`))
	}))
	defer srv.Close()

	items, err := NewNaverSource("id", "secret", 10, time.Second).WithBaseURL(srv.URL).Search(context.Background(), "비트코인", time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, `비트코인 사상 최고가 "경신"`, items[0].Title)
	assert.Equal(t, "비트코인이 상승했다", items[0].Snippet)
	assert.Equal(t, "hankyung.com", items[0].Source)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())

	_, err = NewNaverSource("bad", "secret", 10, time.Second).WithBaseURL(srv.URL).Search(context.Background(), "x", time.Hour)
	assert.Error(t, err)
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "a b c", stripMarkup("<b>a</b>   b\n c"))
	assert.Equal(t, "", stripMarkup("  "))
	assert.Equal(t, "Tom & Jerry", stripMarkup("Tom &amp; Jerry"))
}
