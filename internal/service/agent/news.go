package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/samber/lo"
)

const newsSystem = `You are a cryptocurrency news analyst. Focus on news that can move the price in the short term.
Judge the market sentiment from the articles you are given.
Respond ONLY with one JSON object matching this schema, no prose:
` + verdictSchema

func NewNewsAgent(svc llm.Service) *Agent[news.Evidence] {
	precheck := func(e news.Evidence) (bool, string, string) {
		if e.Empty() {
			return false, "no evidence", newsRef(e)
		}
		return true, "", newsRef(e)
	}
	return NewAgent[news.Evidence](AgentNews, svc, newsPrompt, precheck)
}

func newsRef(e news.Evidence) string {
	ref := fmt.Sprintf("items=%d", len(e.Items))
	if len(e.FailedKeywords) > 0 {
		ref += fmt.Sprintf(" failed_keywords=[%s]", strings.Join(e.FailedKeywords, ","))
	}
	return ref
}

type article struct {
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
	Source    string `json:"source,omitempty"`
	Published string `json:"published"`
	AgeHours  string `json:"age_hours"`
	Keyword   string `json:"keyword"`
}

func newsPrompt(e news.Evidence) (llm.Question, string) {
	collectedAt := e.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}
	articles := lo.Map(e.Items, func(it news.Item, _ int) article {
		return article{
			Title:     it.Title,
			Snippet:   it.Snippet,
			Source:    it.Source,
			Published: it.PublishedAt.UTC().Format(time.RFC3339),
			AgeHours:  fmt.Sprintf("%.1f", collectedAt.Sub(it.PublishedAt).Hours()),
			Keyword:   it.Query,
		}
	})
	bundle, _ := json.MarshalIndent(articles, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Search keywords: %s\n", strings.Join(e.Keywords, ", "))
	if len(e.FailedKeywords) > 0 {
		fmt.Fprintf(&b, "Coverage note: fetching failed for keywords [%s]; lower your confidence accordingly.\n",
			strings.Join(e.FailedKeywords, ", "))
	}
	b.WriteString("Articles, newest first:\n")
	b.Write(bundle)
	return llm.Question{System: newsSystem, Content: b.String()}, newsRef(e)
}
