// Package briefing generates and caches periodic LLM briefings over the
// crawled article corpus. Briefings are cached per time bucket; at most one
// generation runs per period/language/topic at a time, and clients poll
// until the cache fills.
package briefing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nightdesk/nightdesk/internal/gateway"
	"github.com/nightdesk/nightdesk/internal/llm"
	"github.com/nightdesk/nightdesk/internal/platform/timeouts"
	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

const (
	// maxArticles bounds how many rows one generation fetches.
	maxArticles = 200
	// digestArticles bounds how many articles feed the prompt digest.
	digestArticles = 80
	// digestSnippet caps per-article content inside the digest.
	digestSnippet = 500
	// contentCap caps how much article text is read from disk per article.
	contentCap = 3000

	generationTemperature = 0.3
	generationMaxTokens   = 2000
)

// Status values returned to clients.
const (
	StatusReady      = "ready"
	StatusGenerating = "generating"
)

// LLMClient is the completion surface the generator needs.
type LLMClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Notifier posts a message when a briefing finishes. Optional.
type Notifier interface {
	SendMessage(ctx context.Context, msg gateway.Message) error
}

// Config wires a Generator.
type Config struct {
	Store       storage.ArticleStore
	ArticlesDir string
	Cache       *Cache
	LLM         LLMClient
	// Language resolves the briefing language per request; defaults to a
	// constant "English" resolver when nil.
	Language func(ctx context.Context) string
	// Notifier and NotifyRoom enable completion notifications when both set.
	Notifier   Notifier
	NotifyRoom string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Response is the briefing API payload. A ready response carries the cached
// Result fields inline at the top level; while generating, only the envelope
// is present. The embedded Result's period/language/topic duplicates are
// shadowed by the envelope fields.
type Response struct {
	Status     string `json:"status"`
	Period     Period `json:"period"`
	Language   string `json:"language"`
	Topic      string `json:"topic"`
	Generating bool   `json:"generating"`
	*Result
}

// Generator owns the briefing cache and the in-flight generation guard.
type Generator struct {
	store       storage.ArticleStore
	articlesDir string
	cache       *Cache
	llmClient   LLMClient
	language    func(ctx context.Context) string
	notifier    Notifier
	notifyRoom  string
	clock       func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("article store is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	language := cfg.Language
	if language == nil {
		language = func(context.Context) string { return "English" }
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Generator{
		store:       cfg.Store,
		articlesDir: cfg.ArticlesDir,
		cache:       cfg.Cache,
		llmClient:   cfg.LLM,
		language:    language,
		notifier:    cfg.Notifier,
		notifyRoom:  strings.TrimSpace(cfg.NotifyRoom),
		clock:       clock,
		inflight:    make(map[string]bool),
	}, nil
}

// Get returns the cached briefing for the current bucket, or kicks off a
// background generation and reports StatusGenerating.
func (g *Generator) Get(ctx context.Context, period Period, topic string, regenerate bool) Response {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = storage.TopicMarket
	}
	language := strings.TrimSpace(g.language(ctx))
	if language == "" {
		language = "English"
	}

	cacheKey := CacheKey(period, language, topic, g.clock())
	if regenerate {
		g.cache.Delete(cacheKey)
	}

	flightKey := fmt.Sprintf("%s:%s:%s", period, language, topic)
	if !regenerate {
		if result, ok := g.cache.Get(cacheKey); ok {
			return Response{
				Status:     StatusReady,
				Period:     period,
				Language:   language,
				Topic:      topic,
				Generating: g.isGenerating(flightKey),
				Result:     &result,
			}
		}
	}

	g.mu.Lock()
	if g.inflight[flightKey] {
		g.mu.Unlock()
		return Response{Status: StatusGenerating, Period: period, Language: language, Topic: topic, Generating: true}
	}
	g.inflight[flightKey] = true
	g.mu.Unlock()

	// The triggering request returns immediately; generation outlives it.
	go g.generate(flightKey, cacheKey, period, language, topic)

	return Response{Status: StatusGenerating, Period: period, Language: language, Topic: topic, Generating: true}
}

func (g *Generator) isGenerating(flightKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[flightKey]
}

func (g *Generator) generate(flightKey, cacheKey string, period Period, language, topic string) {
	defer func() {
		g.mu.Lock()
		delete(g.inflight, flightKey)
		g.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Briefing)
	defer cancel()

	since := g.clock().UTC().Add(-time.Duration(period.Hours()) * time.Hour)
	articles, err := g.store.ListArticlesForTopic(ctx, since, topic, maxArticles)
	if err != nil {
		g.cacheResult(cacheKey, period, language, topic, fmt.Sprintf("Error: %v", err), 0)
		return
	}
	if len(articles) == 0 {
		summary := fmt.Sprintf(
			"No articles found for %s in this period. The crawler may not have ingested articles for this topic yet; try again after the next crawl cycle.",
			topic,
		)
		g.cacheResult(cacheKey, period, language, topic, summary, 0)
		return
	}

	summary, err := g.llmClient.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: g.buildPrompt(articles, period, language, topic)}},
		MaxTokens:   generationMaxTokens,
		Temperature: generationTemperature,
	})
	if err != nil {
		g.cacheResult(cacheKey, period, language, topic, fmt.Sprintf("Error: %v", err), 0)
		return
	}

	g.cacheResult(cacheKey, period, language, topic, summary, len(articles))
	g.notify(ctx, period, topic, len(articles))
}

func (g *Generator) cacheResult(cacheKey string, period Period, language, topic, summary string, count int) {
	result := Result{
		Period:       period,
		Language:     language,
		Topic:        topic,
		Summary:      summary,
		ArticleCount: count,
		GeneratedAt:  g.clock().UTC(),
	}
	if err := g.cache.Put(cacheKey, result); err != nil {
		log.Printf("cache briefing %s: %v", cacheKey, err)
	}
}

func (g *Generator) notify(ctx context.Context, period Period, topic string, count int) {
	if g.notifier == nil || g.notifyRoom == "" {
		return
	}
	text := fmt.Sprintf("%s briefing (%s) ready — %d articles digested.", topic, period.Label(), count)
	if err := g.notifier.SendMessage(ctx, gateway.Message{Text: text, Room: g.notifyRoom}); err != nil {
		log.Printf("briefing notification: %v", err)
	}
}

// buildPrompt renders the digest prompt for one generation.
func (g *Generator) buildPrompt(articles []storage.Article, period Period, language, topic string) string {
	var digest strings.Builder
	for i, article := range articles {
		if i >= digestArticles {
			break
		}
		snippet := ""
		if content := g.readArticleContent(article); content != "" {
			if len(content) > digestSnippet {
				content = content[:digestSnippet]
			}
			snippet = "\n   Content: " + content
		}
		fmt.Fprintf(&digest, "%d. [%s] %s%s\n", i+1, article.PublishAt.Format(time.RFC3339), article.Title, snippet)
	}

	topicInstruction := ""
	topicLabel := ""
	if topic != storage.TopicMarket {
		topicInstruction = fmt.Sprintf("\nFocus specifically on %s and related news. ", topic)
		topicLabel = topic + " "
	}
	langInstruction := ""
	if language != "English" {
		langInstruction = fmt.Sprintf("\n\nIMPORTANT: Write the entire summary in %s. All text must be in %s.", language, language)
	}

	return fmt.Sprintf(`Summarize the following financial news from the %s into a concise briefing.
%s
Group by major themes. For each theme:
- Key developments and their market impact
- Notable stock movements mentioned
- Forward-looking implications

Be concise but informative. Use bullet points.%s

---
%s---

%sBriefing (%s):`,
		period.Label(),
		topicInstruction,
		langInstruction,
		digest.String(),
		topicLabel,
		period.Label(),
	)
}

// readArticleContent loads up to contentCap bytes of stored article text.
func (g *Generator) readArticleContent(article storage.Article) string {
	if g.articlesDir == "" || article.ArticlePath == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(g.articlesDir, filepath.Clean(article.ArticlePath)))
	if err != nil {
		return ""
	}
	if len(data) > contentCap {
		data = data[:contentCap]
	}
	return string(data)
}
