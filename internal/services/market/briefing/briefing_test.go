package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nightdesk/nightdesk/internal/gateway"
	"github.com/nightdesk/nightdesk/internal/llm"
	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

type fakeArticleStore struct {
	articles []storage.Article
	err      error
}

func (f *fakeArticleStore) ArticleStats(context.Context) (storage.Stats, error) {
	return storage.Stats{}, nil
}

func (f *fakeArticleStore) ListHeadlines(context.Context, time.Time, int) ([]storage.Article, error) {
	return nil, nil
}

func (f *fakeArticleStore) GetArticleByURL(context.Context, string) (storage.Article, error) {
	return storage.Article{}, storage.ErrNotFound
}

func (f *fakeArticleStore) CountArticlesByTopic(context.Context, time.Time) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeArticleStore) ListArticlesForTopic(context.Context, time.Time, string, int) ([]storage.Article, error) {
	return f.articles, f.err
}

type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	block    chan struct{}
	prompt   string
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	if len(req.Messages) > 0 {
		f.prompt = req.Messages[len(req.Messages)-1].Content
	}
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []gateway.Message
}

func (f *fakeNotifier) SendMessage(_ context.Context, msg gateway.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeNotifier) sent() []gateway.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Message(nil), f.messages...)
}

func waitForReady(t *testing.T, g *Generator, period Period, topic string) Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := g.Get(context.Background(), period, topic, false)
		if resp.Status == StatusReady {
			return resp
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("briefing never became ready")
	return Response{}
}

func newTestGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	if cfg.Cache == nil {
		cfg.Cache = NewCache(t.TempDir())
	}
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func sampleArticles(n int) []storage.Article {
	articles := make([]storage.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, storage.Article{
			Title:     fmt.Sprintf("Headline %d", i),
			URL:       fmt.Sprintf("https://news.example/%d", i),
			Status:    storage.StatusDone,
			PublishAt: time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC),
		})
	}
	return articles
}

func TestCacheKeyStableWithinBucket(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 20, 13, 10, 0, 0, time.UTC)
	later := now.Add(30 * time.Minute) // still hour 13, same 3-hour bucket

	a := CacheKey(Period12h, "English", "Market", now)
	b := CacheKey(Period12h, "English", "Market", later)
	if a != b {
		t.Fatalf("keys differ within bucket: %q vs %q", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("key length = %d, want 12", len(a))
	}
}

func TestCacheKeyChangesAcrossBucketsAndInputs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 20, 13, 0, 0, 0, time.UTC)
	base := CacheKey(Period12h, "English", "Market", now)

	if got := CacheKey(Period12h, "English", "Market", now.Add(3*time.Hour)); got == base {
		t.Fatal("expected new bucket to produce a new key")
	}
	if got := CacheKey(Period12h, "Portuguese", "Market", now); got == base {
		t.Fatal("expected language to affect key")
	}
	if got := CacheKey(Period12h, "English", "NVDA", now); got == base {
		t.Fatal("expected topic to affect key")
	}
	if got := CacheKey(Period24h, "English", "Market", now); got == base {
		t.Fatal("expected period to affect key")
	}
}

func TestWeeklyBucketUsesISOWeek(t *testing.T) {
	t.Parallel()

	// Monday and Friday of the same ISO week share a bucket.
	monday := time.Date(2026, time.August, 17, 2, 0, 0, 0, time.UTC)
	friday := time.Date(2026, time.August, 21, 22, 0, 0, 0, time.UTC)
	if CacheKey(PeriodWeekly, "English", "Market", monday) != CacheKey(PeriodWeekly, "English", "Market", friday) {
		t.Fatal("expected same ISO week to share a cache key")
	}
	nextWeek := monday.AddDate(0, 0, 7)
	if CacheKey(PeriodWeekly, "English", "Market", monday) == CacheKey(PeriodWeekly, "English", "Market", nextWeek) {
		t.Fatal("expected next ISO week to change the cache key")
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"12h", "24h", "weekly"} {
		if _, err := ParsePeriod(valid); err != nil {
			t.Fatalf("parse %q: %v", valid, err)
		}
	}
	if _, err := ParsePeriod("monthly"); err == nil {
		t.Fatal("expected invalid period error")
	}
}

func TestGetGeneratesThenServesFromCache(t *testing.T) {
	t.Parallel()

	llmFake := &fakeLLM{response: "- Markets rallied."}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{articles: sampleArticles(3)},
		LLM:   llmFake,
	})

	first := g.Get(context.Background(), Period24h, "", false)
	if first.Status != StatusGenerating {
		t.Fatalf("first status = %q, want generating", first.Status)
	}
	if first.Topic != storage.TopicMarket {
		t.Fatalf("topic = %q, want default Market", first.Topic)
	}

	ready := waitForReady(t, g, Period24h, "Market")
	if ready.Result == nil {
		t.Fatal("expected result on ready response")
	}
	if ready.Result.Summary != "- Markets rallied." {
		t.Fatalf("summary = %q", ready.Result.Summary)
	}
	if ready.Result.ArticleCount != 3 {
		t.Fatalf("article count = %d, want 3", ready.Result.ArticleCount)
	}
	if llmFake.callCount() != 1 {
		t.Fatalf("llm calls = %d, want 1", llmFake.callCount())
	}
}

func TestGetSuppressesDuplicateGenerations(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	llmFake := &fakeLLM{response: "summary", block: block}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{articles: sampleArticles(1)},
		LLM:   llmFake,
	})

	_ = g.Get(context.Background(), Period12h, "Market", false)
	for i := 0; i < 5; i++ {
		resp := g.Get(context.Background(), Period12h, "Market", false)
		if resp.Status != StatusGenerating {
			t.Fatalf("status = %q, want generating while in flight", resp.Status)
		}
	}
	close(block)
	waitForReady(t, g, Period12h, "Market")
	if llmFake.callCount() != 1 {
		t.Fatalf("llm calls = %d, want 1", llmFake.callCount())
	}
}

func TestGenerationErrorIsCached(t *testing.T) {
	t.Parallel()

	llmFake := &fakeLLM{err: errors.New("upstream overloaded")}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{articles: sampleArticles(1)},
		LLM:   llmFake,
	})

	_ = g.Get(context.Background(), Period24h, "Market", false)
	ready := waitForReady(t, g, Period24h, "Market")
	if !strings.HasPrefix(ready.Result.Summary, "Error:") {
		t.Fatalf("summary = %q, want cached error text", ready.Result.Summary)
	}
	if ready.Result.ArticleCount != 0 {
		t.Fatalf("article count = %d, want 0", ready.Result.ArticleCount)
	}
}

func TestEmptyWindowCachesExplanation(t *testing.T) {
	t.Parallel()

	llmFake := &fakeLLM{response: "unused"}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{},
		LLM:   llmFake,
	})

	_ = g.Get(context.Background(), PeriodWeekly, "NVDA", false)
	ready := waitForReady(t, g, PeriodWeekly, "NVDA")
	if !strings.Contains(ready.Result.Summary, "No articles found for NVDA") {
		t.Fatalf("summary = %q", ready.Result.Summary)
	}
	if llmFake.callCount() != 0 {
		t.Fatalf("llm calls = %d, want 0 for empty window", llmFake.callCount())
	}
}

func TestRegenerateClearsCacheAndRunsAgain(t *testing.T) {
	t.Parallel()

	llmFake := &fakeLLM{response: "first"}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{articles: sampleArticles(1)},
		LLM:   llmFake,
	})

	_ = g.Get(context.Background(), Period24h, "Market", false)
	waitForReady(t, g, Period24h, "Market")

	resp := g.Get(context.Background(), Period24h, "Market", true)
	if resp.Status != StatusGenerating {
		t.Fatalf("status after regenerate = %q, want generating", resp.Status)
	}
	waitForReady(t, g, Period24h, "Market")
	if llmFake.callCount() != 2 {
		t.Fatalf("llm calls = %d, want 2 after regenerate", llmFake.callCount())
	}
}

func TestPromptIncludesTopicLanguageAndContent(t *testing.T) {
	t.Parallel()

	articlesDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(articlesDir, "2026"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(articlesDir, "2026", "a.txt"), []byte("Nvidia shipped a new accelerator."), 0o644); err != nil {
		t.Fatalf("write article: %v", err)
	}

	llmFake := &fakeLLM{response: "resumo"}
	g := newTestGenerator(t, Config{
		Store: &fakeArticleStore{articles: []storage.Article{{
			Title:       "Accelerator launch",
			URL:         "https://news.example/accel",
			Ticker:      "NVDA",
			Status:      storage.StatusDone,
			PublishAt:   time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC),
			ArticlePath: "2026/a.txt",
		}}},
		ArticlesDir: articlesDir,
		LLM:         llmFake,
		Language:    func(context.Context) string { return "Portuguese" },
	})

	_ = g.Get(context.Background(), Period12h, "NVDA", false)
	waitForReady(t, g, Period12h, "NVDA")

	llmFake.mu.Lock()
	prompt := llmFake.prompt
	llmFake.mu.Unlock()
	for _, marker := range []string{
		"Focus specifically on NVDA",
		"Write the entire summary in Portuguese",
		"Accelerator launch",
		"Nvidia shipped a new accelerator.",
		"NVDA Briefing (last 12 hours):",
	} {
		if !strings.Contains(prompt, marker) {
			t.Fatalf("prompt missing %q:\n%s", marker, prompt)
		}
	}
}

func TestSuccessfulGenerationNotifies(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	g := newTestGenerator(t, Config{
		Store:      &fakeArticleStore{articles: sampleArticles(2)},
		LLM:        &fakeLLM{response: "summary"},
		Notifier:   notifier,
		NotifyRoom: "briefings",
	})

	_ = g.Get(context.Background(), Period24h, "Market", false)
	waitForReady(t, g, Period24h, "Market")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(notifier.sent()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	sent := notifier.sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].Room != "briefings" {
		t.Fatalf("room = %q", sent[0].Room)
	}
	if !strings.Contains(sent[0].Text, "Market briefing") {
		t.Fatalf("text = %q", sent[0].Text)
	}
}

func TestErrorGenerationDoesNotNotify(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	g := newTestGenerator(t, Config{
		Store:      &fakeArticleStore{err: errors.New("db gone")},
		LLM:        &fakeLLM{response: "unused"},
		Notifier:   notifier,
		NotifyRoom: "briefings",
	})

	_ = g.Get(context.Background(), Period24h, "Market", false)
	waitForReady(t, g, Period24h, "Market")
	if len(notifier.sent()) != 0 {
		t.Fatalf("notifications = %d, want 0", len(notifier.sent()))
	}
}

func TestCachePutGetDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	cache := NewCache(filepath.Join(t.TempDir(), "summaries"))
	result := Result{
		Period:       Period24h,
		Language:     "English",
		Topic:        "Market",
		Summary:      "- calm day",
		ArticleCount: 4,
		GeneratedAt:  time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC),
	}
	if err := cache.Put("abc123def456", result); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := cache.Get("abc123def456")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Summary != result.Summary || got.ArticleCount != result.ArticleCount {
		t.Fatalf("got = %+v", got)
	}
	cache.Delete("abc123def456")
	if _, ok := cache.Get("abc123def456"); ok {
		t.Fatal("expected cache miss after delete")
	}
}

func TestResponseFlattensResultFields(t *testing.T) {
	t.Parallel()

	ready := Response{
		Status:     StatusReady,
		Period:     Period24h,
		Language:   "English",
		Topic:      "Market",
		Generating: false,
		Result: &Result{
			Period:       Period24h,
			Language:     "English",
			Topic:        "Market",
			Summary:      "- calm day",
			ArticleCount: 0,
			GeneratedAt:  time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC),
		},
	}
	data, err := json.Marshal(ready)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["summary"] != "- calm day" {
		t.Fatalf("summary = %v, want top-level summary", payload["summary"])
	}
	if count, ok := payload["article_count"].(float64); !ok || count != 0 {
		t.Fatalf("article_count = %v, want 0", payload["article_count"])
	}
	if _, ok := payload["generated_at"]; !ok {
		t.Fatal("expected top-level generated_at")
	}
	if _, ok := payload["result"]; ok {
		t.Fatal("unexpected nested result key")
	}

	generating := Response{Status: StatusGenerating, Period: Period24h, Language: "English", Topic: "Market", Generating: true}
	data, err = json.Marshal(generating)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	payload = map[string]any{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := payload["summary"]; ok {
		t.Fatal("unexpected summary while generating")
	}
	if payload["status"] != StatusGenerating {
		t.Fatalf("status = %v", payload["status"])
	}
}
