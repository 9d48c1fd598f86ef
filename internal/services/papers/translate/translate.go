// Package translate produces cached LLM translations of paper abstracts.
// Translation is on demand: the paper detail endpoint only reads the cache,
// and a separate endpoint fills it so page loads never block on the LLM.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nightdesk/nightdesk/internal/llm"
	"github.com/nightdesk/nightdesk/internal/platform/timeouts"
	"github.com/nightdesk/nightdesk/internal/services/papers/storage"
)

const (
	translationTemperature = 0.1
	translationMaxTokens   = 2000
)

// LLMClient is the completion surface the translator needs.
type LLMClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Config wires a Translator.
type Config struct {
	Store storage.TranslationStore
	LLM   LLMClient
	// Language resolves the target language per request; empty means
	// translation is disabled.
	Language func(ctx context.Context) string
}

// Result is the outcome of one translation request.
type Result struct {
	// Translated is empty when translation is disabled, the abstract is
	// empty, or the LLM call failed.
	Translated string
	Language   string
}

// Translator reads and fills the abstract translation cache.
type Translator struct {
	store    storage.TranslationStore
	llm      LLMClient
	language func(ctx context.Context) string
}

// New builds a Translator from cfg.
func New(cfg Config) (*Translator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("translation store is required")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	language := cfg.Language
	if language == nil {
		language = func(context.Context) string { return "" }
	}
	return &Translator{store: cfg.Store, llm: cfg.LLM, language: language}, nil
}

// Cached returns the cached translation for a paper without calling the LLM.
// The result is empty when translation is disabled or the cache is cold.
func (t *Translator) Cached(ctx context.Context, paper storage.Paper) Result {
	language := strings.TrimSpace(t.language(ctx))
	if language == "" || strings.TrimSpace(paper.Abstract) == "" {
		return Result{Language: language}
	}
	translated, err := t.store.GetTranslation(ctx, paper.ID, language)
	if err != nil {
		return Result{Language: language}
	}
	return Result{Translated: translated, Language: language}
}

// Translate returns the translated abstract, filling the cache through the
// LLM on a miss. LLM failures degrade to an empty translation.
func (t *Translator) Translate(ctx context.Context, paper storage.Paper) Result {
	language := strings.TrimSpace(t.language(ctx))
	if language == "" || strings.TrimSpace(paper.Abstract) == "" {
		return Result{Language: language}
	}

	cached, err := t.store.GetTranslation(ctx, paper.ID, language)
	if err == nil {
		return Result{Translated: cached, Language: language}
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("read translation cache for %s: %v", paper.PaperID, err)
	}

	llmCtx, cancel := context.WithTimeout(ctx, timeouts.Translate)
	defer cancel()
	translated, err := t.llm.Complete(llmCtx, llm.Request{
		Messages: []llm.Message{
			{
				Role:    llm.RoleSystem,
				Content: fmt.Sprintf("Translate the following academic abstract to %s. Return ONLY the translation, no preamble.", language),
			},
			{Role: llm.RoleUser, Content: paper.Abstract},
		},
		MaxTokens:   translationMaxTokens,
		Temperature: translationTemperature,
	})
	if err != nil {
		log.Printf("translate abstract for %s: %v", paper.PaperID, err)
		return Result{Language: language}
	}
	if translated == "" {
		return Result{Language: language}
	}

	if err := t.store.SaveTranslation(ctx, paper.ID, language, translated); err != nil {
		log.Printf("cache translation for %s: %v", paper.PaperID, err)
	}
	return Result{Translated: translated, Language: language}
}
