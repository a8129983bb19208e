package memory

import (
	"context"
	"fmt"

	"github.com/bojanni/Chronicle/internal/store"
)

// Extractor turns an item's content into the fact triples SaveFacts
// persists. Disabled (ExtractFacts becomes a no-op) when no API key or
// model is configured, so a Chronicle deployment without an OpenRouter
// key still runs, just without automatic fact extraction.
type Extractor struct {
	llm     *OpenRouterClient
	enabled bool
}

// Config holds the extractor's OpenRouter settings. There are no
// hardcoded model defaults: both fields must come from deployment
// configuration.
type Config struct {
	OpenRouterKey string
	Model         string
}

// NewExtractor constructs an Extractor. Passing an empty key or model
// disables extraction rather than erroring, since fact extraction is an
// optional enrichment on top of the core archive.
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{enabled: cfg.OpenRouterKey != "" && cfg.Model != ""}
	if e.enabled {
		e.llm = NewOpenRouterClient(OpenRouterConfig{APIKey: cfg.OpenRouterKey, Model: cfg.Model})
	}
	return e
}

// IsEnabled reports whether this Extractor will actually call out to an
// LLM.
func (e *Extractor) IsEnabled() bool {
	return e.enabled && e.llm != nil
}

// ExtractFacts extracts facts from content and hands them to SaveFacts
// against chatID. Returns (0, nil) rather than an error when extraction
// is disabled.
func (e *Extractor) ExtractFacts(ctx context.Context, s store.Storer, chatID, content string) (int, error) {
	if !e.IsEnabled() {
		return 0, nil
	}

	result, err := e.llm.ExtractFacts(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("extract facts: %w", err)
	}
	if len(result.Facts) == 0 {
		return 0, nil
	}

	extracted := make([]store.ExtractedFact, 0, len(result.Facts))
	for _, t := range result.Facts {
		if t.Subject == "" || t.Predicate == "" {
			continue
		}
		extracted = append(extracted, store.ExtractedFact{
			Subject:    t.Subject,
			Predicate:  t.Predicate,
			Object:     t.Object,
			Confidence: t.Confidence,
		})
	}
	if len(extracted) == 0 {
		return 0, nil
	}

	if err := s.SaveFacts(ctx, chatID, extracted); err != nil {
		return 0, fmt.Errorf("save extracted facts: %w", err)
	}
	return len(extracted), nil
}
