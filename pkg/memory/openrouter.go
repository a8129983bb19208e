// Package memory extracts (subject, predicate, object) facts from item
// content via an OpenRouter chat completion, feeding store.SaveFacts.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openRouterURL is a var, not a const, so tests can point it at an
// httptest server instead of the real API.
var openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient calls OpenRouter's chat completion API over plain
// net/http; there is no browser fetch boundary in this target.
type OpenRouterClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// NewOpenRouterClient creates a new OpenRouter client for fact extraction.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExtractedTriple is one fact candidate the LLM surfaced.
type ExtractedTriple struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResult is the LLM's extracted fact set.
type ExtractionResult struct {
	Facts []ExtractedTriple `json:"facts"`
}

type openRouterRequest struct {
	Model          string          `json:"model"`
	Messages       []openRouterMsg `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// ExtractFacts asks the model for the (subject, predicate, object) facts
// implied by content. Any confidence outside [0, 1] is replaced by 0.5;
// triples are otherwise returned as the model produced them.
func (c *OpenRouterClient) ExtractFacts(ctx context.Context, content string) (*ExtractionResult, error) {
	body := openRouterRequest{
		Model: c.model,
		Messages: []openRouterMsg{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: buildExtractionPrompt(content)},
		},
		Temperature:    0.3,
		MaxTokens:      4096,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("memory: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("memory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "Chronicle")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memory: OpenRouter request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("memory: read response: %w", err)
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("memory: parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("memory: OpenRouter API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("memory: empty response from OpenRouter")
	}

	content = parsed.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("memory: empty content in response")
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("memory: parse extraction result: %w", err)
	}

	for i := range result.Facts {
		if result.Facts[i].Confidence < 0 || result.Facts[i].Confidence > 1 {
			result.Facts[i].Confidence = 0.5
		}
	}

	return &result, nil
}

const extractionSystemPrompt = `You are a fact extraction system. Your task is to extract (subject, predicate, object) triples from text.

You must return a JSON object with this exact structure:
{
  "facts": [
    {
      "subject": "the entity the fact is about",
      "predicate": "the relationship or attribute, in snake_case",
      "object": "the value or related entity",
      "confidence": 0.0-1.0
    }
  ]
}

Extraction rules:
1. Extract only EXPLICIT information, not assumptions or implications.
2. Each triple should be atomic: one subject, one predicate, one object.
3. Prefer specific predicates over vague ones ("lives_in" over "related_to").
4. Ignore greetings, pleasantries, and meta-conversation.
5. A later fact about the same (subject, predicate) pair supersedes an earlier one; extract the current truth, not the history.
6. Assign high confidence (0.8-1.0) only for explicit, unambiguous statements.
7. Assign medium confidence (0.5-0.7) for implied or contextual information.
8. Assign low confidence (0.0-0.4) for uncertain or ambiguous extractions.

If no facts can be extracted, return: {"facts": []}`

func buildExtractionPrompt(content string) string {
	return "Extract facts from the following text:\n\n" + content
}
