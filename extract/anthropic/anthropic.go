// Package anthropic provides a Claude-backed candidate extractor. The model
// is prompted to return a JSON array of fact candidates which is parsed into
// core.Candidate values; anything the model returns outside the JSON array
// is ignored.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/memoweave/memoweave/core"
)

// Options configures the Anthropic extractor (model id, max tokens, API key).
// Extend via functional options to preserve stability.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Extractor wraps the Anthropic Messages API behind the generic
// core.Extractor interface.
type Extractor struct {
	client *anthropic.Client
	opts   Options
}

var _ core.Extractor = (*Extractor)(nil)

// New creates a new Anthropic extractor using the official client
func New(optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Extractor{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic extractor from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Extractor{
		client: client,
		opts:   opts,
	}
}

const systemPrompt = `You extract durable personal facts from a user utterance.
Return ONLY a JSON array. Each element: {"person": "", "type": "preference|profile_fact|contact|work_context|task_hint",
"key": "short snake_case slot name", "value": "the fact value", "confidence": 0.0-1.0}.
"person" is empty when the fact is about the speaker. Return [] when no durable fact is present.`

// Extract prompts the model with the utterance and parses the returned
// JSON array into candidates. Invalid elements are dropped rather than
// failing the whole extraction.
func (e *Extractor) Extract(ctx context.Context, utterance, personContext string) ([]core.Candidate, error) {
	user := utterance
	if personContext != "" {
		user = fmt.Sprintf("Conversation is about: %s\n\n%s", personContext, utterance)
	}

	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.opts.Model,
		MaxTokens: e.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic extract: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return parseCandidates(text.String())
}

// parseCandidates locates the JSON array in the model output and decodes it,
// dropping elements with an unknown type or empty key/value.
func parseCandidates(text string) ([]core.Candidate, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, nil
	}

	var raw []core.Candidate
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("anthropic extract: parse response: %w", err)
	}

	out := make([]core.Candidate, 0, len(raw))
	for _, c := range raw {
		// Models occasionally shorten the profile type despite the prompt.
		if c.Type == "profile" {
			c.Type = core.FactProfile
		}
		if !c.Type.Valid() || strings.TrimSpace(c.Key) == "" || strings.TrimSpace(c.Value) == "" {
			continue
		}
		if c.Confidence <= 0 || c.Confidence > 1 {
			c.Confidence = 0.5
		}
		out = append(out, c)
	}
	return out, nil
}
