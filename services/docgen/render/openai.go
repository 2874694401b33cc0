// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

// secretKeyPath is where container runtimes mount the API key secret.
const secretKeyPath = "/run/secrets/openai_api_key"

// LLMConfig configures the OpenAI-compatible renderer.
type LLMConfig struct {
	// Model is the chat model name. Empty selects gpt-4o-mini.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint for OpenAI-compatible local
	// servers (llama.cpp, Ollama, vLLM). Empty uses api.openai.com.
	BaseURL string `yaml:"base_url"`

	// Temperature for generation. Section prose should be boring.
	Temperature float32 `yaml:"temperature"`

	// MaxTokens caps the completion length per section.
	MaxTokens int `yaml:"max_tokens"`

	// RequestsPerMinute rate-limits outbound calls. Zero disables
	// limiting, which is only sensible against a local server.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxChunkChars truncates each evidence chunk in the prompt.
	MaxChunkChars int `yaml:"max_chunk_chars"`
}

// DefaultLLMConfig returns conservative generation settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:             "gpt-4o-mini",
		Temperature:       0.2,
		MaxTokens:         700,
		RequestsPerMinute: 20,
		MaxChunkChars:     1200,
	}
}

// LLMRenderer writes section prose with an OpenAI-compatible chat model.
//
// The prompt carries the section's facts and evidence chunks and instructs
// the model to claim nothing beyond them. Output is still validated; this
// renderer tries to make rejection rare, not impossible.
//
// Thread Safety: Safe for concurrent use; the rate limiter serializes
// bursts across goroutines.
type LLMRenderer struct {
	client  *openai.Client
	config  LLMConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Renderer = (*LLMRenderer)(nil)

// NewLLMRenderer builds a renderer against the configured endpoint.
//
// The API key comes from OPENAI_API_KEY or, failing that, the mounted
// secret file. A missing key is an error unless BaseURL points at a
// local server, which typically ignores authentication.
func NewLLMRenderer(config LLMConfig, logger *slog.Logger) (*LLMRenderer, error) {
	def := DefaultLLMConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.MaxChunkChars <= 0 {
		config.MaxChunkChars = def.MaxChunkChars
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		if raw, err := os.ReadFile(secretKeyPath); err == nil {
			apiKey = strings.TrimSpace(string(raw))
			logger.Info("read API key from mounted secret", "path", secretKeyPath)
		}
	}
	if apiKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set and secret not found at %s", secretKeyPath)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)
	}

	logger.Info("initializing LLM renderer", "model", config.Model, "base_url", clientConfig.BaseURL)
	return &LLMRenderer{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// RenderSection generates the body for one section from its evidence.
func (r *LLMRenderer) RenderSection(ctx context.Context, sectionKey string, ev *evidence.SectionEvidence) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:               r.config.Model,
		Temperature:         r.config.Temperature,
		MaxCompletionTokens: r.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: r.buildPrompt(sectionKey, ev)},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		r.logger.Error("chat completion failed", "section", sectionKey, "error", err)
		return "", fmt.Errorf("chat completion for section %s: %w", sectionKey, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion for section %s: no choices returned", sectionKey)
	}
	r.logger.Debug("rendered section", "section", sectionKey,
		"finish_reason", resp.Choices[0].FinishReason)
	return cleanOutput(resp.Choices[0].Message.Content, sectionKey), nil
}

const systemPrompt = `You are a technical writer updating one section of a README.
Write only what the provided evidence supports. Never invent versions,
dependencies, commands, or capabilities. Prefer short declarative
sentences that reuse the exact names and numbers from the evidence.
Output plain Markdown for the section body only, starting with its
"## " heading. Do not output HTML comments.`

// buildPrompt assembles the user prompt from section evidence.
func (r *LLMRenderer) buildPrompt(sectionKey string, ev *evidence.SectionEvidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the %q section (heading %q).\n\n", sectionKey, Title(sectionKey))

	if ev != nil && len(ev.Facts) > 0 {
		b.WriteString("Observed facts (authoritative; cite freely):\n")
		for _, fact := range ev.Facts {
			fmt.Fprintf(&b, "- %s\n", factBullet(fact))
		}
		b.WriteString("\n")
	}
	if ev != nil && len(ev.Chunks) > 0 {
		b.WriteString("Repository excerpts (supporting context):\n")
		for _, chunk := range ev.Chunks {
			text := chunk.Text
			if len(text) > r.config.MaxChunkChars {
				text = text[:r.config.MaxChunkChars]
			}
			fmt.Fprintf(&b, "--- %s ---\n%s\n", chunk.SourcePath, text)
		}
		b.WriteString("\n")
	}
	if ev == nil || (len(ev.Facts) == 0 && len(ev.Chunks) == 0) {
		b.WriteString("No evidence is available. Write a minimal placeholder that makes no factual claims.\n")
	}
	return b.String()
}

// cleanOutput strips code-fence wrapping and any marker comments the model
// emitted despite instructions, and guarantees a section heading.
func cleanOutput(text, sectionKey string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "<!--") {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.TrimSpace(strings.Join(kept, "\n"))
	if !strings.HasPrefix(text, "#") {
		text = fmt.Sprintf("## %s\n\n%s", Title(sectionKey), text)
	}
	return text + "\n"
}
