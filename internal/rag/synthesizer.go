package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fininsight/fininsight/internal/llm"
)

// Synthesizer turns masked query results back into prose.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, rows []map[string]any) (string, error)
}

type SynthesizerConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

type OpenAISynthesizer struct {
	client      llm.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAISynthesizer(client llm.Client, cfg SynthesizerConfig) (*OpenAISynthesizer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &OpenAISynthesizer{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, question string, rows []map[string]any) (string, error) {
	// The full row set goes into the prompt; no truncation or pagination.
	prompt := fmt.Sprintf(
		"Context:\n%s\n\nUser Query: %s\n\nAnswer as a financial analytics expert. "+
			"Provide a summary and, if relevant, a table or chart-ready data.",
		contextBlock(rows),
		question,
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a financial analytics assistant."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: llm.SamplingTemperature(s.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("request answer completion: %w", err)
	}
	return llm.FirstChoice(resp)
}

// contextBlock renders one row per line with keys sorted so the prompt is
// deterministic across runs.
func contextBlock(rows []map[string]any) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s: %v", key, row[key]))
		}
		lines = append(lines, "{"+strings.Join(pairs, ", ")+"}")
	}
	return strings.Join(lines, "\n")
}
