package nl2sql

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fininsight/fininsight/internal/llm"
)

type OpenAIConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAITranslator turns one natural-language question plus a schema text
// block into a single SQL statement. The statement is returned as the model
// produced it (markdown fences aside); execution-side guards live with the
// caller.
type OpenAITranslator struct {
	client      llm.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAITranslator(client llm.Client, cfg OpenAIConfig) (*OpenAITranslator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &OpenAITranslator{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, fmt.Errorf("question is required")
	}

	systemPrompt := fmt.Sprintf(
		"You are a financial analytics SQL expert. Given a user question and the table schema, "+
			"generate a safe, optimized SQL query to answer the question. "+
			"Only use columns and tables present in the schema. Do not hallucinate. "+
			"Return only the SQL query.\n\nSchema:\n%s",
		req.SchemaText,
	)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Question},
		},
		MaxTokens:   t.maxTokens,
		Temperature: llm.SamplingTemperature(t.temperature),
	})
	if err != nil {
		return Result{}, fmt.Errorf("request sql completion: %w", err)
	}

	content, err := llm.FirstChoice(resp)
	if err != nil {
		return Result{}, err
	}
	sql := stripMarkdownSQL(content)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{SQL: sql, Model: t.model}, nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
