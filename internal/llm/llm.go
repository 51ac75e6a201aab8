package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal completion surface the pipeline depends on; tests
// substitute a fake.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// NewClient builds a go-openai client. Setting APIVersion selects the Azure
// OpenAI flavor, where the model name in requests is the deployment name.
func NewClient(cfg Config) (*openai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var clientConfig openai.ClientConfig
	if strings.TrimSpace(cfg.APIVersion) != "" {
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("base URL is required for the azure flavor")
		}
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.BaseURL, "/"))
		clientConfig.APIVersion = cfg.APIVersion
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if strings.TrimSpace(cfg.BaseURL) != "" {
			clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return openai.NewClientWithConfig(clientConfig), nil
}

// SamplingTemperature maps a configured temperature onto the request field.
// The request struct tags Temperature with omitempty, so a plain zero never
// reaches the wire and the API falls back to its default of 1. The smallest
// nonzero float32 is the library convention for asking for temperature 0
// explicitly; it marshals as a temperature key and the API clamps it to 0.
func SamplingTemperature(value float64) float32 {
	if value == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(value)
}

// FirstChoice extracts the trimmed text of the top completion.
func FirstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
