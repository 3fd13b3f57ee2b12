package azureOpenAI

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/customHttpClient"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const requestTimeout = 90 * time.Second

type chatClient struct {
	oa         openai.Client
	deployment string
	logger     *logger_i.Logger
}

// NewChatClient builds a Provider for an Azure OpenAI chat deployment.
func NewChatClient(cfg config.ProviderConfig) (llm.Provider, error) {
	switch {
	case cfg.APIKey == "":
		return nil, errors.New("azure api key is required")
	case cfg.Endpoint == "":
		return nil, errors.New("azure endpoint is required")
	case cfg.DeploymentName == "":
		return nil, errors.New("azure chat deployment name is required")
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2024-02-15-preview"
	}
	oa := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, version),
		azure.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(customHttpClient.NewClient(requestTimeout)),
		option.WithMaxRetries(2),
	)
	logger := logger_i.NewLogger("llm_azure")
	logger.Info("Azure chat client created", "deployment", cfg.DeploymentName)
	return &chatClient{oa: oa, deployment: cfg.DeploymentName, logger: logger}, nil
}

func (c *chatClient) Generate(ctx context.Context, errorMessage string, matches []string, messageHistory []string) (string, error) {
	log := c.logger.With("traceId", config.TraceId(ctx))

	resp, err := c.oa.Chat.Completions.New(ctx, chatParams(c.deployment, errorMessage, matches, messageHistory))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Error("Azure chat request rejected", "status", apiErr.StatusCode, "error", err)
		} else {
			log.Error("Azure chat request failed", "error", err)
		}
		return "", fmt.Errorf("azure chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func chatParams(deployment, errorMessage string, matches, messageHistory []string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.AnalysisSystemPrompt),
			openai.UserMessage(llm.BuildUserPrompt(errorMessage, matches, messageHistory)),
		},
		Temperature: openai.Float(float64(config.ModelTemperature)),
	}
}
