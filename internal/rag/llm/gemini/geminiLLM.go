package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/customHttpClient"
	"github.com/Kar2410/FLOW-FIX/internal/rag/llm"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewGeminiClient builds a Provider backed by the Gemini API.
func NewGeminiClient(ctx context.Context, cfg config.GoogleConfig) (llm.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google api key is required")
	}
	if cfg.LLMModel == "" {
		return nil, errors.New("gemini model name is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.NewClient(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", cfg.LLMModel)
	return &llmClient{client: c, modelName: cfg.LLMModel, logger: logger}, nil
}

func (c *llmClient) Generate(ctx context.Context, errorMessage string, matches []string, messageHistory []string) (string, error) {
	log := c.logger.With("traceId", config.TraceId(ctx))

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: config.AnalysisSystemPrompt}},
		},
		Temperature: genai.Ptr(config.ModelTemperature),
	}
	userPrompt := llm.BuildUserPrompt(errorMessage, matches, messageHistory)

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(userPrompt), contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	log.Debug("Gemini answered", "matches", len(matches), "chars", len(text))
	return text, nil
}
