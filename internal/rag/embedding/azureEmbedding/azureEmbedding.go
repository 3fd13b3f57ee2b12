package azureEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/customHttpClient"
	"github.com/Kar2410/FLOW-FIX/internal/rag/embedding"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const requestTimeout = 60 * time.Second

// maxInputsPerRequest is the Azure OpenAI limit on inputs per embeddings call.
const maxInputsPerRequest = 2048

type client struct {
	oa         openai.Client
	deployment string
	logger     *logger_i.Logger
}

// NewAzureEmbedder builds an Embedder for an Azure OpenAI embedding deployment.
func NewAzureEmbedder(cfg config.ProviderConfig) (embedding.Embedder, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	oa := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(customHttpClient.NewClient(requestTimeout)),
		option.WithMaxRetries(2),
	)
	logger := logger_i.NewLogger("azure_embedding")
	logger.Info("Azure embedding client created", "deployment", cfg.DeploymentName)
	return &client{oa: oa, deployment: cfg.DeploymentName, logger: logger}, nil
}

func validate(cfg config.ProviderConfig) error {
	var errs []error
	if cfg.APIKey == "" {
		errs = append(errs, errors.New("azure api key is required"))
	}
	if cfg.Endpoint == "" {
		errs = append(errs, errors.New("azure endpoint is required"))
	}
	if cfg.DeploymentName == "" {
		errs = append(errs, errors.New("azure deployment name is required"))
	}
	if cfg.APIVersion == "" {
		errs = append(errs, errors.New("azure api version is required"))
	}
	return errors.Join(errs...)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbedding splits large inputs into requests of at most maxInputsPerRequest.
// Azure has no asynchronous batch API for embeddings, so isHugeDataSet is ignored.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += maxInputsPerRequest {
		end := min(start+maxInputsPerRequest, len(chunks))
		vectors, err := c.embed(ctx, chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("chunks %d-%d: %w", start, end-1, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.With("traceId", config.TraceId(ctx))
	start := time.Now()
	resp, err := c.oa.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(c.deployment),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Error("Azure embedding request failed", "status", apiErr.StatusCode, "error", err)
		} else {
			log.Error("Azure embedding request failed", "error", err)
		}
		return nil, err
	}
	log.Debug("Azure embedding call", "inputs", len(texts), "duration", time.Since(start))
	return toVectors(resp.Data, len(texts))
}

// toVectors orders the response by its index field and narrows to float32.
func toVectors(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("azure returned %d embeddings for %d inputs", len(data), want)
	}
	out := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || int(d.Index) >= want {
			return nil, fmt.Errorf("azure returned embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("azure returned no embedding for input %d", i)
		}
	}
	return out, nil
}
