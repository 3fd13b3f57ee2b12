package embedding

import "context"

// Embedder turns text into fixed-dimension vectors. The same text must map to the
// same vector for a given model so rankings stay stable.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	// BatchEmbedding returns one vector per input in input order. isHugeDataSet
	// lets a provider switch to an asynchronous batch API.
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
}

// HugeDataSetThreshold is the batch size above which providers may use async batch jobs.
const HugeDataSetThreshold = 1000
