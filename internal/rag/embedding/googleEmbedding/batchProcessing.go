package googleEmbedding

import (
	"context"
	"fmt"
	"time"

	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry reports whether err is a rate limit worth one retry.
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

func (c *client) getInlinedBatchRequests(chunks []string) *genai.EmbedContentBatch {
	return &genai.EmbedContentBatch{
		Config: &genai.EmbedContentConfig{
			OutputDimensionality: &c.dimension,
			TaskType:             taskTypeDocument,
		},
		Contents: getContent(chunks),
	}
}

func (c *client) pollForAnswer(ctx context.Context, batchJobName string, log *logger_i.Logger) (*genai.BatchJob, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Error("Batch embedding poll cancelled", "error", ctx.Err())
			return nil, ctx.Err()

		case <-ticker.C:
			bJob, err := c.genAi.Batches.Get(ctx, batchJobName, nil)
			if err != nil {
				log.Warn("Error getting batch job", "error", err)
				continue
			}

			//https://pkg.go.dev/google.golang.org/genai@v1.41.1#JobState
			switch bJob.State {
			case "JOB_STATE_SUCCEEDED":
				log.Debug("Batch job succeeded")
				return bJob, nil
			case "JOB_STATE_FAILED":
				msg := "unknown"
				if bJob.Error != nil {
					msg = bJob.Error.Message
				}
				return nil, fmt.Errorf("batch job %s failed: %s", batchJobName, msg)
			case "JOB_STATE_CANCELLED", "JOB_STATE_EXPIRED", "JOB_STATE_PARTIALLY_SUCCEEDED":
				return nil, fmt.Errorf("batch job %s ended early: %s", batchJobName, bJob.State)
			}
		}
	}
}

// downloadAnswer requires one embedding per requested chunk. A failed entry
// fails the whole batch so no chunk is silently skipped.
func downloadAnswer(answer *genai.BatchJob, want int) ([][]float32, error) {
	if answer.Dest == nil {
		return nil, fmt.Errorf("batch job %s has no destination", answer.Name)
	}
	res := answer.Dest.InlinedEmbedContentResponses
	if len(res) != want {
		return nil, fmt.Errorf("batch job returned %d embeddings for %d chunks", len(res), want)
	}
	results := make([][]float32, 0, want)
	for i, r := range res {
		if r == nil || r.Error != nil || r.Response == nil || r.Response.Embedding == nil {
			return nil, fmt.Errorf("batch embedding failed for chunk %d", i)
		}
		results = append(results, r.Response.Embedding.Values)
	}
	return results, nil
}
