// File path: internal/embedding/embedder.go
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/linkwise/linkwise/internal/common"
)

// Embedder generates vectors for text inputs.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}

// NewFromEnv selects the OpenAI provider when an API key is configured and
// falls back to the deterministic local provider otherwise.
func NewFromEnv() Embedder {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("embedding: OPENAI_API_KEY not set; falling back to local embedder")
		return NewLocalEmbedder(256)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		logger.Info("embedding: using custom OpenAI endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			logger.Warn("embedding: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
		} else {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
	}
	client := openai.NewClient(opts...)
	model := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	logger.Info("embedding: OpenAI embedder configured", "model", model)
	return &OpenAIEmbedder{client: &client, model: model}
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if o == nil || o.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	if len(input) == 0 {
		return nil, nil
	}
	logger := common.Logger()
	logger.Debug("embedding: creating embeddings", "model", o.model, "items", len(input))
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: input},
	})
	if err != nil {
		logger.Error("embedding: request failed", "error", err)
		return nil, err
	}
	vectors := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for i, value := range data.Embedding {
			vector[i] = float32(value)
		}
		vectors = append(vectors, vector)
	}
	logger.Debug("embedding: request succeeded", "returned", len(vectors))
	return vectors, nil
}

func (o *OpenAIEmbedder) Name() string {
	return "openai"
}

// LocalEmbedder produces deterministic hashed bag-of-words vectors. It keeps
// development and tests working without upstream credentials; similarity is
// crude but stable.
type LocalEmbedder struct {
	dim int
}

func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &LocalEmbedder{dim: dim}
}

func (l *LocalEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vectors[i] = l.embedOne(text)
	}
	return vectors, nil
}

func (l *LocalEmbedder) embedOne(text string) []float32 {
	vector := make([]float32, l.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[int(h.Sum32())%l.dim]++
	}
	var norm float64
	for _, value := range vector {
		norm += float64(value) * float64(value)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

func (l *LocalEmbedder) Name() string {
	return "local"
}
