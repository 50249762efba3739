// Package openai implements embedding.Embedder on top of the OpenAI Embeddings
// API. Any OpenAI-compatible endpoint (including Azure OpenAI deployments) can
// be targeted through client options.
package openai

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/openai/openai-go"
)

// Options configure the embedder.
type Options struct {
	// Model is the embedding model, or the deployment name for Azure.
	Model string
	// Dimensions requests shortened vectors from models that support it. Zero keeps the model default.
	Dimensions int
	// BatchSize caps the number of inputs per API request.
	BatchSize int
}

// Embedder calls the OpenAI Embeddings endpoint.
type Embedder struct {
	client *openai.Client
	opts   Options
	dims   atomic.Int64
}

// NewEmbedder creates an embedder using the official client configured from the environment.
func NewEmbedder(optFns ...func(o *Options)) *Embedder {
	client := openai.NewClient()
	return NewEmbedderFromClient(&client, optFns...)
}

// NewEmbedderFromClient creates an embedder from an existing client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Model:     "text-embedding-3-small",
		BatchSize: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	e := &Embedder{client: client, opts: opts}
	e.dims.Store(int64(opts.Dimensions))
	return e
}

// Embed returns the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request-sized batches, preserving input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.opts.Model),
	}
	if e.opts.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.opts.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vecs[d.Index] = v
	}
	if len(vecs) > 0 {
		e.dims.CompareAndSwap(0, int64(len(vecs[0])))
	}
	return vecs, nil
}

// Dimensions reports the configured dimensions, or the length observed on the first response.
func (e *Embedder) Dimensions() int { return int(e.dims.Load()) }
