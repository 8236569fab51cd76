// Package mock provides a test double for the embeddings.Provider interface.
// Configure the canned vectors, then read the call records afterwards.
package mock

import (
	"context"
	"sync"

	"github.com/nexuslearn/oracy/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by Embed. Nil means a zero vector of
	// DimensionsValue length.
	EmbedResult []float32

	// EmbedErr, if non-nil, is returned from Embed and EmbedBatch.
	EmbedErr error

	// DimensionsValue is returned by Dimensions. Zero defaults to 4.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbedCalls records every text passed to Embed or EmbedBatch, in order.
	EmbedCalls []string
}

// Embed records the call and returns EmbedResult or a zero vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	if p.EmbedResult != nil {
		return p.EmbedResult, nil
	}
	return make([]float32, p.dims()), nil
}

// EmbedBatch records each text and returns one vector per input.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	result := make([][]float32, len(texts))
	for i := range result {
		if p.EmbedResult != nil {
			result[i] = p.EmbedResult
		} else {
			result[i] = make([]float32, p.dims())
		}
	}
	return result, nil
}

// Dimensions returns DimensionsValue, defaulting to 4.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims()
}

// ModelID returns ModelIDValue.
func (p *Provider) ModelID() string {
	return p.ModelIDValue
}

// Reset clears the call record.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = nil
}

func (p *Provider) dims() int {
	if p.DimensionsValue > 0 {
		return p.DimensionsValue
	}
	return 4
}

var _ embeddings.Provider = (*Provider)(nil)
