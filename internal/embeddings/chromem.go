package embeddings

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ToChromemFunc adapts e to the single-text function chromem-go calls when
// it adds documents to a collection and when it runs a query.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		switch {
		case err != nil:
			return nil, fmt.Errorf("embedding with %s: %w", e.Name(), err)
		case len(vectors) != 1:
			return nil, fmt.Errorf("%s returned %d vectors for one text", e.Name(), len(vectors))
		case len(vectors[0]) != e.Dimensions():
			return nil, fmt.Errorf("%s returned a %d-dimensional vector, want %d", e.Name(), len(vectors[0]), e.Dimensions())
		}
		return vectors[0], nil
	}
}
