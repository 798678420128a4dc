// Package embeddings turns knowledge notes and option queries into vectors.
package embeddings

import "context"

// Embedder maps texts to fixed-size vectors. Implementations must return
// one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// Name identifies the model; an index built with one embedder cannot be
	// queried with another.
	Name() string
}
