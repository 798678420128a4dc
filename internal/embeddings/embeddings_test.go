package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedderIsDeterministicAndNormalised(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"Cash on delivery payments", "Cash on delivery payments"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, math.Sqrt(cosine(vecs[0], vecs[0])), 1e-5)
	assert.Equal(t, 64, e.Dimensions())
}

func TestHashEmbedderSimilarTextsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, _ := e.Embed(context.Background(), []string{
		"stripe card payments online",
		"online card payments with stripe checkout",
		"courier fleet scheduling for deliveries",
	})
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	vecs, err := NewHashEmbedder(8).Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, float32(1), vecs[0][0])
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(NewHashEmbedder(16))
	vec, err := fn(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"pay", "by", "card", "24", "7"}, Tokenize("Pay-by CARD, 24/7!"))
}
