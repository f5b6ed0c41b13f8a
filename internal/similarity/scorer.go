package similarity

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/util"
)

// Scorer measures how similar two texts are on a 0–100 scale.
type Scorer struct {
	embeddings ai.Embedder
	logger     *zap.Logger
}

// NewScorer builds a Scorer on top of an embedder, usually a *Cache.
func NewScorer(embeddings ai.Embedder, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{embeddings: embeddings, logger: logger}
}

// Similarity returns 100 times the cosine similarity of the texts' embeddings,
// rounded to two decimals. Blank input, embedding failures and degenerate
// vectors all yield 0.
func (s *Scorer) Similarity(ctx context.Context, a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}

	va, err := s.embeddings.Embed(ctx, a)
	if err != nil {
		s.logger.Warn("embedding failed, similarity set to 0", zap.Error(err))
		return 0
	}
	vb, err := s.embeddings.Embed(ctx, b)
	if err != nil {
		s.logger.Warn("embedding failed, similarity set to 0", zap.Error(err))
		return 0
	}

	cos := Cosine(va, vb)
	if cos <= 0 {
		return 0
	}
	return util.Round2(math.Min(cos, 1) * 100)
}

// Cosine returns the cosine similarity of a and b, or 0 when it is undefined.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
