package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/riptide-search/riptide/internal/errors"
)

// StaticDimensions is the vector size produced by the static embedder.
// Layout: 1 token-count feature, 26 character frequencies, 16 keyword
// presence slots, 21 hash-seeded noise values.
const StaticDimensions = 64

// staticKeywords are domain terms whose presence is encoded directly.
// Queries and documents sharing these terms land closer in the space.
var staticKeywords = [16]string{
	"search", "query", "index", "document", "vector", "database",
	"error", "config", "server", "client", "cache", "test",
	"function", "data", "file", "user",
}

// StaticEmbedder is a deterministic, dependency-free embedder used as
// an offline fallback. The same text always produces the same vector,
// and texts sharing tokens produce nearby vectors. It is not a learned
// model and its similarity is crude, but it keeps dense retrieval
// functional without any external service.
type StaticEmbedder struct {
	modelName string
}

// NewStaticEmbedder creates a deterministic fallback embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{modelName: "static-64"}
}

// Initialize is a no-op; the static embedder has no external state.
func (e *StaticEmbedder) Initialize(ctx context.Context) error {
	return nil
}

// Embed generates one deterministic vector per input text.
func (e *StaticEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.Validation(errors.ErrCodeInvalidInput, "no texts to embed")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vectors[i] = embedStatic(text)
	}
	return vectors, nil
}

// Dimensions returns the static vector size.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return e.modelName
}

// Close is a no-op.
func (e *StaticEmbedder) Close() error {
	return nil
}

// embedStatic builds the feature vector for a single text.
func embedStatic(text string) []float32 {
	vec := make([]float32, StaticDimensions)
	lower := strings.ToLower(text)
	tokens := strings.Fields(lower)

	// Feature 0: token count, squashed so long documents don't dominate.
	vec[0] = float32(math.Tanh(float64(len(tokens)) / 32.0))

	// Features 1..26: letter frequency histogram.
	var letters int
	for _, r := range lower {
		if r >= 'a' && r <= 'z' {
			vec[1+int(r-'a')]++
			letters++
		}
	}
	if letters > 0 {
		for i := 1; i <= 26; i++ {
			vec[i] /= float32(letters)
		}
	}

	// Features 27..42: keyword presence.
	for i, kw := range staticKeywords {
		if strings.Contains(lower, kw) {
			vec[27+i] = 1.0
		}
	}

	// Features 43..63: deterministic noise seeded from the text hash.
	// Distinguishes texts that tie on the structural features.
	h := fnv.New64a()
	h.Write([]byte(lower))
	state := h.Sum64()
	if state == 0 {
		state = 0x9e3779b97f4a7c15
	}
	for i := 43; i < StaticDimensions; i++ {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		// Map to [-0.5, 0.5) at low amplitude.
		vec[i] = (float32(state>>40)/float32(1<<24) - 0.5) * 0.1
	}

	normalize(vec)
	return vec
}

// normalize scales a vector to unit length in place.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

var _ Embedder = (*StaticEmbedder)(nil)
