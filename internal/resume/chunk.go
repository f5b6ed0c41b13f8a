package resume

import (
	"strings"
)

// ChunkRunes approximates 1000 tokens of English text.
const ChunkRunes = 4000

// EvaluationChunks is how many leading chunks are sent for evaluation.
const EvaluationChunks = 3

// Chunk splits text into pieces of at most size runes, breaking on whitespace
// where possible.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = ChunkRunes
	}

	var chunks []string
	var current []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > size {
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = current[:0]
			}
			chunks = append(chunks, string(w[:size]))
			w = w[size:]
		}

		extra := len(w)
		if len(current) > 0 {
			extra++
		}
		if len(current)+extra > size {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// Head joins the first n chunks with blank lines.
func Head(chunks []string, n int) string {
	if n > len(chunks) {
		n = len(chunks)
	}
	return strings.Join(chunks[:n], "\n\n")
}

// EmbeddingText is the resume text used for JD similarity: every chunk joined by spaces.
func EmbeddingText(text string) string {
	return strings.Join(Chunk(text, ChunkRunes), " ")
}
