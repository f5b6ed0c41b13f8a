package resume

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
Senior Backend Engineer
jane.doe@example.com | +1 (555) 010-2030

Experience
  Acme Corp - Go, Kafka, Kubernetes


  Built distributed systems.`

func TestExtractContact(t *testing.T) {
	c := ExtractContact(sampleResume)

	assert.Equal(t, "Jane Doe", c.Name)
	assert.Equal(t, "jane.doe@example.com", c.Email)
	assert.Equal(t, "+1 (555) 010-2030", c.Phone)
}

func TestExtractContactMissingFields(t *testing.T) {
	c := ExtractContact("CURRICULUM VITAE\nskills: go, sql\nyears 2019 2020")

	assert.Empty(t, c.Name)
	assert.Empty(t, c.Email)
	assert.Empty(t, c.Phone)
}

func TestNormalize(t *testing.T) {
	got := Normalize("ﬁne\r\nline\x00 two  \n\n\n\nend")
	assert.Equal(t, "fine\nline two\n\nend", got)
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("word ", 10)
	chunks := Chunk(text, 14)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 14)
	}
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))

	long := Chunk(strings.Repeat("x", 10), 4)
	assert.Equal(t, []string{"xxxx", "xxxx", "xx"}, long)

	assert.Empty(t, Chunk("   ", 10))
}

func TestHead(t *testing.T) {
	chunks := []string{"a", "b", "c", "d"}
	assert.Equal(t, "a\n\nb\n\nc", Head(chunks, EvaluationChunks))
	assert.Equal(t, "a", Head(chunks[:1], EvaluationChunks))
	assert.Equal(t, "", Head(nil, EvaluationChunks))
}

func TestTextExtractor(t *testing.T) {
	e := NewTextExtractor("")
	var gotArgs []string
	e.run = func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "pdftotext", name)
		assert.Equal(t, []byte("%PDF-1.4"), stdin)
		gotArgs = args
		return []byte("Jane Doe\n\n\n\nGo"), nil
	}

	text, err := e.Extract(context.Background(), "jane.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nGo", text)
	assert.Contains(t, gotArgs, "-layout")

	text, err = e.Extract(context.Background(), "notes.txt", []byte("plain text"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", text)

	_, err = e.Extract(context.Background(), "photo.png", []byte{0x89})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "jane_doe", BaseName("/tmp/uploads/jane_doe.pdf"))
	assert.Equal(t, "john", BaseName("john"))
}
