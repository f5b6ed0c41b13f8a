package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedFormat is returned for file types that cannot be converted to text.
var ErrUnsupportedFormat = errors.New("unsupported resume format")

// Extractor turns an uploaded resume into plain text.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// runner executes an external converter with data on stdin.
type runner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// TextExtractor reads plain text files directly and converts PDFs with pdftotext.
type TextExtractor struct {
	PDFToText string
	run       runner
}

// NewTextExtractor uses the pdftotext binary found in PATH unless bin is set.
func NewTextExtractor(bin string) *TextExtractor {
	if strings.TrimSpace(bin) == "" {
		bin = "pdftotext"
	}
	return &TextExtractor{PDFToText: bin, run: execRunner}
}

func execRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Extract returns normalized text. An empty result is not an error.
func (e *TextExtractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", "":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: text file is not valid utf-8", name)
		}
		return Normalize(string(data)), nil
	case ".pdf":
		out, err := e.run(ctx, data, e.PDFToText, "-layout", "-enc", "UTF-8", "-", "-")
		if err != nil {
			return "", fmt.Errorf("pdf extraction requires pdftotext (poppler-utils): %w", err)
		}
		return Normalize(string(out)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Normalize applies NFKC, drops control characters and collapses blank runs.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// BaseName strips directories and the extension from an uploaded file name.
func BaseName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
