package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists generated and uploaded artifacts.
type BlobStore interface {
	Put(ctx context.Context, container, name string, data []byte) error
}

// Containers names where each kind of artifact goes.
type Containers struct {
	Resumes string `mapstructure:"resumes"`
	Exports string `mapstructure:"exports"`
	Reports string `mapstructure:"reports"`
}

// DefaultContainers are used when the configuration leaves them blank.
func DefaultContainers() Containers {
	return Containers{Resumes: "resumes", Exports: "exports", Reports: "reports"}
}

// WithDefaults fills blank container names.
func (c Containers) WithDefaults() Containers {
	def := DefaultContainers()
	if strings.TrimSpace(c.Resumes) == "" {
		c.Resumes = def.Resumes
	}
	if strings.TrimSpace(c.Exports) == "" {
		c.Exports = def.Exports
	}
	if strings.TrimSpace(c.Reports) == "" {
		c.Reports = def.Reports
	}
	return c
}

// Local writes blobs under Root/<container>/<name>.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{Root: root}, nil
}

func (l *Local) Put(_ context.Context, container, name string, data []byte) error {
	path, err := l.path(container, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create container %q: %w", container, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (l *Local) path(container, name string) (string, error) {
	container = filepath.Base(strings.TrimSpace(container))
	name = filepath.Base(strings.TrimSpace(name))
	if container == "." || container == string(filepath.Separator) || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob location %q/%q", container, name)
	}
	return filepath.Join(l.Root, container, name), nil
}

// Discard drops every blob.
type Discard struct{}

func (Discard) Put(context.Context, string, string, []byte) error { return nil }
