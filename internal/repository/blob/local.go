package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects in a directory served by the HTTP layer under urlPrefix.
type Local struct {
	root      string
	urlPrefix string
}

var _ Store = (*Local)(nil)

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Local{root: abs, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Root returns the absolute directory objects are written to.
func (l *Local) Root() string { return l.root }

// Put writes data to <root>/<name>.
func (l *Local) Put(_ context.Context, name string, data []byte, _ string) error {
	full, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	return nil
}

// Exists reports whether <root>/<name> exists.
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	full, err := l.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob %s: %w", name, err)
}

// URL returns the static path for name after checking that it exists.
func (l *Local) URL(_ context.Context, name string) (string, error) {
	full, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("stat blob %s: %w", name, err)
	}
	return l.urlPrefix + "/" + url.PathEscape(name), nil
}

func (l *Local) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(l.root, name), nil
}
