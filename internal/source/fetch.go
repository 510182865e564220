package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFetch marks a failed remote retrieval.
var ErrFetch = errors.New("fetch failed")

// Fetcher retrieves the payload behind a URL. The payload is any decoded
// JSON value.
type Fetcher interface {
	Fetch(ctx context.Context, url string, config map[string]any) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, config map[string]any) (any, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, config map[string]any) (any, error) {
	return f(ctx, url, config)
}

// FileFetcher reads payloads from disk. URLs are paths, optionally prefixed
// with file://, resolved against Dir. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
type FileFetcher struct {
	Dir string
}

// Fetch reads and decodes the file named by url. config is ignored.
func (f FileFetcher) Fetch(ctx context.Context, url string, _ map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimPrefix(url, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return out, nil
}
