// Package linecache caches the lines of source files for traceback output.
package linecache

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 5 * time.Second

type (
	// Cache keeps the lines of the most recently used source files. It's
	// safe for concurrent use.
	Cache struct {
		src     Source
		files   *lru.Cache
		timeout time.Duration
	}

	entry struct {
		stamp Stamp
		lines []string
	}
)

// New returns a cache holding at most size files read from src.
func New(src Source, size int) (*Cache, error) {
	files, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{src: src, files: files, timeout: defaultTimeout}, nil
}

func (c *Cache) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// Stale reports whether the cached copy of file doesn't match the source
// anymore. Files that aren't cached are never stale.
func (c *Cache) Stale(file string) bool {
	v, ok := c.files.Peek(file)
	if !ok {
		return false
	}
	ctx, cancel := c.context()
	defer cancel()
	stamp, err := c.src.Stat(ctx, file)
	if err != nil {
		return true
	}
	cached := v.(*entry).stamp
	return cached.Size != stamp.Size || !cached.ModTime.Equal(stamp.ModTime)
}

// Invalidate drops the cached copy of file.
func (c *Cache) Invalidate(file string) {
	c.files.Remove(file)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}

// Line returns line lineno (starting at 1) of file without surrounding
// whitespace. Missing files and lines give an empty string.
func (c *Cache) Line(file string, lineno int) (string, error) {
	lines, err := c.Lines(file)
	if err != nil {
		return "", err
	}
	if lineno < 1 || lineno > len(lines) {
		return "", nil
	}
	return strings.TrimSpace(lines[lineno-1]), nil
}

// Lines returns every line of file, loading it if needed. It returns nil
// for missing files.
func (c *Cache) Lines(file string) ([]string, error) {
	if file == "" {
		return nil, nil
	}
	if v, ok := c.files.Get(file); ok {
		return v.(*entry).lines, nil
	}

	ctx, cancel := c.context()
	defer cancel()
	stamp, err := c.src.Stat(ctx, file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	b, err := c.src.ReadAll(ctx, file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	lines := strings.Split(string(b), "\n")
	c.files.Add(file, &entry{stamp: stamp, lines: lines})
	log.Debug().Str("file", file).Int("lines", len(lines)).Msg("source file cached")
	return lines, nil
}
