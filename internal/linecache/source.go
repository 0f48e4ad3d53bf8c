package linecache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by sources for files they don't have.
var ErrNotFound = errors.New("source file not found")

type (
	// Stamp identifies a version of a file.
	Stamp struct {
		Size    int64
		ModTime time.Time
	}

	// Source reads source files.
	Source interface {
		Stat(ctx context.Context, name string) (Stamp, error)
		ReadAll(ctx context.Context, name string) ([]byte, error)
	}

	// FileSystem reads files from the local file system. Relative names
	// are resolved against Root.
	FileSystem struct {
		Root string
	}

	// Bucket reads files from a blob bucket, typically sources uploaded
	// alongside a release. The leading slash of absolute names is dropped
	// and Prefix is prepended.
	Bucket struct {
		Bucket *blob.Bucket
		Prefix string
	}
)

func (s FileSystem) path(name string) string {
	if s.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Root, name)
}

func (s FileSystem) Stat(_ context.Context, name string) (Stamp, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stamp{}, ErrNotFound
		}
		return Stamp{}, err
	}
	return Stamp{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (s FileSystem) ReadAll(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s Bucket) key(name string) string {
	name = filepath.ToSlash(name)
	for len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

func (s Bucket) Stat(ctx context.Context, name string) (Stamp, error) {
	attrs, err := s.Bucket.Attributes(ctx, s.key(name))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return Stamp{}, ErrNotFound
		}
		return Stamp{}, err
	}
	return Stamp{Size: attrs.Size, ModTime: attrs.ModTime}, nil
}

func (s Bucket) ReadAll(ctx context.Context, name string) ([]byte, error) {
	b, err := s.Bucket.ReadAll(ctx, s.key(name))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, ErrNotFound
	}
	return b, err
}
