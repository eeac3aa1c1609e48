package storage

import (
	"errors"
	"io"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore holds part recordings and images. Keys are slash-separated and
// relative, e.g. "tests/<id>/part1.mp3".
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// CleanKey canonicalizes a key and rejects keys escaping the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidKey
	}
	return c, nil
}

// Resolver maps keys to the URLs under which the assets route serves them.
type Resolver struct{ base string }

func NewResolver(publicURL string) Resolver {
	return Resolver{base: strings.TrimSuffix(publicURL, "/") + "/assets/"}
}

// URL returns "" for an empty key. Absolute URLs are passed through.
func (r Resolver) URL(key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return r.base + strings.TrimPrefix(key, "/")
}
