// Package preview stores the jersey preview images customers render in the
// storefront. Storing is best effort: a failed write never blocks an order.
package preview

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned for keys that cannot name a stored file.
var ErrInvalidKey = errors.New("invalid preview key")

// Backend writes preview bytes under a name and returns a reference the
// static content server resolves, such as a URL path.
type Backend interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// DecodePayload extracts the image bytes from a base64 payload. When the
// payload contains a comma, as in data URIs, only the part after the first
// comma is decoded.
func DecodePayload(encoded string) ([]byte, error) {
	if _, after, ok := strings.Cut(encoded, ","); ok {
		encoded = after
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errors.Wrap(err, "decode base64")
	}
	return data, nil
}

// FileName returns the stored file name for a personalization key.
func FileName(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", ErrInvalidKey
	}
	return key + ".png", nil
}

// Store saves previews through a Backend.
type Store struct {
	backend Backend
}

// NewStore returns a Store writing to backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Save decodes encoded and writes it under key, overwriting any previous
// image for the same key. It returns nil when the image could not be stored;
// the failure is logged.
func (s *Store) Save(ctx context.Context, key, encoded string) *string {
	ref, err := s.save(ctx, key, encoded)
	if err != nil {
		zctx.From(ctx).Warn("Preview image not stored",
			zap.String("personalization_id", key),
			zap.Error(err),
		)
		return nil
	}
	return &ref
}

func (s *Store) save(ctx context.Context, key, encoded string) (string, error) {
	name, err := FileName(key)
	if err != nil {
		return "", err
	}
	data, err := DecodePayload(encoded)
	if err != nil {
		return "", err
	}
	ref, err := s.backend.Put(ctx, name, data)
	if err != nil {
		return "", errors.Wrapf(err, "put %s", name)
	}
	return ref, nil
}
