package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes bounds uploads when no limit is configured.
const DefaultMaxBytes int64 = 5 << 20

var (
	// ErrTooLarge indicates the upload exceeds the configured limit.
	ErrTooLarge = errors.New("storage: file too large")
	// ErrUnsupportedType indicates the sniffed content type is not allowed.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
)

var imageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Uploader validates files before forwarding them to a Store.
type Uploader struct {
	store    Store
	maxBytes int64
	allowed  []string
}

// NewImageUploader returns an Uploader accepting JPEG, PNG and WebP images.
func NewImageUploader(store Store, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes, allowed: imageTypes}
}

// MaxBytes reports the configured size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload validates r and stores it under prefix with a random name.
func (u *Uploader) Upload(ctx context.Context, prefix string, r io.Reader) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return Object{}, ErrTooLarge
	}
	if len(data) == 0 {
		return Object{}, ErrUnsupportedType
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), u.allowed...) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	key := prefix + "/" + uuid.NewString() + mt.Extension()
	if err := u.store.Put(ctx, key, bytes.NewReader(data), mt.String()); err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: u.store.URL(key), ContentType: mt.String(), Size: int64(len(data))}, nil
}

// Remove deletes a previously uploaded object.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}

// URL returns the public address of key.
func (u *Uploader) URL(key string) string {
	return u.store.URL(key)
}
