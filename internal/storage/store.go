// Package storage persists uploaded resumes to local disk or S3-compatible
// object storage.
package storage

import (
	"context"
	"io"
	"time"
)

// Object is a resume ready to be written.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// StoredResume describes a resume after it has been persisted.
type StoredResume struct {
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	Backend     string    `json:"backend"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size_bytes"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is a resume storage backend. Failures are *apperr.Error values.
type Store interface {
	Put(ctx context.Context, obj Object) (*StoredResume, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
}
