// Package blob stores uploaded originals and hands out URLs to them.
//
// Object names are "<id>.<format>", so the URL of any indexed item that is
// not served from the local filesystem can be derived from the item alone.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store persists image bytes and resolves object names to URLs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes data under name, replacing any previous object.
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
	// URL returns a URL the client can fetch name from. Remote stores
	// return a time-limited presigned URL.
	URL(ctx context.Context, name string) (string, error)
}

// ObjectName builds the object name for an item.
func ObjectName(id, format string) string {
	if format == "" {
		return id
	}
	return id + "." + format
}
