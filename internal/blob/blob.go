// Package blob stores photo bytes outside the report rows. Keys are content
// addressed, so storing the same bytes twice yields the same key.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Put persists data and returns its storage key.
	Put(ctx context.Context, data []byte, contentType string) (string, error)

	// Get resolves the bytes behind a key. Returns ErrNotFound when the key
	// does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ContentKey derives the storage key for a payload.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
