// Package cache stores converted frame artifacts so repeated renders of the
// same frame skip the external rasterizer.
//
// Keys are content addressed: [ConvertKey] hashes the SVG bytes together
// with the target format and scale, so a changed frame can never hit a
// stale entry. Three backends are provided: [FileCache] for the CLI,
// [RedisCache] for shared deployments and [NullCache] when caching is off.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultTTL is how long converted artifacts are kept.
const DefaultTTL = 7 * 24 * time.Hour

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ConvertKey returns the key for svg converted to format at scale.
func ConvertKey(svg []byte, format string, scale float64) string {
	return fmt.Sprintf("convert:%s:%g:%s", format, scale, Hash(svg))
}

// DefaultDir returns the per-user cache directory, honoring XDG_CACHE_HOME.
func DefaultDir() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserCacheDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "retrocausal"), nil
}
