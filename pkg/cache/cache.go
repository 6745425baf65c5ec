// Package cache stores rendered snapshots so repeated exports and HTTP
// requests for an unchanged network skip the replay and render work.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for
// shared deployments of the snapshot server and [NullCache] when caching is
// disabled. Keys come from a [Keyer] so that every component agrees on how
// inputs map to entries.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/trackyard/trackyard/pkg/observability"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once. Clear
// returns the number of entries removed.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Observed wraps c so that hits, misses and writes are reported to the
// registered observability.CacheHooks. The key type is the key prefix up to
// the first colon.
func Observed(c Cache) Cache {
	if _, ok := c.(*observed); ok {
		return c
	}
	return &observed{Cache: c}
}

type observed struct {
	Cache
}

func (o *observed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := o.Cache.Get(ctx, key)
	if err != nil {
		return data, ok, err
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, keyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
	return data, ok, nil
}

func (o *observed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := o.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

// Clear forwards to the wrapped cache when it supports clearing.
func (o *observed) Clear(ctx context.Context) (int, error) {
	if c, ok := o.Cache.(Clearer); ok {
		return c.Clear(ctx)
	}
	return 0, nil
}

// keyType returns the segment before the hash, so scoped keys report the
// same type as unscoped ones.
func keyType(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 {
		return "unknown"
	}
	return key[strings.LastIndexByte(key[:i], ':')+1 : i]
}

// Keyer derives cache keys.
type Keyer interface {
	// ScriptKey addresses an export of the network a script produces.
	ScriptKey(scriptHash string, opts ArtifactKeyOpts) string
	// SnapshotKey addresses an export of a served graph at a revision.
	SnapshotKey(revision uint64, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an exported artifact.
type ArtifactKeyOpts struct {
	Format    string  `json:"format"`
	Scale     float64 `json:"scale"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	OffsetX   float64 `json:"offset_x,omitempty"`
	OffsetY   float64 `json:"offset_y,omitempty"`
	Grid      bool    `json:"grid,omitempty"`
	Editable  bool    `json:"editable,omitempty"`
	Pinned    bool    `json:"pinned,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

// DefaultKeyer produces "script:" and "snapshot:" keys hashed over all
// options.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ScriptKey(scriptHash string, opts ArtifactKeyOpts) string {
	return hashKey("script", scriptHash, opts)
}

func (DefaultKeyer) SnapshotKey(revision uint64, opts ArtifactKeyOpts) string {
	return hashKey("snapshot", revision, opts)
}
