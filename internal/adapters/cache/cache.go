// Package cache stores rendered read views (summary, offices, chart data)
// between writes. Every backend is safe for concurrent use.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Cache holds encoded views by key.
//
// Callers put the current Generation into their keys. Purge advances the
// generation before it drops entries, so a view computed before a write and
// stored after it lands under a key no later read asks for.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores val under key.
	Set(ctx context.Context, key string, val []byte)
	// Generation returns the current cache generation.
	Generation(ctx context.Context) (uint64, error)
	// Purge advances the generation and drops every entry. Called after each
	// accepted write, before it is acknowledged.
	Purge(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// Settings configures New.
type Settings struct {
	Backend       string
	Size          int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the configured cache backend.
func New(ctx context.Context, s Settings) (Cache, error) {
	switch s.Backend {
	case BackendMemory, "":
		return NewMemory(s.Size, s.TTL), nil
	case BackendRedis:
		return NewRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB, s.TTL)
	case BackendNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Generation(context.Context) (uint64, error) { return 0, nil }
func (Nop) Purge(context.Context) error                { return nil }
func (Nop) Close() error                               { return nil }
