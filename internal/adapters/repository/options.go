package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/igot/pkg/metrics"
)

// Default backend settings.
const (
	defaultSQLitePath      = "data/igot.db"
	defaultMongoURI        = "mongodb://localhost:27017/igot"
	defaultMongoDatabase   = "igot"
	defaultMongoCollection = "reports"
)

type settings struct {
	sqlitePath      string
	mongoURI        string
	mongoDatabase   string
	mongoCollection string
}

// Option applies a configuration option to Open.
type Option func(*settings)

// WithSQLitePath sets the SQLite database file.
func WithSQLitePath(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithMongoURI sets the MongoDB connection string.
func WithMongoURI(uri string) Option {
	return func(s *settings) {
		if uri != "" {
			s.mongoURI = uri
		}
	}
}

// WithMongoDatabase sets the MongoDB database name.
func WithMongoDatabase(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.mongoDatabase = name
		}
	}
}

// WithMongoCollection sets the MongoDB collection holding reports.
func WithMongoCollection(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.mongoCollection = name
		}
	}
}

// Open connects the named backend.
func Open(ctx context.Context, backend string, opts ...Option) (Store, error) {
	s := settings{
		sqlitePath:      defaultSQLitePath,
		mongoURI:        defaultMongoURI,
		mongoDatabase:   defaultMongoDatabase,
		mongoCollection: defaultMongoCollection,
	}
	for _, opt := range opts {
		opt(&s)
	}

	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, s.sqlitePath)
	case BackendMongo:
		return NewMongoStore(ctx, s.mongoURI, s.mongoDatabase, s.mongoCollection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// observe records latency and failures of one store operation.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordErrorByComponent("store_"+backend, op)
	}
}
