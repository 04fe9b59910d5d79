// Package store persists the ZIP gazetteer, cached API responses and the
// history of pipeline runs.
package store

import (
	"context"
	"time"

	"github.com/sells-group/demomap/internal/model"
)

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Gazetteer
	ReplacePostalCodes(ctx context.Context, source, etag string, codes []model.PostalCode) error
	PostalCode(ctx context.Context, zip string) (*model.PostalCode, error)
	PostalCodesByCounty(ctx context.Context, state, county string) ([]model.PostalCode, error)
	PostalCodesByPrefix(ctx context.Context, prefix string) ([]model.PostalCode, error)
	CountPostalCodes(ctx context.Context) (int, error)
	SourceETag(ctx context.Context, source string) (string, error)

	// Response cache
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredResponses(ctx context.Context) (int, error)

	// Runs
	CreateRun(ctx context.Context, command, args string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, rows int, output string, runErr error) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
