// Package store persists the run journal: one entry per row outcome.
package store

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	State   model.RowState `json:"state,omitempty"`
	Website string         `json:"website,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// Journal records what happened to each processed row. It is an audit trail;
// the row store stays the source of truth for row state.
type Journal interface {
	RecordRun(ctx context.Context, run model.Run) (*model.Run, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
