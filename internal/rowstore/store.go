// Package rowstore reads and mutates the candidate rows the pipeline works on.
package rowstore

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Store is the row-store collaborator. Tables are addressed by id.
type Store interface {
	ListTables(ctx context.Context) ([]model.Table, error)
	// NextUnprocessed returns the oldest row whose STATUS is not "Contacted",
	// or nil when the table has none.
	NextUnprocessed(ctx context.Context, table string) (*model.Row, error)
	GetRow(ctx context.Context, table, id string) (*model.Row, error)
	UpdateField(ctx context.Context, table, id, field, value string) error
	CreateRow(ctx context.Context, table string, row model.Row) (*model.Row, error)
	DeleteRow(ctx context.Context, table, id string) error
	ListCounterparts(ctx context.Context, table string) ([]model.CounterpartRecord, error)
}
