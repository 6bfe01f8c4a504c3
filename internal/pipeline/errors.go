package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/rowstore"
)

// ErrNoRows means the source table has no unprocessed row.
var ErrNoRows = eris.New("pipeline: no unprocessed rows")

// ErrAlreadyContacted refuses a row whose STATUS already says Contacted.
var ErrAlreadyContacted = eris.New("pipeline: row already contacted")

// ErrPersist tags failures of the steps that record a terminal outcome.
// Steps that succeeded before the failure are not undone.
var ErrPersist = eris.New("pipeline: persist outcome")

// IsFatal reports errors that will recur on every row: the row store
// rejecting the credentials or the configured tables. Cancellation is
// handled by the caller.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return rowstore.IsAccessError(err)
}
