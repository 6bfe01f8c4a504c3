package pipeline

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ShouldSend reports whether a scored row gets an email: the best match
// reaches threshold and the model filled in recipient, subject and body.
func ShouldSend(r model.ScoringResult, threshold int) bool {
	if threshold <= 0 {
		threshold = model.FitThreshold
	}
	if r.MaxScore() < threshold {
		return false
	}
	return strings.TrimSpace(r.SelectedEmail) != "" &&
		strings.TrimSpace(r.Subject) != "" &&
		strings.TrimSpace(r.EmailBody) != ""
}
