package model

import (
	"fmt"
	"strings"
)

// FitThreshold is the minimum score considered a fit.
const FitThreshold = 7

// CounterpartRecord is a mandate or venture the row is scored against.
type CounterpartRecord struct {
	ID       string            `json:"id"`
	Acronym  string            `json:"acronym"`
	Industry string            `json:"industry,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Raising  string            `json:"raising,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Summary renders the record for the model in the per-mode bracket format:
// mandates as [Acronym - Notes], ventures as [Acronym - Industry - Notes - Raising].
func (c CounterpartRecord) Summary(mode Mode) string {
	parts := []string{orUnknown(c.Acronym)}
	if mode == ModeInvestors {
		parts = append(parts, orUnknown(c.Industry))
	}
	parts = append(parts, orUnknown(c.Notes))
	if mode == ModeInvestors {
		parts = append(parts, orUnknown(c.Raising))
	}
	return "[" + strings.Join(parts, " - ") + "]"
}

func orUnknown(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "N/A"
	}
	return s
}

// Match is one scored pairing between the row and a counterpart.
type Match struct {
	Acronym string `json:"acronym"`
	Score   int    `json:"score"`
	Fit     bool   `json:"fit"`
}

// ScoringResult is the validated model response.
type ScoringResult struct {
	Matches       []Match `json:"matches"`
	SelectedEmail string  `json:"selected_email"`
	Subject       string  `json:"subject"`
	EmailBody     string  `json:"email_body"`
}

// MaxScore returns the highest match score, or 0 when there are no matches.
func (r ScoringResult) MaxScore() int {
	best := 0
	for _, m := range r.Matches {
		if m.Score > best {
			best = m.Score
		}
	}
	return best
}

// FitAcronyms lists the identifiers of matches at or above the threshold.
func (r ScoringResult) FitAcronyms() []string {
	var out []string
	for _, m := range r.Matches {
		if m.Score >= FitThreshold {
			out = append(out, m.Acronym)
		}
	}
	return out
}

// ErrorMarker prefixes ScrapeResult.FullText when every fetch failed.
const ErrorMarker = "ERROR:"

// ScrapeResult is the aggregated output of one crawl.
type ScrapeResult struct {
	FullText string   `json:"full_text"`
	Emails   []string `json:"emails"`
	Pages    int      `json:"pages"`

	// FetchFailed is set only by FailedScrape. Page text that happens to
	// start with ErrorMarker does not count.
	FetchFailed bool `json:"fetch_failed,omitempty"`
}

// Failed reports whether the crawl produced the tagged error result.
func (s ScrapeResult) Failed() bool {
	return s.FetchFailed
}

// FailedScrape builds the tagged error result.
func FailedScrape(format string, args ...any) ScrapeResult {
	return ScrapeResult{
		FullText:    ErrorMarker + " " + fmt.Sprintf(format, args...),
		Emails:      []string{},
		FetchFailed: true,
	}
}
