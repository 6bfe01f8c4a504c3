// Package content decides whether scraped text is usable for scoring.
package content

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrInsufficientContent means neither the scrape nor the stored description
// has enough words to analyze. The row is skipped, not retried.
var ErrInsufficientContent = eris.New("content: insufficient text")

// Defaults used when the configuration leaves a bound unset.
const (
	DefaultMinWords = 10
	DefaultMaxWords = 2000
)

// Source says where the usable text came from.
type Source string

const (
	SourceScrape      Source = "scrape"
	SourceDescription Source = "description"
)

// Usable is text that passed the gate.
type Usable struct {
	Text      string
	Source    Source
	Words     int
	Truncated bool
}

// Gate enforces the word-count bounds.
type Gate struct {
	MinWords int
	MaxWords int
}

// NewGate builds a Gate from configuration.
func NewGate(cfg config.ContentConfig) Gate {
	g := Gate{MinWords: cfg.MinWords, MaxWords: cfg.MaxWords}
	if g.MinWords <= 0 {
		g.MinWords = DefaultMinWords
	}
	if g.MaxWords <= 0 {
		g.MaxWords = DefaultMaxWords
	}
	return g
}

// Ensure returns usable text for the row: the scraped text when the crawl
// succeeded with enough words, else the fallback description. The result is
// cut to MaxWords leading words.
func (g Gate) Ensure(scraped model.ScrapeResult, fallback string) (Usable, error) {
	words := []string(nil)
	src := SourceScrape
	if !scraped.Failed() {
		words = Words(scraped.FullText)
	}
	if len(words) < g.MinWords {
		words = Words(fallback)
		src = SourceDescription
	}
	if len(words) < g.MinWords {
		return Usable{Source: src, Words: len(words)}, eris.Wrapf(ErrInsufficientContent,
			"%d words, need %d", len(words), g.MinWords)
	}

	u := Usable{Source: src, Words: len(words)}
	if g.MaxWords > 0 && len(words) > g.MaxWords {
		words = words[:g.MaxWords]
		u.Truncated = true
	}
	u.Text = strings.Join(words, " ")
	return u, nil
}

// Words splits NFC-normalized text on whitespace.
func Words(s string) []string {
	return strings.Fields(norm.NFC.String(s))
}
