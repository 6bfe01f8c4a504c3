package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestEnsure_UsesScrapeWhenLongEnough(t *testing.T) {
	g := Gate{MinWords: 10, MaxWords: 100}
	u, err := g.Ensure(model.ScrapeResult{FullText: words(12)}, "a fallback description")
	require.NoError(t, err)
	assert.Equal(t, SourceScrape, u.Source)
	assert.Equal(t, 12, u.Words)
	assert.False(t, u.Truncated)
}

func TestEnsure_FallsBackOnShortScrape(t *testing.T) {
	g := Gate{MinWords: 10, MaxWords: 100}
	u, err := g.Ensure(model.ScrapeResult{FullText: "too short"}, words(15))
	require.NoError(t, err)
	assert.Equal(t, SourceDescription, u.Source)
	assert.Equal(t, words(15), u.Text)
}

func TestEnsure_FallsBackOnFailedScrape(t *testing.T) {
	g := Gate{MinWords: 3, MaxWords: 100}
	// The error text itself has enough words but must never be used.
	failed := model.FailedScrape("crawl: every page fetch failed: dial tcp refused")
	u, err := g.Ensure(failed, "Seed stage biotech platform")
	require.NoError(t, err)
	assert.Equal(t, SourceDescription, u.Source)
	assert.Equal(t, "Seed stage biotech platform", u.Text)
}

func TestEnsure_InsufficientAfterFallback(t *testing.T) {
	g := Gate{MinWords: 10, MaxWords: 100}
	for _, fallback := range []string{"", "   ", words(9)} {
		_, err := g.Ensure(model.ScrapeResult{FullText: words(9)}, fallback)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientContent))
	}
}

func TestEnsure_TruncatesOnWordBoundary(t *testing.T) {
	g := Gate{MinWords: 2, MaxWords: 3}
	u, err := g.Ensure(model.ScrapeResult{FullText: "alpha  beta\n\tgamma delta epsilon"}, "")
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", u.Text)
	assert.True(t, u.Truncated)
	assert.Equal(t, 5, u.Words)
}

func TestWords_NormalizesUnicode(t *testing.T) {
	// "e" + combining acute becomes the single precomposed rune.
	got := Words("Cafe\u0301  au lait")
	assert.Equal(t, []string{"Caf\u00e9", "au", "lait"}, got)
}

func TestNewGate_Defaults(t *testing.T) {
	g := NewGate(config.ContentConfig{})
	assert.Equal(t, DefaultMinWords, g.MinWords)
	assert.Equal(t, DefaultMaxWords, g.MaxWords)

	g = NewGate(config.ContentConfig{MinWords: 5, MaxWords: 1000})
	assert.Equal(t, Gate{MinWords: 5, MaxWords: 1000}, g)
}
