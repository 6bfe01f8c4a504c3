package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type siteRecorder struct {
	mu   sync.Mutex
	hits map[string]int
}

func (r *siteRecorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[path]++
}

func (r *siteRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.hits {
		n += c
	}
	return n
}

func newSite(t *testing.T, pages map[string]string) (*httptest.Server, *siteRecorder) {
	t.Helper()
	rec := &siteRecorder{hits: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r.URL.Path)
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func testFetcher() *Fetcher {
	return NewFetcher(2*time.Second, "outreach-test", 1<<20, 0)
}

func TestCrawl_SeedLinksAndPriorityPaths(t *testing.T) {
	srv, rec := newSite(t, map[string]string{
		"/": `<html><head><title>Acme</title><script>var x = "hidden@script.example";</script></head>
<body><h1>Acme Bio</h1><p>We raise seed funding in biotech.</p>
<a href="/">Home</a>
<a href="/team">Team</a>
<a href="/contact#form">Contact</a>
<a href="mailto:sales@acme.example">Mail</a>
<a href="tel:+15551234">Call</a>
<a href="https://elsewhere.example/">Partner</a>
<a href="/blog/launch">Blog</a>
<a href="#top">Top</a>
</body></html>`,
		"/team":    `<html><body><p>Founders: jane@acme.example</p></body></html>`,
		"/contact": `<html><body><p>Write to info@acme.example.</p></body></html>`,
	})

	c := NewWithFetcher(testFetcher(), 5, []string{"contact", "about"}, []string{"/blog/*"})
	res := c.Crawl(context.Background(), srv.URL)

	require.False(t, res.Failed(), res.FullText)
	assert.Equal(t, []string{"info@acme.example", "jane@acme.example"}, res.Emails)
	assert.Contains(t, res.FullText, "We raise seed funding in biotech.")
	assert.Contains(t, res.FullText, "Founders:")
	assert.NotContains(t, res.FullText, "hidden@script.example")
	assert.Equal(t, 3, res.Pages)

	// "/", "/team", "/contact" and the "/about" priority path; nothing twice.
	assert.Equal(t, 1, rec.hits["/"])
	assert.Equal(t, 1, rec.hits["/contact"])
	assert.Equal(t, 1, rec.hits["/about"])
	assert.Equal(t, 0, rec.hits["/blog/launch"])
	assert.Equal(t, 4, rec.total())
}

func TestCrawl_CapsInternalLinks(t *testing.T) {
	var links strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&links, `<a href="/p%d">p%d</a>`, i, i)
	}
	pages := map[string]string{"/": "<html><body>home " + links.String() + "</body></html>"}
	for i := 0; i < 10; i++ {
		pages[fmt.Sprintf("/p%d", i)] = "<html><body>page</body></html>"
	}
	srv, rec := newSite(t, pages)

	res := NewWithFetcher(testFetcher(), 2, nil, nil).Crawl(context.Background(), srv.URL)
	require.False(t, res.Failed())
	assert.Equal(t, 3, rec.total())
	assert.Equal(t, 1, rec.hits["/p0"])
	assert.Equal(t, 1, rec.hits["/p1"])
	assert.Equal(t, 0, rec.hits["/p2"])
}

func TestCrawl_NoLinkFollowingStillFetchesPriorityPaths(t *testing.T) {
	srv, rec := newSite(t, map[string]string{
		"/":        `<html><body><a href="/team">Team</a></body></html>`,
		"/support": `<html><body>help@acme.example</body></html>`,
	})

	res := NewWithFetcher(testFetcher(), 0, []string{"/support/"}, nil).Crawl(context.Background(), srv.URL)
	assert.Equal(t, []string{"help@acme.example"}, res.Emails)
	assert.Equal(t, 0, rec.hits["/team"])
	assert.Equal(t, 1, rec.hits["/support"])
}

func TestCrawl_SeedFailsButPriorityPathSucceeds(t *testing.T) {
	srv, _ := newSite(t, map[string]string{
		"/contact": `<html><body>Reach us at hello@acme.example</body></html>`,
	})

	res := NewWithFetcher(testFetcher(), 5, []string{"contact"}, nil).Crawl(context.Background(), srv.URL)
	require.False(t, res.Failed())
	assert.Equal(t, []string{"hello@acme.example"}, res.Emails)
	assert.Equal(t, 1, res.Pages)
}

func TestCrawl_TotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := NewWithFetcher(testFetcher(), 5, []string{"contact", "about"}, nil).Crawl(context.Background(), srv.URL)
	assert.True(t, res.Failed())
	assert.Contains(t, res.FullText, "every page fetch failed")
	assert.NotNil(t, res.Emails)
	assert.Empty(t, res.Emails)
}

func TestCrawl_SucceededWithZeroEmails(t *testing.T) {
	srv, _ := newSite(t, map[string]string{"/": "<html><body>No contact details here.</body></html>"})

	res := NewWithFetcher(testFetcher(), 5, nil, nil).Crawl(context.Background(), srv.URL)
	assert.False(t, res.Failed())
	assert.Empty(t, res.Emails)
}

func TestCrawl_PageTextStartingWithMarker(t *testing.T) {
	srv, _ := newSite(t, map[string]string{"/": "<html><body>ERROR: Records is a label. Write to demo@errorrecords.example</body></html>"})

	res := NewWithFetcher(testFetcher(), 5, nil, nil).Crawl(context.Background(), srv.URL)
	assert.False(t, res.Failed())
	assert.Contains(t, res.FullText, "ERROR: Records is a label")
	assert.Equal(t, []string{"demo@errorrecords.example"}, res.Emails)
}

func TestCrawl_InvalidSeed(t *testing.T) {
	res := NewWithFetcher(testFetcher(), 5, nil, nil).Crawl(context.Background(), "   ")
	assert.True(t, res.Failed())
	assert.Contains(t, res.FullText, "invalid website")
}

func TestNormalizeSeed(t *testing.T) {
	u, err := NormalizeSeed("acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/", u.String())

	u, err = NormalizeSeed("http://acme.example/about#x")
	require.NoError(t, err)
	assert.Equal(t, "http://acme.example/about", u.String())

	_, err = NormalizeSeed("ftp://acme.example")
	assert.Error(t, err)
	_, err = NormalizeSeed("")
	assert.Error(t, err)
}

func TestNew_FromConfig(t *testing.T) {
	c := New(testCrawlConfig())
	assert.Equal(t, 3, c.maxInternalPages)
	assert.Equal(t, []string{"contact"}, c.priorityPaths)
	assert.True(t, c.matcher.IsExcluded("https://a.example/blog/x"))
}
