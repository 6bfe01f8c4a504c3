package crawl

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// Page is one fetched and parsed page.
type Page struct {
	URL   string
	Text  string
	Links []string
}

// Fetcher downloads single pages with a per-request timeout and a per-host
// request rate.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	hostRate  float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher. A zero hostRate disables per-host throttling.
func NewFetcher(timeout time.Duration, userAgent string, maxBody int64, hostRate float64) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		userAgent: userAgent,
		maxBody:   maxBody,
		hostRate:  hostRate,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Fetch downloads pageURL and extracts its visible text and same-site links.
// HTTP errors, anti-bot pages and non-HTML bodies are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse url")
	}
	if err := f.wait(ctx, u.Hostname()); err != nil {
		return nil, eris.Wrap(err, "crawl: host rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("crawl: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("crawl: status %d", resp.StatusCode)
	}

	mediaType, params, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "" && !strings.Contains(mediaType, "html") && !strings.HasPrefix(mediaType, "text/") {
		return nil, eris.Errorf("crawl: unsupported content type %s", mediaType)
	}

	body, err = decode(body, params["charset"])
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse html")
	}

	// Links resolve against the final URL after redirects.
	base := resp.Request.URL
	return &Page{
		URL:   pageURL,
		Links: SameSiteLinks(doc, base),
		Text:  VisibleText(doc),
	}, nil
}

func (f *Fetcher) wait(ctx context.Context, host string) error {
	if f.hostRate <= 0 {
		return nil
	}
	f.mu.Lock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.hostRate), 1)
		f.limiters[host] = lim
	}
	f.mu.Unlock()
	return lim.Wait(ctx)
}

// decode converts body from the declared charset to UTF-8.
func decode(body []byte, charset string) ([]byte, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		// Undeclared or bogus charsets are common; fall back to the raw bytes.
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: decode %s", charset)
	}
	return out, nil
}
