// Package crawl fetches a candidate's website and extracts its text and
// contact addresses.
package crawl

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrCrawlFailed marks a crawl in which every page fetch failed.
var ErrCrawlFailed = eris.New("crawl: every page fetch failed")

// PageFetcher fetches one page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Crawler visits a seed page, up to MaxInternalPages same-site links found on
// it, and the priority paths of the site root. Each URL is fetched at most once.
type Crawler struct {
	fetcher          PageFetcher
	maxInternalPages int
	priorityPaths    []string
	matcher          *PathMatcher
}

// New builds a Crawler from configuration.
func New(cfg config.CrawlConfig) *Crawler {
	f := NewFetcher(cfg.CrawlTimeout(), cfg.UserAgent, int64(cfg.MaxBodyKB)*1024, cfg.HostRate)
	return NewWithFetcher(f, cfg.MaxInternalPages, cfg.PriorityPaths, cfg.ExcludePaths)
}

// NewWithFetcher builds a Crawler around an arbitrary page fetcher.
func NewWithFetcher(f PageFetcher, maxInternalPages int, priorityPaths, excludePaths []string) *Crawler {
	if maxInternalPages < 0 {
		maxInternalPages = 0
	}
	return &Crawler{
		fetcher:          f,
		maxInternalPages: maxInternalPages,
		priorityPaths:    priorityPaths,
		matcher:          NewPathMatcher(excludePaths),
	}
}

// Crawl fetches the site and aggregates its text and email addresses. When
// every fetch fails the result carries the error marker and no emails; a
// malformed seed is reported the same way.
func (c *Crawler) Crawl(ctx context.Context, seed string) model.ScrapeResult {
	seedURL, err := NormalizeSeed(seed)
	if err != nil {
		return model.FailedScrape("invalid website %q: %v", seed, err)
	}

	log := zap.L().With(zap.String("seed", seedURL.String()))
	visited := make(map[string]bool)
	emails := make(map[string]struct{})
	var texts []string
	var lastErr error
	fetched := 0

	visit := func(u string) *Page {
		if visited[u] {
			return nil
		}
		visited[u] = true

		page, err := c.fetcher.Fetch(ctx, u)
		if err != nil {
			lastErr = err
			log.Debug("crawl: page fetch failed", zap.String("url", u), zap.Error(err))
			return nil
		}
		fetched++
		if page.Text != "" {
			texts = append(texts, page.Text)
		}
		for _, e := range ExtractEmails(page.Text) {
			emails[e] = struct{}{}
		}
		return page
	}

	seedPage := visit(seedURL.String())

	if seedPage != nil && c.maxInternalPages > 0 {
		followed := 0
		for _, link := range seedPage.Links {
			if followed >= c.maxInternalPages || ctx.Err() != nil {
				break
			}
			if visited[link] || c.matcher.IsExcluded(link) {
				continue
			}
			visit(link)
			followed++
		}
	}

	root := seedURL.Scheme + "://" + seedURL.Host
	for _, p := range c.priorityPaths {
		if ctx.Err() != nil {
			break
		}
		visit(root + "/" + strings.Trim(p, "/"))
	}

	if fetched == 0 {
		log.Warn("crawl: no page could be fetched", zap.Int("attempted", len(visited)), zap.Error(lastErr))
		return model.FailedScrape("%v: %v", ErrCrawlFailed, lastErr)
	}

	res := model.ScrapeResult{
		FullText: strings.Join(texts, "\n\n"),
		Emails:   sortedSet(emails),
		Pages:    fetched,
	}
	log.Info("crawl: complete",
		zap.Int("pages", res.Pages),
		zap.Int("attempted", len(visited)),
		zap.Int("emails", len(res.Emails)),
	)
	return res
}

// NormalizeSeed adds an https scheme when missing and a root path when empty.
func NormalizeSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("crawl: empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse url")
	}
	if u.Host == "" {
		return nil, eris.Errorf("crawl: no host in %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, eris.Errorf("crawl: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	return u, nil
}
