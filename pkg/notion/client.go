// Package notion wraps the Notion API for the lead, outbox and counterpart
// tables.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Notion API the outreach tables need.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	GetDatabase(ctx context.Context, dbID string) (*notionapi.Database, error)
	Search(ctx context.Context, req *notionapi.SearchRequest) (*notionapi.SearchResponse, error)
	GetPage(ctx context.Context, pageID string) (*notionapi.Page, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// defaultRPS is Notion's documented average request rate per integration.
const defaultRPS = 3

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit sets the request rate. Zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type notionClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a Client for the integration token, throttled to
// defaultRPS unless overridden.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(defaultRPS, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// throttled waits for the limiter, then runs fn and labels its error.
func throttled[T any](ctx context.Context, c *notionClient, label string, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.wait(ctx); err != nil {
		return zero, eris.Wrap(err, "notion: rate limit")
	}
	v, err := fn()
	if err != nil {
		return zero, eris.Wrap(err, "notion: "+label)
	}
	return v, nil
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return throttled(ctx, c, "query database "+dbID, func() (*notionapi.DatabaseQueryResponse, error) {
		return c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (c *notionClient) GetDatabase(ctx context.Context, dbID string) (*notionapi.Database, error) {
	return throttled(ctx, c, "get database "+dbID, func() (*notionapi.Database, error) {
		return c.api.Database.Get(ctx, notionapi.DatabaseID(dbID))
	})
}

func (c *notionClient) Search(ctx context.Context, req *notionapi.SearchRequest) (*notionapi.SearchResponse, error) {
	return throttled(ctx, c, "search", func() (*notionapi.SearchResponse, error) {
		return c.api.Search.Do(ctx, req)
	})
}

func (c *notionClient) GetPage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	return throttled(ctx, c, "get page "+pageID, func() (*notionapi.Page, error) {
		return c.api.Page.Get(ctx, notionapi.PageID(pageID))
	})
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return throttled(ctx, c, "create page", func() (*notionapi.Page, error) {
		return c.api.Page.Create(ctx, req)
	})
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return throttled(ctx, c, "update page "+pageID, func() (*notionapi.Page, error) {
		return c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
}

// ArchivePage trashes a row. Notion has no hard delete, so this is how a lead
// leaves the source table.
func ArchivePage(ctx context.Context, c Client, pageID string) error {
	_, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	})
	if err != nil {
		return eris.Wrapf(err, "notion: archive page %s", pageID)
	}
	return nil
}
