package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// ErrStopScan ends a Scan early without reporting an error.
var ErrStopScan = eris.New("notion: stop scan")

// Scan walks the rows of a database one result page at a time, calling visit
// for each row in query order. Returning ErrStopScan from visit stops the walk
// before the next page is fetched. The query's filter, sorts and page size are
// reused for every page; its cursor is ignored.
func Scan(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest, visit func(*notionapi.Page) error) error {
	var base notionapi.DatabaseQueryRequest
	if query != nil {
		base = notionapi.DatabaseQueryRequest{
			Filter:   query.Filter,
			Sorts:    query.Sorts,
			PageSize: query.PageSize,
		}
	}

	var cursor notionapi.Cursor
	for pageNo := 1; ; pageNo++ {
		req := base
		req.StartCursor = cursor
		resp, err := c.QueryDatabase(ctx, dbID, &req)
		if err != nil {
			return eris.Wrapf(err, "notion: scan %s page %d", dbID, pageNo)
		}
		for i := range resp.Results {
			if err := visit(&resp.Results[i]); err != nil {
				if eris.Is(err, ErrStopScan) {
					return nil
				}
				return err
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		cursor = resp.NextCursor
	}
}

// QueryAll collects every row matching the query.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	err := Scan(ctx, c, dbID, query, func(p *notionapi.Page) error {
		all = append(all, *p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Database is a database visible to the integration.
type Database struct {
	ID    string
	Title string
}

// ListDatabases pages through the search endpoint and returns every database
// shared with the integration.
func ListDatabases(ctx context.Context, c Client) ([]Database, error) {
	var out []Database
	req := &notionapi.SearchRequest{
		Filter: notionapi.SearchFilter{Property: "object", Value: "database"},
	}
	for {
		resp, err := c.Search(ctx, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: list databases")
		}
		for _, obj := range resp.Results {
			if db, ok := obj.(*notionapi.Database); ok {
				out = append(out, Database{ID: string(db.ID), Title: PlainText(db.Title)})
			}
		}
		if !resp.HasMore {
			return out, nil
		}
		req = &notionapi.SearchRequest{Filter: req.Filter, StartCursor: resp.NextCursor}
	}
}
