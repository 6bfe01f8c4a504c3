package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func leadPage(id, website string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			"Website": &notionapi.URLProperty{URL: website},
		},
	}
}

func atCursor(c string) any {
	return mock.MatchedBy(func(r *notionapi.DatabaseQueryRequest) bool {
		return r.StartCursor == notionapi.Cursor(c)
	})
}

func TestScan_FollowsCursorAndKeepsQuery(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	oldestFirst := []notionapi.SortObject{{
		Timestamp: notionapi.TimestampCreated,
		Direction: notionapi.SortOrderASC,
	}}
	sameQuery := func(c string) any {
		return mock.MatchedBy(func(r *notionapi.DatabaseQueryRequest) bool {
			return r.StartCursor == notionapi.Cursor(c) && r.PageSize == 2 && len(r.Sorts) == 1
		})
	}
	mc.On("QueryDatabase", ctx, "leads", sameQuery("")).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{leadPage("r1", "https://acme.example"), leadPage("r2", "https://globex.example")},
		HasMore:    true,
		NextCursor: "after-r2",
	}, nil).Once()
	mc.On("QueryDatabase", ctx, "leads", sameQuery("after-r2")).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("r3", "https://initech.example")},
	}, nil).Once()

	var sites []string
	err := Scan(ctx, mc, "leads", &notionapi.DatabaseQueryRequest{
		Sorts:       oldestFirst,
		PageSize:    2,
		StartCursor: "ignored",
	}, func(p *notionapi.Page) error {
		sites = append(sites, PropertyText(p.Properties["Website"]))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.example", "https://globex.example", "https://initech.example"}, sites)
	mc.AssertExpectations(t)
}

func TestScan_StopDoesNotFetchMore(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "leads", atCursor("")).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{leadPage("r1", "https://acme.example"), leadPage("r2", "")},
		HasMore:    true,
		NextCursor: "more",
	}, nil).Once()

	var visited int
	err := Scan(ctx, mc, "leads", nil, func(p *notionapi.Page) error {
		visited++
		return ErrStopScan
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
	mc.AssertNumberOfCalls(t, "QueryDatabase", 1)
}

func TestScan_VisitErrorPropagates(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "leads", mock.Anything).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("r1", "https://acme.example")},
	}, nil).Once()

	boom := eris.New("bad row")
	err := Scan(ctx, mc, "leads", nil, func(*notionapi.Page) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestQueryAll_StatusFilterPassedOnEveryPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	contacted := func(c string) any {
		return mock.MatchedBy(func(r *notionapi.DatabaseQueryRequest) bool {
			pf, ok := r.Filter.(notionapi.PropertyFilter)
			return ok && pf.Property == "STATUS" && pf.Select != nil &&
				pf.Select.Equals == "Contacted" && r.StartCursor == notionapi.Cursor(c)
		})
	}
	mc.On("QueryDatabase", ctx, "outbox", contacted("")).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{leadPage("d1", "https://acme.example")},
		HasMore:    true,
		NextCursor: "c2",
	}, nil).Once()
	mc.On("QueryDatabase", ctx, "outbox", contacted("c2")).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("d2", "https://globex.example")},
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "outbox", &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "STATUS",
			Select:   &notionapi.SelectFilterCondition{Equals: "Contacted"},
		},
	})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("d1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("d2"), pages[1].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_EmptyTable(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "mandates", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()

	pages, err := QueryAll(ctx, mc, "mandates", nil)
	assert.NoError(t, err)
	assert.Empty(t, pages)
}

func TestQueryAll_FailureMidway(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "ventures", atCursor("")).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{leadPage("v1", "https://fund.example")},
		HasMore:    true,
		NextCursor: "v-next",
	}, nil).Once()
	mc.On("QueryDatabase", ctx, "ventures", atCursor("v-next")).
		Return(nil, &notionapi.Error{Status: 502, Code: "bad_gateway"}).Once()

	pages, err := QueryAll(ctx, mc, "ventures", nil)
	require.Error(t, err)
	assert.Nil(t, pages)
	assert.Contains(t, err.Error(), "notion: scan ventures page 2")

	var apiErr *notionapi.Error
	assert.ErrorAs(t, err, &apiErr)
	mc.AssertExpectations(t)
}

func TestListDatabases_SkipsPages(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("Search", ctx, mock.MatchedBy(func(r *notionapi.SearchRequest) bool {
		return r.Filter.Value == "database" && r.StartCursor == ""
	})).Return(&notionapi.SearchResponse{
		Results: []notionapi.Object{
			&notionapi.Database{ID: "11aa", Title: []notionapi.RichText{{PlainText: "Leads"}}},
			&notionapi.Page{ID: "note"},
		},
		HasMore:    true,
		NextCursor: "s2",
	}, nil).Once()
	mc.On("Search", ctx, mock.MatchedBy(func(r *notionapi.SearchRequest) bool {
		return r.Filter.Value == "database" && r.StartCursor == "s2"
	})).Return(&notionapi.SearchResponse{
		Results: []notionapi.Object{
			&notionapi.Database{ID: "22bb", Title: []notionapi.RichText{{PlainText: "Ventures"}}},
		},
	}, nil).Once()

	dbs, err := ListDatabases(ctx, mc)
	require.NoError(t, err)
	assert.Equal(t, []Database{{ID: "11aa", Title: "Leads"}, {ID: "22bb", Title: "Ventures"}}, dbs)
	mc.AssertExpectations(t)
}

func TestListDatabases_Unauthorized(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("Search", ctx, mock.Anything).
		Return(nil, &notionapi.Error{Status: 401, Code: "unauthorized"}).Once()

	dbs, err := ListDatabases(ctx, mc)
	require.Error(t, err)
	assert.Nil(t, dbs)
	assert.Contains(t, err.Error(), "notion: list databases")
}
