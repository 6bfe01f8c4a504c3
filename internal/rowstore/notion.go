package rowstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// Counterpart property names.
const (
	propAcronym  = "Acronym"
	propIndustry = "Industry"
	propNotes    = "Notes"
	propRaising  = "Raising"
)

// NotionStore implements Store on Notion databases. A table is a database
// and a row is a page in it.
type NotionStore struct {
	client       notion.Client
	policy       resilience.Policy
	statusAsText bool

	mu      sync.Mutex
	schemas map[string]notion.Schema
}

// Option configures a NotionStore.
type Option func(*NotionStore)

// WithPolicy sets the retry policy applied to every API call.
func WithPolicy(p resilience.Policy) Option {
	return func(s *NotionStore) { s.policy = p }
}

// WithStatusAsText writes STATUS as rich text instead of a select tag when
// the table schema does not say otherwise.
func WithStatusAsText(v bool) Option {
	return func(s *NotionStore) { s.statusAsText = v }
}

// NewNotionStore creates a row store backed by the given Notion client.
func NewNotionStore(c notion.Client, opts ...Option) *NotionStore {
	s := &NotionStore{
		client:  c,
		policy:  resilience.DefaultPolicy(),
		schemas: make(map[string]notion.Schema),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTables returns every database shared with the integration.
func (s *NotionStore) ListTables(ctx context.Context) ([]model.Table, error) {
	dbs, err := resilience.DoVal(ctx, s.policy.Named("rowstore.list_tables"), func(ctx context.Context) ([]notion.Database, error) {
		return classify(notion.ListDatabases(ctx, s.client))
	})
	if err != nil {
		return nil, eris.Wrap(err, "rowstore: list tables")
	}
	tables := make([]model.Table, 0, len(dbs))
	for _, db := range dbs {
		tables = append(tables, model.Table{ID: db.ID, Name: db.Title})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// NextUnprocessed walks the table oldest first and stops at the first
// eligible row. A retry restarts the walk from the oldest row.
func (s *NotionStore) NextUnprocessed(ctx context.Context, table string) (*model.Row, error) {
	query := &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{{
			Timestamp: notionapi.TimestampCreated,
			Direction: notionapi.SortOrderASC,
		}},
		PageSize: 100,
	}
	found, err := resilience.DoVal(ctx, s.policy.Named("rowstore.next_unprocessed"), func(ctx context.Context) (*model.Row, error) {
		var next *model.Row
		err := notion.Scan(ctx, s.client, table, query, func(p *notionapi.Page) error {
			row := rowFromPage(p)
			if !row.Unprocessed() {
				return nil
			}
			next = &row
			return notion.ErrStopScan
		})
		return classify(next, err)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rowstore: next unprocessed in %s", table)
	}
	return found, nil
}

// GetRow fetches a single row.
func (s *NotionStore) GetRow(ctx context.Context, table, id string) (*model.Row, error) {
	page, err := resilience.DoVal(ctx, s.policy.Named("rowstore.get_row"), func(ctx context.Context) (*notionapi.Page, error) {
		return classify(s.client.GetPage(ctx, id))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rowstore: get row %s", id)
	}
	if db := string(page.Parent.DatabaseID); db != "" && table != "" && normalizeID(db) != normalizeID(table) {
		return nil, eris.Errorf("rowstore: row %s belongs to %s, not %s", id, db, table)
	}
	row := rowFromPage(page)
	return &row, nil
}

// UpdateField writes one field of a row.
func (s *NotionStore) UpdateField(ctx context.Context, table, id, field, value string) error {
	schema, err := s.schema(ctx, table)
	if err != nil {
		return err
	}
	prop, ok := notion.BuildProperty(s.fieldType(schema, field), value)
	if !ok {
		return eris.Errorf("rowstore: cannot write %q as %s", field, s.fieldType(schema, field))
	}
	err = resilience.Do(ctx, s.policy.Named("rowstore.update_field"), func(ctx context.Context) error {
		_, err := classify(s.client.UpdatePage(ctx, id, &notionapi.PageUpdateRequest{
			Properties: notionapi.Properties{field: prop},
		}))
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "rowstore: update %s on row %s", field, id)
	}
	return nil
}

// CreateRow adds a row to the table. Fields the table schema lacks are
// dropped and logged; the row title goes to the table's title property.
func (s *NotionStore) CreateRow(ctx context.Context, table string, row model.Row) (*model.Row, error) {
	schema, err := s.schema(ctx, table)
	if err != nil {
		return nil, err
	}

	fields := row.Fields()
	if title := schema.TitleProperty(); title != "" && row.Title != "" {
		fields[title] = row.Title
	}

	props := make(notionapi.Properties, len(fields))
	var skipped []string
	for name, value := range fields {
		if _, known := schema[name]; !known {
			skipped = append(skipped, name)
			continue
		}
		prop, ok := notion.BuildProperty(s.fieldType(schema, name), value)
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		props[name] = prop
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		zap.L().Warn("rowstore: fields missing from destination schema",
			zap.String("table", table),
			zap.String("row_id", row.ID),
			zap.Strings("fields", skipped),
		)
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(table),
		},
		Properties: props,
	}
	// Creates are not idempotent: a retried timeout could duplicate the row.
	policy := s.policy.Named("rowstore.create_row")
	policy.ShouldRetry = rateLimited
	page, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*notionapi.Page, error) {
		return s.client.CreatePage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rowstore: create row in %s", table)
	}
	created := rowFromPage(page)
	return &created, nil
}

// DeleteRow archives the row's page.
func (s *NotionStore) DeleteRow(ctx context.Context, table, id string) error {
	err := resilience.Do(ctx, s.policy.Named("rowstore.delete_row"), func(ctx context.Context) error {
		_, err := classify(struct{}{}, notion.ArchivePage(ctx, s.client, id))
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "rowstore: delete row %s from %s", id, table)
	}
	return nil
}

// ListCounterparts reads every mandate or venture in the table, oldest first.
// The identifier comes from the Acronym property, falling back to the title.
func (s *NotionStore) ListCounterparts(ctx context.Context, table string) ([]model.CounterpartRecord, error) {
	req := &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{{
			Timestamp: notionapi.TimestampCreated,
			Direction: notionapi.SortOrderASC,
		}},
	}
	pages, err := resilience.DoVal(ctx, s.policy.Named("rowstore.list_counterparts"), func(ctx context.Context) ([]notionapi.Page, error) {
		return classify(notion.QueryAll(ctx, s.client, table, req))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rowstore: list counterparts in %s", table)
	}

	out := make([]model.CounterpartRecord, 0, len(pages))
	for i := range pages {
		out = append(out, counterpartFromPage(&pages[i]))
	}
	return out, nil
}

func (s *NotionStore) schema(ctx context.Context, table string) (notion.Schema, error) {
	s.mu.Lock()
	cached, ok := s.schemas[table]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	db, err := resilience.DoVal(ctx, s.policy.Named("rowstore.schema"), func(ctx context.Context) (*notionapi.Database, error) {
		return classify(s.client.GetDatabase(ctx, table))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rowstore: load schema of %s", table)
	}
	schema := notion.SchemaOf(db)

	s.mu.Lock()
	s.schemas[table] = schema
	s.mu.Unlock()
	return schema, nil
}

// fieldType picks the property type a value is written as. The schema wins;
// unknown fields fall back to the stable row contract.
func (s *NotionStore) fieldType(schema notion.Schema, field string) string {
	if typ, ok := schema[field]; ok {
		return typ
	}
	switch field {
	case model.FieldWebsite:
		return "url"
	case model.FieldEmail:
		return "email"
	case model.FieldStatus:
		if s.statusAsText {
			return "rich_text"
		}
		return "select"
	}
	return "rich_text"
}

func rowFromPage(p *notionapi.Page) model.Row {
	fields := make(map[string]string, len(p.Properties))
	title := ""
	for name, prop := range p.Properties {
		if prop == nil {
			continue
		}
		if t, ok := prop.(*notionapi.TitleProperty); ok {
			title = notion.PlainText(t.Title)
			continue
		}
		if v := notion.PropertyText(prop); v != "" {
			fields[name] = v
		}
	}
	row := model.RowFromFields(string(p.ID), fields)
	row.Title = title
	return row
}

func counterpartFromPage(p *notionapi.Page) model.CounterpartRecord {
	rec := model.CounterpartRecord{ID: string(p.ID)}
	title := ""
	for name, prop := range p.Properties {
		if prop == nil {
			continue
		}
		v := strings.TrimSpace(notion.PropertyText(prop))
		if _, ok := prop.(*notionapi.TitleProperty); ok {
			title = v
		}
		switch name {
		case propAcronym:
			rec.Acronym = v
		case propIndustry:
			rec.Industry = v
		case propNotes:
			rec.Notes = v
		case propRaising:
			rec.Raising = v
		default:
			if v == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = v
		}
	}
	if rec.Acronym == "" {
		rec.Acronym = title
	}
	return rec
}

// classify marks Notion API errors with retryable status codes as transient.
func classify[T any](v T, err error) (T, error) {
	if err == nil {
		return v, nil
	}
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return v, resilience.MarkStatus(err, apiErr.Status)
	}
	return v, err
}

// rateLimited reports a request Notion rejected before acting on it.
func rateLimited(err error) bool {
	var apiErr *notionapi.Error
	return errors.As(err, &apiErr) && apiErr.Status == 429
}

func normalizeID(id string) string {
	return strings.ReplaceAll(strings.ToLower(id), "-", "")
}

// IsAccessError reports a Notion rejection that retrying cannot fix: a bad
// token, a table not shared with the integration, or an unknown table id.
func IsAccessError(err error) bool {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case 401, 403, 404:
		return true
	}
	return false
}
