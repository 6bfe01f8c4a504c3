package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scoring"
	"github.com/sells-group/outreach-cli/internal/store"
)

type MockRowStore struct {
	mock.Mock
}

func (m *MockRowStore) ListTables(ctx context.Context) ([]model.Table, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Table), args.Error(1)
}

func (m *MockRowStore) NextUnprocessed(ctx context.Context, table string) (*model.Row, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Row), args.Error(1)
}

func (m *MockRowStore) GetRow(ctx context.Context, table, id string) (*model.Row, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Row), args.Error(1)
}

func (m *MockRowStore) UpdateField(ctx context.Context, table, id, field, value string) error {
	args := m.Called(ctx, table, id, field, value)
	return args.Error(0)
}

func (m *MockRowStore) CreateRow(ctx context.Context, table string, row model.Row) (*model.Row, error) {
	args := m.Called(ctx, table, row)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Row), args.Error(1)
}

func (m *MockRowStore) DeleteRow(ctx context.Context, table, id string) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockRowStore) ListCounterparts(ctx context.Context, table string) ([]model.CounterpartRecord, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CounterpartRecord), args.Error(1)
}

type MockCrawler struct {
	mock.Mock
}

func (m *MockCrawler) Crawl(ctx context.Context, seed string) model.ScrapeResult {
	args := m.Called(ctx, seed)
	return args.Get(0).(model.ScrapeResult)
}

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) ScoreAndDraft(ctx context.Context, req scoring.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) (bool, string) {
	args := m.Called(ctx, to, subject, body)
	return args.Bool(0), args.String(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) RecordRun(ctx context.Context, run model.Run) (*model.Run, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *MockJournal) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *MockJournal) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *MockJournal) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockJournal) Close() error {
	return m.Called().Error(0)
}
