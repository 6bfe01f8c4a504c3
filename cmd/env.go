package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/content"
	"github.com/sells-group/outreach-cli/internal/crawl"
	"github.com/sells-group/outreach-cli/internal/mailer"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/rowstore"
	"github.com/sells-group/outreach-cli/internal/scoring"
	"github.com/sells-group/outreach-cli/internal/store"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// outreachEnv holds the initialized collaborators used by run, once and serve.
type outreachEnv struct {
	Journal   store.Journal
	Rows      rowstore.Store
	Processor *pipeline.Processor
}

// Close releases resources held by the environment.
func (e *outreachEnv) Close() {
	if e.Journal != nil {
		_ = e.Journal.Close()
	}
}

// initJournal opens the run journal for the configured driver and migrates it.
func initJournal(ctx context.Context) (store.Journal, error) {
	var (
		j   store.Journal
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "outreach.db"
		}
		j, err = store.NewSQLite(dsn)
	case "postgres":
		j, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := j.Migrate(ctx); err != nil {
		_ = j.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return j, nil
}

func newNotionClient() notion.Client {
	return notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
}

// initOutreach validates the configuration and wires the pipeline.
// Callers should defer env.Close().
func initOutreach(ctx context.Context) (*outreachEnv, error) {
	if err := cfg.Validate("outreach"); err != nil {
		return nil, err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	journal, err := initJournal(ctx)
	if err != nil {
		return nil, err
	}

	rows := rowstore.NewNotionStore(newNotionClient(),
		rowstore.WithPolicy(resilience.PolicyFromConfig(cfg.Retry)),
		rowstore.WithStatusAsText(cfg.Notion.StatusAsText),
	)

	completer := anthropicpkg.NewCompleter(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		cfg.Anthropic.Temperature,
	)
	scorer := scoring.New(completer, cfg.Scoring, cfg.Sender, resilience.BreakerFromConfig(cfg.Retry))
	mail := mailer.New(cfg.SMTP, cfg.Sender)

	proc := pipeline.New(rows, crawl.New(cfg.Crawl), content.NewGate(cfg.Content), scorer, mail, journal, opts)

	zap.L().Info("outreach initialized",
		zap.String("mode", string(opts.Mode)),
		zap.String("source", opts.Tables.Source),
		zap.String("destination", opts.Tables.Destination),
		zap.String("counterparts", opts.Tables.Counterparts),
		zap.Bool("test_mode", opts.TestMode),
		zap.Stringer("mailer", mail),
		zap.String("store", cfg.Store.Driver),
	)

	return &outreachEnv{Journal: journal, Rows: rows, Processor: proc}, nil
}
