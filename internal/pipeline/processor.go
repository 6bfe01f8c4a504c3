// Package pipeline takes one row from the source table to a terminal
// outcome: crawl, content gate, scoring, validation, send decision and
// migration to the destination table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/content"
	"github.com/sells-group/outreach-cli/internal/crawl"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/rowstore"
	"github.com/sells-group/outreach-cli/internal/scoring"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/internal/validate"
)

// Crawler fetches a website and aggregates its text and email addresses.
type Crawler interface {
	Crawl(ctx context.Context, seed string) model.ScrapeResult
}

// Scorer asks the model to score and draft. Failures are *scoring.ModelError.
type Scorer interface {
	ScoreAndDraft(ctx context.Context, req scoring.Request) (string, error)
}

// Mailer sends one message and reports success with a message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (bool, string)
}

// Tables names the row-store tables one mode works on.
type Tables struct {
	Source       string
	Destination  string
	Counterparts string
}

// Options is the immutable per-process configuration of a Processor.
type Options struct {
	Mode         model.Mode
	Tables       Tables
	TestMode     bool
	TestEmail    string
	FitThreshold int
	NoteMaxChars int
	// DropFields are removed from the destination copy in Investors mode.
	DropFields []string
}

// OptionsFromConfig selects tables and limits for the configured mode.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, ok := model.ParseMode(cfg.Outreach.Mode)
	if !ok {
		return Options{}, eris.Errorf("pipeline: unknown mode %q", cfg.Outreach.Mode)
	}
	counterparts := cfg.Notion.MandatesDB
	if mode == model.ModeInvestors {
		counterparts = cfg.Notion.VenturesDB
	}
	return Options{
		Mode: mode,
		Tables: Tables{
			Source:       cfg.Notion.SourceDB,
			Destination:  cfg.Notion.DestinationDB,
			Counterparts: counterparts,
		},
		TestMode:     cfg.Outreach.TestMode,
		TestEmail:    cfg.Outreach.TestEmail,
		FitThreshold: cfg.Scoring.FitThreshold,
		NoteMaxChars: cfg.Scoring.NoteMaxChars,
		DropFields:   cfg.Scoring.InvestorDropFields,
	}, nil
}

// Processor runs rows through the pipeline one at a time.
type Processor struct {
	rows    rowstore.Store
	crawler Crawler
	gate    content.Gate
	scorer  Scorer
	mailer  Mailer
	journal store.Journal
	opts    Options
}

// New creates a Processor. journal may be nil.
func New(rows rowstore.Store, crawler Crawler, gate content.Gate, scorer Scorer, mailer Mailer, journal store.Journal, opts Options) *Processor {
	if opts.FitThreshold <= 0 {
		opts.FitThreshold = model.FitThreshold
	}
	if opts.NoteMaxChars <= 0 {
		opts.NoteMaxChars = 10000
	}
	return &Processor{
		rows:    rows,
		crawler: crawler,
		gate:    gate,
		scorer:  scorer,
		mailer:  mailer,
		journal: journal,
		opts:    opts,
	}
}

// Options returns the processor's configuration.
func (p *Processor) Options() Options { return p.opts }

// ProcessNext processes the oldest unprocessed row of the source table.
// It returns ErrNoRows when there is none.
func (p *Processor) ProcessNext(ctx context.Context) (*model.Outcome, error) {
	row, err := p.rows.NextUnprocessed(ctx, p.opts.Tables.Source)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: next row")
	}
	if row == nil {
		return nil, ErrNoRows
	}
	out, err := p.ProcessRow(ctx, *row)
	return &out, err
}

// ProcessByID processes a named row of the source table. A row already
// marked Contacted is refused with ErrAlreadyContacted so it is never
// mailed twice.
func (p *Processor) ProcessByID(ctx context.Context, id string) (*model.Outcome, error) {
	row, err := p.rows.GetRow(ctx, p.opts.Tables.Source, id)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: get row %s", id)
	}
	if !row.Unprocessed() {
		return nil, eris.Wrapf(ErrAlreadyContacted, "row %s", id)
	}
	out, err := p.ProcessRow(ctx, *row)
	return &out, err
}

// ProcessRow takes one row to a terminal state, or leaves it in the source
// table untouched and returns the error when it cannot be judged: total
// crawl failure without a description, a counterpart load failure or a
// model failure. A terminal outcome may still carry an ErrPersist error
// when a recording step failed.
func (p *Processor) ProcessRow(ctx context.Context, row model.Row) (model.Outcome, error) {
	log := zap.L().With(zap.String("row_id", row.ID), zap.String("website", row.Website))
	start := time.Now()
	out := model.Outcome{RowID: row.ID, Website: row.Website, State: model.StateNew}
	log.Info("pipeline: processing row", zap.String("mode", string(p.opts.Mode)))

	// New -> Scraped
	scrape := p.crawler.Crawl(ctx, row.Website)
	if scrape.Failed() {
		log.Warn("pipeline: crawl failed", zap.String("detail", scrape.FullText))
		if len(content.Words(row.Description)) == 0 {
			return p.leave(ctx, out, eris.Wrapf(crawl.ErrCrawlFailed, "pipeline: crawl %s and no description", row.Website))
		}
	}
	out.State = model.StateScraped

	usable, err := p.gate.Ensure(scrape, row.Description)
	if errors.Is(err, content.ErrInsufficientContent) {
		reason := "Skipped: " + err.Error()
		log.Info("pipeline: insufficient content", zap.Int("words", usable.Words), zap.String("source", string(usable.Source)))
		return p.finish(ctx, row, out, model.StateSkipped, reason, reason)
	}
	if err != nil {
		return p.leave(ctx, out, eris.Wrap(err, "pipeline: content gate"))
	}
	log.Debug("pipeline: usable text",
		zap.String("source", string(usable.Source)),
		zap.Int("words", usable.Words),
		zap.Bool("truncated", usable.Truncated),
		zap.Int("pages", scrape.Pages),
		zap.Int("emails", len(scrape.Emails)),
	)

	counterparts, err := p.rows.ListCounterparts(ctx, p.opts.Tables.Counterparts)
	if err != nil {
		return p.leave(ctx, out, eris.Wrap(err, "pipeline: load counterparts"))
	}

	raw, err := p.scorer.ScoreAndDraft(ctx, scoring.Request{
		Text:         usable.Text,
		Emails:       scrape.Emails,
		KnownEmail:   row.Email,
		Mode:         p.opts.Mode,
		Counterparts: counterparts,
		Location:     row.Location,
		Funding:      row.TotalFunding,
	})
	if err != nil {
		return p.leave(ctx, out, eris.Wrap(err, "pipeline: score"))
	}
	out.Raw = raw

	result, err := validate.Validate(raw)
	if err != nil {
		log.Warn("pipeline: model output rejected", zap.Error(err))
		return p.finish(ctx, row, out, model.StateSkipped, raw, err.Error())
	}
	// Scraped -> Scored
	out.State = model.StateScored
	out.Result = &result

	if !ShouldSend(result, p.opts.FitThreshold) {
		log.Info("pipeline: not sending",
			zap.Int("max_score", result.MaxScore()),
			zap.Strings("fits", result.FitAcronyms()),
			zap.Bool("has_email", result.SelectedEmail != ""),
		)
		return p.finish(ctx, row, out, model.StateNotContacted, raw, "")
	}

	to := result.SelectedEmail
	if p.opts.TestMode {
		log.Info("pipeline: test mode, redirecting mail",
			zap.String("intended", to),
			zap.String("redirect", p.opts.TestEmail),
		)
		to = p.opts.TestEmail
	}
	out.Recipient = to

	ok, msg := p.mailer.Send(ctx, to, result.Subject, result.EmailBody)
	out.MailMessage = msg
	if !ok {
		log.Warn("pipeline: send failed", zap.String("to", to), zap.String("detail", msg))
		return p.finish(ctx, row, out, model.StateNotContacted, raw, "send failed: "+msg)
	}

	out, err = p.finish(ctx, row, out, model.StateContacted, raw, "")
	log.Info("pipeline: row done",
		zap.String("state", string(out.State)),
		zap.Strings("fits", result.FitAcronyms()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, err
}

// leave records a row that stays in the source table and returns err.
func (p *Processor) leave(ctx context.Context, out model.Outcome, err error) (model.Outcome, error) {
	out.State = model.StateUnprocessed
	out.Reason = err.Error()
	zap.L().Error("pipeline: row left unprocessed",
		zap.String("row_id", out.RowID),
		zap.Error(err),
	)
	p.record(ctx, out)
	return out, err
}

// finish persists a terminal state: STATUS, Note3, copy into the
// destination table, removal from the source table. Each step runs even if
// an earlier one failed, except that the source row is only deleted once
// the destination copy exists.
func (p *Processor) finish(ctx context.Context, row model.Row, out model.Outcome, state model.RowState, note, reason string) (model.Outcome, error) {
	log := zap.L().With(zap.String("row_id", row.ID), zap.String("state", string(state)))
	// A decided row is recorded even if the caller is shutting down.
	ctx = context.WithoutCancel(ctx)
	out.State = state
	out.Reason = reason

	status := state.Status()
	note = truncateRunes(note, p.opts.NoteMaxChars)
	src := p.opts.Tables.Source

	step := func(name string, fn func() error) bool {
		if err := fn(); err != nil {
			log.Error("pipeline: persist step failed", zap.String("step", name), zap.Error(err))
			out.StepErrors = append(out.StepErrors, fmt.Sprintf("%s: %v", name, err))
			return false
		}
		return true
	}

	step("update_status", func() error {
		return p.rows.UpdateField(ctx, src, row.ID, model.FieldStatus, string(status))
	})
	if note != "" {
		step("update_note", func() error {
			return p.rows.UpdateField(ctx, src, row.ID, model.FieldNote3, note)
		})
	}

	migrated := p.migratedRow(row, status, note)
	created := step("create_destination", func() error {
		_, err := p.rows.CreateRow(ctx, p.opts.Tables.Destination, migrated)
		return err
	})
	if created {
		out.Migrated = step("delete_source", func() error {
			return p.rows.DeleteRow(ctx, src, row.ID)
		})
	} else {
		out.StepErrors = append(out.StepErrors, "delete_source: skipped, destination copy missing")
	}

	p.record(ctx, out)

	if len(out.StepErrors) > 0 {
		return out, eris.Wrapf(ErrPersist, "row %s: %d step(s) failed", row.ID, len(out.StepErrors))
	}
	log.Info("pipeline: row migrated", zap.String("status", string(status)))
	return out, nil
}

// migratedRow is the destination copy of row.
func (p *Processor) migratedRow(row model.Row, status model.Status, note string) model.Row {
	fields := row.Fields()
	if p.opts.Mode == model.ModeInvestors {
		for _, f := range p.opts.DropFields {
			delete(fields, f)
		}
	}
	out := model.RowFromFields("", fields)
	out.Title = row.Title
	out.Status = status
	out.Note3 = note
	return out
}

func (p *Processor) record(ctx context.Context, out model.Outcome) {
	if p.journal == nil {
		return
	}
	errText := out.Reason
	if len(out.StepErrors) > 0 {
		if errText != "" {
			errText += "; "
		}
		errText += fmt.Sprint(out.StepErrors)
	}
	_, err := p.journal.RecordRun(ctx, model.Run{
		RowID:       out.RowID,
		SourceTable: p.opts.Tables.Source,
		Website:     out.Website,
		Mode:        p.opts.Mode,
		State:       out.State,
		Status:      out.State.Status(),
		MaxScore:    out.MaxScore(),
		Recipient:   out.Recipient,
		Error:       errText,
	})
	if err != nil {
		zap.L().Warn("pipeline: journal write failed", zap.String("row_id", out.RowID), zap.Error(err))
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
