// Package scoring asks the language model to score a row against counterpart
// records and draft an outreach email.
package scoring

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// ErrModelCall tags every failure of the model transport.
var ErrModelCall = errors.New("scoring: model call failed")

// ModelError wraps a transport failure. errors.Is(err, ErrModelCall) holds for it.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return "scoring: model call: " + e.Err.Error() }

func (e *ModelError) Unwrap() error { return e.Err }

// Is matches ErrModelCall.
func (e *ModelError) Is(target error) bool { return target == ErrModelCall }

// Completer is the model transport: system context and user task in, text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request carries everything the model needs about one row.
type Request struct {
	Text         string
	Emails       []string
	KnownEmail   string
	Mode         model.Mode
	Counterparts []model.CounterpartRecord
	Location     string
	Funding      string
}

// Adapter builds prompts and calls the model.
type Adapter struct {
	completer Completer
	cfg       config.ScoringConfig
	sender    config.SenderConfig
	breaker   *resilience.Breaker
}

// New creates an Adapter. A nil breaker disables circuit breaking.
func New(c Completer, cfg config.ScoringConfig, sender config.SenderConfig, breaker *resilience.Breaker) *Adapter {
	if cfg.PromptChars <= 0 {
		cfg.PromptChars = 3000
	}
	if cfg.MaxCounterparts <= 0 {
		cfg.MaxCounterparts = 10
	}
	if cfg.FitThreshold <= 0 {
		cfg.FitThreshold = model.FitThreshold
	}
	return &Adapter{completer: c, cfg: cfg, sender: sender, breaker: breaker}
}

// ScoreAndDraft returns the model's answer with code fences removed. The
// model is called once; any failure comes back as a *ModelError.
func (a *Adapter) ScoreAndDraft(ctx context.Context, req Request) (string, error) {
	p := BuildPrompt(req, a.sender, a.cfg.PromptChars, a.cfg.MaxCounterparts, a.cfg.FitThreshold)

	start := time.Now()
	text, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, p.System, p.User)
	})
	if err != nil {
		return "", &ModelError{Err: eris.Wrap(err, "scoring: complete")}
	}

	zap.L().Debug("scoring: model answered",
		zap.String("mode", string(req.Mode)),
		zap.Int("counterparts", min(len(req.Counterparts), a.cfg.MaxCounterparts)),
		zap.Int("response_chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return StripFences(text), nil
}

// StripFences removes a leading ``` or ```json fence line and a trailing ```
// marker. Either may appear without the other.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimPrefix(text, "JSON")
	}
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
