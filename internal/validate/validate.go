// Package validate parses and checks the model's scoring output.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ValidationFailure reports model output that cannot be used. Raw holds the
// payload exactly as received so it can be kept for review.
type ValidationFailure struct {
	Raw    string
	Reason string
}

func (e *ValidationFailure) Error() string {
	return "validate: " + e.Reason
}

// IsFailure reports whether err is, or wraps, a *ValidationFailure.
func IsFailure(err error) bool {
	var vf *ValidationFailure
	return errors.As(err, &vf)
}

type wireMatch struct {
	Acronym *string `json:"acronym"`
	Mandate *string `json:"mandate"`
	Venture *string `json:"venture"`
	Score   *int    `json:"score" validate:"required,min=1,max=10"`
	Fit     *bool   `json:"fit" validate:"required"`
}

// id returns the match identifier under whichever key the model used.
func (m wireMatch) id() (string, bool) {
	for _, v := range []*string{m.Acronym, m.Mandate, m.Venture} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v), true
		}
	}
	return "", false
}

type wireResult struct {
	Matches       []wireMatch `json:"matches" validate:"required,dive"`
	SelectedEmail string      `json:"selected_email" validate:"omitempty,email"`
	Subject       string      `json:"subject"`
	EmailBody     string      `json:"email_body"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate parses raw into a ScoringResult. raw may be JSON text (string,
// []byte or json.RawMessage), a JSON document whose value is itself a JSON
// string, or an already decoded value such as map[string]any. Every problem
// is reported as a *ValidationFailure.
func Validate(raw any) (model.ScoringResult, error) {
	data, rawText, err := toBytes(raw)
	if err != nil {
		return model.ScoringResult{}, &ValidationFailure{Raw: rawText, Reason: err.Error()}
	}
	return parse(data, rawText)
}

func toBytes(raw any) ([]byte, string, error) {
	switch v := raw.(type) {
	case string:
		return []byte(v), v, nil
	case []byte:
		return v, string(v), nil
	case json.RawMessage:
		return v, string(v), nil
	case nil:
		return nil, "", errors.New("empty model output")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Sprintf("%v", v), fmt.Errorf("encode structured output: %w", err)
		}
		return b, string(b), nil
	}
}

func parse(data []byte, rawText string) (model.ScoringResult, error) {
	fail := func(format string, args ...any) (model.ScoringResult, error) {
		return model.ScoringResult{}, &ValidationFailure{Raw: rawText, Reason: fmt.Sprintf(format, args...)}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fail("empty model output")
	}

	// A JSON string holding the document.
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return fail("invalid json: %v", err)
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 {
			return fail("empty model output")
		}
	}
	if data[0] != '{' {
		return fail("expected a json object")
	}

	var w wireResult
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return fail("invalid json: %v", err)
	}
	if dec.More() {
		return fail("trailing data after json object")
	}

	w.SelectedEmail = strings.TrimSpace(w.SelectedEmail)
	if err := validate.Struct(w); err != nil {
		return fail("schema: %s", describe(err))
	}

	out := model.ScoringResult{
		Matches:       make([]model.Match, 0, len(w.Matches)),
		SelectedEmail: w.SelectedEmail,
		Subject:       w.Subject,
		EmailBody:     w.EmailBody,
	}
	for i, m := range w.Matches {
		id, ok := m.id()
		if !ok {
			return fail("schema: matches[%d] has no acronym", i)
		}
		// fit follows the score; a contradicting flag from the model is overridden.
		fit := *m.Score >= model.FitThreshold
		if fit != *m.Fit {
			zap.L().Debug("validate: fit flag disagrees with score",
				zap.String("acronym", id), zap.Int("score", *m.Score), zap.Bool("fit", *m.Fit))
		}
		out.Matches = append(out.Matches, model.Match{Acronym: id, Score: *m.Score, Fit: fit})
	}
	if out.MaxScore() < model.FitThreshold && hasDraft(out) {
		zap.L().Warn("validate: draft present without a fitting match",
			zap.Int("max_score", out.MaxScore()), zap.String("selected_email", out.SelectedEmail))
	}
	return out, nil
}

func hasDraft(r model.ScoringResult) bool {
	return r.SelectedEmail != "" || strings.TrimSpace(r.Subject) != "" || strings.TrimSpace(r.EmailBody) != ""
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		ns = strings.TrimPrefix(ns, "wireResult.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", ns, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", ns, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
