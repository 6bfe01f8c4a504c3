// Package anthropic sends single-turn prompts to the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client sends one prompt and returns the model's reply.
type Client interface {
	Send(ctx context.Context, p Prompt) (*Reply, error)
}

// Prompt is a single user turn with an optional system context.
type Prompt struct {
	Model     string
	MaxTokens int64
	System    string
	User      string

	// Temperature is left to the API default when nil.
	Temperature *float64
}

// Reply is the text of a response with its stop reason and token counts.
type Reply struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports a reply cut off by the token limit.
func (r *Reply) Truncated() bool {
	return r.StopReason == "max_tokens"
}

// Usage counts the tokens billed for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// pricePerMTok is USD per million {input, output} tokens.
var pricePerMTok = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {1.00, 5.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-1-20250805":   {15.00, 75.00},
}

// Cost estimates the USD cost of u for model, or 0 when the model is unpriced.
func (u Usage) Cost(model string) float64 {
	p, ok := pricePerMTok[model]
	if !ok {
		return 0
	}
	return (float64(u.InputTokens)*p[0] + float64(u.OutputTokens)*p[1]) / 1e6
}

type sdkClient struct {
	api sdk.Client
}

// NewClient returns a Client backed by the official SDK. SDK retries are off;
// callers decide whether a failed call is worth repeating.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &sdkClient{api: sdk.NewClient(all...)}
}

func (c *sdkClient) Send(ctx context.Context, p Prompt) (*Reply, error) {
	msg, err := c.api.Messages.New(ctx, messageParams(p))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: send prompt")
	}
	return replyOf(msg), nil
}

func messageParams(p Prompt) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	if p.Temperature != nil {
		params.Temperature = sdk.Float(*p.Temperature)
	}
	return params
}

func replyOf(msg *sdk.Message) *Reply {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return &Reply{
		Text:       b.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Completer sends prompts with fixed model settings.
type Completer struct {
	client      Client
	model       string
	maxTokens   int64
	temperature *float64
}

// NewCompleter creates a Completer. A negative temperature leaves the API default.
func NewCompleter(c Client, model string, maxTokens int64, temperature float64) *Completer {
	comp := &Completer{client: c, model: model, maxTokens: maxTokens}
	if temperature >= 0 {
		comp.temperature = &temperature
	}
	return comp
}

// Complete sends system and user text and returns the reply text. A blank
// reply is an error.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	reply, err := c.client.Send(ctx, Prompt{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      system,
		User:        user,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	zap.L().Debug("anthropic: usage",
		zap.String("model", c.model),
		zap.Int64("input_tokens", reply.Usage.InputTokens),
		zap.Int64("output_tokens", reply.Usage.OutputTokens),
		zap.Float64("estimated_cost_usd", reply.Usage.Cost(c.model)),
	)

	if strings.TrimSpace(reply.Text) == "" {
		return "", eris.Errorf("anthropic: empty reply (stop reason %q)", reply.StopReason)
	}
	if reply.Truncated() {
		zap.L().Warn("anthropic: reply truncated", zap.Int64("max_tokens", c.maxTokens))
	}
	return reply.Text, nil
}
