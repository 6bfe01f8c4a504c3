package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(ctx context.Context, p Prompt) (*Reply, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reply), args.Error(1)
}

const haiku = "claude-haiku-4-5-20251001"

func TestComplete_SendsScoringPrompt(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("Send", ctx, mock.MatchedBy(func(p Prompt) bool {
		return p.Model == haiku && p.MaxTokens == 1500 &&
			p.System == "Mandates: GV1 growth equity" &&
			p.User == "Website text: Acme builds pumps." &&
			p.Temperature != nil && *p.Temperature == 0.7
	})).Return(&Reply{Text: `{"matches":[{"id":"GV1","score":8}]}`, StopReason: "end_turn"}, nil).Once()

	out, err := NewCompleter(mc, haiku, 1500, 0.7).Complete(ctx, "Mandates: GV1 growth equity", "Website text: Acme builds pumps.")
	require.NoError(t, err)
	assert.JSONEq(t, `{"matches":[{"id":"GV1","score":8}]}`, out)
	mc.AssertExpectations(t)
}

func TestComplete_NegativeTemperatureUsesDefault(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("Send", ctx, mock.MatchedBy(func(p Prompt) bool {
		return p.Temperature == nil && p.System == ""
	})).Return(&Reply{Text: "{}"}, nil).Once()

	out, err := NewCompleter(mc, haiku, 10, -1).Complete(ctx, "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
}

func TestComplete_TransportError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("Send", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := NewCompleter(mc, haiku, 10, 0).Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestComplete_BlankReply(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("Send", ctx, mock.Anything).Return(&Reply{Text: " \n", StopReason: "max_tokens"}, nil).Once()

	_, err := NewCompleter(mc, haiku, 10, 0).Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: empty reply")
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestComplete_TruncatedReplyStillReturned(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("Send", ctx, mock.Anything).Return(&Reply{Text: `{"matches":[`, StopReason: "max_tokens"}, nil).Once()

	out, err := NewCompleter(mc, haiku, 10, 0).Complete(ctx, "s", "u")
	require.NoError(t, err)
	assert.Equal(t, `{"matches":[`, out)
}

func TestUsageCost(t *testing.T) {
	u := Usage{InputTokens: 2_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 7.00, u.Cost(haiku), 1e-9)
	assert.InDelta(t, 21.00, u.Cost("claude-sonnet-4-5-20250929"), 1e-9)
	assert.Zero(t, u.Cost("some-future-model"))
}

func TestMessageParams(t *testing.T) {
	temp := 0.2
	params := messageParams(Prompt{Model: haiku, MaxTokens: 900, System: "ctx", User: "task", Temperature: &temp})
	assert.Equal(t, sdk.Model(haiku), params.Model)
	assert.Equal(t, int64(900), params.MaxTokens)
	require.Len(t, params.Messages, 1)
	assert.Equal(t, sdk.MessageParamRoleUser, params.Messages[0].Role)
	require.Len(t, params.System, 1)
	assert.Equal(t, "ctx", params.System[0].Text)

	bare := messageParams(Prompt{Model: haiku, User: "task"})
	assert.Empty(t, bare.System)
}

func TestReplyOf_JoinsTextBlocks(t *testing.T) {
	r := replyOf(&sdk.Message{
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"matches":`},
			{Type: "thinking", Text: "ignored"},
			{Type: "text", Text: `[]}`},
		},
		Usage: sdk.Usage{InputTokens: 120, OutputTokens: 40},
	})
	assert.Equal(t, `{"matches":[]}`, r.Text)
	assert.Equal(t, "end_turn", r.StopReason)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 40}, r.Usage)
	assert.False(t, r.Truncated())
	assert.True(t, (&Reply{StopReason: "max_tokens"}).Truncated())
}
