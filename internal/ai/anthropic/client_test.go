package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
)

type fakeMessages struct {
	params []sdk.MessageNewParams
	reply  *sdk.Message
	err    error
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.params = append(f.params, body)
	return f.reply, f.err
}

func TestCompleteSendsSystemAndJoinsText(t *testing.T) {
	fake := &fakeMessages{reply: &sdk.Message{Content: []sdk.ContentBlockUnion{
		{Type: "text", Text: `{"skills_match": 80}`},
		{Type: "thinking", Text: "ignored"},
	}}}
	c := newClient(fake, "claude-test", 1, zap.NewNop())

	out, err := c.Complete(context.Background(), ai.Request{
		System:    "rubric",
		User:      "resume text",
		MaxTokens: 1200,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"skills_match": 80}`, out)

	require.Len(t, fake.params, 1)
	params := fake.params[0]
	assert.Equal(t, sdk.Model("claude-test"), params.Model)
	assert.Equal(t, int64(1200), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Contains(t, params.System[0].Text, "rubric")
	assert.Contains(t, params.System[0].Text, "JSON")
}

func TestCompleteDefaults(t *testing.T) {
	fake := &fakeMessages{reply: &sdk.Message{}}
	c := newClient(fake, "", 1, nil)

	_, err := c.Complete(context.Background(), ai.Request{User: "role?"})
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, int64(defaultMaxTokens), fake.params[0].MaxTokens)
	assert.Empty(t, fake.params[0].System)
}

func TestCompleteWrapsErrors(t *testing.T) {
	fake := &fakeMessages{err: errors.New("connection reset")}
	c := newClient(fake, "claude-test", 1, zap.NewNop())

	_, err := c.Complete(context.Background(), ai.Request{User: "role?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create message")

	_, err = c.Complete(context.Background(), ai.Request{User: "  "})
	assert.Error(t, err)
}
