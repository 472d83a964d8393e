package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitMatchesWildcardSubject(t *testing.T) {
	b := NewBus()
	var received []string
	require.NoError(t, b.Subscribe(`^chat:`, func(ctx context.Context, subject string, payload any) {
		received = append(received, subject)
	}))

	require.NoError(t, b.Emit(context.Background(), "chat:whisper", nil))
	require.NoError(t, b.Emit(context.Background(), "close", nil))

	assert.Equal(t, []string{"chat:whisper"}, received)
}

func TestEmitRunsInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.MustSubscribe("^close$", func(ctx context.Context, subject string, payload any) { order = append(order, 1) })
	b.MustSubscribe("^close$", func(ctx context.Context, subject string, payload any) { order = append(order, 2) })

	require.NoError(t, b.Emit(context.Background(), "close", "disconnected"))
	assert.Equal(t, []int{1, 2}, order)
}

func TestEmitRecoversSubscriberPanic(t *testing.T) {
	b := NewBus()
	var ranAfter bool
	b.MustSubscribe(".*", func(ctx context.Context, subject string, payload any) { panic("boom") })
	b.MustSubscribe(".*", func(ctx context.Context, subject string, payload any) { ranAfter = true })

	err := b.Emit(context.Background(), "login_success", nil)
	require.NoError(t, err)
	assert.True(t, ranAfter)
}

func TestMustSubscribePanicsOnInvalidPattern(t *testing.T) {
	b := NewBus()
	assert.Panics(t, func() { b.MustSubscribe("(unclosed", func(context.Context, string, any) {}) })
}
