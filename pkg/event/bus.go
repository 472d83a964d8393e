// Package event implements the regex-subject publish/subscribe bus used to
// decouple game-state updates, login lifecycle, and settings changes from
// the packet handlers that produce them, grounded in core/events.py's
// `emit`/subscribe pattern (subject strings like "chat:*", "login_success",
// "setting:*" matched against subscriber patterns, not exact-string keys).
package event

import (
	"context"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// Handler receives one event. ctx carries the session's cancellation scope;
// subject is the exact string Emit was called with (not the subscriber's
// pattern), so a wildcard subscriber can still tell events apart.
type Handler func(ctx context.Context, subject string, payload any)

type subscription struct {
	pattern *regexp.Regexp
	fn      Handler
}

// Bus is a small in-process pub/sub keyed by regex-matched subject strings.
// One Bus is shared by an Engine and whatever Services it carries.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription

	log *zap.SugaredLogger
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{log: zap.S()}
}

// Subscribe registers fn for every subject matching pattern (a Go regexp,
// e.g. `^chat:` or `^setting:`). Exact-string subjects such as
// "login_success" or "close" are just patterns with no metacharacters.
func (b *Bus) Subscribe(pattern string, fn Handler) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{pattern: re, fn: fn})
	return nil
}

// MustSubscribe panics on an invalid pattern; used at startup wiring where a
// bad literal pattern is a programming error, not a runtime condition.
func (b *Bus) MustSubscribe(pattern string, fn Handler) {
	if err := b.Subscribe(pattern, fn); err != nil {
		panic(err)
	}
}

// Emit runs every matching subscriber synchronously in registration order.
// A subscriber panic is recovered and logged, not propagated, matching the
// non-blocking-handler error policy elsewhere in the session engine: one
// broken listener must not take down the packet loop that emitted the
// event.
func (b *Bus) Emit(ctx context.Context, subject string, payload any) error {
	b.mu.RLock()
	matches := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.pattern.MatchString(subject) {
			matches = append(matches, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range matches {
		b.runOne(ctx, fn, subject, payload)
	}
	return nil
}

func (b *Bus) runOne(ctx context.Context, fn Handler, subject string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("event subscriber panicked, dropped", "subject", subject, "panic", r)
		}
	}()
	fn(ctx, subject, payload)
}
