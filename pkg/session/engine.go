package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	uatomic "go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kbidlack/proxhy-go/pkg/event"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/codec"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
)

// ErrTransferred is returned by Run when the session ended because
// TransferTo was called; the caller should hand the client stream to the
// returned successor Engine instead of treating this as a close.
var ErrTransferred = errors.New("session: transferred")

// Engine drives state transitions for one client<->server pairing and owns
// the two concurrent receive loops described in spec.md §4.D/§5. Both
// directions share one Engine so handlers can reach either Stream and the
// shared game-state mirror via Session-specific closures registered into a
// Table.
type Engine struct {
	Client codec.Stream
	Server codec.Stream // may be nil until login completes upstream

	Table  *Table
	Events *event.Bus

	// Services is an open slot for whatever higher-level state (game-state
	// mirror, broadcast transformer, settings store) handlers need; it is
	// deliberately untyped here to avoid pkg/session depending on every
	// consumer package. Handlers type-assert it to their own Services type.
	Services interface{}

	stateVal atomic.Uint32 // state.State

	// closed mirrors pkg/proxy/connection.go's minecraftConn.closed: a
	// lock-free flag so Close can be called from any goroutine (a failed
	// read, a handler panic, a signal-triggered shutdown) without
	// contending with the mutex guarding transfer/stop state.
	closed uatomic.Bool

	mu         sync.Mutex
	transferTo *Engine
	stopped    bool

	log *zap.SugaredLogger
}

// New constructs an Engine in the Handshaking state.
func New(client codec.Stream, table *Table, events *event.Bus, services interface{}) *Engine {
	e := &Engine{
		Client:   client,
		Table:    table,
		Events:   events,
		Services: services,
		log:      zap.S(),
	}
	e.stateVal.Store(uint32(state.Handshaking))
	return e
}

// State returns the current protocol state.
func (e *Engine) State() state.State { return state.State(e.stateVal.Load()) }

// SetState transitions the protocol state for both directions.
func (e *Engine) SetState(s state.State) { e.stateVal.Store(uint32(s)) }

// TransferTo marks the session as transferring to successor, which inherits
// the client stream and compression state; the current session stops
// without closing the client connection, per spec.md §4.D.
func (e *Engine) TransferTo(successor *Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	successor.Client.SetCompressionThreshold(e.Client.CompressionThreshold())
	e.transferTo = successor
	e.stopped = true
	_ = e.Events.Emit(context.Background(), "close", "transfer")
}

// Run drives the client receive loop (and, once Server is set by a login
// handler, the server receive loop) until the session closes or transfers.
// It returns ErrTransferred when a transfer occurred (the successor is
// available via Successor()), nil on a clean close, or the first loop error.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.loop(ctx, state.ServerBound) })
	g.Go(func() error {
		// The server loop starts only once a backend connection exists;
		// block here until it appears or the session ends.
		for {
			e.mu.Lock()
			srv := e.Server
			stopped := e.stopped
			e.mu.Unlock()
			if srv != nil {
				return e.loop(ctx, state.ClientBound)
			}
			if stopped {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	})

	err := g.Wait()

	e.mu.Lock()
	transferred := e.transferTo != nil
	e.mu.Unlock()
	if transferred {
		return ErrTransferred
	}
	if !e.isStopped() {
		_ = e.Close("")
	}
	return err
}

// Successor returns the session a transfer handed the client stream to, or
// nil if no transfer occurred.
func (e *Engine) Successor() *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transferTo
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// loop is the per-direction read/dispatch cycle from spec.md §4.D: read a
// length (suspension 1), read that many bytes (suspension 2), peel
// compression/id, resolve the dispatch table, run handlers in registration
// order (blocking ones inline, non-blocking forked), and forward verbatim
// when no blocking handler is registered.
func (e *Engine) loop(ctx context.Context, dir state.Direction) error {
	stream := e.Client
	opposite := e.Server
	if dir == state.ClientBound {
		stream, opposite = e.Server, e.Client
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if e.isStopped() {
			return nil
		}

		id, buf, err := stream.ReadPacket()
		if err != nil {
			if e.isStopped() {
				return nil
			}
			return err
		}

		regs := e.Table.Resolve(dir, e.State(), id)

		// Non-blocking registrations are pure observers (e.g. the game-state
		// mirror): they always run, each against its own buffer clone, and
		// never affect whether the packet is forwarded.
		hasBlocking := false
		for _, reg := range regs {
			if reg.blocking {
				hasBlocking = true
				continue
			}
			clone := buf.Clone()
			go func(fn Handler) {
				defer e.recoverNonBlocking()
				if herr := fn(ctx, e, clone); herr != nil {
					e.log.Errorw("non-blocking handler error, dropped", "error", herr)
				}
			}(reg.fn)
		}

		// Blocking registrations take over forwarding responsibility
		// entirely: a blocking handler decides itself whether to rewrite,
		// drop, or forward the packet (typically via e.Server/e.Client
		// directly), per spec.md §4.C's override semantics. With no
		// blocking registration, the default pass-through below applies.
		if hasBlocking {
			for _, reg := range regs {
				if !reg.blocking {
					continue
				}
				if herr := e.runHandler(ctx, reg.fn, buf); herr != nil {
					return herr
				}
			}
		} else if opposite != nil {
			if werr := opposite.Write(buf.Bytes()); werr != nil {
				return werr
			}
		}

		if e.isStopped() {
			return nil
		}
	}
}

func (e *Engine) runHandler(ctx context.Context, fn Handler, buf *proto.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: blocking handler panicked: %v", r)
		}
	}()
	return fn(ctx, e, buf)
}

func (e *Engine) recoverNonBlocking() {
	if r := recover(); r != nil {
		e.log.Errorw("non-blocking handler panicked, dropped", "panic", r)
	}
}

// Close tears down both streams and emits the "close" event, safe to call
// multiple times.
func (e *Engine) Close(reason string) error {
	if !e.closed.CAS(false, true) {
		return nil
	}

	e.mu.Lock()
	e.stopped = true
	client, server := e.Client, e.Server
	e.mu.Unlock()

	_ = e.Events.Emit(context.Background(), "close", reason)
	if server != nil {
		_ = server.Close()
	}
	if client != nil {
		_ = client.Close()
	}
	return nil
}

// SetServer installs the backend connection once Login establishes it.
func (e *Engine) SetServer(s codec.Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Server = s
}
