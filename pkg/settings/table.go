package settings

import (
	"context"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
	"github.com/kbidlack/proxhy-go/pkg/session"
)

// BuildTable returns a Table that mirrors PROXHY|Settings plugin-message
// traffic into store, non-blocking so a malformed or unrelated plugin
// channel never interferes with ordinary pass-through forwarding (other
// channels are left untouched and keep flowing through the default
// forward path in pkg/session/engine.go). Registered on both directions
// since either side may originate a settings change.
func BuildTable(store *Store) *session.Table {
	t := session.NewTable()
	observe := func(ctx context.Context, e *session.Engine, buf *proto.Buffer) error {
		channel, err := proto.UnpackString(buf)
		if err != nil || channel != Channel {
			return nil
		}
		change, err := DecodeChange(buf.ReadRest())
		if err != nil {
			return nil
		}
		store.Set(change.Path, change.New)
		return nil
	}
	t.Register(state.ClientBound, state.Play, packet.CBPluginMessage, false, false, observe)
	t.Register(state.ServerBound, state.Play, packet.SBPluginMessage, false, false, observe)
	return t
}
