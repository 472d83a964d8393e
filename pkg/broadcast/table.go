package broadcast

import (
	"context"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
	"github.com/kbidlack/proxhy-go/pkg/session"
)

// ownerReframeIDs are the owner serverbound Play packets spec.md §4.G turns
// into synthetic clientbound entity updates for attached peers: movement,
// look, held-item, animation, and entity-action (sneak/sprint).
var ownerReframeIDs = []int32{
	packet.SBPlayer, packet.SBPlayerPosition, packet.SBPlayerLook, packet.SBPlayerPosAndLook,
	packet.SBHeldItemChange, packet.SBAnimation, packet.SBEntityAction,
}

// BuildTable returns a Table that feeds every clientbound Play packet listed
// in packet.BroadcastAllow into peers.Broadcast and every re-framing-relevant owner serverbound Play
// packet into peers.BroadcastServerbound, both non-blocking so spectator
// fan-out never adds latency to the owner's own traffic, per spec.md §4.G.
// Each peer's own Transformer decides independently whether to forward,
// rewrite, or drop — this table only ever hands the raw packet off, the
// same way BuildGameStateTable hands packets to the mirror.
func BuildTable(peers *PeerServer) *session.Table {
	t := session.NewTable()
	for id := range packet.BroadcastAllow {
		id := id
		t.Register(state.ClientBound, state.Play, id, false, false,
			func(ctx context.Context, s *session.Engine, buf *proto.Buffer) error {
				peers.Broadcast(id, buf.Bytes())
				return nil
			})
	}
	for _, id := range ownerReframeIDs {
		id := id
		t.Register(state.ServerBound, state.Play, id, false, false,
			func(ctx context.Context, s *session.Engine, buf *proto.Buffer) error {
				peers.BroadcastServerbound(id, buf.Bytes())
				return nil
			})
	}
	return t
}
