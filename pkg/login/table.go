package login

import (
	"context"

	"github.com/kbidlack/proxhy-go/pkg/gamestate"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
	"github.com/kbidlack/proxhy-go/pkg/session"
)

// BuildGameStateTable returns a Table whose registrations feed every
// clientbound Play packet the mirror tracks (plus held-item-change
// serverbound) into gs, non-blocking so mirroring never adds latency to the
// forwarding path, per spec.md §4.F ("observes, never delays"). Callers
// Merge this into their session-specific table alongside any broadcast or
// settings registrations; the dispatch loop still forwards the packet
// verbatim afterward since these registrations don't suppress the default
// pass-through (Table carries only mirroring side-effects, no rewriting).
func BuildGameStateTable(gs *gamestate.Mirror) *session.Table {
	t := session.NewTable()

	registerCB := func(id int32, apply func(*proto.Buffer) error) {
		t.Register(state.ClientBound, state.Play, id, false, false,
			func(ctx context.Context, s *session.Engine, buf *proto.Buffer) error {
				return apply(buf)
			})
	}

	registerCB(packet.CBJoinGame, gs.ApplyJoinGame)
	registerCB(packet.CBRespawn, gs.ApplyRespawn)
	registerCB(packet.CBPlayerPositionAndLook, gs.ApplyPlayerPositionAndLook)
	registerCB(packet.CBSpawnPlayer, gs.ApplySpawnPlayer)
	registerCB(packet.CBSpawnObject, gs.ApplySpawnObject)
	registerCB(packet.CBSpawnMob, gs.ApplySpawnMob)
	registerCB(packet.CBSpawnPainting, gs.ApplySpawnPainting)
	registerCB(packet.CBSpawnExperienceOrb, gs.ApplySpawnExperienceOrb)
	registerCB(packet.CBSpawnGlobalEntity, gs.ApplySpawnGlobalEntity)
	registerCB(packet.CBEntityVelocity, gs.ApplyEntityVelocity)
	registerCB(packet.CBDestroyEntities, gs.ApplyDestroyEntities)
	registerCB(packet.CBEntityRelativeMove, gs.ApplyEntityRelativeMove)
	registerCB(packet.CBEntityLookAndMove, gs.ApplyEntityLookAndMove)
	registerCB(packet.CBEntityTeleport, gs.ApplyEntityTeleport)
	registerCB(packet.CBEntityMetadata, gs.ApplyEntityMetadata)
	registerCB(packet.CBEntityEquipment, gs.ApplyEntityEquipment)
	registerCB(packet.CBPlayerListItem, gs.ApplyPlayerListItem)
	registerCB(packet.CBTeams, gs.ApplyTeams)
	registerCB(packet.CBScoreboardObjective, gs.ApplyScoreboardObjective)
	registerCB(packet.CBUpdateScore, gs.ApplyUpdateScore)
	registerCB(packet.CBDisplayScoreboard, gs.ApplyDisplayScoreboard)
	registerCB(packet.CBSetSlot, gs.ApplySetSlot)
	registerCB(packet.CBPlayerAbilities, gs.ApplyPlayerAbilities)

	t.Register(state.ServerBound, state.Play, packet.SBHeldItemChange, false, false,
		func(ctx context.Context, s *session.Engine, buf *proto.Buffer) error {
			return gs.ApplyHeldItemChange(buf)
		})

	return t
}
