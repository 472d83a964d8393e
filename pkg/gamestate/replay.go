package gamestate

import (
	"github.com/google/uuid"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
)

// ReplayPacket is one clientbound packet id+payload produced by Replay.
type ReplayPacket struct {
	ID      int32
	Payload []byte
}

// Replay snapshots the mirror's current player list, teams, scoreboard, and
// tracked entities into the packet sequence a freshly attached spectator
// peer needs to reconstruct the owner's world, grounded on
// broadcasting/transform.py's sync_broadcast_spectator (spec.md §4.G item
// 2). Chunk data is deliberately not replayed here: the mirror never
// retains chunk snapshots (only entity/list/team/scoreboard state), so a
// peer's world fills in as live CBChunkData packets arrive through the
// ordinary forwarding path after attach.
func (m *Mirror) Replay() []ReplayPacket {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ReplayPacket

	if len(m.PlayerList) > 0 {
		out = append(out, ReplayPacket{packet.CBPlayerListItem, m.encodePlayerListAddLocked()})
	}
	for _, t := range m.Teams {
		out = append(out, ReplayPacket{packet.CBTeams, encodeTeamCreate(t)})
	}
	for name, obj := range m.Scoreboard.Objectives {
		out = append(out, ReplayPacket{packet.CBScoreboardObjective, encodeScoreboardObjective(obj)})
		for entry, score := range m.Scoreboard.Scores[name] {
			out = append(out, ReplayPacket{packet.CBUpdateScore, encodeUpdateScore(entry, name, score)})
		}
	}
	for slot, name := range m.Scoreboard.Display {
		out = append(out, ReplayPacket{packet.CBDisplayScoreboard, encodeDisplayScoreboard(slot, name)})
	}
	for _, e := range m.Entities {
		if id, payload, ok := encodeEntitySpawn(e); ok {
			out = append(out, ReplayPacket{id, payload})
		}
	}
	return out
}

// encodePlayerListAddLocked packs every tracked tab-list row into one
// add-player 0x38 packet. Caller must hold m.mu.
func (m *Mirror) encodePlayerListAddLocked() []byte {
	out := proto.PackVarInt(int32(PlayerListAddPlayer))
	out = append(out, proto.PackVarInt(int32(len(m.PlayerList)))...)
	for key, e := range m.PlayerList {
		id, err := uuid.Parse(key)
		if err != nil {
			continue
		}
		out = append(out, proto.PackUUID(id)...)
		out = append(out, proto.PackString(e.Name)...)
		out = append(out, proto.PackVarInt(int32(len(e.Properties)))...)
		for _, p := range e.Properties {
			out = append(out, proto.PackString(p.Name)...)
			out = append(out, proto.PackString(p.Value)...)
			out = append(out, proto.PackBool(p.Signed)...)
			if p.Signed {
				out = append(out, proto.PackString(p.Signature)...)
			}
		}
		out = append(out, proto.PackVarInt(int32(e.Gamemode))...)
		out = append(out, proto.PackVarInt(e.Ping)...)
		out = append(out, proto.PackBool(e.HasDisplayName)...)
		if e.HasDisplayName {
			out = append(out, proto.PackString(e.DisplayName)...)
		}
	}
	return out
}

func encodeTeamCreate(t *Team) []byte {
	out := proto.PackString(t.Name)
	out = append(out, proto.PackByte(int8(TeamCreate))...)
	out = append(out, proto.PackString(t.DisplayName)...)
	out = append(out, proto.PackString(t.Prefix)...)
	out = append(out, proto.PackString(t.Suffix)...)
	out = append(out, proto.PackByte(t.FriendlyFire)...)
	out = append(out, proto.PackString(t.NameTagVisibility)...)
	out = append(out, proto.PackByte(t.Color)...)
	out = append(out, proto.PackVarInt(int32(len(t.Players)))...)
	for p := range t.Players {
		out = append(out, proto.PackString(p)...)
	}
	return out
}

func encodeScoreboardObjective(o *ScoreboardObjective) []byte {
	out := proto.PackString(o.Name)
	out = append(out, proto.PackByte(0)...) // mode: create
	out = append(out, proto.PackString(o.DisplayName)...)
	out = append(out, proto.PackString(o.Type)...)
	return out
}

func encodeUpdateScore(entry, objective string, score int32) []byte {
	out := proto.PackString(entry)
	out = append(out, proto.PackUnsignedByte(0)...) // action: create/update
	out = append(out, proto.PackString(objective)...)
	out = append(out, proto.PackVarInt(score)...)
	return out
}

func encodeDisplayScoreboard(slot int8, name string) []byte {
	out := proto.PackByte(slot)
	out = append(out, proto.PackString(name)...)
	return out
}

// encodeEntitySpawn reconstructs the spawn packet for one tracked entity
// from its decoded fields, per the entity's Kind. Player entities need no
// reconstruction here: sync_broadcast_spectator replays them via the
// player-list only, and the owner's own avatar is (re)spawned separately by
// the avatar-spawn step (spec.md §4.G item 6), so an EntityKindPlayer is
// skipped.
func encodeEntitySpawn(e *Entity) (int32, []byte, bool) {
	switch e.Kind {
	case EntityKindObject:
		out := proto.PackVarInt(e.ID)
		out = append(out, proto.PackByte(int8(e.Type))...)
		out = append(out, proto.PackInt(int32(e.Position.X*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Y*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Z*32))...)
		out = append(out, proto.PackAngle(proto.AngleFromDegrees(float64(e.Rotation.Yaw)))...)
		out = append(out, proto.PackAngle(proto.AngleFromDegrees(float64(e.Rotation.Pitch)))...)
		out = append(out, proto.PackInt(e.ObjectData)...)
		if e.ObjectData != 0 {
			out = append(out, proto.PackShort(e.Velocity[0])...)
			out = append(out, proto.PackShort(e.Velocity[1])...)
			out = append(out, proto.PackShort(e.Velocity[2])...)
		}
		return packet.CBSpawnObject, out, true

	case EntityKindMob:
		out := proto.PackVarInt(e.ID)
		out = append(out, proto.PackUnsignedByte(uint8(e.Type))...)
		out = append(out, proto.PackInt(int32(e.Position.X*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Y*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Z*32))...)
		out = append(out, proto.PackAngle(proto.AngleFromDegrees(float64(e.Rotation.Yaw)))...)
		out = append(out, proto.PackAngle(proto.AngleFromDegrees(float64(e.Rotation.Pitch)))...)
		out = append(out, proto.PackAngle(proto.AngleFromDegrees(float64(e.Rotation.HeadYaw)))...)
		out = append(out, proto.PackShort(e.Velocity[0])...)
		out = append(out, proto.PackShort(e.Velocity[1])...)
		out = append(out, proto.PackShort(e.Velocity[2])...)
		out = append(out, EncodeMetadataStream(e.Metadata)...)
		return packet.CBSpawnMob, out, true

	case EntityKindPainting:
		out := proto.PackVarInt(e.ID)
		out = append(out, proto.PackString(e.PaintingTitle)...)
		out = append(out, proto.PackPosition(proto.Position{
			X: int(e.Position.X), Y: int(e.Position.Y), Z: int(e.Position.Z),
		})...)
		out = append(out, proto.PackByte(e.Direction)...)
		return packet.CBSpawnPainting, out, true

	case EntityKindExperienceOrb:
		out := proto.PackVarInt(e.ID)
		out = append(out, proto.PackInt(int32(e.Position.X*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Y*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Z*32))...)
		out = append(out, proto.PackShort(e.Count)...)
		return packet.CBSpawnExperienceOrb, out, true

	case EntityKindGlobal:
		out := proto.PackVarInt(e.ID)
		out = append(out, proto.PackByte(int8(e.Type))...)
		out = append(out, proto.PackInt(int32(e.Position.X*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Y*32))...)
		out = append(out, proto.PackInt(int32(e.Position.Z*32))...)
		return packet.CBSpawnGlobalEntity, out, true

	default:
		return 0, nil, false
	}
}
