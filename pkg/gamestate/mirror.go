package gamestate

import (
	"sync"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
)

// Mirror is the pure decoder described in spec.md §4.F: it owns the
// entity table, tab list, teams, scoreboard, and the proxy's own Self
// state, and only ever mutates in response to Apply calls fed clientbound
// Play packets, plus the serverbound held-item change (ApplyServerbound /
// ApplyHeldItemChange). It never produces outbound bytes.
type Mirror struct {
	mu sync.RWMutex

	Self       *Self
	Entities   map[int32]*Entity
	PlayerList map[string]*PlayerListEntry // keyed by UUID string
	Teams      map[string]*Team
	Scoreboard *Scoreboard
}

// New returns an empty Mirror.
func New() *Mirror {
	return &Mirror{
		Self:       newSelf(),
		Entities:   make(map[int32]*Entity),
		PlayerList: make(map[string]*PlayerListEntry),
		Teams:      make(map[string]*Team),
		Scoreboard: newScoreboard(),
	}
}

// PlayerEntityID returns the proxy's own entity id under a read lock, the
// accessor the broadcast transformer polls on every clientbound packet.
func (m *Mirror) PlayerEntityID() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Self.EntityID
}

// HotbarSlot mirrors Self.HotbarSlot under a read lock.
func (m *Mirror) HotbarSlot(index int16) Slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Self.HotbarSlot(index)
}

func (m *Mirror) flushWorld() {
	m.Entities = make(map[int32]*Entity)
}

// ApplyJoinGame handles 0x01: capture entity id and flush world state, per
// spec.md §4.F ("flush entity table, player list, teams, scoreboard").
func (m *Mirror) ApplyJoinGame(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	gamemode, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	dimension, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	difficulty, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	if _, err := proto.UnpackUnsignedByte(buf); err != nil { // max players
		return err
	}
	levelType, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}

	m.Self.EntityID = eid
	m.Self.Gamemode = Gamemode(gamemode & 0x07)
	m.Self.Dimension = Dimension(dimension)
	m.Self.Difficulty = Difficulty(difficulty)
	m.Self.LevelType = levelType

	m.Entities = make(map[int32]*Entity)
	m.PlayerList = make(map[string]*PlayerListEntry)
	m.Teams = make(map[string]*Team)
	m.Scoreboard = newScoreboard()
	return nil
}

// ApplyRespawn handles 0x07: update dimension/difficulty/gamemode/level
// type and flush entities and chunks, but not the player list, per
// spec.md §4.F.
func (m *Mirror) ApplyRespawn(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dimension, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	difficulty, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	gamemode, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	levelType, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}

	m.Self.Dimension = Dimension(dimension)
	m.Self.Difficulty = Difficulty(difficulty)
	m.Self.Gamemode = Gamemode(gamemode & 0x07)
	m.Self.LevelType = levelType

	m.flushWorld()
	return nil
}

// ApplyPlayerPositionAndLook handles 0x08's relative/absolute flag bitfield,
// per spec.md §4.F: bit 0x01 X, 0x02 Y, 0x04 Z, 0x08 yaw, 0x10 pitch are
// relative when set, absolute otherwise.
func (m *Mirror) ApplyPlayerPositionAndLook(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	x, err := proto.UnpackDouble(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackDouble(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackDouble(buf)
	if err != nil {
		return err
	}
	yaw, err := proto.UnpackFloat(buf)
	if err != nil {
		return err
	}
	pitch, err := proto.UnpackFloat(buf)
	if err != nil {
		return err
	}
	flags, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}

	if flags&0x01 != 0 {
		x += m.Self.Position.X
	}
	if flags&0x02 != 0 {
		y += m.Self.Position.Y
	}
	if flags&0x04 != 0 {
		z += m.Self.Position.Z
	}
	if flags&0x08 != 0 {
		yaw += m.Self.Rotation.Yaw
	}
	if flags&0x10 != 0 {
		pitch += m.Self.Rotation.Pitch
	}

	m.Self.Position = Vec3{x, y, z}
	m.Self.Rotation = Rotation{Yaw: yaw, Pitch: pitch}
	return nil
}

// ApplySpawnPlayer handles 0x0C: register an entity with the owner's data,
// initial angles from Angle, and a metadata stream, per spec.md §4.F.
func (m *Mirror) ApplySpawnPlayer(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	id, err := proto.UnpackUUID(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	yawAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	pitchAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	if _, err := proto.UnpackShort(buf); err != nil { // current item
		return err
	}
	metadata, err := DecodeMetadataStream(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, 0)
	e.Kind = EntityKindPlayer
	e.UUID, e.HasUUID = id, true
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	e.Rotation = Rotation{Yaw: float32(yawAngle.Degrees()), Pitch: float32(pitchAngle.Degrees())}
	e.Metadata = metadata
	m.Entities[eid] = e
	return nil
}

// ApplySpawnObject handles 0x0E: a non-living entity (minecart, arrow,
// falling block, …). A nonzero data field implies a following velocity
// triple, per wiki.vg's protocol-47 object-data table.
func (m *Mirror) ApplySpawnObject(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	typ, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	yawAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	pitchAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	data, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, int32(typ))
	e.Kind = EntityKindObject
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	e.Rotation = Rotation{Yaw: float32(yawAngle.Degrees()), Pitch: float32(pitchAngle.Degrees())}
	e.ObjectData = data
	if data != 0 {
		vx, err := proto.UnpackShort(buf)
		if err != nil {
			return err
		}
		vy, err := proto.UnpackShort(buf)
		if err != nil {
			return err
		}
		vz, err := proto.UnpackShort(buf)
		if err != nil {
			return err
		}
		e.Velocity = [3]int16{vx, vy, vz}
	}
	m.Entities[eid] = e
	return nil
}

// ApplySpawnMob handles 0x0F: a living, non-player entity.
func (m *Mirror) ApplySpawnMob(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	typ, err := proto.UnpackUnsignedByte(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	yawAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	pitchAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	_, err = proto.UnpackAngle(buf) // head pitch
	if err != nil {
		return err
	}
	vx, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	vy, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	vz, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	metadata, err := DecodeMetadataStream(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, int32(typ))
	e.Kind = EntityKindMob
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	e.Rotation = Rotation{Yaw: float32(yawAngle.Degrees()), Pitch: float32(pitchAngle.Degrees())}
	e.Velocity = [3]int16{vx, vy, vz}
	e.Metadata = metadata
	m.Entities[eid] = e
	return nil
}

// ApplySpawnPainting handles 0x10.
func (m *Mirror) ApplySpawnPainting(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	title, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	pos, err := proto.UnpackPosition(buf)
	if err != nil {
		return err
	}
	direction, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, 0)
	e.Kind = EntityKindPainting
	e.Position = Vec3{float64(pos.X), float64(pos.Y), float64(pos.Z)}
	e.PaintingTitle = title
	e.Direction = direction
	m.Entities[eid] = e
	return nil
}

// ApplySpawnExperienceOrb handles 0x11.
func (m *Mirror) ApplySpawnExperienceOrb(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	count, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, 0)
	e.Kind = EntityKindExperienceOrb
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	e.Count = count
	m.Entities[eid] = e
	return nil
}

// ApplySpawnGlobalEntity handles 0x2C (currently only thunderbolts).
func (m *Mirror) ApplySpawnGlobalEntity(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	typ, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}

	e := NewEntity(eid, int32(typ))
	e.Kind = EntityKindGlobal
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	m.Entities[eid] = e
	return nil
}

// ApplyDestroyEntities handles 0x13: an unknown id is ignored, not fatal,
// per spec.md §3's entity invariant.
func (m *Mirror) ApplyDestroyEntities(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	for i := int32(0); i < count; i++ {
		id, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		delete(m.Entities, id)
	}
	return nil
}

// ApplyEntityMetadata handles 0x1C: merge the decoded stream into the
// entity's metadata map; an unknown entity drops the update, per
// spec.md §4.F.
func (m *Mirror) ApplyEntityMetadata(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	metadata, err := DecodeMetadataStream(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return nil
}

// ApplyEntityEquipment handles 0x04: slot index 0=held, 1-4=armor bottom to
// top, updating the entity's equipment map, per spec.md §4.F.
func (m *Mirror) ApplyEntityEquipment(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	slot, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	item, err := proto.UnpackSlot(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	e.Equipment[EquipmentSlot(slot)] = Slot{
		Present: item.Present, ItemID: item.ItemID, Count: item.Count,
		Damage: item.Damage, NBT: item.NBT,
	}
	return nil
}

// ApplyEntityVelocity handles 0x12: update the tracked entity's velocity
// vector; an unknown entity drops the update, per spec.md §3's entity
// lifecycle note that 0x12-0x1E mutate tracked entities.
func (m *Mirror) ApplyEntityVelocity(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	vx, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	vy, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	vz, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	e.Velocity = [3]int16{vx, vy, vz}
	return nil
}

// ApplyEntityRelativeMove handles 0x15: apply a fixed-point/32 delta to the
// tracked entity's position.
func (m *Mirror) ApplyEntityRelativeMove(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	dx, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	dy, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	dz, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	onGround, err := proto.UnpackBool(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	e.Position.X += float64(dx) / 32
	e.Position.Y += float64(dy) / 32
	e.Position.Z += float64(dz) / 32
	e.OnGround = onGround
	return nil
}

// ApplyEntityLookAndMove handles 0x17: the relative-move delta followed by
// an absolute Angle yaw/pitch pair.
func (m *Mirror) ApplyEntityLookAndMove(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	dx, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	dy, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	dz, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	yawAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	pitchAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	onGround, err := proto.UnpackBool(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	e.Position.X += float64(dx) / 32
	e.Position.Y += float64(dy) / 32
	e.Position.Z += float64(dz) / 32
	e.Rotation.Yaw = float32(yawAngle.Degrees())
	e.Rotation.Pitch = float32(pitchAngle.Degrees())
	e.OnGround = onGround
	return nil
}

// ApplyEntityTeleport handles 0x18: an absolute fixed-point/32 position plus
// Angle yaw/pitch.
func (m *Mirror) ApplyEntityTeleport(buf *proto.Buffer) error {
	eid, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	x, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	y, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	z, err := proto.UnpackInt(buf)
	if err != nil {
		return err
	}
	yawAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	pitchAngle, err := proto.UnpackAngle(buf)
	if err != nil {
		return err
	}
	onGround, err := proto.UnpackBool(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entities[eid]
	if !ok {
		return nil
	}
	e.Position = Vec3{float64(x) / 32, float64(y) / 32, float64(z) / 32}
	e.Rotation.Yaw, e.Rotation.Pitch = float32(yawAngle.Degrees()), float32(pitchAngle.Degrees())
	e.OnGround = onGround
	return nil
}

// ApplyPlayerListItem handles 0x38: apply the action-coded mutation; on
// action 0 also decode the properties array, per spec.md §4.F.
func (m *Mirror) ApplyPlayerListItem(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	action, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}
	count, err := proto.UnpackVarInt(buf)
	if err != nil {
		return err
	}

	for i := int32(0); i < count; i++ {
		id, err := proto.UnpackUUID(buf)
		if err != nil {
			return err
		}
		key := id.String()

		switch PlayerListAction(action) {
		case PlayerListAddPlayer:
			name, err := proto.UnpackString(buf)
			if err != nil {
				return err
			}
			propCount, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			props := make([]PlayerListProperty, 0, propCount)
			for j := int32(0); j < propCount; j++ {
				pname, err := proto.UnpackString(buf)
				if err != nil {
					return err
				}
				pvalue, err := proto.UnpackString(buf)
				if err != nil {
					return err
				}
				signed, err := proto.UnpackBool(buf)
				if err != nil {
					return err
				}
				var sig string
				if signed {
					sig, err = proto.UnpackString(buf)
					if err != nil {
						return err
					}
				}
				props = append(props, PlayerListProperty{Name: pname, Value: pvalue, Signed: signed, Signature: sig})
			}
			gamemode, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			ping, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			hasDisplay, err := proto.UnpackBool(buf)
			if err != nil {
				return err
			}
			var display string
			if hasDisplay {
				display, err = proto.UnpackString(buf)
				if err != nil {
					return err
				}
			}
			m.PlayerList[key] = &PlayerListEntry{
				UUID: key, Name: name, Properties: props,
				Gamemode: Gamemode(gamemode), Ping: ping,
				DisplayName: display, HasDisplayName: hasDisplay,
			}

		case PlayerListUpdateGamemode:
			gamemode, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			if e, ok := m.PlayerList[key]; ok {
				e.Gamemode = Gamemode(gamemode)
			}

		case PlayerListUpdateLatency:
			ping, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			if e, ok := m.PlayerList[key]; ok {
				e.Ping = ping
			}

		case PlayerListUpdateDisplayName:
			hasDisplay, err := proto.UnpackBool(buf)
			if err != nil {
				return err
			}
			var display string
			if hasDisplay {
				display, err = proto.UnpackString(buf)
				if err != nil {
					return err
				}
			}
			if e, ok := m.PlayerList[key]; ok {
				e.HasDisplayName, e.DisplayName = hasDisplay, display
			}

		case PlayerListRemovePlayer:
			delete(m.PlayerList, key)
		}
	}
	return nil
}

// ApplyTeams handles 0x3E, grounded on proxhy/ext/gamestate.py's
// `_update_teams`.
func (m *Mirror) ApplyTeams(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := proto.UnpackString(buf)
	if err != nil {
		return err
	}
	mode, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}

	switch TeamMode(mode) {
	case TeamCreate:
		display, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		prefix, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		suffix, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		friendlyFire, err := proto.UnpackByte(buf)
		if err != nil {
			return err
		}
		visibility, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		color, err := proto.UnpackByte(buf)
		if err != nil {
			return err
		}
		count, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		t := newTeam(name)
		t.DisplayName, t.Prefix, t.Suffix = display, prefix, suffix
		t.FriendlyFire, t.NameTagVisibility, t.Color = friendlyFire, visibility, color
		for i := int32(0); i < count; i++ {
			p, err := proto.UnpackString(buf)
			if err != nil {
				return err
			}
			t.Players[p] = struct{}{}
		}
		m.Teams[name] = t

	case TeamRemove:
		delete(m.Teams, name)

	case TeamUpdateInfo:
		t, ok := m.Teams[name]
		display, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		prefix, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		suffix, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		friendlyFire, err := proto.UnpackByte(buf)
		if err != nil {
			return err
		}
		visibility, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		color, err := proto.UnpackByte(buf)
		if err != nil {
			return err
		}
		if ok {
			t.DisplayName, t.Prefix, t.Suffix = display, prefix, suffix
			t.FriendlyFire, t.NameTagVisibility, t.Color = friendlyFire, visibility, color
		}

	case TeamAddPlayers, TeamRemovePlayers:
		count, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		players := make([]string, 0, count)
		for i := int32(0); i < count; i++ {
			p, err := proto.UnpackString(buf)
			if err != nil {
				return err
			}
			players = append(players, p)
		}
		t, ok := m.Teams[name]
		if !ok {
			return nil
		}
		for _, p := range players {
			if TeamMode(mode) == TeamAddPlayers {
				t.Players[p] = struct{}{}
			} else {
				delete(t.Players, p)
			}
		}
	}
	return nil
}

// ApplySetSlot handles 0x2F: update self inventory; window 0 slots 36-44
// are the hotbar, per spec.md §4.F.
func (m *Mirror) ApplySetSlot(buf *proto.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	window, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	slot, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	item, err := proto.UnpackSlot(buf)
	if err != nil {
		return err
	}
	if window != 0 {
		return nil
	}
	m.Self.Inventory[slot] = Slot{
		Present: item.Present, ItemID: item.ItemID, Count: item.Count,
		Damage: item.Damage, NBT: item.NBT,
	}
	return nil
}

// ApplyHeldItemChange handles the serverbound mirror (0x09): update self
// held slot, per spec.md §4.F.
func (m *Mirror) ApplyHeldItemChange(buf *proto.Buffer) error {
	slot, err := proto.UnpackShort(buf)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Self.HeldSlot = slot
	return nil
}

// ApplyPlayerAbilities handles 0x39: update flags/flying_speed/fov_modifier,
// per spec.md §4.F.
func (m *Mirror) ApplyPlayerAbilities(buf *proto.Buffer) error {
	flags, err := proto.UnpackByte(buf)
	if err != nil {
		return err
	}
	flySpeed, err := proto.UnpackFloat(buf)
	if err != nil {
		return err
	}
	fov, err := proto.UnpackFloat(buf)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Self.AbilityFlags = PlayerAbilityFlags(uint8(flags))
	m.Self.FlyingSpeed = flySpeed
	m.Self.FOVModifier = fov
	return nil
}

// Apply dispatches a clientbound Play packet to the matching Apply* method
// when the mirror tracks it, returning (handled, err). Unhandled ids are a
// no-op, matching spec.md §4.F's mirror-only-what's-listed scope.
func (m *Mirror) Apply(id int32, buf *proto.Buffer) (bool, error) {
	switch id {
	case packet.CBJoinGame:
		return true, m.ApplyJoinGame(buf)
	case packet.CBRespawn:
		return true, m.ApplyRespawn(buf)
	case packet.CBPlayerPositionAndLook:
		return true, m.ApplyPlayerPositionAndLook(buf)
	case packet.CBSpawnPlayer:
		return true, m.ApplySpawnPlayer(buf)
	case packet.CBEntityVelocity:
		return true, m.ApplyEntityVelocity(buf)
	case packet.CBEntityRelativeMove:
		return true, m.ApplyEntityRelativeMove(buf)
	case packet.CBEntityLookAndMove:
		return true, m.ApplyEntityLookAndMove(buf)
	case packet.CBEntityTeleport:
		return true, m.ApplyEntityTeleport(buf)
	case packet.CBDestroyEntities:
		return true, m.ApplyDestroyEntities(buf)
	case packet.CBEntityMetadata:
		return true, m.ApplyEntityMetadata(buf)
	case packet.CBEntityEquipment:
		return true, m.ApplyEntityEquipment(buf)
	case packet.CBPlayerListItem:
		return true, m.ApplyPlayerListItem(buf)
	case packet.CBTeams:
		return true, m.ApplyTeams(buf)
	case packet.CBSetSlot:
		return true, m.ApplySetSlot(buf)
	case packet.CBPlayerAbilities:
		return true, m.ApplyPlayerAbilities(buf)
	case packet.CBSpawnObject:
		return true, m.ApplySpawnObject(buf)
	case packet.CBSpawnMob:
		return true, m.ApplySpawnMob(buf)
	case packet.CBSpawnPainting:
		return true, m.ApplySpawnPainting(buf)
	case packet.CBSpawnExperienceOrb:
		return true, m.ApplySpawnExperienceOrb(buf)
	case packet.CBSpawnGlobalEntity:
		return true, m.ApplySpawnGlobalEntity(buf)
	case packet.CBScoreboardObjective:
		return true, m.ApplyScoreboardObjective(buf)
	case packet.CBUpdateScore:
		return true, m.ApplyUpdateScore(buf)
	case packet.CBDisplayScoreboard:
		return true, m.ApplyDisplayScoreboard(buf)
	default:
		return false, nil
	}
}

// ApplyServerbound dispatches a serverbound packet the mirror also tracks
// (currently only held-item-change, per spec.md §4.F).
func (m *Mirror) ApplyServerbound(id int32, buf *proto.Buffer) (bool, error) {
	if id == packet.SBHeldItemChange {
		return true, m.ApplyHeldItemChange(buf)
	}
	return false, nil
}
