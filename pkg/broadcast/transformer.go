// Package broadcast implements the spectator broadcast pipeline: re-framing
// the owner's serverbound movement/action packets into clientbound entity
// packets for attached peers, and filtering/rewriting the owner's
// clientbound stream before forwarding it to those peers. Grounded
// end-to-end on broadcasting/transform.py's PlayerTransformer, the single
// most detailed file in the retrieval pack.
package broadcast

import (
	"github.com/google/uuid"

	"github.com/kbidlack/proxhy-go/pkg/gamestate"
	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/packet"
)

// EquipmentHeldSlot is entity equipment slot 0 (main hand).
const EquipmentHeldSlot = 0

// Announcer sends a fully-formed clientbound packet (id + already-packed
// fields) to every attached peer.
type Announcer func(id int32, payload []byte) error

// Transformer tracks one owner's avatar state and converts between the
// owner's real packets and the synthetic entity packets peers see.
// Grounded on PlayerTransformer's instance fields and methods.
type Transformer struct {
	gs *gamestate.Mirror

	announce       Announcer // to every attached peer
	announcePlayer Announcer // only to peers with the avatar spawned

	playerEID      int32
	playerUUID     string
	playerUsername string
	clientEID      int32 // this peer's own entity id, the spawnedFor/MarkSpawned key
	spawnedFor     map[int32]struct{}

	position      gamestate.Vec3
	rotation      gamestate.Rotation
	onGround      bool
	metadataFlags int8
	heldSlot      int16
	equipment     map[gamestate.EquipmentSlot]gamestate.Slot
}

// NewTransformer wires a Transformer to the shared game-state mirror and
// the two announce callbacks the owning session provides.
func NewTransformer(gs *gamestate.Mirror, announce, announcePlayer Announcer) *Transformer {
	return &Transformer{
		gs:             gs,
		announce:       announce,
		announcePlayer: announcePlayer,
		spawnedFor:     make(map[int32]struct{}),
		equipment:      make(map[gamestate.EquipmentSlot]gamestate.Slot),
	}
}

// Reset clears spawn tracking, e.g. on a dimension change.
func (t *Transformer) Reset() {
	t.spawnedFor = make(map[int32]struct{})
}

// InitFromGameState seeds the transformer's cached position/rotation/entity
// id from the live mirror, called once the owner's Play session is up.
func (t *Transformer) InitFromGameState(playerUUID, playerUsername string) {
	t.playerUUID = playerUUID
	t.playerUsername = playerUsername
	t.playerEID = t.gs.PlayerEntityID()
	self := t.gs.Self
	t.position = self.Position
	t.rotation = self.Rotation
}

// SetClientEID records the entity id this peer's own Play session was
// assigned (distinct from playerEID, which is the owner's avatar id), used
// as the MarkSpawned/SpawnedFor key.
func (t *Transformer) SetClientEID(id int32) {
	t.clientEID = id
}

// MarkSpawned records that clientEID (a peer's own entity id, used as the
// set key in the original) has seen the owner's avatar spawned.
func (t *Transformer) MarkSpawned(clientEID int32) {
	t.spawnedFor[clientEID] = struct{}{}
}

// SpawnedFor reports whether any peer currently has the avatar spawned,
// which gates relative-move vs teleport choice below.
func (t *Transformer) SpawnedFor() bool { return len(t.spawnedFor) > 0 }

// SpawnAvatar (re)announces the owner's avatar to this peer: a player-list
// entry, spawn-player, current facing/equipment, then marks the peer as
// having the avatar spawned so subsequent relative-move/animation/
// equipment updates reach it instead of requiring a full teleport, per
// spec.md §4.G item 6. Used both during the peer's initial login ritual and
// as ForwardClientboundPacket's spawnCallback, which runs after every
// server position-and-look update.
func (t *Transformer) SpawnAvatar() error {
	id, err := uuid.Parse(t.playerUUID)
	if err != nil {
		id = uuid.Nil
	}

	listAdd := proto.PackVarInt(int32(gamestate.PlayerListAddPlayer))
	listAdd = append(listAdd, proto.PackVarInt(1)...)
	listAdd = append(listAdd, proto.PackUUID(id)...)
	listAdd = append(listAdd, proto.PackString(t.playerUsername)...)
	listAdd = append(listAdd, proto.PackVarInt(0)...) // no skin properties tracked for the owner
	listAdd = append(listAdd, proto.PackVarInt(0)...) // gamemode
	listAdd = append(listAdd, proto.PackVarInt(0)...) // ping
	listAdd = append(listAdd, proto.PackBool(false)...)
	if err := t.announce(packet.CBPlayerListItem, listAdd); err != nil {
		return err
	}

	spawn := proto.PackVarInt(t.playerEID)
	spawn = append(spawn, proto.PackUUID(id)...)
	spawn = append(spawn, proto.PackInt(int32(t.position.X*32))...)
	spawn = append(spawn, proto.PackInt(int32(t.position.Y*32))...)
	spawn = append(spawn, proto.PackInt(int32(t.position.Z*32))...)
	spawn = append(spawn, proto.PackAngle(proto.AngleFromDegrees(float64(t.rotation.Yaw)))...)
	spawn = append(spawn, proto.PackAngle(proto.AngleFromDegrees(float64(t.rotation.Pitch)))...)
	spawn = append(spawn, proto.PackShort(0)...) // current item
	spawn = append(spawn, gamestate.EncodeSingleByteMetadata(0, t.metadataFlags)...)
	if err := t.announcePlayer(packet.CBSpawnPlayer, spawn); err != nil {
		return err
	}

	if err := t.announcePlayer(packet.CBEntityHeadLook, concat(
		proto.PackVarInt(t.playerEID), proto.PackAngle(proto.AngleFromDegrees(float64(t.rotation.Yaw))),
	)); err != nil {
		return err
	}

	for slot, item := range t.equipment {
		if err := t.announcePlayer(packet.CBEntityEquipment, concat(
			proto.PackVarInt(t.playerEID), proto.PackShort(int16(slot)), proto.PackSlot(toProtoSlot(item)),
		)); err != nil {
			return err
		}
	}

	t.MarkSpawned(t.clientEID)
	return nil
}

// HandleServerboundPacket converts one owner-sent Play packet into the
// matching clientbound entity update(s) for peers, per spec.md §4.G.
func (t *Transformer) HandleServerboundPacket(id int32, data []byte) error {
	buf := proto.NewBuffer(data)

	switch id {
	case packet.SBPlayer: // 0x03: on-ground only
		onGround, err := proto.UnpackBool(buf)
		if err != nil {
			return err
		}
		t.onGround = onGround
		return t.announcePlayer(packet.CBEntity, proto.PackVarInt(t.playerEID))

	case packet.SBPlayerPosition: // 0x04
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
		onGround, err := proto.UnpackBool(buf)
		if err != nil {
			return err
		}
		return t.updatePosition(x, y, z, nil, nil, onGround)

	case packet.SBPlayerLook: // 0x05
		yaw, err := proto.UnpackFloat(buf)
		if err != nil {
			return err
		}
		pitch, err := proto.UnpackFloat(buf)
		if err != nil {
			return err
		}
		onGround, err := proto.UnpackBool(buf)
		if err != nil {
			return err
		}
		return t.updateLook(yaw, pitch, onGround)

	case packet.SBPlayerPosAndLook: // 0x06
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
		onGround, err := proto.UnpackBool(buf)
		if err != nil {
			return err
		}
		return t.updatePosition(x, y, z, &yaw, &pitch, onGround)

	case packet.SBPlayerDigging: // 0x07: server will send block break animation
		return nil

	case packet.SBHeldItemChange: // 0x09
		slot, err := proto.UnpackShort(buf)
		if err != nil {
			return err
		}
		t.heldSlot = slot
		held := t.gs.HotbarSlot(slot)
		t.equipment[gamestate.EquipHeld] = held
		return t.announcePlayer(packet.CBEntityEquipment,
			concat(proto.PackVarInt(t.playerEID), proto.PackShort(EquipmentHeldSlot), proto.PackSlot(toProtoSlot(held))))

	case packet.SBAnimation: // 0x0A: arm swing
		return t.announcePlayer(packet.CBAnimation,
			concat(proto.PackVarInt(t.playerEID), proto.PackUnsignedByte(0)))

	case packet.SBEntityAction: // 0x0B
		if _, err := proto.UnpackVarInt(buf); err != nil { // entity id
			return err
		}
		action, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		if _, err := proto.UnpackVarInt(buf); err != nil { // action parameter
			return err
		}
		return t.handleEntityAction(int(action))
	}
	return nil
}

func (t *Transformer) updatePosition(x, y, z float64, yaw, pitch *float32, onGround bool) error {
	old := t.position
	dx := (x - old.X) * 32
	dy := (y - old.Y) * 32
	dz := (z - old.Z) * 32

	useRelative := abs(dx) < 128 && abs(dy) < 128 && abs(dz) < 128 && t.SpawnedFor()

	t.position = gamestate.Vec3{X: x, Y: y, Z: z}
	t.onGround = onGround
	if yaw != nil && pitch != nil {
		t.rotation = gamestate.Rotation{Yaw: *yaw, Pitch: *pitch}
	}

	if useRelative {
		if yaw != nil && pitch != nil {
			if err := t.announcePlayer(packet.CBEntityLookAndMove, concat(
				proto.PackVarInt(t.playerEID),
				proto.PackByte(int8(dx)), proto.PackByte(int8(dy)), proto.PackByte(int8(dz)),
				proto.PackAngle(proto.AngleFromDegrees(float64(*yaw))),
				proto.PackAngle(proto.AngleFromDegrees(float64(*pitch))),
				proto.PackBool(onGround),
			)); err != nil {
				return err
			}
			return t.announcePlayer(packet.CBEntityHeadLook, concat(
				proto.PackVarInt(t.playerEID), proto.PackAngle(proto.AngleFromDegrees(float64(*yaw))),
			))
		}
		return t.announcePlayer(packet.CBEntityRelativeMove, concat(
			proto.PackVarInt(t.playerEID),
			proto.PackByte(int8(dx)), proto.PackByte(int8(dy)), proto.PackByte(int8(dz)),
			proto.PackBool(onGround),
		))
	}

	if err := t.announcePlayer(packet.CBEntityTeleport, concat(
		proto.PackVarInt(t.playerEID),
		proto.PackInt(int32(x*32)), proto.PackInt(int32(y*32)), proto.PackInt(int32(z*32)),
		proto.PackAngle(proto.AngleFromDegrees(float64(t.rotation.Yaw))),
		proto.PackAngle(proto.AngleFromDegrees(float64(t.rotation.Pitch))),
		proto.PackBool(onGround),
	)); err != nil {
		return err
	}
	if yaw != nil {
		return t.announcePlayer(packet.CBEntityHeadLook, concat(
			proto.PackVarInt(t.playerEID), proto.PackAngle(proto.AngleFromDegrees(float64(*yaw))),
		))
	}
	return nil
}

func (t *Transformer) updateLook(yaw, pitch float32, onGround bool) error {
	t.rotation = gamestate.Rotation{Yaw: yaw, Pitch: pitch}
	t.onGround = onGround

	if err := t.announcePlayer(packet.CBEntityLook, concat(
		proto.PackVarInt(t.playerEID),
		proto.PackAngle(proto.AngleFromDegrees(float64(yaw))),
		proto.PackAngle(proto.AngleFromDegrees(float64(pitch))),
		proto.PackBool(onGround),
	)); err != nil {
		return err
	}
	return t.announcePlayer(packet.CBEntityHeadLook, concat(
		proto.PackVarInt(t.playerEID), proto.PackAngle(proto.AngleFromDegrees(float64(yaw))),
	))
}

func (t *Transformer) handleEntityAction(action int) error {
	switch action {
	case packet.EntityActionStartSneak:
		t.metadataFlags |= int8(gamestate.EntityCrouched)
	case packet.EntityActionStopSneak:
		t.metadataFlags &^= int8(gamestate.EntityCrouched)
	case packet.EntityActionStartSprint:
		t.metadataFlags |= int8(gamestate.EntitySprinting)
	case packet.EntityActionStopSprint:
		t.metadataFlags &^= int8(gamestate.EntitySprinting)
	default:
		return nil
	}
	metadata := gamestate.EncodeSingleByteMetadata(0, t.metadataFlags)
	return t.announcePlayer(packet.CBEntityMetadata, concat(proto.PackVarInt(t.playerEID), metadata))
}

// ForwardClientboundPacket forwards or rewrites one server-sent Play packet
// for peers, per spec.md §4.G. spawnCallback runs after a position update is
// announced, so the caller can (re)spawn the avatar for peers who need it.
func (t *Transformer) ForwardClientboundPacket(id int32, full []byte, spawnCallback func() error) error {
	buf := proto.NewBuffer(full)

	switch id {
	case packet.CBJoinGame: // 0x01: not forwarded, each peer has its own
		eid, err := proto.UnpackInt(buf)
		if err != nil {
			return err
		}
		t.playerEID = eid
		t.Reset()
		return nil

	case packet.CBRespawn: // 0x07: forced gamemode 3
		dimension, err := proto.UnpackInt(buf)
		if err != nil {
			return err
		}
		difficulty, err := proto.UnpackUnsignedByte(buf)
		if err != nil {
			return err
		}
		if _, err := proto.UnpackUnsignedByte(buf); err != nil { // gamemode, discarded
			return err
		}
		levelType, err := proto.UnpackString(buf)
		if err != nil {
			return err
		}
		t.Reset()
		return t.announce(packet.CBRespawn, concat(
			proto.PackInt(dimension), proto.PackUnsignedByte(difficulty),
			proto.PackUnsignedByte(3), proto.PackString(levelType),
		))

	case packet.CBPlayerPositionAndLook: // 0x08
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
			x += t.position.X
		}
		if flags&0x02 != 0 {
			y += t.position.Y
		}
		if flags&0x04 != 0 {
			z += t.position.Z
		}
		if flags&0x08 != 0 {
			yaw += t.rotation.Yaw
		}
		if flags&0x10 != 0 {
			pitch += t.rotation.Pitch
		}
		t.position = gamestate.Vec3{X: x, Y: y, Z: z}
		t.rotation = gamestate.Rotation{Yaw: yaw, Pitch: pitch}

		if err := t.announce(id, full); err != nil {
			return err
		}
		if spawnCallback != nil {
			if err := spawnCallback(); err != nil {
				return err
			}
		}
		return t.announcePlayer(packet.CBEntityTeleport, concat(
			proto.PackVarInt(t.playerEID),
			proto.PackInt(int32(x*32)), proto.PackInt(int32(y*32)), proto.PackInt(int32(z*32)),
			proto.PackAngle(proto.AngleFromDegrees(float64(yaw))),
			proto.PackAngle(proto.AngleFromDegrees(float64(pitch))),
			proto.PackBool(t.onGround),
		))

	case packet.CBEntityEquipment: // 0x04
		entityID, err := proto.UnpackVarInt(buf)
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
		if entityID == t.playerEID || entityID == t.gs.PlayerEntityID() {
			t.equipment[gamestate.EquipmentSlot(slot)] = toGameStateSlot(item)
			return t.announce(id, concat(proto.PackVarInt(t.playerEID), proto.PackShort(slot), proto.PackSlot(item)))
		}
		if packet.BroadcastAllow[id] {
			return t.announce(id, full)
		}
		return nil

	case packet.CBAnimation: // 0x0B
		entityID, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		animation, err := proto.UnpackUnsignedByte(buf)
		if err != nil {
			return err
		}
		if entityID == t.gs.PlayerEntityID() {
			return t.announcePlayer(id, concat(proto.PackVarInt(t.playerEID), proto.PackUnsignedByte(animation)))
		}
		if packet.BroadcastAllow[id] {
			return t.announce(id, full)
		}
		return nil

	case packet.CBEntityMetadata, packet.CBEntityVelocity, packet.CBEntityEffect, packet.CBRemoveEntityEffect:
		entityID, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		if entityID == t.gs.PlayerEntityID() {
			rest := buf.ReadRest()
			return t.announcePlayer(id, concat(proto.PackVarInt(t.playerEID), rest))
		}
		if packet.BroadcastAllow[id] {
			return t.announce(id, full)
		}
		return nil

	case packet.CBAttachEntity: // 0x1B
		entityID, err := proto.UnpackInt(buf)
		if err != nil {
			return err
		}
		vehicleID, err := proto.UnpackInt(buf)
		if err != nil {
			return err
		}
		leash, err := proto.UnpackBool(buf)
		if err != nil {
			return err
		}
		if entityID == t.gs.PlayerEntityID() {
			return t.announce(id, concat(proto.PackInt(t.playerEID), proto.PackInt(vehicleID), proto.PackBool(leash)))
		}
		if packet.BroadcastAllow[id] {
			return t.announce(id, full)
		}
		return nil

	case packet.CBSetSlot: // 0x2F: never forwarded, only used for equipment sync
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
		if window == 0 {
			hotbar := slot - 36
			if hotbar >= 0 && hotbar <= 8 && int16(hotbar) == t.heldSlot {
				t.equipment[gamestate.EquipHeld] = toGameStateSlot(item)
				return t.announcePlayer(packet.CBEntityEquipment, concat(
					proto.PackVarInt(t.playerEID), proto.PackShort(EquipmentHeldSlot), proto.PackSlot(item),
				))
			}
		}
		return nil

	case packet.CBPlayerListItem: // 0x38: forward unchanged
		return t.announce(id, full)

	case packet.CBDestroyEntities: // 0x13: filter the owner's own id
		count, err := proto.UnpackVarInt(buf)
		if err != nil {
			return err
		}
		filtered := make([]int32, 0, count)
		for i := int32(0); i < count; i++ {
			eid, err := proto.UnpackVarInt(buf)
			if err != nil {
				return err
			}
			if eid != t.gs.PlayerEntityID() {
				filtered = append(filtered, eid)
			}
		}
		if len(filtered) == 0 {
			return nil
		}
		out := proto.PackVarInt(int32(len(filtered)))
		for _, eid := range filtered {
			out = append(out, proto.PackVarInt(eid)...)
		}
		return t.announce(id, out)

	default:
		if !packet.BroadcastAllow[id] {
			return nil
		}
		return t.announce(id, full)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func toGameStateSlot(s proto.Slot) gamestate.Slot {
	return gamestate.Slot{Present: s.Present, ItemID: s.ItemID, Count: s.Count, Damage: s.Damage, NBT: s.NBT}
}

func toProtoSlot(s gamestate.Slot) proto.Slot {
	return proto.Slot{Present: s.Present, ItemID: s.ItemID, Count: s.Count, Damage: s.Damage, NBT: s.NBT}
}
