package gamestate

import "github.com/google/uuid"

// Vec3 is a floating-point world position or velocity, per spec.md §3.
type Vec3 struct {
	X, Y, Z float64
}

// Rotation is yaw/pitch/head-yaw in degrees.
type Rotation struct {
	Yaw, Pitch, HeadYaw float32
}

// MetadataEntry is one decoded metadata stream slot: (type_tag, value), per
// spec.md §3. Value holds whatever primitive the tag implies (byte, short,
// int, float, string, Slot bytes, or packed Position/rotation triple); the
// mirror does not interpret it further than spec.md §4.F requires (index 0
// flags + equipment), so most values simply round-trip as decoded.
type MetadataEntry struct {
	Type  uint8
	Value interface{}
}

// Entity mirrors one tracked entity's client-visible state, per spec.md §3.
type Entity struct {
	ID       int32
	Type     int32
	UUID     uuid.UUID
	HasUUID  bool
	Position Vec3
	Rotation Rotation
	Velocity [3]int16

	OnGround bool

	Metadata  map[uint8]MetadataEntry
	Equipment map[EquipmentSlot]Slot

	Effects map[int8]struct{}

	VehicleID int32
	HasVehicle bool

	// Kind distinguishes the spawn packet family that created this entity
	// (players arrive via CBSpawnPlayer elsewhere); the remaining fields
	// are only meaningful for the matching Kind.
	Kind        EntityKind
	ObjectData  int32  // CBSpawnObject's data field (nonzero implies Velocity is set)
	PaintingTitle string // CBSpawnPainting
	Direction   int8   // CBSpawnPainting
	Count       int16  // CBSpawnExperienceOrb
}

// EntityKind records which spawn packet introduced an Entity, per spec.md
// §3's entity-lifecycle list.
type EntityKind uint8

const (
	EntityKindPlayer EntityKind = iota
	EntityKindObject
	EntityKindMob
	EntityKindPainting
	EntityKindExperienceOrb
	EntityKindGlobal
)

// Slot is the subset of an item stack the mirror cares about: identity, for
// equipment comparisons. The NBT payload is carried opaquely; see
// pkg/proto.Slot for the wire-exact form used when re-encoding.
type Slot struct {
	Present bool
	ItemID  int16
	Count   int8
	Damage  int16
	NBT     []byte
}

// NewEntity returns an Entity with its maps initialized.
func NewEntity(id, typ int32) *Entity {
	return &Entity{
		ID:        id,
		Type:      typ,
		Metadata:  make(map[uint8]MetadataEntry),
		Equipment: make(map[EquipmentSlot]Slot),
		Effects:   make(map[int8]struct{}),
	}
}

// SetMetadata merges one decoded (index, type, value) triple into the
// entity's metadata map, per spec.md §4.F ("decode the metadata stream and
// merge into the entity's metadata map").
func (e *Entity) SetMetadata(index, typ uint8, value interface{}) {
	e.Metadata[index] = MetadataEntry{Type: typ, Value: value}
}

// Flags reads metadata index 0 as the standard entity-flags byte, defaulting
// to 0 when absent (a freshly spawned entity before its first metadata
// packet).
func (e *Entity) Flags() EntityFlags {
	m, ok := e.Metadata[0]
	if !ok {
		return 0
	}
	if b, ok := m.Value.(int8); ok {
		return EntityFlags(uint8(b))
	}
	return 0
}
