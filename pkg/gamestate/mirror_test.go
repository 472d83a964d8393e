package gamestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbidlack/proxhy-go/pkg/proto"
)

func packJoinGame(eid int32, gamemode, difficulty uint8, dimension int32, levelType string) []byte {
	var buf []byte
	buf = append(buf, proto.PackInt(eid)...)
	buf = append(buf, proto.PackUnsignedByte(gamemode)...)
	buf = append(buf, proto.PackInt(dimension)...)
	buf = append(buf, proto.PackUnsignedByte(difficulty)...)
	buf = append(buf, proto.PackUnsignedByte(20)...) // max players
	buf = append(buf, proto.PackString(levelType)...)
	return buf
}

func TestApplyJoinGameCapturesSelfAndFlushesWorld(t *testing.T) {
	m := New()
	m.Entities[7] = NewEntity(7, 1)

	err := m.ApplyJoinGame(proto.NewBuffer(packJoinGame(42, 1, 2, 0, "default")))
	require.NoError(t, err)

	assert.Equal(t, int32(42), m.PlayerEntityID())
	assert.Equal(t, Gamemode(1), m.Self.Gamemode)
	assert.Equal(t, Dimension(0), m.Self.Dimension)
	assert.Equal(t, Difficulty(2), m.Self.Difficulty)
	assert.Equal(t, "default", m.Self.LevelType)
	assert.Empty(t, m.Entities, "join game must flush the entity table")
}

func packEntityTeleport(eid int32, x, y, z int32, yaw, pitch proto.Angle, onGround bool) []byte {
	var buf []byte
	buf = append(buf, proto.PackVarInt(eid)...)
	buf = append(buf, proto.PackInt(x)...)
	buf = append(buf, proto.PackInt(y)...)
	buf = append(buf, proto.PackInt(z)...)
	buf = append(buf, proto.PackAngle(yaw)...)
	buf = append(buf, proto.PackAngle(pitch)...)
	buf = append(buf, proto.PackBool(onGround)...)
	return buf
}

func TestApplyEntityTeleportSetsAbsolutePosition(t *testing.T) {
	m := New()
	m.Entities[7] = NewEntity(7, 1)

	yaw := proto.AngleFromDegrees(90)
	pitch := proto.AngleFromDegrees(45)
	payload := packEntityTeleport(7, 32*10, 32*20, 32*-5, yaw, pitch, true)

	err := m.ApplyEntityTeleport(proto.NewBuffer(payload))
	require.NoError(t, err)

	e := m.Entities[7]
	assert.Equal(t, Vec3{X: 10, Y: 20, Z: -5}, e.Position)
	assert.InDelta(t, 90, e.Rotation.Yaw, 0.01)
	assert.InDelta(t, 45, e.Rotation.Pitch, 0.01)
	assert.True(t, e.OnGround)
}

func TestApplyEntityTeleportUnknownEntityIsNoop(t *testing.T) {
	m := New()
	payload := packEntityTeleport(999, 0, 0, 0, 0, 0, false)
	err := m.ApplyEntityTeleport(proto.NewBuffer(payload))
	assert.NoError(t, err)
	assert.NotContains(t, m.Entities, int32(999))
}

func packEntityVelocity(eid int32, vx, vy, vz int16) []byte {
	var buf []byte
	buf = append(buf, proto.PackVarInt(eid)...)
	buf = append(buf, proto.PackShort(vx)...)
	buf = append(buf, proto.PackShort(vy)...)
	buf = append(buf, proto.PackShort(vz)...)
	return buf
}

func TestApplyEntityVelocityUpdatesTrackedEntity(t *testing.T) {
	m := New()
	m.Entities[3] = NewEntity(3, 1)

	err := m.ApplyEntityVelocity(proto.NewBuffer(packEntityVelocity(3, 100, -50, 0)))
	require.NoError(t, err)
	assert.Equal(t, [3]int16{100, -50, 0}, m.Entities[3].Velocity)
}
