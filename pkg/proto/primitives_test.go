package proto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []struct {
		value    int32
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{25565, []byte{0xDD, 0xC7, 0x01}},
		{2147483647, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}},
		{-1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, c := range cases {
		got := PackVarInt(c.value)
		assert.Equal(t, c.expected, got, "PackVarInt(%d)", c.value)

		val, err := UnpackVarInt(NewBuffer(c.expected))
		require.NoError(t, err)
		assert.Equal(t, c.value, val, "UnpackVarInt(%v)", c.expected)
	}
}

func TestUnpackVarIntTooBig(t *testing.T) {
	// Six continuation-flagged bytes never terminate within the 5-byte limit.
	buf := NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	_, err := UnpackVarInt(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "spectator broadcast", "日本語"} {
		packed := PackString(s)
		got, err := UnpackString(NewBuffer(packed))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	cases := []Position{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: 64, Z: -100},
		{X: -33554432, Y: -2048, Z: 33554431},
		{X: 18, Y: 63, Z: -7},
	}
	for _, p := range cases {
		got, err := UnpackPosition(NewBuffer(PackPosition(p)))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestAngleFromDegrees(t *testing.T) {
	cases := []struct {
		degrees float64
		want    Angle
	}{
		{0, 0},
		{180, 128},
		{360, 0},
		{-90, 192},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AngleFromDegrees(c.degrees), "AngleFromDegrees(%v)", c.degrees)
	}
}

func TestAnglePackRoundTrip(t *testing.T) {
	a := AngleFromDegrees(271)
	got, err := UnpackAngle(NewBuffer(PackAngle(a)))
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	got, err := UnpackUUID(NewBuffer(PackUUID(id)))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
