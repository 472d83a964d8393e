package proto

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/google/uuid"
)

// PackBool packs a boolean as a single byte.
func PackBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// UnpackBool reads a boolean byte.
func UnpackBool(buf *Buffer) (bool, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return false, errMalformed(err)
	}
	return b != 0, nil
}

// PackByte packs a signed byte.
func PackByte(v int8) []byte { return []byte{byte(v)} }

// UnpackByte reads a signed byte.
func UnpackByte(buf *Buffer) (int8, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return 0, errMalformed(err)
	}
	return int8(b), nil
}

// PackUnsignedByte packs an unsigned byte.
func PackUnsignedByte(v uint8) []byte { return []byte{v} }

// UnpackUnsignedByte reads an unsigned byte.
func UnpackUnsignedByte(buf *Buffer) (uint8, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return 0, errMalformed(err)
	}
	return b, nil
}

// PackShort packs a big-endian signed 16-bit integer.
func PackShort(v int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

// UnpackShort reads a big-endian signed 16-bit integer.
func UnpackShort(buf *Buffer) (int16, error) {
	b, err := buf.ReadN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// PackUnsignedShort packs a big-endian unsigned 16-bit integer.
func PackUnsignedShort(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// UnpackUnsignedShort reads a big-endian unsigned 16-bit integer.
func UnpackUnsignedShort(buf *Buffer) (uint16, error) {
	b, err := buf.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// PackInt packs a big-endian signed 32-bit integer.
func PackInt(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// UnpackInt reads a big-endian signed 32-bit integer.
func UnpackInt(buf *Buffer) (int32, error) {
	b, err := buf.ReadN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// PackLong packs a big-endian signed 64-bit integer.
func PackLong(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// UnpackLong reads a big-endian signed 64-bit integer.
func UnpackLong(buf *Buffer) (int64, error) {
	b, err := buf.ReadN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// PackFloat packs a big-endian IEEE-754 float32.
func PackFloat(v float32) []byte {
	return PackInt(int32(math.Float32bits(v)))
}

// UnpackFloat reads a big-endian IEEE-754 float32.
func UnpackFloat(buf *Buffer) (float32, error) {
	v, err := UnpackInt(buf)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

// PackDouble packs a big-endian IEEE-754 float64.
func PackDouble(v float64) []byte {
	return PackLong(int64(math.Float64bits(v)))
}

// UnpackDouble reads a big-endian IEEE-754 float64.
func UnpackDouble(buf *Buffer) (float64, error) {
	v, err := UnpackLong(buf)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

// PackString packs a VarInt-length-prefixed UTF-8 string.
func PackString(s string) []byte {
	b := []byte(s)
	return append(PackVarInt(int32(len(b))), b...)
}

// MaxStringLength bounds string reads against a hostile/buggy peer; 1.8.9
// chat messages cap at 32767 UTF-16 code units, so this is a generous ceiling
// on the UTF-8 byte length.
const MaxStringLength = 1 << 18

// UnpackString reads a VarInt-length-prefixed UTF-8 string.
func UnpackString(buf *Buffer) (string, error) {
	n, err := UnpackVarInt(buf)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > MaxStringLength {
		return "", errMalformed(io.ErrShortBuffer)
	}
	b, err := buf.ReadN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PackByteArray packs a VarInt-length-prefixed byte array.
func PackByteArray(b []byte) []byte {
	return append(PackVarInt(int32(len(b))), b...)
}

// UnpackByteArray reads a VarInt-length-prefixed byte array.
func UnpackByteArray(buf *Buffer) ([]byte, error) {
	n, err := UnpackVarInt(buf)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errMalformed(io.ErrShortBuffer)
	}
	return buf.ReadN(int(n))
}

// PackUUID packs a 128-bit big-endian UUID.
func PackUUID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// UnpackUUID reads a 128-bit big-endian UUID.
func UnpackUUID(buf *Buffer) (uuid.UUID, error) {
	b, err := buf.ReadN(16)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	copy(id[:], b)
	return id, nil
}

// Angle is a single unsigned byte representing 1/256ths of a full rotation.
type Angle uint8

// AngleFromDegrees converts degrees (any range) to the wire Angle encoding:
// round(degrees*256/360) mod 256.
func AngleFromDegrees(degrees float64) Angle {
	v := int64(math.Round(degrees * 256.0 / 360.0))
	return Angle(uint8(((v % 256) + 256) % 256))
}

// Degrees converts the wire Angle back to degrees in [0, 360).
func (a Angle) Degrees() float64 {
	return float64(a) * 360.0 / 256.0
}

// PackAngle packs an Angle as its raw byte.
func PackAngle(a Angle) []byte { return []byte{byte(a)} }

// UnpackAngle reads an Angle byte.
func UnpackAngle(buf *Buffer) (Angle, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return 0, errMalformed(err)
	}
	return Angle(b), nil
}

// Position packs X/Y/Z into a single 64-bit word: 26 bits X, 12 bits Y (sign
// extended on read), 26 bits Z, per the 1.8.9 Position encoding.
type Position struct {
	X, Y, Z int
}

// PackPosition encodes p into its 64-bit wire word.
func PackPosition(p Position) []byte {
	x := uint64(p.X) & 0x3FFFFFF
	y := uint64(p.Y) & 0xFFF
	z := uint64(p.Z) & 0x3FFFFFF
	word := (x << 38) | (y << 26) | z
	return PackLong(int64(word))
}

// UnpackPosition decodes a 64-bit wire word into X/Y/Z, sign-extending each
// field from its packed bit width.
func UnpackPosition(buf *Buffer) (Position, error) {
	v, err := UnpackLong(buf)
	if err != nil {
		return Position{}, err
	}
	word := uint64(v)
	x := signExtend(word>>38, 26)
	y := signExtend((word>>26)&0xFFF, 12)
	z := signExtend(word&0x3FFFFFF, 26)
	return Position{X: int(x), Y: int(y), Z: int(z)}, nil
}

func signExtend(v uint64, bits uint) int64 {
	v &= (1 << bits) - 1
	signBit := uint64(1) << (bits - 1)
	if v&signBit != 0 {
		return int64(v) - int64(1<<bits)
	}
	return int64(v)
}
