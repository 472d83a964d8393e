// Package proto implements the Minecraft 1.8.9 (protocol 47) wire types:
// VarInt framing, primitive encodings, and the structured types (Position,
// Angle, Slot) used throughout the packet definitions in pkg/proto/packet.
//
// Every Pack function is pure (value in, bytes out); every Unpack function
// reads from a *Buffer and advances its cursor. Nothing in this package
// touches a net.Conn — I/O lives in pkg/proto/codec.
package proto

import (
	"errors"
	"io"
)

// ErrMalformed wraps any decode error that indicates the peer sent a
// structurally invalid packet (overrun VarInt, truncated field, unknown
// action code). It is always fatal for the stream that produced it.
var ErrMalformed = errors.New("proto: malformed packet")

// ErrVarIntTooBig is returned when a VarInt would need more than 5 bytes.
var ErrVarIntTooBig = errors.New("proto: VarInt is too big")

const (
	segmentBits = 0x7F
	continueBit = 0x80
)

// PackVarInt encodes n as a Minecraft VarInt (LEB128-style, up to 5 bytes,
// signed two's complement reinterpreted as unsigned for shifting).
func PackVarInt(n int32) []byte {
	u := uint32(n)
	buf := make([]byte, 0, 5)
	for {
		if u&^segmentBits == 0 {
			buf = append(buf, byte(u))
			return buf
		}
		buf = append(buf, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
}

// UnpackVarInt reads a VarInt from buf, returning ErrMalformed (wrapping
// ErrVarIntTooBig) if more than 5 bytes are consumed without terminating.
func UnpackVarInt(buf *Buffer) (int32, error) {
	var result uint32
	var numRead uint
	for {
		b, err := buf.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&segmentBits) << (7 * numRead)
		numRead++
		if numRead > 5 {
			return 0, errMalformed(ErrVarIntTooBig)
		}
		if b&continueBit == 0 {
			break
		}
	}
	return int32(result), nil
}

// ReadVarInt reads a VarInt directly off an io.ByteReader, for use by the
// session read loop before a full packet's bytes are buffered (it must be
// read one byte at a time straight off the (possibly encrypted) stream).
func ReadVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	var numRead uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&segmentBits) << (7 * numRead)
		numRead++
		if numRead > 5 {
			return 0, errMalformed(ErrVarIntTooBig)
		}
		if b&continueBit == 0 {
			break
		}
	}
	return int32(result), nil
}

func errMalformed(err error) error {
	return &malformedError{err}
}

type malformedError struct{ err error }

func (e *malformedError) Error() string { return "proto: malformed packet: " + e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }
func (e *malformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Buffer is a seekable byte cursor used by Unpack functions.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps b for sequential unpacking.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Len reports the number of unread bytes remaining.
func (b *Buffer) Len() int { return len(b.data) - b.pos }

// ReadByte implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// ReadN reads exactly n bytes or returns ErrMalformed wrapping io.ErrUnexpectedEOF.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	if b.Len() < n {
		return nil, errMalformed(io.ErrUnexpectedEOF)
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// ReadRest reads and returns all remaining bytes in the buffer.
func (b *Buffer) ReadRest() []byte {
	out := b.data[b.pos:]
	b.pos = len(b.data)
	return out
}

// Bytes returns the full backing slice (for re-framing/forwarding payloads).
func (b *Buffer) Bytes() []byte { return b.data }

// Clone returns an independent copy of the buffer at its current position,
// so one event subscriber mutating its read cursor can't affect another's
// view of the same payload (mirrors core/events.py's Buffer.clone()).
func (b *Buffer) Clone() *Buffer {
	rest := make([]byte, len(b.data)-b.pos)
	copy(rest, b.data[b.pos:])
	return NewBuffer(rest)
}
