package gamestate

import (
	"github.com/kbidlack/proxhy-go/pkg/proto"
)

// metadata type tags, 1.8.9 protocol 47 encoding: the leading byte of each
// entry packs (type<<5 | index); 0x7F terminates the stream.
const (
	metaByte     = 0
	metaShort    = 1
	metaInt      = 2
	metaFloat    = 3
	metaString   = 4
	metaSlot     = 5
	metaPosition = 6 // three ints (x,y,z)
	metaRotation = 7 // three floats (pitch,yaw,roll of e.g. ArmorStand)
	metaEnd      = 0x7F
)

// DecodeMetadataStream reads entries until the 0x7F terminator, per
// spec.md §4.F ("metadata index stream until 0x7F terminator").
func DecodeMetadataStream(buf *proto.Buffer) (map[uint8]MetadataEntry, error) {
	out := make(map[uint8]MetadataEntry)
	for {
		header, err := buf.ReadByte()
		if err != nil {
			return nil, err
		}
		if header == metaEnd {
			return out, nil
		}
		index := header & 0x1F
		typ := header >> 5

		var value interface{}
		switch typ {
		case metaByte:
			v, err := proto.UnpackByte(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaShort:
			v, err := proto.UnpackShort(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaInt:
			v, err := proto.UnpackInt(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaFloat:
			v, err := proto.UnpackFloat(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaString:
			v, err := proto.UnpackString(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaSlot:
			v, err := proto.UnpackSlot(buf)
			if err != nil {
				return nil, err
			}
			value = v
		case metaPosition:
			x, err := proto.UnpackInt(buf)
			if err != nil {
				return nil, err
			}
			y, err := proto.UnpackInt(buf)
			if err != nil {
				return nil, err
			}
			z, err := proto.UnpackInt(buf)
			if err != nil {
				return nil, err
			}
			value = [3]int32{x, y, z}
		case metaRotation:
			x, err := proto.UnpackFloat(buf)
			if err != nil {
				return nil, err
			}
			y, err := proto.UnpackFloat(buf)
			if err != nil {
				return nil, err
			}
			z, err := proto.UnpackFloat(buf)
			if err != nil {
				return nil, err
			}
			value = [3]float32{x, y, z}
		default:
			return nil, proto.ErrMalformed
		}

		out[index] = MetadataEntry{Type: typ, Value: value}
	}
}

// EncodeMetadataStream re-packs a decoded metadata map back into wire form,
// terminated with 0x7F, used when replaying a tracked entity's full state
// to a newly attached spectator peer (spec.md §4.G's sync_broadcast_spectator
// replay).
func EncodeMetadataStream(m map[uint8]MetadataEntry) []byte {
	var out []byte
	for index, entry := range m {
		header := byte(entry.Type<<5) | (index & 0x1F)
		out = append(out, header)
		switch v := entry.Value.(type) {
		case int8:
			out = append(out, proto.PackByte(v)...)
		case int16:
			out = append(out, proto.PackShort(v)...)
		case int32:
			out = append(out, proto.PackInt(v)...)
		case float32:
			out = append(out, proto.PackFloat(v)...)
		case string:
			out = append(out, proto.PackString(v)...)
		case proto.Slot:
			out = append(out, proto.PackSlot(v)...)
		case [3]int32:
			out = append(out, proto.PackInt(v[0])...)
			out = append(out, proto.PackInt(v[1])...)
			out = append(out, proto.PackInt(v[2])...)
		case [3]float32:
			out = append(out, proto.PackFloat(v[0])...)
			out = append(out, proto.PackFloat(v[1])...)
			out = append(out, proto.PackFloat(v[2])...)
		}
	}
	out = append(out, metaEnd)
	return out
}

// EncodeSingleByteMetadata packs one byte-typed metadata entry followed by
// the terminator, used by the broadcast transformer to emit an index-0
// flags delta without re-encoding the whole stream (grounded on
// broadcasting/transform.py's `pack_single_metadata(0, 0, flags)`).
func EncodeSingleByteMetadata(index uint8, value int8) []byte {
	header := byte(index) // type 0 (byte) in the high bits is 0<<5
	out := make([]byte, 0, 3)
	out = append(out, header)
	out = append(out, byte(value))
	out = append(out, metaEnd)
	return out
}
