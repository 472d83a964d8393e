package proto

// Slot is the inventory-item wire type: item id, count, damage, and an
// optional NBT blob. An empty slot is encoded as item id -1 with nothing
// else following, per the 1.8.9 Slot format.
type Slot struct {
	Present bool
	ItemID  int16
	Count   int8
	Damage  int16
	NBT     []byte // raw NBT bytes, nil/empty means TAG_End (0x00) or absent
}

// EmptySlot is the canonical empty-slot value.
var EmptySlot = Slot{Present: false}

// PackSlot encodes s onto the wire.
func PackSlot(s Slot) []byte {
	if !s.Present {
		return PackShort(-1)
	}
	out := PackShort(s.ItemID)
	out = append(out, PackByte(s.Count)...)
	out = append(out, PackShort(s.Damage)...)
	if len(s.NBT) == 0 {
		out = append(out, 0x00) // TAG_End: no NBT data
	} else {
		out = append(out, s.NBT...)
	}
	return out
}

// UnpackSlot decodes a Slot from the buffer. NBT bytes are not parsed (the
// proxy never needs structured NBT access, only byte-identical roundtrips),
// they are carried as the raw remainder up to the single TAG_End byte when
// absent, or as the single 0x00 byte when there is no compound.
func UnpackSlot(buf *Buffer) (Slot, error) {
	id, err := UnpackShort(buf)
	if err != nil {
		return Slot{}, err
	}
	if id == -1 {
		return EmptySlot, nil
	}
	count, err := UnpackByte(buf)
	if err != nil {
		return Slot{}, err
	}
	damage, err := UnpackShort(buf)
	if err != nil {
		return Slot{}, err
	}
	tag, err := buf.ReadByte()
	if err != nil {
		return Slot{}, errMalformed(err)
	}
	var nbt []byte
	if tag != 0x00 {
		nbt, err = unpackNBTCompound(buf, tag)
		if err != nil {
			return Slot{}, err
		}
	}
	return Slot{Present: true, ItemID: id, Count: count, Damage: damage, NBT: nbt}, nil
}

// unpackNBTCompound reads a named TAG_Compound (tagID already consumed) far
// enough to know its total byte length, without building a structured tree;
// the proxy only needs to carry these bytes through unmodified. It walks the
// compound's name and scans child tags recursively to find the terminating
// TAG_End, recording the exact bytes consumed (including the leading tagID)
// so callers can re-pack them verbatim.
func unpackNBTCompound(buf *Buffer, tagID byte) ([]byte, error) {
	start := buf.pos - 1 // include the tag id byte we already consumed
	if err := skipNBTName(buf); err != nil {
		return nil, err
	}
	if err := skipNBTPayload(buf, tagID); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.data[start:buf.pos]...), nil
}

func skipNBTName(buf *Buffer) error {
	n, err := UnpackUnsignedShort(buf)
	if err != nil {
		return err
	}
	_, err = buf.ReadN(int(n))
	return err
}

// skipNBTPayload advances buf past the payload of a tag of the given type
// (name already consumed for compounds/lists-with-names by the caller).
func skipNBTPayload(buf *Buffer, tagID byte) error {
	switch tagID {
	case 1: // byte
		_, err := buf.ReadN(1)
		return err
	case 2: // short
		_, err := buf.ReadN(2)
		return err
	case 3, 5: // int, float
		_, err := buf.ReadN(4)
		return err
	case 4, 6: // long, double
		_, err := buf.ReadN(8)
		return err
	case 7: // byte array
		n, err := UnpackInt(buf)
		if err != nil {
			return err
		}
		_, err = buf.ReadN(int(n))
		return err
	case 8: // string
		n, err := UnpackUnsignedShort(buf)
		if err != nil {
			return err
		}
		_, err = buf.ReadN(int(n))
		return err
	case 9: // list
		elemType, err := buf.ReadByte()
		if err != nil {
			return errMalformed(err)
		}
		n, err := UnpackInt(buf)
		if err != nil {
			return err
		}
		for i := int32(0); i < n; i++ {
			if err := skipNBTPayload(buf, elemType); err != nil {
				return err
			}
		}
		return nil
	case 10: // compound
		for {
			childType, err := buf.ReadByte()
			if err != nil {
				return errMalformed(err)
			}
			if childType == 0 {
				return nil
			}
			if err := skipNBTName(buf); err != nil {
				return err
			}
			if err := skipNBTPayload(buf, childType); err != nil {
				return err
			}
		}
	case 11: // int array
		n, err := UnpackInt(buf)
		if err != nil {
			return err
		}
		_, err = buf.ReadN(int(n) * 4)
		return err
	default:
		return errMalformed(ErrMalformed)
	}
}
