package proto

import (
	"bytes"
	"compress/zlib"
	"io"
)

// NoCompression disables compression (negative threshold).
const NoCompression = -1

// BuildPacket concatenates a packet id and its data parts into the
// uncompressed packet body: VarInt(id) + concat(parts).
func BuildPacket(id int32, parts ...[]byte) []byte {
	body := PackVarInt(id)
	for _, p := range parts {
		body = append(body, p...)
	}
	return body
}

// CompressBody applies the compression-header rules of spec.md §4.B to an
// uncompressed packet body (id+fields). If threshold is negative, the body
// is returned unchanged with no header. Otherwise, if len(body) >= threshold
// the body is zlib-compressed and prefixed with its uncompressed length; if
// not, it is prefixed with a zero data_length and left raw.
func CompressBody(body []byte, threshold int) ([]byte, error) {
	if threshold < 0 {
		return body, nil
	}
	if len(body) >= threshold {
		var compressed bytes.Buffer
		w := zlib.NewWriter(&compressed)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return append(PackVarInt(int32(len(body))), compressed.Bytes()...), nil
	}
	return append(PackVarInt(0), body...), nil
}

// DecompressBody reverses CompressBody given the raw bytes that followed the
// outer packet length (but before framing length was stripped). When
// threshold < 0, data is the uncompressed id+fields body already.
func DecompressBody(data []byte, threshold int) ([]byte, error) {
	if threshold < 0 {
		return data, nil
	}
	buf := NewBuffer(data)
	dataLength, err := UnpackVarInt(buf)
	if err != nil {
		return nil, err
	}
	rest := buf.ReadRest()
	if dataLength == 0 {
		return rest, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, errMalformed(err)
	}
	defer r.Close()
	out := make([]byte, dataLength)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errMalformed(err)
	}
	return out, nil
}

// FrameWithLength prepends the outer VarInt(length) to a (possibly
// compression-headered) packet body, producing the full bytes to write to
// the wire.
func FrameWithLength(body []byte) []byte {
	return append(PackVarInt(int32(len(body))), body...)
}
