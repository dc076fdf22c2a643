package slave

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Option is one entry of the opaque options container the engine
// consumes as part of argout/options. The container itself is just a
// sequence of length-prefixed (key, value) pairs; this module
// never interprets a value's meaning beyond the two keys it injects
// itself ("masterid", "timallow") and the two it synthesizes on failure
// ("lasterr", <message>).
type Option struct {
	Key   string
	Value []byte
}

// EncodeOption serializes a single option as
// [2-byte keylen][key][4-byte vallen][value].
func EncodeOption(o Option) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(o.Key)))
	buf.WriteString(o.Key)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(o.Value)))
	buf.Write(o.Value)
	return buf.Bytes()
}

// AppendOption appends one encoded option to an existing options
// container: since the container is TLV-sequential, appending never
// requires decoding the existing entries.
func AppendOption(container []byte, o Option) []byte {
	return append(container, EncodeOption(o)...)
}

// DecodeOptions parses a full options container into its entries. Used
// by tests, never by the intake path (which never looks inside arg/opt).
func DecodeOptions(container []byte) ([]Option, error) {
	r := bytes.NewReader(container)
	var out []Option
	for r.Len() > 0 {
		var keyLen uint16
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, err
		}
		var valLen uint32
		if err := binary.Read(r, binary.LittleEndian, &valLen); err != nil {
			return nil, err
		}
		val := make([]byte, valLen)
		if _, err := io.ReadFull(r, val); err != nil {
			return nil, err
		}
		out = append(out, Option{Key: string(key), Value: val})
	}
	return out, nil
}

// Uint64Value/Uint64 convert an 8-byte little-endian option value to and
// from uint64, used for masterid/timallow.
func Uint64Value(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func Uint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// FailureOptions synthesizes the 2-cell options=["lasterr", message]
// container sent back on any engine failure.
func FailureOptions(message string) []byte {
	return EncodeOption(Option{Key: "lasterr", Value: []byte(message)})
}
