package slave

import (
	"encoding"
	"encoding/binary"
	"io"
)

// writeFrame marshals any fixed-size wire type (types.HostDescriptor,
// types.JobDef) and writes it whole, mirroring intake's frame reads.
func writeFrame(w io.Writer, v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// readResultHandshake reads the 4-byte little-endian handshake a server
// sends back on the result-send path, the client-side mirror of
// intake's own handshake helpers.
func readResultHandshake(r io.Reader) (bool, error) {
	var v int32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return false, err
	}
	return v != 0, nil
}
