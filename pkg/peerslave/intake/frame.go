// Package intake implements the job intake server: a handshake-
// interleaved, length-prefixed protocol served identically over TCP and
// Unix-domain sockets.
package intake

import (
	"encoding/binary"
	"io"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

const (
	// handshakeAccept and handshakeReject are the two 4-byte handshake
	// values exchanged between every frame.
	handshakeAccept int32 = 1
	handshakeReject int32 = 0
)

// writeHandshake writes a single 4-byte little-endian handshake value.
func writeHandshake(w io.Writer, ok bool) error {
	v := handshakeReject
	if ok {
		v = handshakeAccept
	}
	return binary.Write(w, binary.LittleEndian, v)
}

// readExact reads exactly n bytes from r, wrapping a short read as
// types.ErrShortFrame.
func readExact(r io.Reader, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, types.ErrShortFrame
		}
		return nil, err
	}
	return buf, nil
}
