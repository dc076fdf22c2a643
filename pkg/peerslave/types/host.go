package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// fixedString copies s into a fixed-width byte array, truncating if
// necessary. It never errors: a caller misusing an over-long identity
// string gets it silently truncated rather than rejected, matching the
// "fixed max length" wording of the data model.
func fixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

func readFixedString(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n < 0 {
		n = len(src)
	}
	return string(src[:n])
}

// CurrentJob describes what a host is doing right now. It is zeroed when
// the host is IDLE.
type CurrentJob struct {
	HostID uint64
	JobID  uint64
	Name   [NameFieldLen]byte
	User   [NameFieldLen]byte
	Group  [NameFieldLen]byte
	TimReq uint64
	MemReq uint64
	CPUReq uint64
}

// NewCurrentJob builds a CurrentJob from the originating descriptor and
// job definition.
func NewCurrentJob(originator HostDescriptor, job JobDef) CurrentJob {
	c := CurrentJob{
		HostID: originator.ID,
		JobID:  job.ID,
		TimReq: job.TimReq,
		MemReq: job.MemReq,
		CPUReq: job.CPUReq,
	}
	fixedString(c.Name[:], originator.NameString())
	fixedString(c.User[:], originator.UserString())
	fixedString(c.Group[:], originator.GroupString())
	return c
}

// IsZero reports whether the current job is the zero value, i.e. the
// host is not running anything.
func (c CurrentJob) IsZero() bool {
	return c == CurrentJob{}
}

// HostDescriptor is a node's self-description: broadcast in
// announcements and prefixed to every outbound intake/result-send
// message.
type HostDescriptor struct {
	Version byte
	ID      uint64
	Name    [NameFieldLen]byte
	User    [NameFieldLen]byte
	Group   [NameFieldLen]byte
	Port    uint16
	Socket  [SocketFieldLen]byte

	MemAvail uint64
	CPUAvail uint64
	TimAvail uint64

	Status  Status
	Current CurrentJob
}

// NameString, UserString, GroupString and SocketPath decode the fixed
// byte fields into Go strings.
func (h HostDescriptor) NameString() string   { return readFixedString(h.Name[:]) }
func (h HostDescriptor) UserString() string   { return readFixedString(h.User[:]) }
func (h HostDescriptor) GroupString() string  { return readFixedString(h.Group[:]) }
func (h HostDescriptor) SocketPath() string   { return readFixedString(h.Socket[:]) }

// SetName, SetUser, SetGroup and SetSocketPath encode Go strings into the
// fixed byte fields, truncating to the field width.
func (h *HostDescriptor) SetName(s string)       { fixedString(h.Name[:], s) }
func (h *HostDescriptor) SetUser(s string)       { fixedString(h.User[:], s) }
func (h *HostDescriptor) SetGroup(s string)      { fixedString(h.Group[:], s) }
func (h *HostDescriptor) SetSocketPath(s string) { fixedString(h.Socket[:], s) }

// Key identifies a peer by (id, name) for the peer table.
func (h HostDescriptor) Key() PeerKey {
	return PeerKey{ID: h.ID, Name: h.NameString()}
}

// PeerKey is the composite key used to address entries in the peer
// table.
type PeerKey struct {
	ID   uint64
	Name string
}

func (k PeerKey) String() string {
	return fmt.Sprintf("%d/%s", k.ID, k.Name)
}

// MarshalBinary writes the fixed-size little-endian wire frame for this
// descriptor. All fields are fixed width, so this is a single
// binary.Write over the struct.
func (h HostDescriptor) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary reads a HostDescriptor from its fixed-size wire frame.
func (h *HostDescriptor) UnmarshalBinary(data []byte) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, h)
}

// HostDescriptorWireSize is the exact byte length of a marshaled
// HostDescriptor, used by readers to know how many bytes to pull off the
// wire before decoding.
var HostDescriptorWireSize = func() int {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, HostDescriptor{})
	return buf.Len()
}()

// ReadHostDescriptor reads exactly one wire frame from r.
func ReadHostDescriptor(r io.Reader) (HostDescriptor, error) {
	var h HostDescriptor
	buf := make([]byte, HostDescriptorWireSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return h, err
	}
	err := h.UnmarshalBinary(buf)
	return h, err
}
