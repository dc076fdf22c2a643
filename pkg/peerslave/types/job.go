package types

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

// JobDef is the fixed-size job definition frame exchanged during intake
// (submitter -> slave) and result-send (slave -> submitter, with
// resource fields zeroed).
type JobDef struct {
	Version byte
	ID      uint64
	MemReq  uint64
	CPUReq  uint64
	TimReq  uint64
	ArgSize uint64
	OptSize uint64
}

// MarshalBinary/UnmarshalBinary implement the fixed-size wire codec for
// JobDef, mirroring HostDescriptor's.
func (j JobDef) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, j); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (j *JobDef) UnmarshalBinary(data []byte) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, j)
}

var JobDefWireSize = func() int {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, JobDef{})
	return buf.Len()
}()

func ReadJobDef(r io.Reader) (JobDef, error) {
	var j JobDef
	buf := make([]byte, JobDefWireSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return j, err
	}
	err := j.UnmarshalBinary(buf)
	return j, err
}

// JobEntry is a queued job: the submitter's descriptor, its job
// definition, and the two opaque argument/option byte blobs. Entries are
// ordered FIFO by arrival in the registry's job list.
type JobEntry struct {
	// CorrelationID is an internal-only identifier used for log
	// correlation; it never appears on the wire.
	CorrelationID uuid.UUID

	Submitter HostDescriptor
	Def       JobDef
	Arg       []byte
	Opt       []byte
}

// Validate checks the buffer-length invariant: arg/opt must match the
// declared sizes exactly.
func (j JobEntry) Validate() bool {
	return uint64(len(j.Arg)) == j.Def.ArgSize && uint64(len(j.Opt)) == j.Def.OptSize
}

// NewJobEntry stamps a fresh correlation id onto a newly accepted job.
func NewJobEntry(submitter HostDescriptor, def JobDef, arg, opt []byte) JobEntry {
	return JobEntry{
		CorrelationID: uuid.New(),
		Submitter:     submitter,
		Def:           def,
		Arg:           arg,
		Opt:           opt,
	}
}
