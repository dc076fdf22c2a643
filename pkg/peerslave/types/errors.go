package types

import "errors"

// Sentinel errors for the process's error taxonomy. Concrete call sites
// wrap these with github.com/pkg/errors so a stack trace and contextual
// message travel with the cause while callers can still compare with
// errors.Is.
var (
	// ErrVersionMismatch is returned when a frame's Version byte does
	// not match ProtocolVersion.
	ErrVersionMismatch = errors.New("peerslave: protocol version mismatch")

	// ErrAccessDenied is returned when a submitter fails the configured
	// allow-lists or the host is not IDLE.
	ErrAccessDenied = errors.New("peerslave: access denied")

	// ErrShortFrame is returned when a read produced fewer bytes than
	// the frame requires.
	ErrShortFrame = errors.New("peerslave: short frame")

	// ErrHandshakeRejected is returned when the peer on the other end
	// of a handshake replied with 0.
	ErrHandshakeRejected = errors.New("peerslave: handshake rejected")

	// ErrResourceExceeded is returned when a submitted job's declared
	// sizes exceed configured maxima or available memory.
	ErrResourceExceeded = errors.New("peerslave: resource request exceeds limits")

	// ErrEngineStart is returned when the compute engine process fails
	// to start.
	ErrEngineStart = errors.New("peerslave: engine failed to start")

	// ErrEngineEval is returned when engine evaluation fails in a way
	// that aborts the slave loop.
	ErrEngineEval = errors.New("peerslave: engine evaluation failed")

	// ErrPeerNotFound is returned when the submitter of a finished job
	// can no longer be found in the peer table.
	ErrPeerNotFound = errors.New("peerslave: submitting peer not found")

	// ErrForkFailed is returned by the supervisor when spawning a child
	// process fails.
	ErrForkFailed = errors.New("peerslave: failed to spawn child process")
)
