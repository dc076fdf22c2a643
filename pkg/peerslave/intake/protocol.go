package intake

import (
	"net"

	"github.com/pkg/errors"

	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Limits bounds what intake will accept for a single job's arg/opt
// buffers, independent of the submitter's own declared sizes.
type Limits struct {
	MaxArgSize uint64
	MaxOptSize uint64
}

// Accept runs the full six-step intake state machine over a single
// accepted connection. It never invokes the engine; success means only
// that a JobEntry was appended to reg's job queue.
//
// Any short read, failed handshake or access denial returns an error and
// leaves no trace in the registry; the caller is responsible for closing
// conn in all cases.
func Accept(conn net.Conn, reg *registry.Registry, limits Limits, log types.Logger) error {
	// Step 1: initial handshake, "willing to receive".
	if err := writeHandshake(conn, true); err != nil {
		return errors.Wrap(err, "intake: failed writing initial handshake")
	}

	// Step 2: read the submitter's HostDescriptor and apply access
	// policy plus the current-status check.
	submitter, err := types.ReadHostDescriptor(conn)
	if err != nil {
		return errors.Wrap(err, "intake: failed reading host descriptor")
	}
	ok := submitter.Version == types.ProtocolVersion && accepting(reg, submitter)
	if err := writeHandshake(conn, ok); err != nil {
		return errors.Wrap(err, "intake: failed writing descriptor handshake")
	}
	if !ok {
		if submitter.Version != types.ProtocolVersion {
			log.Warnf("intake: rejecting %s: version mismatch (%d != %d)", submitter.NameString(), submitter.Version, types.ProtocolVersion)
			return types.ErrVersionMismatch
		}
		log.Noticef("intake: rejecting submission from %s/%s: access denied or host busy", submitter.UserString(), submitter.NameString())
		return types.ErrAccessDenied
	}

	// Step 3: read the JobDef and validate declared sizes.
	def, err := types.ReadJobDef(conn)
	if err != nil {
		return errors.Wrap(err, "intake: failed reading job definition")
	}
	ok = def.Version == types.ProtocolVersion && withinLimits(reg, def, limits)
	if err := writeHandshake(conn, ok); err != nil {
		return errors.Wrap(err, "intake: failed writing jobdef handshake")
	}
	if !ok {
		if def.Version != types.ProtocolVersion {
			log.Warnf("intake: rejecting job %d from %s: version mismatch (%d != %d)", def.ID, submitter.NameString(), def.Version, types.ProtocolVersion)
			return types.ErrVersionMismatch
		}
		return errors.Wrap(types.ErrResourceExceeded, "intake: job definition rejected")
	}

	// Step 4: read the arg buffer.
	arg, err := readExact(conn, def.ArgSize)
	if err != nil {
		_ = writeHandshake(conn, false)
		return errors.Wrap(err, "intake: failed reading arg buffer")
	}
	if err := writeHandshake(conn, true); err != nil {
		return errors.Wrap(err, "intake: failed writing arg handshake")
	}

	// Step 5: read the opt buffer.
	opt, err := readExact(conn, def.OptSize)
	if err != nil {
		_ = writeHandshake(conn, false)
		return errors.Wrap(err, "intake: failed reading opt buffer")
	}
	if err := writeHandshake(conn, true); err != nil {
		return errors.Wrap(err, "intake: failed writing opt handshake")
	}

	// Step 6: commit the job to the queue.
	entry := types.NewJobEntry(submitter, def, arg, opt)
	reg.EnqueueJob(entry)
	log.Debugf("intake: enqueued job %d from %s/%s (%d/%d bytes)", def.ID, submitter.UserString(), submitter.NameString(), def.ArgSize, def.OptSize)
	return nil
}

// accepting applies the access policy: the submitter must pass every
// configured allow-list, and the host must currently be IDLE.
func accepting(reg *registry.Registry, submitter types.HostDescriptor) bool {
	host := reg.Host()
	if host.Status != types.IDLE {
		return false
	}
	access := reg.Access()
	return access.Permits(submitter.UserString(), submitter.NameString(), submitter.GroupString())
}

// withinLimits validates a submitted JobDef's declared sizes against the
// configured maxima and the host's currently advertised memavail.
func withinLimits(reg *registry.Registry, def types.JobDef, limits Limits) bool {
	if limits.MaxArgSize != 0 && def.ArgSize > limits.MaxArgSize {
		return false
	}
	if limits.MaxOptSize != 0 && def.OptSize > limits.MaxOptSize {
		return false
	}
	host := reg.Host()
	if host.MemAvail != types.Unbounded && def.MemReq > host.MemAvail {
		return false
	}
	return true
}
