package slave

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// NetworkSender is the real Sender implementation: the client side of
// the result-send protocol, symmetric to intake.Accept. It chooses UDS
// when the submitter is on this host and advertised a socket path, else
// TCP.
type NetworkSender struct {
	log    types.Logger
	dialer net.Dialer
}

// NewNetworkSender builds a NetworkSender.
func NewNetworkSender(log types.Logger) *NetworkSender {
	return &NetworkSender{log: log}
}

// SendResult dials the submitter and runs the five-step client
// handshake sequence. Every exit path (including error returns) leaves
// the connection closed and the buffers it built freed, via defer.
func (s *NetworkSender) SendResult(ctx context.Context, self types.HostDescriptor, peer types.PeerEntry, jobID uint64, argout, options []byte) error {
	network, address := s.chooseTransport(self, peer)
	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		return errors.Wrapf(err, "result-send: dial %s %s failed", network, address)
	}
	defer conn.Close()

	// Step 1: read the initial handshake.
	ok, err := readResultHandshake(conn)
	if err != nil {
		return errors.Wrap(err, "result-send: failed reading initial handshake")
	}
	if !ok {
		return types.ErrHandshakeRejected
	}

	// Step 2: write our own descriptor.
	if err := writeFrame(conn, self); err != nil {
		return errors.Wrap(err, "result-send: failed writing host descriptor")
	}
	if ok, err = readResultHandshake(conn); err != nil {
		return errors.Wrap(err, "result-send: failed reading descriptor handshake")
	} else if !ok {
		return types.ErrHandshakeRejected
	}

	// Step 3: write the JobDef, with resource fields zeroed and sizes
	// set to the serialized argout/options lengths.
	def := types.JobDef{
		Version: types.ProtocolVersion,
		ID:      jobID,
		ArgSize: uint64(len(argout)),
		OptSize: uint64(len(options)),
	}
	if err := writeFrame(conn, def); err != nil {
		return errors.Wrap(err, "result-send: failed writing job definition")
	}
	if ok, err = readResultHandshake(conn); err != nil {
		return errors.Wrap(err, "result-send: failed reading jobdef handshake")
	} else if !ok {
		return types.ErrHandshakeRejected
	}

	// Step 4: write argout.
	if _, err := conn.Write(argout); err != nil {
		return errors.Wrap(err, "result-send: failed writing argout")
	}
	if ok, err = readResultHandshake(conn); err != nil {
		return errors.Wrap(err, "result-send: failed reading argout handshake")
	} else if !ok {
		return types.ErrHandshakeRejected
	}

	// Step 5: write options.
	if _, err := conn.Write(options); err != nil {
		return errors.Wrap(err, "result-send: failed writing options")
	}
	if ok, err = readResultHandshake(conn); err != nil {
		return errors.Wrap(err, "result-send: failed reading options handshake")
	} else if !ok {
		return types.ErrHandshakeRejected
	}

	return nil
}

// chooseTransport picks UDS when the submitter lives on this host and
// advertised a socket path, else TCP on its advertised port.
func (s *NetworkSender) chooseTransport(self types.HostDescriptor, peer types.PeerEntry) (network, address string) {
	onSameHost := peer.IPAddr == "" || peer.IPAddr == "127.0.0.1" || peer.IPAddr == "::1"
	if onSameHost && peer.SocketPath() != "" {
		return "unix", peer.SocketPath()
	}
	return "tcp", addressOf(peer)
}

func addressOf(peer types.PeerEntry) string {
	host := peer.IPAddr
	if host == "" {
		host = peer.NameString()
	}
	return net.JoinHostPort(host, portString(peer.Port))
}

func portString(port uint16) string {
	return strconv.Itoa(int(port))
}
