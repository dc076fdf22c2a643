package presence

import (
	"testing"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

func newTestDiscoverer(t *testing.T) (*Discoverer, *registry.Registry, types.HostDescriptor) {
	t.Helper()
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	self := types.HostDescriptor{ID: 1}
	self.SetName("self")
	reg := registry.New(self, types.AccessLists{}, types.DefaultPolicySwitches(), nil, log)
	d := NewDiscoverer(reg, nil, reg.Host, log)
	return d, reg, self
}

func TestDiscoverer_UpsertsValidAnnouncement(t *testing.T) {
	d, reg, _ := newTestDiscoverer(t)
	peer := types.HostDescriptor{ID: 2}
	peer.SetName("peer-b")
	data, _ := peer.MarshalBinary()

	d.handle(relt.Message{Origin: "10.0.0.2", Data: data})

	if reg.PeerCount() != 1 {
		t.Fatalf("expected 1 peer, got %d", reg.PeerCount())
	}
}

func TestDiscoverer_DropsSelfAnnouncement(t *testing.T) {
	d, reg, self := newTestDiscoverer(t)
	data, _ := self.MarshalBinary()

	d.handle(relt.Message{Origin: "127.0.0.1", Data: data})

	if reg.PeerCount() != 0 {
		t.Errorf("expected self-announcement to be filtered out, got %d peers", reg.PeerCount())
	}
}

func TestDiscoverer_DropsMalformedPacket(t *testing.T) {
	d, reg, _ := newTestDiscoverer(t)
	d.handle(relt.Message{Origin: "10.0.0.3", Data: []byte("short")})

	if reg.PeerCount() != 0 {
		t.Errorf("expected malformed packet to be dropped, got %d peers", reg.PeerCount())
	}
}

func TestDiscoverer_DropsErroredMessage(t *testing.T) {
	d, reg, _ := newTestDiscoverer(t)
	peer := types.HostDescriptor{ID: 3}
	peer.SetName("peer-c")
	data, _ := peer.MarshalBinary()

	d.handle(relt.Message{Origin: "10.0.0.4", Data: data, Error: errShortCircuit})

	if reg.PeerCount() != 0 {
		t.Errorf("expected errored message to be dropped, got %d peers", reg.PeerCount())
	}
}

var errShortCircuit = &testError{"simulated transport error"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
