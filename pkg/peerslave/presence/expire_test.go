package presence

import (
	"context"
	"testing"
	"time"

	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

func TestExpirer_EvictsStalePeers(t *testing.T) {
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	self := types.HostDescriptor{ID: 1}
	self.SetName("self")
	reg := registry.New(self, types.AccessLists{}, types.DefaultPolicySwitches(), nil, log)

	stale := types.HostDescriptor{ID: 2}
	stale.SetName("stale")
	reg.UpsertPeer(stale, "10.0.0.2", time.Now().Add(-time.Hour))

	exp := NewExpirer(reg, 5*time.Millisecond, 10*time.Millisecond, log)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	exp.Run(ctx)

	if reg.PeerCount() != 0 {
		t.Errorf("expected the stale peer to be evicted, got %d remaining", reg.PeerCount())
	}
}
