package presence

import (
	"testing"
	"time"

	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

func TestAnnouncer_BackoffWidensPastThresholdAndCaps(t *testing.T) {
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	self := types.HostDescriptor{ID: 1}
	self.SetName("self")
	reg := registry.New(self, types.AccessLists{}, types.DefaultPolicySwitches(), nil, log)

	a := &Announcer{registry: reg, interval: time.Second, log: log}

	if got := a.backoffInterval(); got != time.Second {
		t.Errorf("expected no backoff with an empty peer table, got %s", got)
	}

	for i := 0; i < largePeerTable+1; i++ {
		p := types.HostDescriptor{ID: uint64(i + 2)}
		p.SetName("peer")
		reg.UpsertPeer(p, "10.0.0.1", time.Now())
	}
	if got := a.backoffInterval(); got <= time.Second {
		t.Errorf("expected a widened interval past the large-table threshold, got %s", got)
	}

	for i := 0; i < largePeerTable*maxBackoffMultiple*2; i++ {
		p := types.HostDescriptor{ID: uint64(i + 10000)}
		p.SetName("peer")
		reg.UpsertPeer(p, "10.0.0.1", time.Now())
	}
	if got := a.backoffInterval(); got != time.Second*maxBackoffMultiple {
		t.Errorf("expected backoff capped at %dx, got %s", maxBackoffMultiple, got)
	}
}
