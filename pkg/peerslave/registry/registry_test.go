package registry

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

func newTestRegistry() *Registry {
	self := types.HostDescriptor{ID: 1}
	self.SetName("self")
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	return New(self, types.AccessLists{}, types.DefaultPolicySwitches(), nil, log)
}

func TestRegistry_AnnounceOnceFiresAfterUnlock(t *testing.T) {
	reg := newTestRegistry()
	var got types.HostDescriptor
	reg.announce = func(h types.HostDescriptor) { got = h }

	reg.UpdateHost(func(h *types.HostDescriptor) { h.Status = types.BUSY })
	reg.AnnounceOnce()

	if got.Status != types.BUSY {
		t.Errorf("expected announced snapshot to carry BUSY, got %s", got.Status)
	}
}

func TestRegistry_JobQueueFIFO(t *testing.T) {
	reg := newTestRegistry()
	one := types.JobEntry{Def: types.JobDef{ID: 1}}
	two := types.JobEntry{Def: types.JobDef{ID: 2}}
	reg.EnqueueJob(one)
	reg.EnqueueJob(two)

	if reg.JobQueueLen() != 2 {
		t.Fatalf("expected queue length 2, got %d", reg.JobQueueLen())
	}
	first, ok := reg.PopJob()
	if !ok || first.Def.ID != 1 {
		t.Fatalf("expected job 1 first, got %+v ok=%v", first, ok)
	}
	second, ok := reg.PopJob()
	if !ok || second.Def.ID != 2 {
		t.Fatalf("expected job 2 second, got %+v ok=%v", second, ok)
	}
	if _, ok := reg.PopJob(); ok {
		t.Fatal("expected empty queue after draining both entries")
	}
}

func TestRegistry_SweepPeersIsIdempotent(t *testing.T) {
	reg := newTestRegistry()
	peer := types.HostDescriptor{ID: 2}
	peer.SetName("peer-a")
	reg.UpsertPeer(peer, "10.0.0.2", time.Now().Add(-time.Hour))

	if n := reg.SweepPeers(time.Now(), time.Minute); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if n := reg.SweepPeers(time.Now(), time.Minute); n != 0 {
		t.Fatalf("expected sweeping a clean table to be a no-op, got %d evictions", n)
	}
}

func TestRegistry_ConcurrentAccessNoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			reg.EnqueueJob(types.JobEntry{Def: types.JobDef{ID: uint64(i)}})
		}(i)
		go func(i int) {
			defer wg.Done()
			p := types.HostDescriptor{ID: uint64(i)}
			p.SetName("peer")
			reg.UpsertPeer(p, "127.0.0.1", time.Now())
		}(i)
	}
	wg.Wait()

	if reg.JobQueueLen() != 50 {
		t.Errorf("expected 50 queued jobs, got %d", reg.JobQueueLen())
	}
}
