package slave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/engine"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []uint64
	err   error
}

func (s *recordingSender) SendResult(_ context.Context, _ types.HostDescriptor, _ types.PeerEntry, jobID uint64, _, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, jobID)
	return s.err
}

func newTestLoop(t *testing.T, newEngine func() engine.Engine, sender Sender) (*Loop, *registry.Registry) {
	t.Helper()
	self := types.HostDescriptor{ID: 1, TimAvail: types.Unbounded}
	self.SetName("self")
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	reg := registry.New(self, types.AccessLists{}, types.DefaultPolicySwitches(), nil, log)
	loop := NewLoop(reg, newEngine, sender, Config{TZombie: 50 * time.Millisecond, TEngine: time.Hour, PollInterval: time.Millisecond}, log)
	return loop, reg
}

func TestLoop_RoundTripsJobThroughMockEngine(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &recordingSender{}
	loop, reg := newTestLoop(t, func() engine.Engine { return engine.NewMock() }, sender)

	submitter := types.HostDescriptor{ID: 2}
	submitter.SetName("submitter")
	reg.UpsertPeer(submitter, "127.0.0.1", time.Now())
	reg.EnqueueJob(types.NewJobEntry(submitter, types.JobDef{ID: 99, TimReq: 10}, []byte("payload"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	deadline := time.After(900 * time.Millisecond)
	for {
		sender.mu.Lock()
		n := len(sender.sent)
		sender.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for result to be sent")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if reg.Host().Status != types.IDLE {
		t.Errorf("expected IDLE after completing the only job, got %s", reg.Host().Status)
	}

	cancel()
	<-done
}

func TestLoop_EngineStartFailureEntersZombieThenRecovers(t *testing.T) {
	sender := &recordingSender{}
	loop, reg := newTestLoop(t, func() engine.Engine {
		return &engine.Mock{OpenErr: errors.New("license denied")}
	}, sender)
	loop.cfg.TZombie = 20 * time.Millisecond

	reg.EnqueueJob(types.NewJobEntry(types.HostDescriptor{ID: 2}, types.JobDef{ID: 1}, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	zombieSeen := false
	go func() {
		for i := 0; i < 50; i++ {
			if reg.Host().Status == types.ZOMBIE {
				zombieSeen = true
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
	start := time.Now()
	loop.Run(ctx)

	if !zombieSeen {
		t.Error("expected the host to pass through ZOMBIE after an engine start failure")
	}
	// Leaving ZOMBIE sets IDLE and retries the engine start on the still
	// queued job; that retry fails again and restamps engineFailedAt, so
	// a stamp later than start+TZombie shows the loop left ZOMBIE.
	if !loop.engineFailedAt.After(start.Add(loop.cfg.TZombie)) {
		t.Error("expected the host to leave ZOMBIE after TZombie and retry the engine start")
	}
}

func TestFairShare_SinglePeerLeavesAllowanceUntouched(t *testing.T) {
	if got := fairShare(90, 1); got != 90 {
		t.Errorf("expected 90, got %d", got)
	}
	if got := fairShare(90, 0); got != 90 {
		t.Errorf("expected 90 for a peer count of 0, got %d", got)
	}
}

func TestFairShare_DividesAcrossKnownPeers(t *testing.T) {
	if got := fairShare(90, 3); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}

func TestFairShare_NeverReturnsZero(t *testing.T) {
	if got := fairShare(2, 10); got != 1 {
		t.Errorf("expected a floor of 1, got %d", got)
	}
}

func TestLoop_PeerNotFoundSkipsSendWithoutCrashing(t *testing.T) {
	sender := &recordingSender{}
	loop, reg := newTestLoop(t, func() engine.Engine { return engine.NewMock() }, sender)

	unknown := types.HostDescriptor{ID: 404}
	unknown.SetName("ghost")
	reg.EnqueueJob(types.NewJobEntry(unknown, types.JobDef{ID: 1}, []byte("x"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	loop.Run(ctx)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 0 {
		t.Errorf("expected no send attempt for an unknown submitter, got %d", len(sender.sent))
	}
}
