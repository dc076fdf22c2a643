// Package slave implements the slave state machine: the single-threaded
// driver that pops jobs off the registry's queue, runs them through an
// engine.Engine, and returns results over the result-send protocol.
package slave

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jabolina/peerslave/pkg/peerslave/engine"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Config bundles the slave loop's tunable timeouts.
type Config struct {
	// TZombie is how long the host stays ZOMBIE after an engine start
	// failure before returning to IDLE. Default 900s.
	TZombie time.Duration

	// TEngine is how long the engine may sit idle before it is closed.
	// Default 180s.
	TEngine time.Duration

	// PollInterval is how long the loop sleeps when the job queue is
	// empty. Default 10ms.
	PollInterval time.Duration
}

// DefaultConfig returns the documented default timeouts.
func DefaultConfig() Config {
	return Config{
		TZombie:      900 * time.Second,
		TEngine:      180 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

// Sender is the result-send half of the protocol, abstracted so the
// loop can be tested without real sockets.
type Sender interface {
	SendResult(ctx context.Context, self types.HostDescriptor, peer types.PeerEntry, jobID uint64, argout, options []byte) error
}

// Loop is the slave state machine. It is not safe for concurrent use:
// it must run on a single thread, as the sole mutator of the engine
// handle.
type Loop struct {
	registry  *registry.Registry
	newEngine func() engine.Engine
	sender    Sender
	cfg       Config
	log       types.Logger

	current engine.Engine

	engineRunning     bool
	engineFailedAt    time.Time
	engineAborted     bool
	lastJobFinishedAt time.Time
	inZombie          bool
}

// NewLoop builds a Loop. newEngine is called each time the loop needs a
// fresh engine instance (a Process engine is not reusable after Close).
func NewLoop(reg *registry.Registry, newEngine func() engine.Engine, sender Sender, cfg Config, log types.Logger) *Loop {
	return &Loop{
		registry:  reg,
		newEngine: newEngine,
		sender:    sender,
		cfg:       cfg,
		log:       log,
	}
}

// Aborted reports whether the loop exited because the engine issued a
// fatal abort. The process's exit code is 1 in that case.
func (l *Loop) Aborted() bool {
	return l.engineAborted
}

// Run drives the state machine until ctx is cancelled or the engine
// aborts, whichever comes first.
func (l *Loop) Run(ctx context.Context) {
	for !l.engineAborted {
		select {
		case <-ctx.Done():
			l.shutdownEngine()
			return
		default:
		}
		l.tick()
	}
	l.shutdownEngine()
}

func (l *Loop) shutdownEngine() {
	if l.current != nil {
		_ = l.current.Close()
		l.current = nil
		l.engineRunning = false
	}
}

// tick runs exactly one iteration of the loop's eleven-step body.
func (l *Loop) tick() {
	now := time.Now()

	// Step 1: maybe close an idle engine.
	if l.engineRunning && !l.lastJobFinishedAt.IsZero() && now.Sub(l.lastJobFinishedAt) > l.cfg.TEngine {
		l.log.Debugf("slave: closing idle engine after %s", l.cfg.TEngine)
		_ = l.current.Close()
		l.current = nil
		l.engineRunning = false
	}

	// Step 2: maybe exit ZOMBIE.
	if l.inZombie && now.Sub(l.engineFailedAt) > l.cfg.TZombie {
		l.inZombie = false
		l.registry.SetStatus(types.IDLE, types.CurrentJob{})
		l.registry.AnnounceOnce()
		l.log.Infof("slave: leaving ZOMBIE after %s", l.cfg.TZombie)
	}

	if l.inZombie {
		time.Sleep(l.cfg.PollInterval)
		return
	}

	// Step 3: nothing to do.
	job, ok := l.registry.PeekJob()
	if !ok {
		time.Sleep(l.cfg.PollInterval)
		return
	}

	// Step 4: start the engine if needed.
	if !l.engineRunning {
		eng := l.newEngine()
		if err := eng.Open(); err != nil {
			l.enterZombie(now, err)
			return
		}
		l.current = eng
		l.engineRunning = true
	}

	// Step 5: pop the job, go BUSY, compute timallow, announce.
	job, ok = l.registry.PopJob()
	if !ok {
		// Raced with another peek; nothing to do this tick.
		return
	}
	host := l.registry.SetStatus(types.BUSY, types.NewCurrentJob(job.Submitter, job.Def))
	timAllow := job.Def.TimReq * 3
	if host.TimAvail != types.Unbounded && host.TimAvail < timAllow {
		timAllow = host.TimAvail
	}
	if l.registry.Policy().SmartShare.Enabled {
		timAllow = fairShare(timAllow, l.registry.PeerCount())
	}
	l.registry.AnnounceOnce()

	// Steps 6-9: run the job through the engine.
	argout, options, failed, aborted := l.runJob(job, host, timAllow)
	if aborted {
		l.engineAborted = true
	}
	if failed != 0 {
		l.log.Errorf("slave: job %d failed at step %d", job.Def.ID, failed)
	}

	// Step 10: send the result back to the submitter.
	l.deliverResult(job, argout, options)

	// Step 11: clear the queue, go IDLE, announce, record completion.
	l.registry.ClearJobList()
	l.registry.SetStatus(types.IDLE, types.CurrentJob{})
	l.registry.AnnounceOnce()
	l.lastJobFinishedAt = time.Now()
}

// fairShare scales down a time allowance by the number of other known
// peers, so a single host under smartshare doesn't claim its whole
// timavail budget on a job while siblings are also competing for time.
// A peer count of 0 or 1 leaves the allowance untouched.
func fairShare(timAllow uint64, peerCount int) uint64 {
	if peerCount <= 1 {
		return timAllow
	}
	share := timAllow / uint64(peerCount)
	if share == 0 {
		return 1
	}
	return share
}

func (l *Loop) enterZombie(now time.Time, err error) {
	l.inZombie = true
	l.engineFailedAt = now
	l.registry.SetStatus(types.ZOMBIE, types.CurrentJob{})
	l.registry.AnnounceOnce()
	l.log.Errorf("slave: engine failed to start, entering ZOMBIE: %v", err)
}

// runJob drives the fixed peerexec expression through the engine
// (steps 6-9 of the tick body). It returns the bytes to send back,
// which step (if any) failed, and whether the failure is fatal.
func (l *Loop) runJob(job types.JobEntry, host types.HostDescriptor, timAllow uint64) (argout, options []byte, failedStep int, aborted bool) {
	opt := AppendOption(job.Opt, Option{Key: "masterid", Value: Uint64Value(job.Submitter.ID)})
	opt = AppendOption(opt, Option{Key: "timallow", Value: Uint64Value(timAllow)})

	fail := func(step int, message string, fatal bool) ([]byte, []byte, int, bool) {
		return []byte{0}, FailureOptions(message), step, fatal
	}

	if err := l.current.Put(engine.ArgInName, job.Arg); err != nil {
		return fail(1, "failed to stage job argument: "+err.Error(), false)
	}
	if err := l.current.Put(engine.OptionsName, opt); err != nil {
		return fail(2, "failed to stage job options: "+err.Error(), false)
	}
	if err := l.current.Eval(engine.PeerExecExpr); err != nil {
		return fail(3, "engine evaluation failed: "+err.Error(), true)
	}
	out, err := l.current.Get(engine.ArgOutName)
	if err != nil {
		return fail(4, "failed to retrieve job result: "+err.Error(), true)
	}
	outOpt, err := l.current.Get(engine.OptionsName)
	if err != nil {
		return fail(5, "failed to retrieve result options: "+err.Error(), false)
	}
	return out, outOpt, 0, false
}

// deliverResult looks up the submitter and runs the result-send protocol
// against it (step 10 of the tick body).
func (l *Loop) deliverResult(job types.JobEntry, argout, options []byte) {
	peer, ok := l.registry.FindPeer(job.Submitter.Key())
	if !ok {
		err := errors.Wrapf(types.ErrPeerNotFound, "submitter %s for job %d", job.Submitter.Key(), job.Def.ID)
		l.log.Errorf("slave: abandoning result: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	self := l.registry.Host()
	if err := l.sender.SendResult(ctx, self, peer, job.Def.ID, argout, options); err != nil {
		l.log.Errorf("slave: failed sending result for job %d to %s: %v", job.Def.ID, peer.Key(), err)
	}
}
