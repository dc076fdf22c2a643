// Package supervisor implements the parent-process child-lifecycle
// manager: spawn-on-pid-zero, non-blocking reap, restart on exit,
// looping every 250ms over a circular list of child configs.
//
// Children are spawned as OS processes via os/exec, never as
// in-process goroutines, so that a crashed child cannot take down its
// siblings or the supervisor itself.
package supervisor

import (
	"context"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// ChildConfig is one supervised child: the command line to launch it
// with and its current OS process, if any. Host ids are not stored here:
// the Supervisor mints a fresh, strictly increasing id on every spawn and
// passes it to the child through its environment.
type ChildConfig struct {
	Name string
	Args []string

	pid uint64
	cmd *exec.Cmd
}

// Supervisor holds a circular list of child configurations and drives
// the reap/spawn/sleep cycle.
type Supervisor struct {
	mu       sync.Mutex
	children []*ChildConfig
	nextID   uint64
	log      types.Logger
	interval time.Duration
}

// New builds a Supervisor over the given children. nextID is the last
// host id already handed out: the first spawned child gets nextID+1, so
// 0 on a fresh start yields ids starting at 1.
func New(children []*ChildConfig, nextID uint64, log types.Logger) *Supervisor {
	return &Supervisor{children: children, nextID: nextID, log: log, interval: 250 * time.Millisecond}
}

// Run loops until ctx is cancelled, spawning any child with pid==0 and
// reaping any child whose process has exited, sleeping 250ms between
// iterations.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.killAll()
			return
		case <-ticker.C:
			s.iterate()
		}
	}
}

func (s *Supervisor) iterate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, child := range s.children {
		if child.pid == 0 {
			s.spawn(child)
			continue
		}
		s.reap(child)
	}
}

// spawn bumps the supervisor's host-id counter and forks a new child
// process. A fork failure is fatal: it is logged through Fatalf, which
// exits the supervisor process.
func (s *Supervisor) spawn(child *ChildConfig) {
	s.nextID++
	id := s.nextID
	cmd := exec.Command(child.Name, child.Args...)
	cmd.Env = append(cmd.Env, hostIDEnv(id))
	if err := cmd.Start(); err != nil {
		s.log.Fatalf("supervisor: %v", errors.Wrapf(types.ErrForkFailed, "child %s: %v", child.Name, err))
		return
	}
	child.cmd = cmd
	child.pid = uint64(cmd.Process.Pid)
	s.log.Infof("supervisor: spawned child %s as pid %d with host id %d", child.Name, child.pid, id)
	go s.wait(child)
}

// wait reaps cmd.Wait() in the background so a non-blocking poll of the
// child's liveness never has to block the supervisor loop itself.
func (s *Supervisor) wait(child *ChildConfig) {
	err := child.cmd.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if child.cmd.ProcessState != nil {
		s.log.Warnf("supervisor: child %s (pid %d) exited: %v", child.Name, child.pid, err)
	}
	child.pid = 0
	child.cmd = nil
}

// reap cross-checks a suspect child against gopsutil/v3/process before
// trusting that it is still alive, guarding against a PID the OS already
// recycled out from under the supervisor's own bookkeeping.
func (s *Supervisor) reap(child *ChildConfig) {
	if child.cmd == nil {
		return
	}
	exists, err := process.PidExists(int32(child.pid))
	if err != nil {
		s.log.Debugf("supervisor: liveness probe for pid %d failed: %v", child.pid, err)
		return
	}
	if !exists {
		s.log.Warnf("supervisor: child %s (pid %d) vanished, forcing respawn", child.Name, child.pid)
		child.pid = 0
		child.cmd = nil
	}
}

func (s *Supervisor) killAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, child := range s.children {
		if child.cmd != nil && child.cmd.Process != nil {
			_ = child.cmd.Process.Kill()
		}
	}
}

func hostIDEnv(id uint64) string {
	return "PEERSLAVE_HOST_ID=" + strconv.FormatUint(id, 10)
}
