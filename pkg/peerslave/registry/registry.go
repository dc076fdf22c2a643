// Package registry owns every piece of shared, mutable state in the
// process: the self host descriptor, the peer table, the job queue, the
// access lists and the policy switches. It is the single module every
// other task depends on, with one value passed by pointer rather than
// any package-level global.
package registry

import (
	"sync"
	"time"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Registry is the process-wide shared state. Each aggregate (host, peer
// table, job list, access lists, policy switches) is guarded by its own
// mutex; no method here ever holds two of these locks at once, and no
// method ever performs blocking I/O while holding a lock.
type Registry struct {
	hostMu sync.Mutex
	host   types.HostDescriptor

	peersMu sync.Mutex
	peers   map[types.PeerKey]types.PeerEntry

	jobsMu sync.Mutex
	jobs   []types.JobEntry

	accessMu sync.Mutex
	access   types.AccessLists

	policyMu sync.Mutex
	policy   types.PolicySwitches

	// announce is called by AnnounceOnce after every host mutation. It
	// is set once at construction (see New) and is never itself
	// guarded: the presence package publishes to an idempotent,
	// concurrency-safe transport.
	announce func(types.HostDescriptor)

	log types.Logger
}

// New builds a Registry seeded with the given host descriptor. announce
// is invoked by AnnounceOnce with a snapshot of the current host
// descriptor; it must not block the caller for long since it runs
// synchronously inside AnnounceOnce.
func New(self types.HostDescriptor, access types.AccessLists, policy types.PolicySwitches, announce func(types.HostDescriptor), log types.Logger) *Registry {
	return &Registry{
		host:     self,
		peers:    make(map[types.PeerKey]types.PeerEntry),
		access:   access,
		policy:   policy,
		announce: announce,
		log:      log,
	}
}

// Host returns a snapshot copy of the current host descriptor.
func (r *Registry) Host() types.HostDescriptor {
	r.hostMu.Lock()
	defer r.hostMu.Unlock()
	return r.host
}

// UpdateHost atomically applies fn to the host descriptor under the host
// lock and returns the resulting snapshot. It never announces itself;
// callers that want the mutation published call AnnounceOnce after the
// lock is released — a lock is never held across I/O.
func (r *Registry) UpdateHost(fn func(*types.HostDescriptor)) types.HostDescriptor {
	r.hostMu.Lock()
	fn(&r.host)
	snapshot := r.host
	r.hostMu.Unlock()
	return snapshot
}

// SetStatus is a convenience wrapper around UpdateHost for the common
// case of a pure status transition, optionally also replacing Current.
func (r *Registry) SetStatus(status types.Status, current types.CurrentJob) types.HostDescriptor {
	return r.UpdateHost(func(h *types.HostDescriptor) {
		h.Status = status
		h.Current = current
	})
}

// AnnounceOnce snapshots the host descriptor and publishes it through
// the configured announce function. Every mutation of the host
// descriptor must be followed by exactly one call to AnnounceOnce before
// the next acquisition of the host lock.
func (r *Registry) AnnounceOnce() {
	snapshot := r.Host()
	if r.announce != nil {
		r.announce(snapshot)
	}
}

// EnqueueJob atomically appends entry to the job queue.
func (r *Registry) EnqueueJob(entry types.JobEntry) {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	r.jobs = append(r.jobs, entry)
}

// PeekJob returns the front of the job queue without removing it, and
// whether the queue was non-empty.
func (r *Registry) PeekJob() (types.JobEntry, bool) {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	if len(r.jobs) == 0 {
		return types.JobEntry{}, false
	}
	return r.jobs[0], true
}

// PopJob removes and returns the front of the job queue.
func (r *Registry) PopJob() (types.JobEntry, bool) {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	if len(r.jobs) == 0 {
		return types.JobEntry{}, false
	}
	job := r.jobs[0]
	r.jobs = r.jobs[1:]
	return job, true
}

// ClearJobList drops every queued job. The slave loop calls this after
// each job completes, since only one job is ever processed at a time
// and the original never held more than a single pending submission
// open between intake bursts.
func (r *Registry) ClearJobList() {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	r.jobs = nil
}

// JobQueueLen reports the current queue depth.
func (r *Registry) JobQueueLen() int {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	return len(r.jobs)
}

// FindPeer looks up a peer by its (id, name) key.
func (r *Registry) FindPeer(key types.PeerKey) (types.PeerEntry, bool) {
	r.peersMu.Lock()
	defer r.peersMu.Unlock()
	p, ok := r.peers[key]
	return p, ok
}

// UpsertPeer inserts or refreshes a peer table entry from an observed
// announcement, stamping ipaddr and lastseen.
func (r *Registry) UpsertPeer(host types.HostDescriptor, ipaddr string, now time.Time) {
	r.peersMu.Lock()
	defer r.peersMu.Unlock()
	r.peers[host.Key()] = types.PeerEntry{
		HostDescriptor: host,
		IPAddr:         ipaddr,
		LastSeen:       now,
	}
}

// SweepPeers evicts every entry whose last-seen timestamp exceeds
// expiry. Eviction is idempotent: sweeping an already-clean table is a
// no-op.
func (r *Registry) SweepPeers(now time.Time, expiry time.Duration) int {
	r.peersMu.Lock()
	defer r.peersMu.Unlock()
	evicted := 0
	for key, entry := range r.peers {
		if entry.Expired(now, expiry) {
			delete(r.peers, key)
			evicted++
		}
	}
	return evicted
}

// PeerCount reports the current size of the peer table, used by the
// announce backoff policy.
func (r *Registry) PeerCount() int {
	r.peersMu.Lock()
	defer r.peersMu.Unlock()
	return len(r.peers)
}

// Peers returns a value-copy snapshot of every peer table entry. Callers
// must release any lock before using the result for I/O — the slice
// itself holds no reference back into the registry.
func (r *Registry) Peers() []types.PeerEntry {
	r.peersMu.Lock()
	defer r.peersMu.Unlock()
	out := make([]types.PeerEntry, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Access returns a snapshot of the configured allow-lists.
func (r *Registry) Access() types.AccessLists {
	r.accessMu.Lock()
	defer r.accessMu.Unlock()
	return r.access
}

// SetAccess replaces the configured allow-lists.
func (r *Registry) SetAccess(a types.AccessLists) {
	r.accessMu.Lock()
	defer r.accessMu.Unlock()
	r.access = a
}

// Policy returns a snapshot of the current policy switches.
func (r *Registry) Policy() types.PolicySwitches {
	r.policyMu.Lock()
	defer r.policyMu.Unlock()
	return r.policy
}
