package types

import "time"

// PeerEntry is an observed remote peer: a snapshot of its last-announced
// descriptor plus the source address and arrival time of that
// announcement. Entries hold no cross-references to other peers or to
// the registry, so the table can never form a cycle.
type PeerEntry struct {
	HostDescriptor
	IPAddr   string
	LastSeen time.Time
}

// Expired reports whether this entry should be evicted given now and an
// expiry threshold.
func (p PeerEntry) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(p.LastSeen) > expiry
}
