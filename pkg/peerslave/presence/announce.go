// Package presence implements the announce/discover/expire presence
// protocol, transported over github.com/jabolina/relt, a reliable
// group-multicast library.
package presence

import (
	"context"
	"time"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

const (
	// largePeerTable is the threshold past which Announcer widens its
	// own broadcast interval to bound announcement traffic on large LANs.
	largePeerTable = 256

	// maxBackoffMultiple bounds how far the widened interval can drift
	// from T_announce.
	maxBackoffMultiple = 4
)

// Announcer periodically broadcasts this host's descriptor to the
// configured multicast group and supports an immediate, on-demand
// publish via Once (used by registry.AnnounceOnce).
type Announcer struct {
	registry *registry.Registry
	relt     *relt.Relt
	group    relt.GroupAddress
	interval time.Duration
	log      types.Logger
}

// NewAnnouncer builds an Announcer publishing on group every interval.
func NewAnnouncer(r *registry.Registry, group string, interval time.Duration, log types.Logger) (*Announcer, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = r.Host().NameString()
	conf.Exchange = relt.GroupAddress(group)
	rel, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}
	return &Announcer{
		registry: r,
		relt:     rel,
		group:    relt.GroupAddress(group),
		interval: interval,
		log:      log,
	}, nil
}

// Relt exposes the underlying transport so Discoverer can share the same
// connection (announce and discover are the same multicast group).
func (a *Announcer) Relt() *relt.Relt {
	return a.relt
}

// Once performs a single immediate send of the current host descriptor.
// registry.Registry.AnnounceOnce calls this after every host mutation.
func (a *Announcer) Once(host types.HostDescriptor) {
	data, err := host.MarshalBinary()
	if err != nil {
		a.log.Errorf("announce: failed to marshal host descriptor: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.relt.Broadcast(ctx, relt.Send{Address: a.group, Data: data}); err != nil {
		a.log.Errorf("announce: broadcast failed: %v", err)
	}
}

// Run blocks, broadcasting the host descriptor every interval (widened
// per the backoff policy when the peer table is large) until ctx is
// cancelled.
func (a *Announcer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	current := a.interval
	for {
		select {
		case <-ctx.Done():
			_ = a.relt.Close()
			return
		case <-ticker.C:
			a.Once(a.registry.Host())
			if next := a.backoffInterval(); next != current {
				current = next
				ticker.Reset(current)
			}
		}
	}
}

// backoffInterval widens the announce period linearly with peer table
// size, capped at maxBackoffMultiple * T_announce.
func (a *Announcer) backoffInterval() time.Duration {
	n := a.registry.PeerCount()
	if n <= largePeerTable {
		return a.interval
	}
	multiple := 1 + n/largePeerTable
	if multiple > maxBackoffMultiple {
		multiple = maxBackoffMultiple
	}
	return a.interval * time.Duration(multiple)
}
