package presence

import (
	"context"
	"time"

	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Expirer periodically drops peer entries whose last-seen timestamp
// exceeds the configured expiry threshold.
type Expirer struct {
	registry *registry.Registry
	interval time.Duration
	expiry   time.Duration
	log      types.Logger
}

// NewExpirer builds an Expirer sweeping every interval, evicting entries
// older than expiry.
func NewExpirer(r *registry.Registry, interval, expiry time.Duration, log types.Logger) *Expirer {
	return &Expirer{registry: r, interval: interval, expiry: expiry, log: log}
}

// Run blocks sweeping the peer table until ctx is cancelled.
func (e *Expirer) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.registry.SweepPeers(time.Now(), e.expiry); n > 0 {
				e.log.Debugf("expire: evicted %d stale peers", n)
			}
		}
	}
}
