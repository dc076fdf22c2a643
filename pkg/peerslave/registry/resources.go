package registry

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// ResourceSampler periodically refreshes memavail/cpuavail from real
// host load via shirou/gopsutil, gated per-field by the smartmem/smartcpu
// policy switches: a disabled switch leaves the operator-set value alone
// rather than overwriting it with a live reading. It never touches
// timavail, which is an operator-set policy knob rather than a measured
// quantity.
type ResourceSampler struct {
	registry *Registry
	interval time.Duration
	log      types.Logger
}

// NewResourceSampler builds a sampler that refreshes the registry's host
// descriptor every interval.
func NewResourceSampler(r *Registry, interval time.Duration, log types.Logger) *ResourceSampler {
	return &ResourceSampler{registry: r, interval: interval, log: log}
}

// Run blocks sampling host resources until ctx is cancelled.
func (s *ResourceSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *ResourceSampler) sampleOnce(ctx context.Context) {
	policy := s.registry.Policy()
	if !policy.SmartMem.Enabled && !policy.SmartCPU.Enabled {
		return
	}

	var memAvail uint64
	if policy.SmartMem.Enabled {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			s.log.Warnf("resource sampler: memory read failed: %v", err)
			return
		}
		memAvail = vm.Available
	}

	var cpuAvail uint64
	if policy.SmartCPU.Enabled {
		percents, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil || len(percents) == 0 {
			s.log.Warnf("resource sampler: cpu read failed: %v", err)
			return
		}
		cpuAvail = uint64(100 - percents[0])
	}

	s.registry.UpdateHost(func(h *types.HostDescriptor) {
		if policy.SmartMem.Enabled {
			h.MemAvail = memAvail
		}
		if policy.SmartCPU.Enabled {
			h.CPUAvail = cpuAvail
		}
	})
	s.registry.AnnounceOnce()

	if snapshot, err := s.registry.Snapshot(); err != nil {
		s.log.Debugf("resource sampler: failed rendering metrics snapshot: %v", err)
	} else {
		s.log.Debugf("resource sampler: %s", snapshot)
	}
}
