package registry

import (
	"context"
	"testing"
)

func TestResourceSampler_SkipsReadingWhenBothSwitchesDisabled(t *testing.T) {
	reg := newTestRegistry()
	before := reg.Host()

	sampler := NewResourceSampler(reg, 0, reg.log)
	sampler.sampleOnce(context.Background())

	after := reg.Host()
	if after.MemAvail != before.MemAvail || after.CPUAvail != before.CPUAvail {
		t.Errorf("expected host resources untouched with smartmem/smartcpu disabled, got mem=%d cpu=%d", after.MemAvail, after.CPUAvail)
	}
}
