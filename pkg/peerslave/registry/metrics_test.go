package registry

import (
	"strings"
	"testing"
)

func TestSnapshot_RendersExpositionFormat(t *testing.T) {
	reg := newTestRegistry()
	out, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(out, "peerslave_mem_avail_bytes") {
		t.Errorf("expected snapshot to mention peerslave_mem_avail_bytes, got:\n%s", out)
	}
}
