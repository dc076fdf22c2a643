package supervisor

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jabolina/peerslave/internal/logging"
)

func TestSupervisor_SpawnsAndRestartsChild(t *testing.T) {
	log := logging.NewDefaultLogger("test", logging.VerboseAll, nil)
	child := &ChildConfig{Name: "sh", Args: []string{"-c", "sleep 0.05"}}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available in this environment")
	}

	sup := New([]*ChildConfig{child}, 0, log)
	sup.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	sup.mu.Lock()
	defer sup.mu.Unlock()
	if sup.nextID < 2 {
		t.Errorf("expected the child to be respawned at least once, nextID=%d", sup.nextID)
	}
}
