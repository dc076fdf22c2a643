package presence

import (
	"time"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Discoverer blocking-reads announcements from the shared relt
// connection and upserts the peer table. Malformed or short packets are
// dropped silently.
type Discoverer struct {
	registry *registry.Registry
	relt     *relt.Relt
	self     func() types.HostDescriptor
	log      types.Logger
}

// NewDiscoverer builds a Discoverer sharing rel with an Announcer (both
// sides of one multicast group connection). self returns the current
// self descriptor so self-announcements can be filtered out.
func NewDiscoverer(r *registry.Registry, rel *relt.Relt, self func() types.HostDescriptor, log types.Logger) *Discoverer {
	return &Discoverer{registry: r, relt: rel, self: self, log: log}
}

// Run blocks, consuming announcements until the underlying relt channel
// is closed (which happens when Announcer.Run's context is cancelled and
// it calls relt.Close).
func (d *Discoverer) Run() {
	listener, err := d.relt.Consume()
	if err != nil {
		d.log.Errorf("discover: failed to start consuming: %v", err)
		return
	}
	for recv := range listener {
		d.handle(recv)
	}
}

func (d *Discoverer) handle(recv relt.Message) {
	if recv.Error != nil {
		d.log.Debugf("discover: dropping packet from %s: %v", recv.Origin, recv.Error)
		return
	}
	if len(recv.Data) != types.HostDescriptorWireSize {
		d.log.Debugf("discover: dropping malformed/short packet from %s (%d bytes)", recv.Origin, len(recv.Data))
		return
	}

	var host types.HostDescriptor
	if err := host.UnmarshalBinary(recv.Data); err != nil {
		d.log.Debugf("discover: dropping undecodable packet from %s: %v", recv.Origin, err)
		return
	}

	self := d.self()
	if host.ID == self.ID && host.NameString() == self.NameString() {
		return
	}

	d.registry.UpsertPeer(host, recv.Origin, time.Now())
}
