package types

import "testing"

func TestHostDescriptor_RoundTrip(t *testing.T) {
	var h HostDescriptor
	h.Version = ProtocolVersion
	h.ID = 42
	h.Port = 9521
	h.MemAvail = 1024
	h.Status = BUSY
	h.SetName("quokka")
	h.SetUser("rwanderley")
	h.SetGroup("lab")
	h.SetSocketPath("/tmp/peerslave.sock")

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != HostDescriptorWireSize {
		t.Fatalf("expected %d bytes, got %d", HostDescriptorWireSize, len(data))
	}

	var out HostDescriptor
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != h.ID || out.NameString() != "quokka" || out.SocketPath() != "/tmp/peerslave.sock" {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Status != BUSY {
		t.Errorf("expected status BUSY, got %s", out.Status)
	}
}

func TestHostDescriptor_NameTruncation(t *testing.T) {
	var h HostDescriptor
	long := make([]byte, NameFieldLen*2)
	for i := range long {
		long[i] = 'a'
	}
	h.SetName(string(long))
	if len(h.NameString()) != NameFieldLen {
		t.Errorf("expected truncation to %d bytes, got %d", NameFieldLen, len(h.NameString()))
	}
}

func TestCurrentJob_IsZero(t *testing.T) {
	var c CurrentJob
	if !c.IsZero() {
		t.Error("zero value should report IsZero")
	}
	c.JobID = 1
	if c.IsZero() {
		t.Error("non-zero value should not report IsZero")
	}
}
