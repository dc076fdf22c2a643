package types

// Switch is a process-wide adaptive policy toggle such as smartmem,
// smartcpu or smartshare. The adaptive Parameter map is intentionally
// loose (string keys, float64 values) since each switch's own tuning
// knobs are not part of the wire protocol and are never round-tripped
// anywhere but process memory.
type Switch struct {
	Enabled    bool
	Parameters map[string]float64
}

// NewSwitch returns a disabled switch with an empty parameter set.
func NewSwitch() Switch {
	return Switch{Parameters: map[string]float64{}}
}

// PolicySwitches bundles the three named policy toggles for the
// process. Each field is independent; the registry guards the whole
// struct with one mutex since all three toggle together far less often
// than the host descriptor mutates.
type PolicySwitches struct {
	SmartMem   Switch
	SmartCPU   Switch
	SmartShare Switch
}

// DefaultPolicySwitches returns all three switches disabled, which is
// this implementation's conservative default.
func DefaultPolicySwitches() PolicySwitches {
	return PolicySwitches{
		SmartMem:   NewSwitch(),
		SmartCPU:   NewSwitch(),
		SmartShare: NewSwitch(),
	}
}
