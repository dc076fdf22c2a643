package types

import "testing"

func TestStringSet_EmptyAllowsAll(t *testing.T) {
	var s StringSet
	if !s.Allows("anyone") {
		t.Error("nil set should allow everything")
	}
	if !NewStringSet().Allows("anyone") {
		t.Error("empty set should allow everything")
	}
}

func TestStringSet_MembershipOnly(t *testing.T) {
	s := NewStringSet("alice", "bob")
	if !s.Allows("alice") {
		t.Error("expected alice to be allowed")
	}
	if s.Allows("mallory") {
		t.Error("expected mallory to be denied")
	}
}

func TestAccessLists_PermitsIndependently(t *testing.T) {
	a := AccessLists{AllowUser: NewStringSet("alice")}
	if !a.Permits("alice", "any-host", "any-group") {
		t.Error("host/group allow-lists are empty so only user should matter")
	}
	if a.Permits("mallory", "any-host", "any-group") {
		t.Error("mallory is not in AllowUser")
	}
}
