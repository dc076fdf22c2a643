package types

// StringSet is a set of strings consulted at intake time. A nil or empty
// set means "allow all": empty-or-nil is permissive, never restrictive.
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from a list of values, skipping empty
// strings so that a stray blank CLI token doesn't accidentally produce a
// restrictive one-entry set.
func NewStringSet(values ...string) StringSet {
	if len(values) == 0 {
		return nil
	}
	s := make(StringSet, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	if len(s) == 0 {
		return nil
	}
	return s
}

// Allows reports whether value passes this set: true if the set is empty
// (allow-all) or value is a member.
func (s StringSet) Allows(value string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[value]
	return ok
}

// AccessLists bundles the three independent allow-lists consulted during
// intake. A submitter is accepted only if it passes all three — each
// list independently defaults to allow-all when empty.
type AccessLists struct {
	AllowUser  StringSet
	AllowHost  StringSet
	AllowGroup StringSet
}

// Permits reports whether a submitting host descriptor passes every
// configured allow-list.
func (a AccessLists) Permits(user, host, group string) bool {
	return a.AllowUser.Allows(user) && a.AllowHost.Allows(host) && a.AllowGroup.Allows(group)
}
