package permission

import "sort"

// Set is an unordered collection of permission names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name. Empty names are ignored.
func (s Set) Add(name string) {
	if name == "" {
		return
	}
	s[name] = struct{}{}
}

// Has reports membership.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union adds every member of other.
func (s Set) Union(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Clone returns a copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Union(s)
	return out
}

// Names returns the members sorted.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Role is a named set of permissions as assigned to a user.
type Role struct {
	Name        string
	Permissions []string
}
