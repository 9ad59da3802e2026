package authz

import "fmt"

// AccessScope bounds the breadth of resources a role may act upon.
// Breadth ordering: global ⊇ edition ⊇ company ⊇ self.
type AccessScope string

const (
	ScopeGlobal  AccessScope = "global"
	ScopeEdition AccessScope = "edition"
	ScopeCompany AccessScope = "company"
	ScopeSelf    AccessScope = "self"
)

var scopeRank = map[AccessScope]int{
	ScopeGlobal:  4,
	ScopeEdition: 3,
	ScopeCompany: 2,
	ScopeSelf:    1,
}

// Valid reports whether s is one of the four known scopes.
func (s AccessScope) Valid() bool {
	_, ok := scopeRank[s]
	return ok
}

// Includes reports whether s is at least as broad as other.
// Both scopes must be valid; an unknown scope is never included.
func (s AccessScope) Includes(other AccessScope) bool {
	a, aok := scopeRank[s]
	b, bok := scopeRank[other]
	return aok && bok && a >= b
}

// ParseScope converts a stored string into an AccessScope.
func ParseScope(raw string) (AccessScope, error) {
	s := AccessScope(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, raw)
	}
	return s, nil
}
