package domain

// Role enumerates authorization roles. A user holds a set of them.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleRequester      Role = "REQUESTER"
	RoleFunctionalHead Role = "FUNCTIONAL_HEAD"
	RoleL1Approver     Role = "L1_APPROVER"
	RoleCFO            Role = "CFO"
	RoleCDO            Role = "CDO"
	RoleProduction     Role = "PRODUCTION"
)

var knownRoles = map[Role]struct{}{
	RoleSuperAdmin:     {},
	RoleRequester:      {},
	RoleFunctionalHead: {},
	RoleL1Approver:     {},
	RoleCFO:            {},
	RoleCDO:            {},
	RoleProduction:     {},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// RoleSet is the roles held by one profile.
type RoleSet []Role

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// Strings returns the roles as plain strings, for storage.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// ParseRoles drops unknown and duplicate values.
func ParseRoles(values []string) RoleSet {
	seen := make(map[Role]struct{}, len(values))
	out := make(RoleSet, 0, len(values))
	for _, v := range values {
		role := Role(v)
		if !role.Valid() {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
