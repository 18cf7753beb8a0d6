package approval

// Role is an officer role in the federation hierarchy. Authority is
// hierarchical: a higher-ranked role implicitly covers every lower approval
// level. The ordered table below replaces the string comparisons the legacy
// screens did.
type Role string

const (
	RoleLocalOfficer    Role = "local_officer"
	RoleRegionalOfficer Role = "regional_officer"
	RoleNationalOfficer Role = "national_officer"
	RoleCLCOfficer      Role = "clc_officer"
	RoleAdmin           Role = "admin"
)

// roleRank orders roles by authority. Unknown roles rank below everything.
var roleRank = map[Role]int{
	RoleLocalOfficer:    1,
	RoleRegionalOfficer: 2,
	RoleNationalOfficer: 3,
	RoleCLCOfficer:      4,
	RoleAdmin:           5,
}

// levelMinRole maps each approval level to the minimum role that may sign it.
var levelMinRole = map[string]Role{
	"local":    RoleLocalOfficer,
	"regional": RoleRegionalOfficer,
	"national": RoleNationalOfficer,
	"clc":      RoleCLCOfficer,
}

// Authorizes reports whether the role may act at the given approval level.
func (r Role) Authorizes(level string) bool {
	minRole, ok := levelMinRole[level]
	if !ok {
		return false
	}
	return roleRank[r] >= roleRank[minRole]
}

// Known reports whether the role exists in the authority table.
func (r Role) Known() bool {
	_, ok := roleRank[r]
	return ok
}
