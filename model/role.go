package model

import "fmt"

// Role is the closed set of modes a chat participant can act in.
type Role int

const (
	RoleUnknown Role = iota
	// RoleReporter is a field employee filling the daily form.
	RoleReporter
	// RoleSupervisor is a team lead aggregating subordinate reports.
	RoleSupervisor
	// RoleManual fills the form for display only, nothing is persisted.
	RoleManual
)

func (r Role) String() string {
	switch r {
	case RoleReporter:
		return "reporter"
	case RoleSupervisor:
		return "supervisor"
	case RoleManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseRole maps a stored role string back to its enum value.
func ParseRole(s string) (Role, error) {
	switch s {
	case "reporter":
		return RoleReporter, nil
	case "supervisor":
		return RoleSupervisor, nil
	case "manual":
		return RoleManual, nil
	case "unknown", "":
		// Stored zero value for users who only passed the password gate.
		return RoleUnknown, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}
