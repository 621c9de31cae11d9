package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of access levels a user can hold
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleStaff  Role = "STAFF"
	RoleViewer Role = "VIEWER"
)

// AllRoles lists every role, highest privilege first
var AllRoles = []Role{RoleAdmin, RoleStaff, RoleViewer}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// RoleSet is an allow-list of roles
type RoleSet []Role

func NewRoleSet(roles ...Role) RoleSet {
	return RoleSet(roles)
}

func (s RoleSet) Contains(r Role) bool {
	for _, allowed := range s {
		if allowed == r {
			return true
		}
	}
	return false
}

func (s RoleSet) String() string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
