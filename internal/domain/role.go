// Package domain contains entity without logic, just meta-data
package domain

import "strings"

type SessionID string

// Role is decided once when a session is created and never changes.
type Role int

const (
	RoleReceiver Role = iota
	RoleSender
)

func (r Role) String() string {
	switch r {
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	}
	return "unknown"
}

// ParseRole maps the wire value to a Role. Anything other than "sender" or
// "receiver" yields RoleReceiver with ok=false so callers can log it.
func ParseRole(s string) (role Role, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sender":
		return RoleSender, true
	case "receiver":
		return RoleReceiver, true
	}
	return RoleReceiver, false
}
