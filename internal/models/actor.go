package models

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Actor is the authenticated caller of an operation. It is passed
// explicitly instead of being read from ambient request state, so
// services stay deterministic under test.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsClient() bool {
	return a.Role == RoleClient
}
