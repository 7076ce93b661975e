package model

// Role governs which menu and admin actions a user gets.
type Role string

const (
	RoleUser    Role = "user"
	RoleSpeaker Role = "speaker"
	RoleAdmin   Role = "admin"
)

// CanCreateEvents reports whether the role may run the create-event workflow.
func (r Role) CanCreateEvents() bool {
	return r == RoleSpeaker || r == RoleAdmin
}

func (r Role) String() string { return string(r) }
