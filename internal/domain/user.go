package domain

import "time"

// User is one authorization profile. Several profiles may share a login email.
type User struct {
	ID          string
	Email       string
	Name        *string
	ProfileName string
	Roles       RoleSet
	Team        *TeamName
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName falls back to the email when no name is recorded.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
