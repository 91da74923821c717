package models

import "strings"

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole maps "admin" (any case) to RoleAdmin and everything else to RoleUser.
func ParseRole(value string) Role {
	if strings.EqualFold(strings.TrimSpace(value), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// User represents an operator account. Sprints embed a copy of the operator.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
	Audit
}

func NewUser(username, passwordHash string, role Role) User {
	return User{
		ID:           NewID(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Audit:        newAudit(),
	}
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
