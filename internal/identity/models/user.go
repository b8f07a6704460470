package models

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/auth/token"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Gender       string
	PasswordHash []byte
	Salt         []byte
	Roles        []string
	CreatedAt    time.Time
}

// Profile is the public view of the user handed to the gateway.
func (u *User) Profile() token.Profile {
	return token.Profile{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Gender:    u.Gender,
		Roles:     u.Roles,
	}
}

type Gender struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
