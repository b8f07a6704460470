// Package token mints and verifies the RS256 credentials the gateway hands
// out: user access tokens, user refresh tokens and short-lived service tokens.
package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Kind tells the three credential variants apart. It travels in the
// tokenKind claim so a token of one kind is never accepted as another.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindService Kind = "service"
)

func (k Kind) valid() bool {
	switch k {
	case KindAccess, KindRefresh, KindService:
		return true
	}
	return false
}

// Profile is the user snapshot returned by the identity service and embedded
// into access tokens.
type Profile struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email"`
	Gender    string   `json:"gender,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// TokenPair is what a successful login or refresh hands to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Claims is the payload of every token. Profile fields are only set on
// access tokens; refresh tokens carry the subject and expiry, service tokens
// carry the expiry alone.
type Claims struct {
	jwt.RegisteredClaims
	Kind      Kind     `json:"tokenKind"`
	Username  string   `json:"username,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Profile rebuilds the snapshot an access token was minted from.
func (c *Claims) Profile() Profile {
	return Profile{
		ID:        c.Subject,
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Gender:    c.Gender,
		Roles:     append([]string(nil), c.Roles...),
	}
}

// HasRole reports whether the access token grants role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c *Claims) hasProfile() bool {
	return c.Username != "" || c.Email != "" || c.FirstName != "" ||
		c.LastName != "" || c.Gender != "" || len(c.Roles) > 0
}

// shapeOK checks the claims a given kind must and must not carry.
func (c *Claims) shapeOK() bool {
	switch c.Kind {
	case KindAccess:
		return c.Subject != ""
	case KindRefresh:
		return c.Subject != "" && !c.hasProfile()
	case KindService:
		return c.Subject == "" && !c.hasProfile()
	}
	return false
}
