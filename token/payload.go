package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-auth/users"
)

// Kind tags the payload variant carried inside a token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Payload is either an AccessPayload or a RefreshPayload.
type Payload interface {
	Kind() Kind
}

// AccessPayload is carried by short-lived access tokens.
type AccessPayload struct {
	User      users.Identity
	SessionID string
}

func (AccessPayload) Kind() Kind { return KindAccess }

// RefreshPayload is carried by long-lived refresh tokens. It names the session
// and nothing else.
type RefreshPayload struct {
	SessionID string
}

func (RefreshPayload) Kind() Kind { return KindRefresh }

// claims is the wire shape of both payload variants.
type claims struct {
	jwt.RegisteredClaims
	Type      Kind   `json:"typ"`
	SessionID string `json:"sid"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

func claimsFor(p Payload) (*claims, bool) {
	switch v := p.(type) {
	case AccessPayload:
		return &claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: v.User.ID},
			Type:             KindAccess,
			SessionID:        v.SessionID,
			Email:            v.User.Email,
			Name:             v.User.Name,
		}, true
	case *AccessPayload:
		return claimsFor(*v)
	case RefreshPayload:
		return &claims{Type: KindRefresh, SessionID: v.SessionID}, true
	case *RefreshPayload:
		return claimsFor(*v)
	default:
		return nil, false
	}
}

// payload rebuilds the typed variant, rejecting anything that does not match
// the shape its tag promises.
func (c *claims) payload() (Payload, bool) {
	if c.SessionID == "" {
		return nil, false
	}

	switch c.Type {
	case KindAccess:
		if c.Subject == "" {
			return nil, false
		}
		return AccessPayload{
			User:      users.Identity{ID: c.Subject, Email: c.Email, Name: c.Name},
			SessionID: c.SessionID,
		}, true
	case KindRefresh:
		if c.Subject != "" || c.Email != "" || c.Name != "" {
			return nil, false
		}
		return RefreshPayload{SessionID: c.SessionID}, true
	default:
		return nil, false
	}
}
