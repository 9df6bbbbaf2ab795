package identity

import (
	"errors"
	"net/http"
)

var ErrUnauthenticated = errors.New("no authenticated user")

// User is the verified identity handed down by the auth provider. Email
// is the canonical owner key for carts and orders.
type User struct {
	Email       string
	DisplayName string
}

// Provider extracts the current user from an incoming request.
type Provider interface {
	CurrentUser(r *http.Request) (*User, error)
}

// HeaderProvider trusts identity headers set by the auth proxy in front
// of this service. The proxy has already verified the session token.
type HeaderProvider struct {
	EmailHeader string
	NameHeader  string
}

func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{
		EmailHeader: "X-User-Email",
		NameHeader:  "X-User-Name",
	}
}

func (p *HeaderProvider) CurrentUser(r *http.Request) (*User, error) {
	email := r.Header.Get(p.EmailHeader)
	if email == "" {
		return nil, ErrUnauthenticated
	}
	return &User{
		Email:       email,
		DisplayName: r.Header.Get(p.NameHeader),
	}, nil
}
