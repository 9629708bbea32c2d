package session

import (
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3/jwt"

	"github.com/aretw0/quire/pkg/core"
)

// User is the identity carried by the credential.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

type claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.Claims
}

// DecodeClaims reads the user of a JWT credential without verifying its
// signature; the remote store verifies tokens. A token without a user id
// ("id" or "sub") is invalid.
func DecodeClaims(token string) (User, error) {
	tok, err := jwt.ParseSigned(strings.TrimSpace(token))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", core.ErrCredentialInvalid, err)
	}

	var c claims
	if err := tok.UnsafeClaimsWithoutVerification(&c); err != nil {
		return User{}, fmt.Errorf("%w: %v", core.ErrCredentialInvalid, err)
	}

	id := c.ID
	if id == "" {
		id = c.Subject
	}
	if id == "" {
		return User{}, fmt.Errorf("%w: missing user id", core.ErrCredentialInvalid)
	}
	return User{ID: id, Name: c.Name, Email: c.Email}, nil
}
