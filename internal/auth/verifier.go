// Package auth gates the admin surface with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("missing or invalid admin token")

// Verifier checks presented credentials against the configured admin token.
type Verifier struct {
	token string
}

func NewVerifier(token string) *Verifier {
	return &Verifier{token: token}
}

// Verify accepts a credential when it matches the configured token. A server
// with no token configured rejects everything rather than opening the admin
// surface up.
func (v *Verifier) Verify(credential string) error {
	if v.token == "" || credential == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(v.token), []byte(credential)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
