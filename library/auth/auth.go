// Package auth turns an Authorization header into an authenticated identity.
package auth

import (
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/library/jwt"
)

const bearerScheme = "bearer"

var (
	// ErrMissingAuthorization indicates that no authorization header was provided.
	ErrMissingAuthorization = errors.New("authorization header required")
	// ErrInvalidAuthorization indicates that the authorization header is malformed
	// or carries a token that does not verify.
	ErrInvalidAuthorization = errors.New("invalid authorization header")
)

// Identity is the verified caller of a request
type Identity struct {
	UserID string
	Email  string
}

// IsZero reports whether the identity is unauthenticated
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// TokenParser verifies a raw access token
type TokenParser interface {
	Parse(token string) (*jwt.UserClaims, error)
}

// Authenticator verifies bearer credentials
type Authenticator struct {
	parser TokenParser
}

// New creates an Authenticator backed by parser
func New(parser TokenParser) (*Authenticator, error) {
	if parser == nil {
		return nil, errors.New("token parser is nil")
	}

	return &Authenticator{parser: parser}, nil
}

// ParseBearer extracts the token from a `Bearer <token>` header value.
// The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	fields := strings.Fields(header)
	switch {
	case len(fields) == 0:
		return "", ErrMissingAuthorization
	case len(fields) != 2,
		!strings.EqualFold(fields[0], bearerScheme):
		return "", ErrInvalidAuthorization
	}

	return fields[1], nil
}

// Authenticate verifies the Authorization header and returns the caller identity
func (a *Authenticator) Authenticate(header string) (Identity, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return Identity{}, errors.WithStack(err)
	}

	claims, err := a.parser.Parse(token)
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidAuthorization, err.Error())
	}

	return Identity{
		UserID: claims.UserID(),
		Email:  claims.Email,
	}, nil
}
