package jwt

import (
	"github.com/Laisky/errors/v2"
	jwtLib "github.com/golang-jwt/jwt/v5"
)

// UserClaims is the payload of an access token.
//
// Subject carries the user id.
type UserClaims struct {
	jwtLib.RegisteredClaims
	Email string `json:"email"`
}

// UserID returns the id of the user the token was issued to
func (uc *UserClaims) UserID() string {
	return uc.Subject
}

// Validate is called by the parser after the registered claims are verified
func (uc *UserClaims) Validate() error {
	if uc.Subject == "" {
		return errors.New("token subject is empty")
	}

	return nil
}
