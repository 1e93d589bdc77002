// Package jwt issues and verifies access tokens.
package jwt

import (
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	jwtLib "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL is the lifetime of an access token
	DefaultTTL = time.Hour

	minSecretLength = 16
)

// ErrInvalidToken is returned for any token that cannot be trusted
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies HS256 access tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Issuer
type Option func(*Issuer) error

// WithTTL sets the token lifetime
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) error {
		if ttl <= 0 {
			return errors.Errorf("ttl must be positive, got %s", ttl)
		}

		i.ttl = ttl
		return nil
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) error {
		if now == nil {
			return errors.New("clock is nil")
		}

		i.now = now
		return nil
	}
}

// New creates an Issuer with the shared signing secret
func New(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) < minSecretLength {
		return nil, errors.Errorf("secret must be at least %d bytes", minSecretLength)
	}

	i := &Issuer{
		secret: secret,
		ttl:    DefaultTTL,
		now: func() time.Time {
			return gutils.Clock.GetUTCNow()
		},
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	return i, nil
}

// TTL returns the configured token lifetime
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Sign issues a token for the user
func (i *Issuer) Sign(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}

	now := i.now()
	uc := &UserClaims{
		RegisteredClaims: jwtLib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtLib.NewNumericDate(now),
			ExpiresAt: jwtLib.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
	}

	token, err := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, uc).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrapf(err, "sign token for %q", userID)
	}

	return token, nil
}

// Parse verifies signature, algorithm and expiry of token and returns its claims
func (i *Issuer) Parse(token string) (*UserClaims, error) {
	if token == "" {
		return nil, errors.Wrap(ErrInvalidToken, "empty token")
	}

	uc := new(UserClaims)
	if _, err := jwtLib.ParseWithClaims(token, uc,
		func(*jwtLib.Token) (any, error) {
			return i.secret, nil
		},
		jwtLib.WithValidMethods([]string{jwtLib.SigningMethodHS256.Alg()}),
		jwtLib.WithExpirationRequired(),
		jwtLib.WithIssuedAt(),
		jwtLib.WithTimeFunc(i.now),
	); err != nil {
		return nil, errors.Wrapf(ErrInvalidToken, "parse token: %s", err.Error())
	}

	return uc, nil
}

// ParseUnverified decodes the claims of token without checking its signature.
// Only for callers that hold their own token, such as the api client.
func ParseUnverified(token string) (*UserClaims, error) {
	uc := new(UserClaims)
	if _, _, err := jwtLib.NewParser().ParseUnverified(token, uc); err != nil {
		return nil, errors.Wrapf(ErrInvalidToken, "decode token: %s", err.Error())
	}
	if err := uc.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	return uc, nil
}
