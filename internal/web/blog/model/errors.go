package model

import "github.com/Laisky/errors/v2"

var (
	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden indicates a valid credential that does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPost indicates the post payload did not pass validation.
	ErrInvalidPost = errors.New("invalid post")
	// ErrInvalidQuery indicates bad list filters or pagination.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidUser indicates the registration payload did not pass validation.
	ErrInvalidUser = errors.New("invalid user")
	// ErrUserExists indicates the email is already registered.
	ErrUserExists = errors.New("Email already exists")
	// ErrInvalidCredentials indicates the login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts indicates the account is temporarily locked after failed logins.
	ErrTooManyAttempts = errors.New("too many login attempts")
)
