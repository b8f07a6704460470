// Package common defines shared constants and sentinel errors used by the
// gateway and the identity service. Callers should use errors.Is to match
// these values; components wrap causes so the sentinel survives.
package common

import "errors"

var (
	// Credential absent.
	ErrNoToken        = errors.New("no token")
	ErrNoRefreshToken = errors.New("no refresh token")

	// Bad signature, expired, or malformed claim shape.
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Token has a revocation record.
	ErrRevokedToken = errors.New("revoked token")

	// Refresh token and access token belong to different subjects.
	ErrTokenSubjectMismatch = errors.New("token subject mismatch")

	// Cache or signer unreachable, or the caller's deadline expired.
	ErrInfrastructure = errors.New("infrastructure error")

	// Signing or verification key material is missing or unusable.
	ErrNoKeyMaterial = errors.New("no key material")

	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")
)
