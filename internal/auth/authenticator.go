// Package auth establishes caller identity: password accounts hashed with
// bcrypt and HS256 bearer tokens.
package auth

import (
	"context"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// Authenticator registers and verifies accounts.
type Authenticator interface {
	// Register creates an account. Returns ErrEmailExists when the email is
	// taken and ErrWeakPassword when the credential is rejected.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account for a valid email and credential,
	// or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential before it is stored.
	ValidateCredential(credential string) error
}
