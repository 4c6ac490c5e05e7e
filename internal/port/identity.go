package port

import "context"

// Identity is the result of verifying a bearer token with the provider.
// UserID is the local profile ID carried as a custom claim; it is empty
// until the account has completed sign-up.
type Identity struct {
	AccountID string
	UserID    string
	Email     string
	Phone     string
	RawToken  string
}

// AccountUpdate patches provider-side account fields during provisioning.
// Zero-value fields are left untouched.
type AccountUpdate struct {
	Email         string
	Phone         string
	EmailVerified bool
}

// IdentityGateway talks to the external token-issuing identity provider.
// The core never calls it on the reconciliation path; only the resolved
// user ID crosses that boundary.
type IdentityGateway interface {
	// Verify checks a bearer token and returns the identity behind it, or
	// domain.ErrUnauthorized when the token is invalid or expired.
	Verify(ctx context.Context, token string) (*Identity, error)

	// FindAccountByEmail returns the provider account ID holding the
	// email, or "" when no such account exists.
	FindAccountByEmail(ctx context.Context, email string) (string, error)

	// FindAccountByPhone returns the provider account ID holding the
	// phone number, or "" when no such account exists.
	FindAccountByPhone(ctx context.Context, phone string) (string, error)

	UpdateAccount(ctx context.Context, accountID string, update AccountUpdate) error

	// SetUserClaim attaches the local user ID to the account as a custom
	// claim so later tokens resolve straight to a provisioned user.
	SetUserClaim(ctx context.Context, accountID, userID string) error

	DeleteAccount(ctx context.Context, accountID string) error
}
