package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// SignUpRequest carries the profile fields supplied at sign-up. Email and
// phone from the verified token take precedence over these.
type SignUpRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UserService provisions local profiles for provider-side accounts. The
// provider and the local store do not share a transaction, so a failed
// local write is compensated by deleting the provider account.
type UserService struct {
	gateway port.IdentityGateway
	users   port.UserStore
	log     *logrus.Logger
}

func NewUserService(gateway port.IdentityGateway, users port.UserStore, log *logrus.Logger) *UserService {
	return &UserService{gateway: gateway, users: users, log: log}
}

// SignUp creates the local profile for a verified identity and binds it to
// the provider account through a custom claim. The identity must carry at
// least one of email or phone; the sign-up body supplies the other channel.
func (s *UserService) SignUp(ctx context.Context, ident *port.Identity, req SignUpRequest) (*domain.User, error) {
	email := ident.Email
	if email == "" {
		email = req.Email
	}
	phone := ident.Phone
	if phone == "" {
		phone = req.Phone
	}
	if email == "" && phone == "" {
		return nil, fmt.Errorf("%w: email or phone required", domain.ErrInvalidInput)
	}

	existing, err := s.users.FindUserByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	s.removeStaleAccount(ctx, ident, email, phone)

	now := time.Now()
	user := domain.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The provider account exists but the local profile does not;
		// delete the account so the caller can redo sign-up from scratch.
		if delErr := s.gateway.DeleteAccount(ctx, ident.AccountID); delErr != nil {
			s.log.WithError(delErr).WithField("account_id", ident.AccountID).
				Error("compensation failed: provider account left without profile")
		}
		return nil, err
	}

	update := port.AccountUpdate{EmailVerified: true}
	if ident.Phone != "" && ident.Email == "" {
		update.Email = email
	} else {
		update.Phone = phone
	}
	if err := s.gateway.UpdateAccount(ctx, ident.AccountID, update); err != nil {
		return nil, err
	}
	if err := s.gateway.SetUserClaim(ctx, ident.AccountID, user.ID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID}).Info("user provisioned")
	return &user, nil
}

// removeStaleAccount deletes a leftover provider account that already holds
// the credential the caller is now claiming through the other channel.
func (s *UserService) removeStaleAccount(ctx context.Context, ident *port.Identity, email, phone string) {
	var staleID string
	var err error

	switch {
	case ident.Phone != "" && ident.Email == "" && email != "":
		staleID, err = s.gateway.FindAccountByEmail(ctx, email)
	case ident.Email != "" && ident.Phone == "" && phone != "":
		staleID, err = s.gateway.FindAccountByPhone(ctx, phone)
	default:
		return
	}
	if err != nil {
		s.log.WithError(err).Warn("stale account lookup failed")
		return
	}
	if staleID == "" || staleID == ident.AccountID {
		return
	}
	if err := s.gateway.DeleteAccount(ctx, staleID); err != nil {
		s.log.WithError(err).WithField("account_id", staleID).Warn("failed to delete stale provider account")
	}
}
