package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RegistrationService creates accounts. Depending on the activation mode
// the account starts active, or inactive with a one-time token delivered
// out-of-band.
type RegistrationService struct {
	repo       Users
	confirmers *ConfirmerFactory
	logger     Logger
}

func NewRegistrationService(repo Users, confirmers *ConfirmerFactory, logger Logger) *RegistrationService {
	if logger == nil {
		logger = defLogger{}
	}
	return &RegistrationService{
		repo:       repo,
		confirmers: confirmers,
		logger:     logger,
	}
}

// Register creates the account. The invariant established here and
// maintained by the activation CAS: IsActive iff ActivationToken empty.
func (s *RegistrationService) Register(ctx context.Context, req *RegistrationRequest) error {
	defer req.EraseCredentials()

	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}

	confirmer, err := s.confirmers.New(req.Email)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &User{
		Email:           req.Email,
		PasswordHash:    hash,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Creation:        now,
		LastUpdate:      now,
		Permissions:     append([]string(nil), req.Permissions...),
		IsActive:        confirmer.Token() == "",
		ActivationToken: confirmer.Token(),
	}

	if err := s.repo.Register(ctx, user); err != nil {
		return err
	}

	if err := s.sendConfirmation(ctx, confirmer, req.Email); err != nil {
		return err
	}

	return nil
}

// hashPassword bcrypt-hashes the cleartext; only the hash is ever
// stored.
func hashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *RegistrationService) sendConfirmation(ctx context.Context, c Confirmer, email string) error {
	if err := c.SendConfirmation(ctx); err != nil {
		// the account exists but the user never got the token; surface
		// the failure so the registration reports as not completed
		s.logger.Error("user saved but confirmation not sent", "email", email, "error", err)
		return ErrUserNotSaved
	}
	return nil
}
