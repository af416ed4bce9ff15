package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/internal/models"
	"github.com/diewo77/invoice-dashboard/validation"
)

var (
	// ErrNoMatch is the only outcome callers see for a failed sign-in.
	ErrNoMatch = errors.New("invalid credentials")
	// ErrCredentialLookup marks a sign-in that failed because the user
	// store could not be read. It is always wrapped together with ErrNoMatch.
	ErrCredentialLookup = errors.New("credential lookup failed")
)

// CredentialVerifier checks an email/password pair against the users table.
type CredentialVerifier struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCredentialVerifier(db *gorm.DB, log *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{db: db, log: log.Named("credentials")}
}

// Verify returns the user whose email and password match. Malformed input is
// rejected before any lookup. Every failure satisfies errors.Is(err,
// ErrNoMatch); store faults additionally match ErrCredentialLookup.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	creds := validation.Credentials{Email: email, Password: password}
	if !creds.Check().Empty() {
		return nil, ErrNoMatch
	}

	var user models.User
	err := v.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNoMatch
	case err != nil:
		v.log.Error("failed to fetch user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNoMatch, ErrCredentialLookup)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrNoMatch
	}
	return &user, nil
}

// UserExists reports whether a user with id is still present. Lookup faults
// count as absent.
func (v *CredentialVerifier) UserExists(ctx context.Context, id string) bool {
	var count int64
	if err := v.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		v.log.Error("failed to check session user", zap.String("user_id", id), zap.Error(err))
		return false
	}
	return count > 0
}
