package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

const (
	verificationCodeLength = 6
	// VerificationCodeTTL is how long an issued code stays valid
	VerificationCodeTTL = 10 * time.Minute
	// ResendInterval is the minimum wait between verification emails
	ResendInterval = 60 * time.Second
)

var (
	// ErrNoCodePending is returned when verifying without an issued code
	ErrNoCodePending = errors.New("no verification code pending")
	// ErrCodeExpired is returned when the issued code has passed its TTL
	ErrCodeExpired = errors.New("verification code has expired")
	// ErrCodeInvalid is returned when the submitted code does not match
	ErrCodeInvalid = errors.New("invalid verification code")
)

// ResendThrottledError is returned when a resend comes in before the
// minimum interval has passed
type ResendThrottledError struct {
	RetryAfter int // seconds
}

func (e *ResendThrottledError) Error() string {
	return fmt.Sprintf("please wait %d seconds before resending", e.RetryAfter)
}

// VerificationService manages email verification codes for customer accounts
type VerificationService struct {
	db *gorm.DB
}

// NewVerificationService creates a verification service backed by db
func NewVerificationService(db *gorm.DB) *VerificationService {
	return &VerificationService{db: db}
}

// GenerateVerificationCode returns a random 6-digit code as a string
func GenerateVerificationCode() (string, error) {
	code := make([]byte, verificationCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate verification code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// IssueCode generates a fresh code for the user, stores its bcrypt hash with
// a 10-minute expiry and returns the plaintext for email delivery
func (s *VerificationService) IssueCode(user *models.User) (string, error) {
	code, err := GenerateVerificationCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash verification code: %w", err)
	}

	now := time.Now().UTC()
	expires := now.Add(VerificationCodeTTL)
	user.EmailVerificationCodeHash = string(hash)
	user.EmailVerificationExpiresAt = &expires
	user.LastVerificationSentAt = &now

	if err := s.db.Model(user).Updates(map[string]interface{}{
		"email_verification_code_hash":  user.EmailVerificationCodeHash,
		"email_verification_expires_at": expires,
		"last_verification_sent_at":     now,
	}).Error; err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	return code, nil
}

// Resend issues a new code, enforcing the minimum interval between sends
func (s *VerificationService) Resend(user *models.User) (string, error) {
	if user.LastVerificationSentAt != nil {
		elapsed := time.Since(*user.LastVerificationSentAt)
		if elapsed < ResendInterval {
			return "", &ResendThrottledError{
				RetryAfter: int((ResendInterval - elapsed).Seconds()) + 1,
			}
		}
	}
	return s.IssueCode(user)
}

// Verify checks a submitted code against the stored hash. On success the
// user is marked verified and the pending code is cleared.
func (s *VerificationService) Verify(user *models.User, code string) error {
	if user.EmailVerificationCodeHash == "" || user.EmailVerificationExpiresAt == nil {
		return ErrNoCodePending
	}
	if time.Now().UTC().After(*user.EmailVerificationExpiresAt) {
		return ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.EmailVerificationCodeHash), []byte(code)); err != nil {
		return ErrCodeInvalid
	}

	user.EmailVerified = true
	user.EmailVerificationCodeHash = ""
	user.EmailVerificationExpiresAt = nil

	return s.db.Model(user).Updates(map[string]interface{}{
		"email_verified":                true,
		"email_verification_code_hash":  "",
		"email_verification_expires_at": nil,
	}).Error
}

// CleanupExpired clears verification codes that passed their expiry, so
// stale hashes do not linger. Run periodically from the scheduler.
func (s *VerificationService) CleanupExpired() error {
	result := s.db.Model(&models.User{}).
		Where("email_verification_expires_at IS NOT NULL AND email_verification_expires_at < ?", time.Now().UTC()).
		Updates(map[string]interface{}{
			"email_verification_code_hash":  "",
			"email_verification_expires_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logger.Infof("cleared %d expired verification codes", result.RowsAffected)
	}
	return nil
}
