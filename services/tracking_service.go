package services

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

var (
	// ErrInvalidTrackingCredentials is returned for any bad code/key pair.
	// The message deliberately does not reveal which part was wrong.
	ErrInvalidTrackingCredentials = errors.New("invalid tracking code or access key")
	// ErrOrderStillQueued is returned when a waiting order is accessed
	ErrOrderStillQueued = errors.New("order is still waiting in the queue")
)

const (
	trackingKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingKeyLength   = 8
)

// GenerateOrderCode derives the public tracking code for an order.
// Format is "{id:06d}-{6 uppercase hex chars}" where the suffix is the first
// six hex characters of md5("{id}-{email}"). The code is stable for the
// lifetime of the order and is part of the client-facing contract.
func GenerateOrderCode(orderID uint, clientEmail string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d-%s", orderID, clientEmail)))
	suffix := strings.ToUpper(hex.EncodeToString(sum[:]))[:6]
	return fmt.Sprintf("%06d-%s", orderID, suffix)
}

// GenerateTrackingPassword returns a fresh random 8-character alphanumeric
// access key. Never derived from order data.
func GenerateTrackingPassword() (string, error) {
	key := make([]byte, trackingKeyLength)
	max := big.NewInt(int64(len(trackingKeyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate access key: %w", err)
		}
		key[i] = trackingKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}

// HashTrackingPassword hashes an access key for storage
func HashTrackingPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash access key: %w", err)
	}
	return string(hash), nil
}

// ParseOrderCode extracts the numeric order ID from a tracking code
func ParseOrderCode(code string) (uint, error) {
	idPart, _, found := strings.Cut(code, "-")
	if !found {
		return 0, ErrInvalidTrackingCredentials
	}
	id, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidTrackingCredentials
	}
	return uint(id), nil
}

// TrackingService verifies tracking credentials against stored orders
type TrackingService struct {
	db *gorm.DB
}

// NewTrackingService creates a tracking service backed by db
func NewTrackingService(db *gorm.DB) *TrackingService {
	return &TrackingService{db: db}
}

// Authenticate checks a tracking code and access key pair. Both must match:
// the code is recomputed from the stored order and compared, and the key is
// verified against the stored bcrypt hash. Orders still waiting in the queue
// are rejected before any password check, independent of key correctness.
func (s *TrackingService) Authenticate(code, password string) (*models.Order, error) {
	orderID, err := ParseOrderCode(code)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidTrackingCredentials
		}
		return nil, err
	}

	if GenerateOrderCode(order.ID, order.ClientEmail) != code {
		return nil, ErrInvalidTrackingCredentials
	}

	if !order.IsQueueActive() {
		return nil, ErrOrderStillQueued
	}

	if order.TrackingPassword == "" {
		return nil, ErrInvalidTrackingCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(order.TrackingPassword), []byte(password)); err != nil {
		return nil, ErrInvalidTrackingCredentials
	}

	return &order, nil
}

// FindByCode looks up an order by its tracking code, verifying the code
// against the stored order. Does not check the access key or queue state.
func (s *TrackingService) FindByCode(code string) (*models.Order, error) {
	orderID, err := ParseOrderCode(code)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidTrackingCredentials
		}
		return nil, err
	}

	if GenerateOrderCode(order.ID, order.ClientEmail) != code {
		return nil, ErrInvalidTrackingCredentials
	}

	return &order, nil
}

// RegeneratePassword issues a fresh access key for an order, stores its hash
// and returns the plaintext so it can be delivered to the client
func (s *TrackingService) RegeneratePassword(order *models.Order) (string, error) {
	password, err := GenerateTrackingPassword()
	if err != nil {
		return "", err
	}
	hash, err := HashTrackingPassword(password)
	if err != nil {
		return "", err
	}

	order.TrackingPassword = hash
	if err := s.db.Model(order).Update("tracking_password", hash).Error; err != nil {
		return "", fmt.Errorf("failed to store access key: %w", err)
	}

	return password, nil
}
