package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

func TestGenerateOrderCode(t *testing.T) {
	tests := []struct {
		name     string
		orderID  uint
		email    string
		expected string
	}{
		{
			name:     "Known code for id 1",
			orderID:  1,
			email:    "client@example.com",
			// md5("1-client@example.com") = 6307b1... so the suffix is 6307B1
			expected: "000001-6307B1",
		},
		{
			name:     "Large id keeps six digit padding",
			orderID:  123456,
			email:    "client@example.com",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := GenerateOrderCode(tt.orderID, tt.email)
			if tt.expected != "" {
				assert.Equal(t, tt.expected, code)
			}
			assert.Regexp(t, regexp.MustCompile(`^\d{6}-[0-9A-F]{6}$`), code)
		})
	}
}

func TestGenerateOrderCodeIsDeterministic(t *testing.T) {
	a := GenerateOrderCode(42, "someone@example.com")
	b := GenerateOrderCode(42, "someone@example.com")
	assert.Equal(t, a, b)

	// Different email, different suffix
	c := GenerateOrderCode(42, "other@example.com")
	assert.NotEqual(t, a, c)
	assert.Equal(t, a[:7], c[:7])
}

func TestGenerateTrackingPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		key, err := GenerateTrackingPassword()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{8}$`), key)
		seen[key] = true
	}
	// Collisions across 20 draws would indicate a broken generator
	assert.Greater(t, len(seen), 15)
}

func TestParseOrderCode(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		expectedID uint
		wantErr    bool
	}{
		{name: "Valid code", code: "000042-ABCDEF", expectedID: 42},
		{name: "No separator", code: "000042ABCDEF", wantErr: true},
		{name: "Non-numeric id", code: "ABC-DEF123", wantErr: true},
		{name: "Zero id", code: "000000-ABCDEF", wantErr: true},
		{name: "Empty", code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseOrderCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedID, id)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	db := setupQueueTestDB(t)
	queue := NewQueueService(db)
	tracking := NewTrackingService(db)

	active := submitTestOrder(t, queue, "active@example.com")
	waiting := submitTestOrder(t, queue, "waiting@example.com")

	t.Run("Valid credentials on active order", func(t *testing.T) {
		order, err := tracking.Authenticate(active.Order.TrackingCode, active.AccessKey)
		require.NoError(t, err)
		assert.Equal(t, active.Order.ID, order.ID)
	})

	t.Run("Wrong access key", func(t *testing.T) {
		_, err := tracking.Authenticate(active.Order.TrackingCode, "wrongkey")
		assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
	})

	t.Run("Tampered code suffix", func(t *testing.T) {
		tampered := active.Order.TrackingCode[:7] + "FFFFFF"
		_, err := tracking.Authenticate(tampered, active.AccessKey)
		assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
	})

	t.Run("Unknown order id", func(t *testing.T) {
		_, err := tracking.Authenticate("009999-ABCDEF", active.AccessKey)
		assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
	})

	t.Run("Queued order rejected even with correct key", func(t *testing.T) {
		_, err := tracking.Authenticate(waiting.Order.TrackingCode, waiting.AccessKey)
		assert.ErrorIs(t, err, ErrOrderStillQueued)
	})

	t.Run("Queued order rejected with wrong key too", func(t *testing.T) {
		// The queue gate comes first so the response cannot be used to
		// probe whether a key is correct
		_, err := tracking.Authenticate(waiting.Order.TrackingCode, "wrongkey")
		assert.ErrorIs(t, err, ErrOrderStillQueued)
	})
}

func TestRegeneratePassword(t *testing.T) {
	db := setupQueueTestDB(t)
	queue := NewQueueService(db)
	tracking := NewTrackingService(db)

	result := submitTestOrder(t, queue, "client@example.com")
	oldKey := result.AccessKey

	newKey, err := tracking.RegeneratePassword(result.Order)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)

	// Old key no longer works, new key does
	_, err = tracking.Authenticate(result.Order.TrackingCode, oldKey)
	assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)

	order, err := tracking.Authenticate(result.Order.TrackingCode, newKey)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, order.ID)
}

func TestFindByCode(t *testing.T) {
	db := setupQueueTestDB(t)
	queue := NewQueueService(db)
	tracking := NewTrackingService(db)

	result := submitTestOrder(t, queue, "client@example.com")

	order, err := tracking.FindByCode(result.Order.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, order.ID)

	_, err = tracking.FindByCode("000001-000000")
	if result.Order.TrackingCode != "000001-000000" {
		assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
	}

	_, err = tracking.FindByCode("garbage")
	assert.ErrorIs(t, err, ErrInvalidTrackingCredentials)
}

func TestHashTrackingPasswordDoesNotStorePlaintext(t *testing.T) {
	hash, err := HashTrackingPassword("Secret99")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret99", hash)
	assert.NotContains(t, hash, "Secret99")

	m := models.Order{TrackingPassword: hash}
	assert.NotEmpty(t, m.TrackingPassword)
}
