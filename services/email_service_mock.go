package services

import (
	"fmt"
	"sync"
)

// MockMailer is a mock implementation of Mailer for testing
type MockMailer struct {
	sent    []Email
	failing bool
	mu      sync.RWMutex
}

// NewMockMailer creates a new mock mailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// SetAsMockForTesting sets this mock as the global mailer instance for testing
func (m *MockMailer) SetAsMockForTesting() {
	SetMailer(m)
}

// Send records the message instead of delivering it
func (m *MockMailer) Send(email *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing {
		return fmt.Errorf("mock mailer configured to fail")
	}
	m.sent = append(m.sent, *email)
	return nil
}

// SetFailing makes subsequent sends fail, for exercising the non-fatal path
func (m *MockMailer) SetFailing(failing bool) {
	m.mu.Lock()
	m.failing = failing
	m.mu.Unlock()
}

// SentEmails returns a copy of all recorded messages
func (m *MockMailer) SentEmails() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]Email, len(m.sent))
	copy(emails, m.sent)
	return emails
}

// LastEmail returns the most recently recorded message, nil when none
func (m *MockMailer) LastEmail() *Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.sent) == 0 {
		return nil
	}
	email := m.sent[len(m.sent)-1]
	return &email
}

// Clear removes all recorded messages
func (m *MockMailer) Clear() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
