package testutil

import (
	"fmt"
	"testing"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
)

// SetTestConfig installs a minimal configuration suitable for issuing and
// validating tokens in tests
func SetTestConfig() *config.Config {
	cfg := &config.Config{
		GoEnv:      "test",
		JWTSecret:  "test-secret",
		BaseURL:    "http://localhost:3000",
		AdminEmail: "admin@zetsuserv.test",
	}
	config.SetConfig(cfg)
	return cfg
}

// AdminToken issues a real signed admin token for the given admin id
func AdminToken(t *testing.T, adminID uint, username string) string {
	t.Helper()

	token, err := middleware.IssueToken(middleware.PrincipalAdmin, fmt.Sprint(adminID), username, middleware.AccountTokenTTL)
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return token
}

// TrackingToken issues a real signed tracking token bound to a tracking code
func TrackingToken(t *testing.T, trackingCode string) string {
	t.Helper()

	token, err := middleware.IssueToken(middleware.PrincipalTracking, trackingCode, "", middleware.TrackingTokenTTL)
	if err != nil {
		t.Fatalf("Failed to issue tracking token: %v", err)
	}
	return token
}
