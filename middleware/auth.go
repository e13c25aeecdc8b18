package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
)

// Principal kinds carried in token claims. Admins and customers are distinct
// principal types; tracking tokens grant access to a single order only.
const (
	PrincipalAdmin    = "admin"
	PrincipalClient   = "client"
	PrincipalTracking = "tracking"
)

// Token lifetimes per principal kind
const (
	AccountTokenTTL  = 24 * time.Hour
	TrackingTokenTTL = time.Hour
)

const principalContextKey = "principal"

// Claims is the JWT payload: the registered subject holds the user id
// (or tracking code for tracking tokens), Kind discriminates the principal.
type Claims struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// IssueToken signs a token for the given principal
func IssueToken(kind, subject, name string, ttl time.Duration) (string, error) {
	cfg := config.GetConfig()
	now := time.Now()

	claims := Claims{
		Kind: kind,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken validates a signed token and returns its claims
func ParseToken(tokenString string) (*Claims, error) {
	cfg := config.GetConfig()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &AuthError{Code: "INVALID_TOKEN", Message: "Unexpected signing method"}
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &AuthError{Code: "INVALID_TOKEN", Message: "Invalid token claims"}
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth is a middleware that validates the bearer token and checks
// that its principal kind is one of the allowed kinds
func RequireAuth(kinds ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or malformed Authorization header",
				},
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Failed to validate token",
				},
			})
			c.Abort()
			return
		}

		allowed := false
		for _, kind := range kinds {
			if claims.Kind == kind {
				allowed = true
				break
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Insufficient permissions to access this resource",
				},
			})
			c.Abort()
			return
		}

		c.Set(principalContextKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a valid token is present but
// never rejects the request. Used on endpoints open to anonymous clients.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := ParseToken(tokenString); err == nil {
				c.Set(principalContextKey, claims)
			}
		}
		c.Next()
	}
}

// GetPrincipal extracts the validated claims from the Gin context
func GetPrincipal(c *gin.Context) (*Claims, error) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_PRINCIPAL", Message: "Principal not found in context"}
	}
	claims, ok := value.(*Claims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_PRINCIPAL", Message: "Principal is not in the expected format"}
	}
	return claims, nil
}
