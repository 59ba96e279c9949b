package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/trenches/ip-venue/internal/api/shared/errors"
)

// AuthSubjectKey is the gin context key holding the authenticated subject
const AuthSubjectKey = "auth_subject"

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTSecret is the HMAC signing secret
	JWTSecret string
	// JWTIssuer, when set, is required to match the token's iss claim
	JWTIssuer string
}

// Auth returns a gin middleware validating a bearer JWT on mutating
// endpoints. With no secret configured the middleware rejects everything;
// a deployment that wants open trade entry must not mount it.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c.GetHeader("Authorization"), cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication failed", err.Error()))
			return
		}
		c.Set(AuthSubjectKey, claims.Subject)
		c.Next()
	}
}

func authenticate(authHeader string, cfg AuthConfig) (*jwt.RegisteredClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("authentication not configured")
	}
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("invalid Authorization header format")
	}

	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, errors.New("invalid token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
