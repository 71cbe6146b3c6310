package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tldrapp/scan-summary-service/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

var (
	// ErrNotInitialized is returned when tokens are used before Init
	ErrNotInitialized = errors.New("auth not initialized")
	// ErrNoClaims is returned when a request carries no verified token
	ErrNoClaims = errors.New("no claims in context")
)

// publicPaths are served without a token
var publicPaths = map[string]bool{
	"/health": true,
}

var (
	mu       sync.RWMutex
	settings *models.AuthConfig
)

// Claims are the JWT claims issued to scan clients
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Init configures token signing and verification
func Init(cfg models.AuthConfig) error {
	if !cfg.Disabled && cfg.Secret == "" {
		return errors.New("JWT secret is required (set JWT_SECRET or auth.secret)")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	mu.Lock()
	settings = &cfg
	mu.Unlock()
	return nil
}

func current() (*models.AuthConfig, error) {
	mu.RLock()
	defer mu.RUnlock()
	if settings == nil {
		return nil, ErrNotInitialized
	}
	return settings, nil
}

// GenerateToken issues a signed token for userID
func GenerateToken(userID, role string) (string, error) {
	cfg, err := current()
	if err != nil {
		return "", err
	}
	if cfg.Secret == "" {
		return "", errors.New("JWT secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// ValidateToken parses and verifies a token string
func ValidateToken(tokenString string) (*Claims, error) {
	cfg, err := current()
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTMiddleware rejects requests without a valid bearer token. Public paths
// and a disabled auth config pass straight through.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		cfg, err := current()
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		if cfg.Disabled {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext returns the claims stored by JWTMiddleware
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "unauthorized: " + message,
	})
}
