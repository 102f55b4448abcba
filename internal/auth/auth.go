// Package auth covers credentials and permissions: bcrypt password hashing,
// HS256 bearer tokens, the middleware that resolves a token to a user, and
// the single authorization policy consulted by every handler.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/examhub/examhub/internal/apperr"
	"github.com/examhub/examhub/internal/model"
)

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID int64      `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service. The secret must be non-empty;
// main refuses to start without one.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a fresh token for the user.
func (t *TokenService) Issue(u *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "examhub",
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a token string and returns its claims.
func (t *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperr.Unauthorized("invalid token claims")
	}
	return claims, nil
}

// UserLookup resolves a user ID to a user record. Satisfied by the store.
type UserLookup interface {
	GetUserByID(id int64) (*model.User, error)
}

// Middleware authenticates Bearer tokens and stores the resolved user in
// the request context. Requests without a valid token get a 401 envelope.
func Middleware(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			user, err := users.GetUserByID(claims.UserID)
			if err != nil || user == nil {
				writeUnauthorized(w, "unknown user")
				return
			}
			next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
