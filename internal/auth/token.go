package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// DefaultTokenLifetime is used when a caller token is minted without an
	// explicit lifetime.
	DefaultTokenLifetime = time.Hour
)

var (
	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when the token is invalid for any reason
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmptySecret is returned when minting a token without a signing secret.
	ErrEmptySecret = errors.New("token secret must not be empty")
)

// CallerClaims are the JWT claims of a caller token.
type CallerClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin"`
}

// CreateCallerToken signs an HS256 caller token for subject.
func CreateCallerToken(subject, name string, admin bool, secret string,
	lifetime time.Duration) (string, error) {

	if secret == "" {
		return "", ErrEmptySecret
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}

	now := time.Now()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        now.Format(time.RFC3339Nano),
		},
		Name:  name,
		Admin: admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ValidateCallerToken validates a caller token and returns its identity.
func ValidateCallerToken(tokenString string, secret string) (*Caller, error) {
	if tokenString == "" || secret == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}

	return &Caller{
		ID:     claims.Subject,
		Name:   name,
		Admin:  claims.Admin,
		Method: "token",
	}, nil
}
