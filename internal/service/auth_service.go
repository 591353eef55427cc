package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exampro-backend/internal/model"
)

// ErrTokenExpired is returned for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// Claims extends JWT standard claims with the caller's identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64      `json:"userId"`
	Role   model.Role `json:"role"`
}

// Actor returns the caller identity carried by the claims.
func (c *Claims) Actor() model.Actor {
	return model.Actor{UserID: c.UserID, Role: c.Role}
}

// AuthService validates bearer tokens. Issuing is only used by tooling;
// production tokens come from the external auth service sharing the secret.
type AuthService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// IssueToken signs an HS256 token for the given identity.
func (s *AuthService) IssueToken(userID int64, role model.Role) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token carries no user id")
	}
	return claims, nil
}
