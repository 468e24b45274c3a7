// Package jwt issues and validates device access tokens.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service provides token generation and validation
type Service struct {
	secret   []byte
	tokenTTL time.Duration
}

// Claims are the claims carried by a device access token.
type Claims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// NewService creates a new JWT service
// secret should be a cryptographically secure random string
func NewService(secret string, tokenTTL time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// GenerateToken creates a signed access token for a device. It returns the
// token and its lifetime in seconds.
func (s *Service) GenerateToken(deviceID string) (string, int64, error) {
	now := time.Now()

	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int64(s.tokenTTL.Seconds()), nil
}

// ValidateToken parses and verifies an access token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.DeviceID == "" {
		return nil, fmt.Errorf("token has no device id")
	}

	return claims, nil
}
