// Package secretary provides methods for issuing and validating access tokens.
package secretary

import (
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/golang-jwt/jwt"
)

// Secretary defines object structure and its attributes.
type Secretary struct {
	key []byte
	ttl time.Duration
}

// NewSecretaryService initializes a secretary service with token signing functionality.
func NewSecretaryService(c *config.SecretConfig) (*Secretary, error) {
	if c.SecretKey == "" {
		return nil, errors.New("empty secret key")
	}
	ttl := c.TokenTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Secretary{
		key: []byte(c.SecretKey),
		ttl: ttl,
	}, nil
}

// ValidateToken checks the token signature and expiry and returns its claims.
func (s *Secretary) ValidateToken(accessToken string) (*modelclaims.MyCustomClaims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &modelclaims.MyCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*modelclaims.MyCustomClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, errors.New("invalid access token")
}

// NewToken signs an access token for a user.
func (s *Secretary) NewToken(userID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &modelclaims.MyCustomClaims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(s.ttl).Unix(),
		},
	})
	return token.SignedString(s.key)
}
