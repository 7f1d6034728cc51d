package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateSigner issues and checks the OAuth "state" parameter. The token is
// also stored in a short lived cookie, so a callback is only accepted by the
// browser that started the flow.
type StateSigner struct {
	secret   []byte
	duration time.Duration
}

type stateClaims struct {
	jwt.RegisteredClaims
}

const stateIssuer = "ai-assistant/oauth-state"

func NewStateSigner(secret string, duration time.Duration) *StateSigner {
	if duration <= 0 {
		duration = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), duration: duration}
}

func (s *StateSigner) Duration() time.Duration { return s.duration }

func (s *StateSigner) Issue() (string, error) {
	now := time.Now()
	claims := stateClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry of state and that it equals the value
// remembered in the browser cookie.
func (s *StateSigner) Verify(state, cookie string) error {
	if state == "" || state != cookie {
		return errors.New("oauth state mismatch")
	}
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid oauth state")
	}
	return nil
}
