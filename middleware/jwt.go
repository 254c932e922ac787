package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kasuganosora/tabletrade/model"
)

// Claims is the participant token payload issued by the host.
type Claims struct {
	ParticipantID string     `json:"pid"`
	Name          string     `json:"name"`
	Role          model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Participant returns the identity carried by the claims.
func (c *Claims) Participant() model.Participant {
	role := c.Role
	if role != model.RoleGM {
		role = model.RolePlayer
	}
	return model.Participant{ID: c.ParticipantID, Name: c.Name, Role: role}
}

// GenerateToken signs a token for p with the given secret and TTL.
func GenerateToken(p model.Participant, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ParticipantID: p.ID,
		Name:          p.Name,
		Role:          p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ParticipantID == "" {
		return nil, errors.New("token has no participant")
	}
	return claims, nil
}
