// Package auth consumes already-issued session tokens and turns them into a
// verified identity. Token issuance lives outside this server; only
// verification happens here.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Role is the access role carried by a session token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string from a token claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAgent, RoleAdmin:
		return Role(s), nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// Identity is a verified (user, role) pair.
type Identity struct {
	UserID int32
	Role   Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 session token. Primarily used by tests and the
// development login helper; production deployments verify tokens issued by
// the identity provider with the shared secret.
func SignToken(secret string, identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(identity.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// VerifyToken parses and verifies a session token.
func VerifyToken(secret, tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 32)
	if err != nil {
		return Identity{}, errors.Wrap(err, "invalid subject claim")
	}
	role, err := ParseRole(c.Role)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: int32(userID), Role: role}, nil
}
