package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt"

	"hzrealtime/internal/app/session"
)

// ParseToken parses the session token. When secretKey is empty the signature is not
// verified (the backend verifies it during the websocket handshake) but the standard
// claims are still validated.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	if secretKey == "" {
		if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
			return nil, err
		}
		if err := claims.Valid(); err != nil {
			return nil, err
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}

// ParseIdentity decodes the session identity carried by a session token.
func ParseIdentity(tokenString string, secretKey string) (session.Identity, error) {
	payload, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return session.Identity{}, fmt.Errorf("parse session token: %w", err)
	}

	identity := session.Identity{UserID: payload.ID, DisplayName: payload.Name}
	if !identity.Valid() {
		return session.Identity{}, fmt.Errorf("session token carries no user id")
	}

	return identity, nil
}
