package main

import (
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzrealtime/internal/configs"
	"hzrealtime/internal/pkg/auth/jwt"
)

func sessionToken(t *testing.T, id int64, name string) string {
	t.Helper()
	p := &jwt.Payload{
		StandardClaims: jwtgo.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
		ID:             id,
		Name:           name,
	}
	s, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, p).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestResolveIdentityFromToken(t *testing.T) {
	identity, err := resolveIdentity(&configs.AppConfig{SessionToken: sessionToken(t, 7, "Mia"), JWTSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.UserID)
	assert.Equal(t, "Mia", identity.DisplayName)
}

func TestResolveIdentityDisplayNameOverride(t *testing.T) {
	identity, err := resolveIdentity(&configs.AppConfig{SessionToken: sessionToken(t, 7, "Mia"), SessionDisplayName: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, "Ana", identity.DisplayName)
}

func TestResolveIdentityFromUserID(t *testing.T) {
	identity, err := resolveIdentity(&configs.AppConfig{SessionUserID: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), identity.UserID)
}

func TestResolveIdentityErrors(t *testing.T) {
	_, err := resolveIdentity(&configs.AppConfig{SessionToken: "not-a-jwt"})
	assert.Error(t, err)

	_, err = resolveIdentity(&configs.AppConfig{SessionToken: sessionToken(t, 7, ""), JWTSecret: "wrong"})
	assert.Error(t, err)

	_, err = resolveIdentity(&configs.AppConfig{})
	assert.Error(t, err)
}
