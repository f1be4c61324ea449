package main

import (
	"fmt"
	"strings"

	"hzrealtime/internal/app/session"
	"hzrealtime/internal/configs"
	"hzrealtime/internal/pkg/auth/jwt"
)

// resolveIdentity builds the session identity from the session token when one is set,
// falling back to SESSION_USER_ID. SESSION_DISPLAY_NAME overrides the name in the token.
func resolveIdentity(cfg *configs.AppConfig) (session.Identity, error) {
	var identity session.Identity

	if cfg.SessionToken != "" {
		id, err := jwt.ParseIdentity(cfg.SessionToken, cfg.JWTSecret)
		if err != nil {
			return session.Identity{}, fmt.Errorf("decode session token: %w", err)
		}
		identity = id
	} else {
		identity.UserID = cfg.SessionUserID
	}

	if name := strings.TrimSpace(cfg.SessionDisplayName); name != "" {
		identity.DisplayName = name
	}

	if !identity.Valid() {
		return session.Identity{}, fmt.Errorf("session identity has no user id")
	}
	return identity, nil
}
