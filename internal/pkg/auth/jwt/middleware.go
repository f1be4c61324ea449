package jwt

import (
	"net/http"
	"strings"

	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/logx"
	"hzrealtime/internal/pkg/resp"
)

// RequireSessionOwner guards the control API: the request must carry a bearer token
// whose claims name the same user as the running session. When secretKey is empty the
// guard is disabled (development mode).
func RequireSessionOwner(secretKey string, ownerID int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secretKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				resp.RespondError(w, r, errs.NewError(errs.ErrSessionTokenInvalid))
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Invalid or expired control token", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrSessionTokenInvalid))
				return
			}

			if payload.ID != ownerID {
				logx.Warn("Control token belongs to another user", "token_user_id", payload.ID)
				resp.RespondError(w, r, errs.NewError(errs.ErrSessionTokenInvalid))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
