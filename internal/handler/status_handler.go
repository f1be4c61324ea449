package handler

import (
	"net/http"

	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/logx"
	"hzrealtime/internal/pkg/resp"
)

// HandleStatus reports the connection state, memberships, pending sends and typing users.
func HandleStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Controller.Status())
	}
}

// HandleListPresence lists the users currently online according to the presence mirror.
func HandleListPresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online := []int64{}

		if deps.Presence != nil {
			members, err := deps.Presence.Members(r.Context())
			if err != nil {
				logx.Error(err, "Failed to read presence store")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			online = members
		}

		resp.RespondSuccess(w, r, map[string]any{
			"online": online,
		})
	}
}
