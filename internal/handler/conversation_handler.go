/*
Package handler provides HTTP handler functions that drive conversation membership,
typing signals and read receipts through the realtime manager.
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/req"
	"hzrealtime/internal/pkg/resp"
)

type TypingInput struct {
	Typing bool `json:"typing"`
}

// conversationID parses the {id} URL parameter.
func conversationID(r *http.Request) (int64, *errs.CustomError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewError(errs.ErrConversationInvalid)
	}
	return id, nil
}

// signal wraps a fire-and-forget manager call taking a conversation id.
func signal(op func(int64) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, customErr := conversationID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !op(id) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotConnected))
			return
		}

		resp.RespondAccepted(w, r, map[string]any{
			"conversationId": id,
		})
	}
}

// HandleJoin joins a conversation room.
func HandleJoin(deps *AppDeps) http.HandlerFunc {
	return signal(deps.Controller.Join)
}

// HandleLeave leaves a conversation room.
func HandleLeave(deps *AppDeps) http.HandlerFunc {
	return signal(deps.Controller.Leave)
}

// HandleMarkRead marks a conversation as read.
func HandleMarkRead(deps *AppDeps) http.HandlerFunc {
	return signal(deps.Controller.MarkRead)
}

// HandleTyping starts or stops the typing signal for a conversation.
func HandleTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, customErr := conversationID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input TypingInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		op := deps.Controller.StopTyping
		if input.Typing {
			op = deps.Controller.StartTyping
		}

		if !op(id) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotConnected))
			return
		}

		resp.RespondAccepted(w, r, map[string]any{
			"conversationId": id,
			"typing":         input.Typing,
		})
	}
}
