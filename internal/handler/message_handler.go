/*
Package handler provides HTTP handler functions for optimistic message sends and the
bookkeeping of sends that are still awaiting acknowledgement.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/logx"
	"hzrealtime/internal/pkg/randx"
	"hzrealtime/internal/pkg/req"
	"hzrealtime/internal/pkg/resp"
)

type SendMessageInput struct {
	Content     string                `json:"content"`
	Attachments []protocol.Attachment `json:"attachments,omitempty"`
	// TempID is optional; one is generated when omitted.
	TempID string `json:"tempId,omitempty"`
}

// HandleSendMessage queues a message. The response carries the temp id the
// acknowledgement will echo.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, customErr := conversationID(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := protocol.ValidateOutgoing(input.Content, input.Attachments); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		tempID := input.TempID
		if tempID == "" {
			tempID = randx.TempID()
		}

		if customErr := deps.Controller.SubmitMessage(id, input.Content, input.Attachments, tempID); customErr != nil {
			logx.Warn("Message send refused", "conversation_id", id, "temp_id", tempID, "code", customErr.Code)
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondAccepted(w, r, map[string]any{
			"tempId": tempID,
		})
	}
}

// HandleListPending lists sends awaiting acknowledgement, oldest first.
func HandleListPending(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"pending": deps.Controller.Pending(),
		})
	}
}

// HandleForgetPending drops a send the caller has given up on.
func HandleForgetPending(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tempID := chi.URLParam(r, "tempId")

		if !deps.Controller.Forget(tempID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPendingNotFound, tempID))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"tempId": tempID,
		})
	}
}
