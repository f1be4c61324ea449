package handler

import (
	"hzrealtime/internal/app/messaging"
	"hzrealtime/internal/app/presence"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/realtime"
	"hzrealtime/internal/configs"
	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/limiter"
)

// Controller is the part of the realtime manager driven by the control API.
type Controller interface {
	Status() realtime.Status
	Join(conversationID int64) bool
	Leave(conversationID int64) bool
	MarkRead(conversationID int64) bool
	StartTyping(conversationID int64) bool
	StopTyping(conversationID int64) bool
	SubmitMessage(conversationID int64, content string, attachments []protocol.Attachment, tempID string) *errs.CustomError
	Pending() []messaging.Pending
	Forget(tempID string) bool
}

type AppDeps struct {
	Controller Controller
	Config     *configs.AppConfig

	// OwnerID is the session user; control tokens must name the same user.
	OwnerID int64

	// Presence is optional; without it /api/presence answers with an empty list.
	Presence presence.Store

	// SendLimiter is optional and throttles message sends per client IP.
	SendLimiter *limiter.IPRateLimiter
}
