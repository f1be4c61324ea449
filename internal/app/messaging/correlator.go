/*
Package messaging correlates optimistic sends with the backend's acknowledgements.

A send may carry a client-generated temp id. The backend echoes it in message_sent,
which lets the caller replace its optimistic copy with the persisted message id.
*/
package messaging

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/session"
	"hzrealtime/internal/pkg/errs"
)

// Link is the subset of the lifecycle manager the correlator needs.
type Link interface {
	Emit(event string, payload any) bool
	Identity() session.Identity
}

// Pending is an outgoing message awaiting acknowledgement.
type Pending struct {
	TempID         string                `json:"tempId"`
	ConversationID int64                 `json:"conversationId"`
	Content        string                `json:"content"`
	Attachments    []protocol.Attachment `json:"attachments,omitempty"`
	SentAt         time.Time             `json:"sentAt"`
}

// Correlator tracks sends by temp id. It has no timeout policy: callers that want one
// inspect Pending and call Forget.
type Correlator struct {
	link   Link
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]Pending
}

// NewCorrelator creates a Correlator bound to link.
func NewCorrelator(link Link, logger zerolog.Logger) *Correlator {
	return &Correlator{
		link:    link,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]Pending),
	}
}

// Send emits send_message and reports whether it was handed to the channel.
func (c *Correlator) Send(conversationID int64, content string, attachments []protocol.Attachment, tempID string) bool {
	return c.Submit(conversationID, content, attachments, tempID) == nil
}

// Submit emits send_message. The temp id is echoed back verbatim, so one with surrounding
// whitespace is refused with ErrTempIDInvalid, and one that is still outstanding with
// ErrDuplicateTempID; nothing is emitted in either case. A missing channel yields
// ErrNotConnected. Sends without a temp id are not tracked.
func (c *Correlator) Submit(conversationID int64, content string, attachments []protocol.Attachment, tempID string) *errs.CustomError {
	if tempID != strings.TrimSpace(tempID) {
		c.logger.Warn().Str("temp_id", tempID).Msg("Refusing send with a padded temp id")
		return errs.NewError(errs.ErrTempIDInvalid)
	}

	if tempID != "" {
		// reserve the temp id first so a concurrent duplicate is refused; Emit runs unlocked
		c.mu.Lock()
		if _, exists := c.pending[tempID]; exists {
			c.mu.Unlock()
			c.logger.Warn().Str("temp_id", tempID).Msg("Refusing send with an outstanding temp id")
			return errs.NewError(errs.ErrDuplicateTempID, tempID)
		}
		c.pending[tempID] = Pending{
			TempID:         tempID,
			ConversationID: conversationID,
			Content:        content,
			Attachments:    slices.Clone(attachments),
			SentAt:         c.now(),
		}
		c.mu.Unlock()
	}

	payload := protocol.SendMessage{
		ConversationID: conversationID,
		SenderID:       c.link.Identity().UserID,
		Content:        content,
		Attachments:    attachments,
		TempID:         tempID,
	}

	if !c.link.Emit(protocol.EventSendMessage, payload) {
		if tempID != "" {
			c.mu.Lock()
			delete(c.pending, tempID)
			c.mu.Unlock()
		}
		return errs.NewError(errs.ErrNotConnected)
	}
	return nil
}

// Ack consumes a message_sent acknowledgement. It returns the matching pending send, if any.
func (c *Correlator) Ack(evt protocol.MessageSent) (Pending, bool) {
	if evt.TempID == "" {
		return Pending{}, false
	}

	c.mu.Lock()
	p, ok := c.pending[evt.TempID]
	delete(c.pending, evt.TempID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug().Str("temp_id", evt.TempID).Msg("Acknowledgement for unknown temp id")
		return Pending{}, false
	}

	if !evt.Success {
		c.logger.Warn().Str("temp_id", evt.TempID).Int64("conversation_id", p.ConversationID).Msg("Send was not accepted")
	}
	return p, true
}

// MarkRead emits mark_read for conversationID.
func (c *Correlator) MarkRead(conversationID int64) bool {
	return c.link.Emit(protocol.EventMarkRead, protocol.MarkRead{
		ConversationID: conversationID,
		UserID:         c.link.Identity().UserID,
	})
}

// Pending returns the outstanding sends, oldest first.
func (c *Correlator) Pending() []Pending {
	c.mu.Lock()
	out := make([]Pending, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p)
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b Pending) int {
		if n := a.SentAt.Compare(b.SentAt); n != 0 {
			return n
		}
		return strings.Compare(a.TempID, b.TempID)
	})
	return out
}

// Forget drops an outstanding send without an acknowledgement.
func (c *Correlator) Forget(tempID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[tempID]; !ok {
		return false
	}
	delete(c.pending, tempID)
	return true
}

// Reset drops every outstanding send.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pending)
}
