package messaging

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/session"
	"hzrealtime/internal/pkg/errs"
)

type emitted struct {
	event   string
	payload any
}

type fakeLink struct {
	connected bool
	sent      []emitted
}

func (l *fakeLink) Emit(event string, payload any) bool {
	if !l.connected {
		return false
	}
	l.sent = append(l.sent, emitted{event, payload})
	return true
}

func (l *fakeLink) Identity() session.Identity { return session.Identity{UserID: 7} }

func newTestCorrelator(connected bool) (*Correlator, *fakeLink) {
	link := &fakeLink{connected: connected}
	c := NewCorrelator(link, zerolog.Nop())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return c, link
}

func TestSendEmitsAndTracks(t *testing.T) {
	c, link := newTestCorrelator(true)

	assert.True(t, c.Send(42, "hello", nil, "a1"))

	require.Len(t, link.sent, 1)
	assert.Equal(t, protocol.EventSendMessage, link.sent[0].event)
	assert.Equal(t, protocol.SendMessage{ConversationID: 42, SenderID: 7, Content: "hello", TempID: "a1"}, link.sent[0].payload)

	pending := c.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "a1", pending[0].TempID)
	assert.Equal(t, int64(42), pending[0].ConversationID)
}

func TestAckEchoesTempID(t *testing.T) {
	c, _ := newTestCorrelator(true)
	c.Send(42, "hello", nil, "a1")

	p, ok := c.Ack(protocol.MessageSent{Success: true, MessageID: 1001, TempID: "a1"})

	require.True(t, ok)
	assert.Equal(t, "a1", p.TempID)
	assert.Empty(t, c.Pending())

	_, ok = c.Ack(protocol.MessageSent{Success: true, MessageID: 1001, TempID: "a1"})
	assert.False(t, ok)
}

func TestDuplicateOutstandingTempIDIsRefused(t *testing.T) {
	c, link := newTestCorrelator(true)
	require.Nil(t, c.Submit(42, "first", nil, "a1"))

	err := c.Submit(42, "second", nil, "a1")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrDuplicateTempID, err.Code)
	assert.Len(t, link.sent, 1)
	assert.False(t, c.Send(42, "third", nil, "a1"))

	c.Ack(protocol.MessageSent{Success: true, MessageID: 1, TempID: "a1"})
	assert.True(t, c.Send(42, "again", nil, "a1"))
}

func TestPaddedTempIDIsRefused(t *testing.T) {
	c, link := newTestCorrelator(true)

	for _, id := range []string{" a1 ", "a1\n", "  "} {
		err := c.Submit(42, "hello", nil, id)
		require.NotNil(t, err, "%q", id)
		assert.Equal(t, errs.ErrTempIDInvalid, err.Code)
	}
	assert.Empty(t, link.sent)
	assert.Empty(t, c.Pending())

	require.Nil(t, c.Submit(42, "hello", nil, "a 1"))
	p, ok := c.Ack(protocol.MessageSent{Success: true, MessageID: 9, TempID: "a 1"})
	require.True(t, ok)
	assert.Equal(t, "a 1", p.TempID)
}

func TestSendWithoutTempIDIsNotTracked(t *testing.T) {
	c, link := newTestCorrelator(true)

	assert.True(t, c.Send(42, "x", nil, ""))

	assert.Len(t, link.sent, 1)
	assert.Empty(t, c.Pending())
	_, ok := c.Ack(protocol.MessageSent{Success: true, MessageID: 5})
	assert.False(t, ok)
}

func TestSendWithoutChannel(t *testing.T) {
	c, _ := newTestCorrelator(false)

	err := c.Submit(42, "x", nil, "a1")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrNotConnected, err.Code)
	assert.Empty(t, c.Pending())
	assert.False(t, c.MarkRead(42))
}

func TestPendingOrderForgetAndReset(t *testing.T) {
	c, _ := newTestCorrelator(true)
	c.Send(1, "a", nil, "b2")
	c.Send(1, "b", nil, "a1")

	pending := c.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "b2", pending[0].TempID)
	assert.Equal(t, "a1", pending[1].TempID)

	assert.True(t, c.Forget("b2"))
	assert.False(t, c.Forget("b2"))
	assert.Len(t, c.Pending(), 1)

	c.Reset()
	assert.Empty(t, c.Pending())
}

func TestMarkRead(t *testing.T) {
	c, link := newTestCorrelator(true)

	assert.True(t, c.MarkRead(42))
	assert.Equal(t, emitted{protocol.EventMarkRead, protocol.MarkRead{ConversationID: 42, UserID: 7}}, link.sent[0])
}

func TestAttachmentsAreCopied(t *testing.T) {
	c, _ := newTestCorrelator(true)
	atts := []protocol.Attachment{{Key: "k1", Name: "a.png", MimeType: "image/png", Size: 10}}

	c.Send(1, "", atts, "a1")
	atts[0].Key = "changed"

	assert.Equal(t, "k1", c.Pending()[0].Attachments[0].Key)
}
