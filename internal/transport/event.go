// Package transport binds the moderation pipeline to its messaging system.
// It defines the inbound event shape, a NATS-backed implementation of the
// send/receive contract, an in-memory index of recently seen channel
// messages used to resolve report targets, and a WebSocket ingest listener
// for feeding events directly during development.
package transport

import "fmt"

// InboundEvent is one message observed by the bot: a channel message, a
// moderation-channel message, or a direct message to the bot.
type InboundEvent struct {
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	CommunityID string `json:"community_id,omitempty"`
	ChannelID   string `json:"channel_id"`
	MessageID   string `json:"message_id"`
	Text        string `json:"text"`
	DM          bool   `json:"dm"`
}

// OutboundMessage is the payload published for an outbound send.
type OutboundMessage struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// Sender delivers outbound text to a channel.
type Sender interface {
	Send(channelID, text string) error
}

// Error wraps a transport collaborator failure with the operation that
// produced it. The underlying cause is preserved verbatim.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
