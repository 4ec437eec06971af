// Package gateway consumes chat events over a websocket and routes them
// into the proposal pipeline. Business logic never sees transport
// types; everything crossing the boundary is narrowed to the two event
// structs below.
package gateway

// MessageEvent is a newly posted chat message.
type MessageEvent struct {
	MessageID uint64
	ChannelID string
	AuthorID  string
	Content   string
}

// ReactionEvent is a reaction added to or removed from a message.
type ReactionEvent struct {
	MessageID uint64
	Emoji     string
	UserID    string
	Roles     []string
	Removed   bool
}
