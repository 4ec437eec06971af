package vote

import "context"

// Reactor is one user currently holding a reaction on a message.
type Reactor struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the reactor holds the given role id.
func (r Reactor) HasRole(roleID string) bool {
	for _, id := range r.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// ChatClient is the outbound chat surface the adjudicator needs. The
// gateway provides the real implementation; tests use a fake.
type ChatClient interface {
	// ReactionUsers returns the current holders of emoji on a message.
	// Tallies are recomputed from this snapshot, never from event history.
	ReactionUsers(ctx context.Context, messageID uint64, emoji string) ([]Reactor, error)
	RemoveReaction(ctx context.Context, messageID uint64, emoji, userID string) error
	PostMessage(ctx context.Context, text string) error
	React(ctx context.Context, messageID uint64, emoji string) error
	NotifyUser(ctx context.Context, userID, text string) error
}
