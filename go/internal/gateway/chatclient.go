package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hardwood-league/commish/go/internal/vote"
)

// RESTChat implements vote.ChatClient against the chat platform's HTTP
// API. The websocket carries events in; this carries actions out.
type RESTChat struct {
	baseURL   string
	token     string
	channelID string
	http      *http.Client
}

var _ vote.ChatClient = (*RESTChat)(nil)

// NewRESTChat creates a chat client posting into the given channel.
func NewRESTChat(baseURL, token, channelID string) *RESTChat {
	return &RESTChat{
		baseURL:   baseURL,
		token:     token,
		channelID: channelID,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type reactorPayload struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// ReactionUsers fetches the current holders of emoji on a message.
func (c *RESTChat) ReactionUsers(ctx context.Context, messageID uint64, emoji string) ([]vote.Reactor, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s",
		c.baseURL, c.channelID, formatID(messageID), url.PathEscape(emoji))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reactions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch reactions: status %d", resp.StatusCode)
	}

	var payload []reactorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode reactions: %w", err)
	}

	reactors := make([]vote.Reactor, len(payload))
	for i, p := range payload {
		reactors[i] = vote.Reactor{UserID: p.UserID, Roles: p.Roles}
	}
	return reactors, nil
}

// RemoveReaction strips a user's reaction from a message.
func (c *RESTChat) RemoveReaction(ctx context.Context, messageID uint64, emoji, userID string) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/%s",
		c.baseURL, c.channelID, formatID(messageID), url.PathEscape(emoji), url.PathEscape(userID))
	return c.do(ctx, http.MethodDelete, endpoint, nil)
}

// PostMessage posts text to the proposal channel.
func (c *RESTChat) PostMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, c.channelID)
	return c.do(ctx, http.MethodPost, endpoint, map[string]string{"content": text})
}

// React adds the bot's own reaction to a message.
func (c *RESTChat) React(ctx context.Context, messageID uint64, emoji string) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/@me",
		c.baseURL, c.channelID, formatID(messageID), url.PathEscape(emoji))
	return c.do(ctx, http.MethodPut, endpoint, nil)
}

// NotifyUser sends a direct message.
func (c *RESTChat) NotifyUser(ctx context.Context, userID, text string) error {
	endpoint := fmt.Sprintf("%s/users/%s/messages", c.baseURL, url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]string{"content": text})
}

func (c *RESTChat) do(ctx context.Context, method, endpoint string, body any) error {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat request failed: %s %s -> status %d", method, endpoint, resp.StatusCode)
	}
	return nil
}

func (c *RESTChat) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
