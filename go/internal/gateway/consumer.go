package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ConsumerConfig holds the websocket consumer settings.
type ConsumerConfig struct {
	URL            string        `yaml:"url"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

// DefaultConsumerConfig returns the standard consumer settings.
func DefaultConsumerConfig(url string) ConsumerConfig {
	return ConsumerConfig{
		URL:            url,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		ReconnectDelay: 5 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Consumer reads chat gateway frames over a websocket and feeds the
// dispatcher. It reconnects forever until the context is cancelled.
type Consumer struct {
	dispatcher *Dispatcher
	clock      clockwork.Clock
	config     ConsumerConfig
}

// NewConsumer creates a gateway consumer.
func NewConsumer(dispatcher *Dispatcher, clock clockwork.Clock, config ConsumerConfig) *Consumer {
	return &Consumer{
		dispatcher: dispatcher,
		clock:      clock,
		config:     config,
	}
}

// Wire frames. Snowflake ids travel as strings to survive JSON number
// precision limits.

type wireFrame struct {
	Type     string        `json:"type"`
	Message  *wireMessage  `json:"message,omitempty"`
	Reaction *wireReaction `json:"reaction,omitempty"`
}

type wireMessage struct {
	ID        uint64 `json:"id,string"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
}

type wireReaction struct {
	MessageID uint64   `json:"message_id,string"`
	Emoji     string   `json:"emoji"`
	UserID    string   `json:"user_id"`
	Roles     []string `json:"roles"`
}

const (
	frameMessageCreate  = "message_create"
	frameReactionAdd    = "reaction_add"
	frameReactionRemove = "reaction_remove"
)

// Run blocks until ctx is cancelled, reconnecting on any read failure.
func (c *Consumer) Run(ctx context.Context) {
	log.Info().Str("url", c.config.URL).Msg("starting gateway consumer")

	for {
		if err := c.connectAndRead(ctx); err != nil {
			log.Error().Err(err).Msg("gateway connection lost")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("gateway consumer stopped")
			return
		case <-c.clock.After(c.config.ReconnectDelay):
		}
	}
}

func (c *Consumer) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("url", c.config.URL).Msg("gateway connected")

	conn.SetReadLimit(c.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("unexpected gateway close")
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		c.handleFrame(ctx, payload)
	}
}

func (c *Consumer) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Msg("failed to ping gateway")
				return
			}
		}
	}
}

// handleFrame decodes one wire frame and routes it. Malformed frames
// and handler errors are logged, never fatal to the connection.
func (c *Consumer) handleFrame(ctx context.Context, payload []byte) {
	var frame wireFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Warn().Err(err).Msg("failed to decode gateway frame")
		return
	}

	switch frame.Type {
	case frameMessageCreate:
		if frame.Message == nil {
			return
		}
		ev := MessageEvent{
			MessageID: frame.Message.ID,
			ChannelID: frame.Message.ChannelID,
			AuthorID:  frame.Message.AuthorID,
			Content:   frame.Message.Content,
		}
		if err := c.dispatcher.HandleMessage(ctx, ev); err != nil {
			log.Error().Err(err).Uint64("message_id", ev.MessageID).Msg("message handler failed")
		}

	case frameReactionAdd, frameReactionRemove:
		if frame.Reaction == nil {
			return
		}
		ev := ReactionEvent{
			MessageID: frame.Reaction.MessageID,
			Emoji:     frame.Reaction.Emoji,
			UserID:    frame.Reaction.UserID,
			Roles:     frame.Reaction.Roles,
			Removed:   frame.Type == frameReactionRemove,
		}
		if err := c.dispatcher.HandleReaction(ctx, ev); err != nil {
			log.Error().Err(err).Uint64("message_id", ev.MessageID).Msg("reaction handler failed")
		}

	default:
		log.Debug().Str("type", frame.Type).Msg("ignoring gateway frame")
	}
}
