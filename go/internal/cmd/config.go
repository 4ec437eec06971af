package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hardwood-league/commish/go/internal/gateway"
	"github.com/hardwood-league/commish/go/internal/league"
	"github.com/hardwood-league/commish/go/internal/ledger"
	"github.com/hardwood-league/commish/go/internal/outbox"
	"github.com/hardwood-league/commish/go/internal/vote"
)

// Config is the league configuration file. Secrets (chat token,
// database credentials) come from the environment, not from here.
type Config struct {
	League struct {
		Teams          []league.TeamEntry `yaml:"teams"`
		Nicknames      map[string]string  `yaml:"nicknames"`
		NearDuplicates map[string]string  `yaml:"near_duplicates"`
	} `yaml:"league"`

	Vote vote.Config    `yaml:"vote"`
	Caps ledger.CapRule `yaml:"caps"`

	Gateway struct {
		WebsocketURL string              `yaml:"websocket_url"`
		ChatBaseURL  string              `yaml:"chat_base_url"`
		ChannelID    string              `yaml:"channel_id"`
		Emoji        gateway.EmojiConfig `yaml:"emoji"`
	} `yaml:"gateway"`

	Sweep struct {
		Interval         time.Duration `yaml:"interval"`
		ReminderInterval time.Duration `yaml:"reminder_interval"`
	} `yaml:"sweep"`

	Outbox struct {
		Worker        outbox.Config         `yaml:"worker"`
		Listener      outbox.ListenerConfig `yaml:"listener"`
		SubjectPrefix string                `yaml:"subject_prefix"`
	} `yaml:"outbox"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	config.Outbox.Worker = outbox.DefaultConfig()
	config.Outbox.Listener = outbox.DefaultListenerConfig("")
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.Vote.Defaults()
	config.Gateway.Emoji.Defaults()
	if config.Sweep.Interval == 0 {
		config.Sweep.Interval = time.Hour
	}
	if config.Sweep.ReminderInterval == 0 {
		config.Sweep.ReminderInterval = 24 * time.Hour
	}
	return &config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
