package config

import (
	"fmt"
	"regexp"
)

// Config represents the main stickerlot configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Keepalive HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Chat bridge connection
	Bridge BridgeConfig `json:"bridge" mapstructure:"bridge"`

	// Sticker metadata and conversion
	Sticker StickerConfig `json:"sticker" mapstructure:"sticker"`

	// Lot session timing
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds keepalive HTTP server configuration
type ServerConfig struct {
	Port int    `json:"port" mapstructure:"port"`
	Host string `json:"host" mapstructure:"host"`
}

// BridgeConfig holds the chat bridge websocket configuration
type BridgeConfig struct {
	URL string `json:"url" mapstructure:"url"`
	// GroupFilter restricts the sticker flows to group conversations
	// whose name matches this pattern. Empty disables the filter.
	GroupFilter string `json:"group_filter" mapstructure:"group_filter"`
}

// StickerConfig holds sticker pack metadata
type StickerConfig struct {
	Pack   string `json:"pack" mapstructure:"pack"`
	Author string `json:"author" mapstructure:"author"`
}

// SessionConfig holds lot session timer configuration
type SessionConfig struct {
	NotifyAfterMs int `json:"notify_after_ms" mapstructure:"notify_after_ms"`
	FlushAfterMs  int `json:"flush_after_ms" mapstructure:"flush_after_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Bridge: BridgeConfig{
			URL: "ws://127.0.0.1:8055/ws",
		},
		Sticker: StickerConfig{
			Pack:   "stickerlot",
			Author: "stickerlot bot",
		},
		Session: SessionConfig{
			NotifyAfterMs: 15000,
			FlushAfterMs:  25000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Bridge.URL == "" {
		return fmt.Errorf("bridge url is required")
	}
	if c.Bridge.GroupFilter != "" {
		if _, err := regexp.Compile(c.Bridge.GroupFilter); err != nil {
			return fmt.Errorf("invalid group filter pattern: %w", err)
		}
	}
	if c.Session.NotifyAfterMs <= 0 {
		return fmt.Errorf("notify_after_ms must be positive, got %d", c.Session.NotifyAfterMs)
	}
	if c.Session.FlushAfterMs <= c.Session.NotifyAfterMs {
		return fmt.Errorf("flush_after_ms (%d) must be greater than notify_after_ms (%d)",
			c.Session.FlushAfterMs, c.Session.NotifyAfterMs)
	}
	return nil
}
