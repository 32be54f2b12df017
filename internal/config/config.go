package config

import (
	"embed"
	"fmt"
	"os"

	"github.com/nbd-wtf/go-nostr/nip19"
	"gopkg.in/yaml.v3"
)

//go:embed example.yaml
var exampleConfig embed.FS

// Config represents the complete bullhorn configuration
type Config struct {
	Identity Identity `yaml:"identity"`
	Follows  Follows  `yaml:"follows"`
	Relays   Relays   `yaml:"relays"`
	Ntfy     Ntfy     `yaml:"ntfy"`
	Notify   Notify   `yaml:"notify"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
}

// Identity contains the monitored Nostr identity
type Identity struct {
	Npub string `yaml:"npub"`
}

// Follows contains identities whose live events should be announced
type Follows struct {
	Npubs []string `yaml:"npubs"`
}

// Relays contains relay configuration
type Relays struct {
	Seeds []string `yaml:"seeds"`
}

// Ntfy contains push delivery settings
type Ntfy struct {
	Endpoint  string `yaml:"endpoint"`
	Topic     string `yaml:"topic"`      // Fixed topic; empty means load-or-create from TopicFile
	TopicFile string `yaml:"topic_file"` // Where the generated topic is persisted
}

// Notify contains timing and capacity settings for the notification engine
type Notify struct {
	ZapDebounceSeconds      int `yaml:"zap_debounce_seconds"`
	ReminderLeadMinutes     int `yaml:"reminder_lead_minutes"`
	LiveEventLookbackHours  int `yaml:"live_event_lookback_hours"`
	NoteLookbackHours       int `yaml:"note_lookback_hours"`
	AcceptedChannelCapacity int `yaml:"accepted_channel_capacity"`
	ZapChannelCapacity      int `yaml:"zap_channel_capacity"`
}

// Storage contains local event store settings
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration fields with sensible defaults
func applyDefaults(cfg *Config) {
	defaults := Default()

	if len(cfg.Relays.Seeds) == 0 {
		cfg.Relays.Seeds = defaults.Relays.Seeds
	}
	if cfg.Ntfy.Endpoint == "" {
		cfg.Ntfy.Endpoint = defaults.Ntfy.Endpoint
	}
	if cfg.Ntfy.TopicFile == "" {
		cfg.Ntfy.TopicFile = defaults.Ntfy.TopicFile
	}
	if cfg.Notify.ZapDebounceSeconds == 0 {
		cfg.Notify.ZapDebounceSeconds = defaults.Notify.ZapDebounceSeconds
	}
	if cfg.Notify.ReminderLeadMinutes == 0 {
		cfg.Notify.ReminderLeadMinutes = defaults.Notify.ReminderLeadMinutes
	}
	if cfg.Notify.LiveEventLookbackHours == 0 {
		cfg.Notify.LiveEventLookbackHours = defaults.Notify.LiveEventLookbackHours
	}
	if cfg.Notify.NoteLookbackHours == 0 {
		cfg.Notify.NoteLookbackHours = defaults.Notify.NoteLookbackHours
	}
	if cfg.Notify.AcceptedChannelCapacity == 0 {
		cfg.Notify.AcceptedChannelCapacity = defaults.Notify.AcceptedChannelCapacity
	}
	if cfg.Notify.ZapChannelCapacity == 0 {
		cfg.Notify.ZapChannelCapacity = defaults.Notify.ZapChannelCapacity
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaults.Storage.SQLitePath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if topic := os.Getenv("BULLHORN_NTFY_TOPIC"); topic != "" {
		cfg.Ntfy.Topic = topic
	}
	if endpoint := os.Getenv("BULLHORN_NTFY_ENDPOINT"); endpoint != "" {
		cfg.Ntfy.Endpoint = endpoint
	}
}

// Validate checks the configuration for structural problems
func Validate(cfg *Config) error {
	if cfg.Identity.Npub == "" {
		return fmt.Errorf("identity.npub is required")
	}
	if _, err := DecodePubkey(cfg.Identity.Npub); err != nil {
		return fmt.Errorf("identity.npub: %w", err)
	}
	for i, npub := range cfg.Follows.Npubs {
		if _, err := DecodePubkey(npub); err != nil {
			return fmt.Errorf("follows.npubs[%d]: %w", i, err)
		}
	}
	if len(cfg.Relays.Seeds) == 0 {
		return fmt.Errorf("at least one seed relay is required")
	}
	if cfg.Notify.ZapDebounceSeconds < 0 {
		return fmt.Errorf("notify.zap_debounce_seconds must be positive")
	}
	if cfg.Notify.ReminderLeadMinutes < 0 {
		return fmt.Errorf("notify.reminder_lead_minutes must be positive")
	}
	return nil
}

// DecodePubkey decodes an npub into its hex public key
func DecodePubkey(npub string) (string, error) {
	prefix, value, err := nip19.Decode(npub)
	if err != nil {
		return "", fmt.Errorf("failed to decode npub: %w", err)
	}
	if prefix != "npub" {
		return "", fmt.Errorf("expected npub, got %s", prefix)
	}
	return value.(string), nil
}

// GetExampleConfig returns the embedded example configuration
func GetExampleConfig() ([]byte, error) {
	return exampleConfig.ReadFile("example.yaml")
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Relays: Relays{
			Seeds: []string{
				"wss://relay.damus.io",
				"wss://nostr.plebchain.org",
				"wss://bitcoiner.social",
				"wss://relay.snort.social",
				"wss://relayable.org",
				"wss://nos.lol",
				"wss://nostr.mom",
				"wss://e.nos.lol",
				"wss://nostr.bitcoiner.social",
			},
		},
		Ntfy: Ntfy{
			Endpoint:  "https://ntfy.sh",
			TopicFile: "./data/topic",
		},
		Notify: Notify{
			ZapDebounceSeconds:      120,
			ReminderLeadMinutes:     30,
			LiveEventLookbackHours:  24,
			NoteLookbackHours:       48,
			AcceptedChannelCapacity: 300,
			ZapChannelCapacity:      100,
		},
		Storage: Storage{
			SQLitePath: "./data/bullhorn.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}
