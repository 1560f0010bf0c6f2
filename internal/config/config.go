package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds the full bot configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Nick     string        `yaml:"nick"`
	Ident    string        `yaml:"ident"`
	Realname string        `yaml:"realname"`
	Channels []string      `yaml:"channels"`
	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	UserFile string        `yaml:"user_file"`
	Commands CommandConfig `yaml:"commands"`
	AutoOp   AutoOpConfig  `yaml:"auto_op"`
	DCC      DCCConfig     `yaml:"dcc"`
	Console  ConsoleConfig `yaml:"console"`
	Links    LinksConfig   `yaml:"links"`
	Game     GameConfig    `yaml:"game"`
}

type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	SSL               bool   `yaml:"ssl"`
	Vhost             string `yaml:"vhost"`
	ReconnectRetries  int    `yaml:"reconnect_retries"`
	ReconnectInterval int    `yaml:"reconnect_interval"`
}

type CommandConfig struct {
	// Prefix is compared byte for byte at the start of each message.
	Prefix string `yaml:"prefix"`
	// Disabled lists command names that resolve but are silently dropped.
	Disabled []string `yaml:"disabled"`
}

type AutoOpConfig struct {
	Enabled bool `yaml:"enabled"`
	// DelaySeconds is the debounce window between the first qualifying
	// join and the batched mode change.
	DelaySeconds int `yaml:"delay_seconds"`
}

type DCCConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ConsoleConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	HostKey    string `yaml:"host_key"`
}

type LinksConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type GameConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Words          []string `yaml:"words"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and parses a YAML configuration file and applies defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 6667
	}
	if cfg.Server.ReconnectRetries == 0 {
		cfg.Server.ReconnectRetries = 10
	}
	if cfg.Server.ReconnectInterval == 0 {
		cfg.Server.ReconnectInterval = 30
	}
	if cfg.Ident == "" {
		cfg.Ident = cfg.Nick
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nick
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "opal.log"
	}
	if cfg.UserFile == "" {
		cfg.UserFile = "data/users.json"
	}
	if cfg.Commands.Prefix == "" {
		cfg.Commands.Prefix = "."
	}
	if cfg.AutoOp.DelaySeconds == 0 {
		cfg.AutoOp.DelaySeconds = 10
	}
	if cfg.Console.ListenAddr == "" {
		cfg.Console.ListenAddr = ":2222"
	}
	if cfg.Links.TimeoutSeconds == 0 {
		cfg.Links.TimeoutSeconds = 10
	}
	if cfg.Game.TimeoutSeconds == 0 {
		cfg.Game.TimeoutSeconds = 120
	}
}

// ServerAddress returns the host:port pair to dial.
func (cfg *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}

const defaultConfig = `# opal configuration
server:
  host: irc.libera.chat
  port: 6667
  ssl: false
  reconnect_retries: 10
  reconnect_interval: 30

nick: opal
ident: opal
realname: opal channel bot

channels:
  - "#opal"

log_level: info
log_file: opal.log
user_file: data/users.json

commands:
  prefix: "."
  disabled: []

auto_op:
  enabled: true
  delay_seconds: 10

dcc:
  enabled: true

console:
  enabled: false
  listen_addr: ":2222"
  host_key: ""

links:
  enabled: true
  timeout_seconds: 10

game:
  enabled: true
  timeout_seconds: 120
  words: []
`

// CheckAndCreateConfigFiles writes a commented default config on first run
// so the process can be pointed at a fresh directory and edited from there.
func CheckAndCreateConfigFiles(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
