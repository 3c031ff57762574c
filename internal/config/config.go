package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultPruneInterval = 10 * time.Minute

	// MaxMessageSize bounds max_message_size in bytes. An UPDATE notification
	// carries the row twice and pg_notify payloads must stay under 8000 bytes.
	MaxMessageSize = 3500
)

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	SecureCookies  bool

	CacheTTL         time.Duration
	CodeTTL          time.Duration
	CodeSendInterval time.Duration
	CodeSendBurst    int
	MaxMessageSize   int

	// BroadcastRetention keeps expired broadcasts this long before pruning.
	// Zero disables pruning.
	BroadcastRetention time.Duration
	PruneInterval      time.Duration
}

// File is the on-disk form of Config. Durations use Go duration syntax.
type File struct {
	Addr               string        `yaml:"addr"`
	DSN                string        `yaml:"dsn"`
	SigningKey         string        `yaml:"signing_key"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	SecureCookies      bool          `yaml:"secure_cookies"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	CodeTTL            time.Duration `yaml:"code_ttl"`
	CodeSendInterval   time.Duration `yaml:"code_send_interval"`
	CodeSendBurst      int           `yaml:"code_send_burst"`
	MaxMessageSize     int           `yaml:"max_message_size"`
	BroadcastRetention time.Duration `yaml:"broadcast_retention"`
	PruneInterval      time.Duration `yaml:"prune_interval"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty signing key")
	}
	return key, nil
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		CacheTTL:       DefaultCacheTTL,
		PruneInterval:  DefaultPruneInterval,
	}, nil
}

// LoadFile reads a YAML config file. A missing path yields an empty File.
func LoadFile(path string) (*File, error) {
	f := &File{}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return f, nil
}

// Config validates f and fills unset durations with defaults.
func (f *File) Config() (*Config, error) {
	cfg, err := NewConfig(f.Addr, f.DSN, f.SigningKey, f.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	if f.CacheTTL < 0 || f.CodeTTL < 0 || f.CodeSendInterval < 0 || f.BroadcastRetention < 0 || f.PruneInterval < 0 {
		return nil, fmt.Errorf("durations cannot be negative")
	}
	if f.CodeSendBurst < 0 || f.MaxMessageSize < 0 {
		return nil, fmt.Errorf("limits cannot be negative")
	}
	if f.MaxMessageSize > MaxMessageSize {
		return nil, fmt.Errorf("max_message_size cannot exceed %d bytes", MaxMessageSize)
	}

	cfg.SecureCookies = f.SecureCookies
	if f.CacheTTL > 0 {
		cfg.CacheTTL = f.CacheTTL
	}
	cfg.CodeTTL = f.CodeTTL
	cfg.CodeSendInterval = f.CodeSendInterval
	cfg.CodeSendBurst = f.CodeSendBurst
	cfg.MaxMessageSize = f.MaxMessageSize
	cfg.BroadcastRetention = f.BroadcastRetention
	if f.PruneInterval > 0 {
		cfg.PruneInterval = f.PruneInterval
	}

	return cfg, nil
}
