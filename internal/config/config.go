// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig covers the HTTP and WebSocket listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxMessageBytes int64    `yaml:"max_message_bytes"`
	PingIntervalSec int      `yaml:"ping_interval_sec"`
	ShutdownSec     int      `yaml:"shutdown_sec"`
	MaxConnsPerIP   int      `yaml:"max_conns_per_ip"` // 0 disables the cap
	FramesPerSec    float64  `yaml:"frames_per_sec"`   // inbound frames per connection; 0 disables throttling
	FrameBurst      int      `yaml:"frame_burst"`
}

// GameConfig holds the defaults every room starts from.
type GameConfig struct {
	DefaultMode        string `yaml:"default_mode"`
	TurnTimeoutSec     int    `yaml:"turn_timeout_sec"`
	BotDelayMinMs      int    `yaml:"bot_delay_min_ms"`
	BotDelayMaxMs      int    `yaml:"bot_delay_max_ms"`
	GameEndPauseSec    int    `yaml:"game_end_pause_sec"`
	GameTarget         int    `yaml:"game_target"`
	EspadaObligatoria  bool   `yaml:"espada_obligatoria"`
	PenetroEnabled     bool   `yaml:"penetro_enabled"`
	RoomIdleTimeoutMin int    `yaml:"room_idle_timeout_min"`
}

// RedisConfig is optional; with neither URL nor Addr set, Redis features are off.
type RedisConfig struct {
	URL            string `yaml:"url"`
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	QueuePrefix    string `yaml:"queue_prefix"`
	HistorianQueue string `yaml:"historian_queue"`
}

// DatabaseConfig is optional; an empty URL disables persistence.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig configures resume tokens.
type AuthConfig struct {
	ResumeTokenTTL string `yaml:"resume_token_ttl"` // "never", "0" or a Go duration
	PrivateKeyFile string `yaml:"private_key_file"` // ed25519 keys; both empty means a fresh pair per process
	PublicKeyFile  string `yaml:"public_key_file"`
}

// LogConfig picks the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Addr is the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PingInterval is the WebSocket keep-alive period.
func (c *ServerConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSec) * time.Second
}

// TurnTimeout is how long a human has to act.
func (c *GameConfig) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutSec) * time.Second
}

// GameEndPause is the pause between games.
func (c *GameConfig) GameEndPause() time.Duration {
	return time.Duration(c.GameEndPauseSec) * time.Second
}

// RoomIdleTimeout is how long an unobserved room lives.
func (c *GameConfig) RoomIdleTimeout() time.Duration {
	return time.Duration(c.RoomIdleTimeoutMin) * time.Minute
}

// Enabled reports whether a Redis server was configured.
func (c *RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// ResumeTTL parses ResumeTokenTTL. Zero means tokens never expire.
func (c *AuthConfig) ResumeTTL() (time.Duration, error) {
	switch c.ResumeTokenTTL {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(c.ResumeTokenTTL)
	if err != nil {
		return 0, fmt.Errorf("resume_token_ttl: %w", err)
	}
	return d, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			MaxMessageBytes: 64 << 10,
			PingIntervalSec: 30,
			ShutdownSec:     10,
			MaxConnsPerIP:   100,
			FramesPerSec:    10,
			FrameBurst:      20,
		},
		Game: GameConfig{
			DefaultMode:        "quadrille",
			TurnTimeoutSec:     25,
			BotDelayMinMs:      600,
			BotDelayMaxMs:      1200,
			GameEndPauseSec:    3,
			GameTarget:         12,
			EspadaObligatoria:  true,
			PenetroEnabled:     true,
			RoomIdleTimeoutMin: 10,
		},
		Redis: RedisConfig{
			QueuePrefix:    "queue:",
			HistorianQueue: "tresillo_actions",
		},
		Auth: AuthConfig{ResumeTokenTTL: "24h"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := firstEnv("DATABASE_URL", "POSTGRES_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TURN_TIMEOUT"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TURN_TIMEOUT: %w", err)
		}
		c.Game.TurnTimeoutSec = sec
	}
	if v := os.Getenv("TOKEN_EXPIRE_TIME"); v != "" {
		c.Auth.ResumeTokenTTL = v
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnsPerIP < 0 || c.Server.FramesPerSec < 0 || c.Server.FrameBurst < 0 {
		return fmt.Errorf("server connection limits must not be negative")
	}
	if c.Game.DefaultMode != "tresillo" && c.Game.DefaultMode != "quadrille" {
		return fmt.Errorf("game.default_mode must be tresillo or quadrille, got %q", c.Game.DefaultMode)
	}
	if c.Game.GameTarget < 1 {
		return fmt.Errorf("game.game_target must be positive")
	}
	if c.Game.TurnTimeoutSec < 0 {
		return fmt.Errorf("game.turn_timeout_sec must not be negative")
	}
	if c.Game.BotDelayMaxMs < c.Game.BotDelayMinMs {
		return fmt.Errorf("game.bot_delay_max_ms must not be below bot_delay_min_ms")
	}
	if _, err := c.Auth.ResumeTTL(); err != nil {
		return err
	}
	return nil
}
