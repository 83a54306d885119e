package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Archive backends
const (
	ArchiveNone  = "none"
	ArchiveFile  = "file"
	ArchiveRedis = "redis"
)

// Config holds every server setting. Defaults live in the env tags.
type Config struct {
	Host       string        `env:"HOST,default=0.0.0.0"`
	Port       int           `env:"PORT,default=3001"`
	TTL        time.Duration `env:"GAMEID_TTL,default=12m"`
	Archive    string        `env:"GAMEID_ARCHIVE,default=none"`
	ArchiveDir string        `env:"GAMEID_ARCHIVE_DIR,default=archive"`
	LogFormat  string        `env:"LOG_FORMAT,default=text"`
	Debug      bool          `env:"DEBUG,default=false"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED,default=false"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Support both naming conventions for the ngrok token
	if cfg.NgrokAuthToken == "" {
		cfg.NgrokAuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	return &cfg, nil
}

// RegisterFlags binds command-line flags whose defaults are the values
// already loaded from the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.Host, "host", c.Host, "HTTP server host")
	fs.DurationVar(&c.TTL, "ttl", c.TTL, "Lifetime of a game ID after creation")
	fs.StringVar(&c.Archive, "archive", c.Archive, "Log archive backend: none, file or redis")
	fs.StringVar(&c.ArchiveDir, "archive-dir", c.ArchiveDir, "Directory for the file log archive")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log output format: text or json")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.BoolVar(&c.NgrokEnabled, "ngrok", c.NgrokEnabled, "Enable ngrok tunnel")
	fs.StringVar(&c.NgrokAuthToken, "ngrok-auth", c.NgrokAuthToken, "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	fs.StringVar(&c.NgrokDomain, "ngrok-domain", c.NgrokDomain, "Custom ngrok domain (optional)")
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	}

	switch c.Archive {
	case ArchiveNone, ArchiveRedis:
	case ArchiveFile:
		if c.ArchiveDir == "" {
			return fmt.Errorf("%w: file archive requires an archive directory", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown archive backend %q", ErrInvalidConfig, c.Archive)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
