package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every runtime setting of the host. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	Port string `env:"FILEHOST_PORT" env-default:"6925"`

	// StorageDir holds one file per id, no extension, no sharding.
	StorageDir string `env:"FILEHOST_STORAGE_DIR" env-default:"./storage"`
	// UploadDir receives multipart bodies before they are handed to storage.
	UploadDir string `env:"FILEHOST_UPLOAD_DIR" env-default:"./uploads"`
	StaticDir string `env:"FILEHOST_STATIC_DIR" env-default:"./static"`

	MetaDB  string `env:"FILEHOST_META_DB" env-default:"./meta.db"`
	UsersDB string `env:"FILEHOST_USERS_DB" env-default:"./users.db"`

	MaxUploadSize int64 `env:"FILEHOST_MAX_UPLOAD_SIZE" env-default:"30000000"`
	MaxCache      int   `env:"FILEHOST_MAX_CACHE" env-default:"300"`

	// DefaultPrivs are granted when an admin creates a user without naming any.
	DefaultPrivs []string `env:"FILEHOST_DEFAULT_PRIVS" env-separator:"," env-default:"upload"`

	JWTSecret string `env:"FILEHOST_JWT_SECRET" env-default:"change-this-secret-in-production"`

	LogDir   string `env:"FILEHOST_LOG_DIR" env-default:"./logs"`
	LogLevel string `env:"FILEHOST_LOG_LEVEL" env-default:"info"`
}

// Load reads the configuration from ./.env when present, falling back to the
// plain process environment.
func Load() (*Config, error) {
	var cfg Config

	if _, err := os.Stat(".env"); err == nil {
		if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
			return nil, fmt.Errorf("read .env config: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
