package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds the connection settings read from DATABASE_* variables
type DatabaseConfig struct {
	Driver         string        `koanf:"driver"          validate:"oneof=mysql postgres sqlite"`
	Host           string        `koanf:"host"            validate:"required_unless=Driver sqlite"`
	Port           int           `koanf:"port"            validate:"min=0,max=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"            validate:"required"`
	Charset        string        `koanf:"charset"`
	SSLMode        string        `koanf:"sslmode"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port        int    `koanf:"port"         validate:"min=1,max=65535"`
	Bind        string `koanf:"bind"         validate:"omitempty,ip"`
	AllowSubnet string `koanf:"allow_subnet" validate:"omitempty,cidr"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds the log level and the optional rotating log file
type LogConfig struct {
	Level      string `koanf:"level"        validate:"oneof=info debug trace"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"  validate:"min=1"`
	MaxBackups int    `koanf:"max_backups"  validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
	Compress   bool   `koanf:"compress"`
}

// envSections are the variable prefixes mapped into the config tree.
// DATABASE_HOST becomes database.host, SERVER_READ_TIMEOUT becomes server.read_timeout.
var envSections = []string{"database", "server", "log"}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "mysql",
			Host:           "localhost",
			User:           "root",
			Name:           "app",
			Charset:        "utf8mb4",
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
		},
		Server: defaultServerConfig(),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file and the environment.
// A missing envFile is not an error; variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// transformEnvKey maps SECTION_FIELD_NAME to section.field_name.
// Variables outside the known sections are dropped.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(key)
	section, field, ok := strings.Cut(key, "_")
	if !ok || field == "" {
		return "", nil
	}
	for _, s := range envSections {
		if s == section {
			return section + "." + field, value
		}
	}
	return "", nil
}
