package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"assistant-inbox/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	envBackendURL   = "ASSISTANT_BACKEND_URL"
	envIMAPServer   = "ASSISTANT_IMAP_SERVER"
	envIMAPLogin    = "ASSISTANT_IMAP_LOGIN"
	envIMAPPassword = "ASSISTANT_IMAP_PASSWORD"
	envLogLevel     = "ASSISTANT_LOG_LEVEL"
)

const (
	DefaultBackendURL  = "http://localhost:8000"
	DefaultTimeout     = 15 * time.Second
	DefaultRefreshTime = time.Minute
	DefaultDays        = 30
	DefaultLimit       = 100
	DefaultSort        = "newest"
	DefaultMailbox     = "INBOX"
)

// Load reads the configuration from the specified YAML file and returns a Config struct.
// Values from a local .env file or the environment override the file.
func Load(filepath string) (*models.Config, error) {
	configFile, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	config := Defaults()
	if err := yaml.Unmarshal(configFile, &config); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnv(&config)
	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Defaults returns the configuration used for keys missing from the file
func Defaults() models.Config {
	return models.Config{
		Source:      models.SourceBackend,
		RefreshTime: DefaultRefreshTime,
		Backend: models.BackendConfig{
			BaseURL: DefaultBackendURL,
			Timeout: DefaultTimeout,
		},
		Email: models.EmailConfig{
			MailBox: DefaultMailbox,
		},
		Search: models.SearchConfig{
			Days:  DefaultDays,
			Limit: DefaultLimit,
			Sort:  DefaultSort,
		},
	}
}

func applyEnv(cfg *models.Config) {
	if v := os.Getenv(envBackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv(envIMAPServer); v != "" {
		cfg.Email.Imap = v
	}
	if v := os.Getenv(envIMAPLogin); v != "" {
		cfg.Email.Login = v
	}
	if v := os.Getenv(envIMAPPassword); v != "" {
		cfg.Email.Password = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *models.Config) {
	if cfg.Source == "" {
		cfg.Source = models.SourceBackend
	}
	if cfg.RefreshTime <= 0 {
		cfg.RefreshTime = DefaultRefreshTime
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = DefaultTimeout
	}
	if cfg.Email.MailBox == "" {
		cfg.Email.MailBox = DefaultMailbox
	}
	// days 0 means "all time"
	if cfg.Search.Days < 0 {
		cfg.Search.Days = 0
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = DefaultLimit
	}
	if cfg.Search.Sort == "" {
		cfg.Search.Sort = DefaultSort
	}
}

// Validate checks that the selected source has what it needs
func Validate(cfg *models.Config) error {
	switch cfg.Source {
	case models.SourceBackend:
		if cfg.Backend.BaseURL == "" {
			return errors.New("backend.baseURL is required")
		}
	case models.SourceIMAP:
		if cfg.Email.Imap == "" {
			return errors.New("email.imap is required when source is imap")
		}
		if cfg.Email.Login == "" {
			return errors.New("email.login is required when source is imap")
		}
	default:
		return fmt.Errorf("unknown source %q", cfg.Source)
	}
	return nil
}
