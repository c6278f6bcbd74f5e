package models

import "time"

// Config represents the application configuration
type Config struct {
	Source      string           `yaml:"source"`
	RefreshTime time.Duration    `yaml:"refreshTime"`
	Backend     BackendConfig    `yaml:"backend"`
	Email       EmailConfig      `yaml:"email"`
	Search      SearchConfig     `yaml:"search"`
	Normalizer  NormalizerConfig `yaml:"normalizer"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

// BackendConfig points at the assistant backend serving the email search endpoint
type BackendConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmailConfig represents IMAP email configuration
type EmailConfig struct {
	Imap     string `yaml:"imap"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	MailBox  string `yaml:"mailbox"`
}

// SearchConfig holds the default filters applied on every fetch cycle
type SearchConfig struct {
	Query      string `yaml:"query"`
	Days       int    `yaml:"days"`
	Limit      int    `yaml:"limit"`
	Sort       string `yaml:"sort"`
	UnreadOnly bool   `yaml:"unreadOnly"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
}

// NormalizerConfig tunes fallback values of the email normalizer
type NormalizerConfig struct {
	RecipientFallback string `yaml:"recipientFallback"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ToQuery converts the configured filters into a SearchQuery
func (s SearchConfig) ToQuery() SearchQuery {
	return SearchQuery{
		Text:       s.Query,
		Days:       s.Days,
		Limit:      s.Limit,
		Sort:       s.Sort,
		UnreadOnly: s.UnreadOnly,
		From:       s.From,
		To:         s.To,
	}
}

const (
	SourceBackend = "backend"
	SourceIMAP    = "imap"
)
