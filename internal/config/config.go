package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config is read from the environment (and a .env file, loaded by main).
type Config struct {
	Port       int    `envconfig:"PORT" default:"8080"`
	DBURL      string `envconfig:"REMINDER_DB_URL" default:"remindme.db"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	DBLogLevel string `envconfig:"DB_LOG_LEVEL" default:"warn"`

	// SweepSchedule uses the six-field cron format with seconds.
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"0 */15 * * * *"`

	// OperatorUserIDs are the Slack users allowed to call the admin endpoints.
	OperatorUserIDs []string `envconfig:"OPERATOR_USER_IDS"`

	Slack SlackConfig
	Line  LineConfig
}

type SlackConfig struct {
	OAuthToken    string        `envconfig:"SLACK_OAUTH_TOKEN" required:"true"`
	SigningSecret string        `envconfig:"SLACK_SIGNING_SECRET" required:"true"`
	CallTimeout   time.Duration `envconfig:"SLACK_CALL_TIMEOUT" default:"10s"`
}

// LineConfig is optional. Operator alerts are dropped when it is incomplete.
type LineConfig struct {
	ChannelSecret      string `envconfig:"LINE_CHANNEL_SECRET"`
	ChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	OperatorUserID     string `envconfig:"LINE_OPERATOR_USER_ID"`
}

// Enabled reports whether every LINE setting is present.
func (c LineConfig) Enabled() bool {
	return c.ChannelSecret != "" && c.ChannelAccessToken != "" && c.OperatorUserID != ""
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Slack.OAuthToken == "" || c.Slack.SigningSecret == "" {
		return errors.New("SLACK_OAUTH_TOKEN and SLACK_SIGNING_SECRET must not be empty")
	}
	if c.Slack.CallTimeout <= 0 {
		return fmt.Errorf("invalid SLACK_CALL_TIMEOUT %s", c.Slack.CallTimeout)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", c.SweepSchedule, err)
	}
	return nil
}
