package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SLACK_OAUTH_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "remindme.db", cfg.DBURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "warn", cfg.DBLogLevel)
	assert.Equal(t, "0 */15 * * * *", cfg.SweepSchedule)
	assert.Equal(t, 10*time.Second, cfg.Slack.CallTimeout)
	assert.False(t, cfg.Line.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SLACK_CALL_TIMEOUT", "3s")
	t.Setenv("SWEEP_SCHEDULE", "@hourly")
	t.Setenv("LINE_CHANNEL_SECRET", "line-secret")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "line-token")
	t.Setenv("LINE_OPERATOR_USER_ID", "U-op")
	t.Setenv("OPERATOR_USER_IDS", "U-op,U-admin")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.Slack.CallTimeout)
	assert.Equal(t, "@hourly", cfg.SweepSchedule)
	assert.True(t, cfg.Line.Enabled())
	assert.Equal(t, []string{"U-op", "U-admin"}, cfg.OperatorUserIDs)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing slack token": {"SLACK_OAUTH_TOKEN": ""},
		"bad port":            {"PORT": "70000"},
		"non-numeric port":    {"PORT": "http"},
		"zero timeout":        {"SLACK_CALL_TIMEOUT": "0s"},
		"five-field schedule": {"SWEEP_SCHEDULE": "*/15 * * * *"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
