package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validOutreach returns a Config that passes Validate("outreach").
func validOutreach() *Config {
	cfg := &Config{}
	cfg.Notion.Token = "ntn_token"
	cfg.Notion.SourceDB = "src-db"
	cfg.Notion.DestinationDB = "dst-db"
	cfg.Notion.MandatesDB = "mandates-db"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Port = 465
	cfg.Sender.Address = "outreach@example.com"
	cfg.Outreach.Mode = "Ventures"
	cfg.Outreach.TestMode = true
	cfg.Outreach.TestEmail = "qa@example.com"
	cfg.Schedule.DelaySecs = 600
	cfg.Schedule.Jitter = 0.2
	cfg.Schedule.Days = []string{"Mon", "Fri"}
	cfg.Schedule.StartHour = 9
	cfg.Schedule.EndHour = 17
	cfg.Schedule.Timezone = "UTC"
	cfg.Content.MinWords = 10
	cfg.Content.MaxWords = 2000
	cfg.Crawl.TimeoutSecs = 10
	cfg.Crawl.MaxInternalPages = 5
	cfg.Scoring.FitThreshold = 7
	cfg.Scoring.MaxCounterparts = 10
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateOutreach_AllPresent(t *testing.T) {
	assert.NoError(t, validOutreach().Validate("outreach"))
}

func TestValidateOutreach_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.source_db is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "smtp.host is required")
	assert.Contains(t, err.Error(), "outreach.mode")
}

func TestValidateOutreach_TestModeNeedsAddress(t *testing.T) {
	cfg := validOutreach()
	cfg.Outreach.TestEmail = ""

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outreach.test_email is required")

	cfg.Outreach.TestMode = false
	assert.NoError(t, cfg.Validate("outreach"))
}

func TestValidateOutreach_CounterpartTablePerMode(t *testing.T) {
	cfg := validOutreach()
	cfg.Outreach.Mode = "Investors"

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.ventures_db is required in Investors mode")

	cfg.Notion.VenturesDB = "ventures-db"
	assert.NoError(t, cfg.Validate("outreach"))
}

func TestValidateOutreach_Schedule(t *testing.T) {
	cfg := validOutreach()
	cfg.Schedule.StartHour = 18
	cfg.Schedule.Jitter = 1.5
	cfg.Schedule.Days = []string{"Funday"}
	cfg.Schedule.Timezone = "Mars/Olympus"

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule hours")
	assert.Contains(t, err.Error(), "schedule.jitter")
	assert.Contains(t, err.Error(), `unknown day "Funday"`)
	assert.Contains(t, err.Error(), "schedule.timezone")
}

func TestValidateOutreach_SMTPSecurity(t *testing.T) {
	cfg := validOutreach()
	cfg.SMTP.Security = "tls13"

	err := cfg.Validate("outreach")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.security")
}

func TestValidateImportAndTables(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate("import"))
	assert.Error(t, cfg.Validate("tables"))

	cfg.Notion.Token = "ntn"
	assert.NoError(t, cfg.Validate("tables"))
	cfg.Notion.SourceDB = "src"
	assert.NoError(t, cfg.Validate("import"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validOutreach()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validOutreach()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"Mon", "tuesday", " SUN "})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Sunday}, days)

	_, err = ParseWeekdays([]string{"Mon", "Someday"})
	assert.Error(t, err)
}
