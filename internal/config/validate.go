package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by the given command mode and
// returns one error listing every problem found. Modes: "outreach", "import",
// "tables", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "outreach":
		require(c.Notion.Token != "", "notion.token is required")
		require(c.Notion.SourceDB != "", "notion.source_db is required")
		require(c.Notion.DestinationDB != "", "notion.destination_db is required")
		require(c.Anthropic.Key != "", "anthropic.key is required")
		require(c.Anthropic.Model != "", "anthropic.model is required")
		require(c.SMTP.Host != "", "smtp.host is required")
		require(c.SMTP.Port > 0 && c.SMTP.Port <= 65535, "smtp.port must be between 1 and 65535")
		require(c.Sender.Address != "", "sender.address is required")
		if c.Outreach.TestMode {
			require(c.Outreach.TestEmail != "", "outreach.test_email is required when outreach.test_mode is on")
		}
		switch c.SMTP.Security {
		case "", "ssl", "starttls", "none":
		default:
			errs = append(errs, fmt.Sprintf("smtp.security %q must be ssl, starttls or none", c.SMTP.Security))
		}
		errs = append(errs, c.modeErrors()...)
		errs = append(errs, c.scheduleErrors()...)
		errs = append(errs, c.boundsErrors()...)
	case "import":
		require(c.Notion.Token != "", "notion.token is required")
		require(c.Notion.SourceDB != "", "notion.source_db is required")
	case "tables":
		require(c.Notion.Token != "", "notion.token is required")
	case "serve":
		require(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) modeErrors() []string {
	switch strings.ToLower(strings.TrimSpace(c.Outreach.Mode)) {
	case "ventures", "venture":
		if c.Notion.MandatesDB == "" {
			return []string{"notion.mandates_db is required in Ventures mode"}
		}
	case "investors", "investor":
		if c.Notion.VenturesDB == "" {
			return []string{"notion.ventures_db is required in Investors mode"}
		}
	default:
		return []string{fmt.Sprintf("outreach.mode %q must be Ventures or Investors", c.Outreach.Mode)}
	}
	return nil
}

func (c *Config) scheduleErrors() []string {
	var errs []string
	s := c.Schedule
	if s.DelaySecs <= 0 {
		errs = append(errs, "schedule.delay_secs must be > 0")
	}
	if s.Jitter < 0 || s.Jitter >= 1 {
		errs = append(errs, "schedule.jitter must be in [0, 1)")
	}
	if s.StartHour < 0 || s.StartHour > 23 || s.EndHour < 1 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		errs = append(errs, "schedule hours must satisfy 0 <= start_hour < end_hour <= 24")
	}
	if len(s.Days) == 0 {
		errs = append(errs, "schedule.days must not be empty")
	}
	if _, err := ParseWeekdays(s.Days); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone %q is invalid", s.Timezone))
	}
	return errs
}

func (c *Config) boundsErrors() []string {
	var errs []string
	if c.Content.MinWords < 1 {
		errs = append(errs, "content.min_words must be >= 1")
	}
	if c.Content.MaxWords < c.Content.MinWords {
		errs = append(errs, "content.max_words must be >= content.min_words")
	}
	if c.Crawl.TimeoutSecs <= 0 {
		errs = append(errs, "crawl.timeout_secs must be > 0")
	}
	if c.Crawl.MaxInternalPages < 0 {
		errs = append(errs, "crawl.max_internal_pages must be >= 0")
	}
	if c.Scoring.FitThreshold < 1 || c.Scoring.FitThreshold > 10 {
		errs = append(errs, "scoring.fit_threshold must be between 1 and 10")
	}
	if c.Scoring.MaxCounterparts < 1 {
		errs = append(errs, "scoring.max_counterparts must be >= 1")
	}
	return errs
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays converts day names ("Mon", "monday") to time.Weekday values.
func ParseWeekdays(days []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, eris.Errorf("schedule.days: unknown day %q", d)
		}
		out = append(out, wd)
	}
	return out, nil
}
