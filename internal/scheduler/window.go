package scheduler

import (
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Window is the set of weekdays and hours during which rows are processed.
type Window struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
	Location  *time.Location
}

// WindowFromConfig parses the schedule's days and timezone.
func WindowFromConfig(cfg config.ScheduleConfig) (Window, error) {
	days, err := config.ParseWeekdays(cfg.Days)
	if err != nil {
		return Window{}, eris.Wrap(err, "scheduler: parse days")
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, eris.Wrapf(err, "scheduler: load timezone %s", tz)
	}
	return Window{Days: days, StartHour: cfg.StartHour, EndHour: cfg.EndHour, Location: loc}, nil
}

// Active reports whether t falls on an active day within [StartHour, EndHour).
// An empty Days list means every day.
func (w Window) Active(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	if len(w.Days) > 0 && !slices.Contains(w.Days, t.Weekday()) {
		return false
	}
	h := t.Hour()
	return h >= w.StartHour && h < w.EndHour
}
