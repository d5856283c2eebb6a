package cli

import (
	"strings"
	"time"

	"dayplan-cli/internal/model"
)

// parseDayArg accepts YYYY-MM-DD or one of today, tomorrow, yesterday
// (relative to now's location). Empty means today.
func parseDayArg(s string, now time.Time) (model.DayKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return model.DayOf(now), nil
	case "tomorrow":
		return model.DayOf(now.AddDate(0, 0, 1)), nil
	case "yesterday":
		return model.DayOf(now.AddDate(0, 0, -1)), nil
	}
	d, err := model.ParseDay(s)
	if err != nil {
		return "", usageErrorf("%v", err)
	}
	return d, nil
}
