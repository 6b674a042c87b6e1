package common

import (
	"fmt"
	"strings"
	"time"
)

// WorkingHoursWindow defines a recurring window during which the user
// normally works. Scheduling skills prefer placing events inside these
// windows.
type WorkingHoursWindow struct {
	// Days specifies which days of the week this window applies to.
	// Use lowercase day names: "monday", "tuesday", etc.
	// If empty, applies to all days.
	Days []string `koanf:"days,omitempty" json:"days,omitempty"`
	// Start is the start time in "HH:MM" 24-hour format (local time).
	Start string `koanf:"start" json:"start"`
	// End is the end time in "HH:MM" 24-hour format (local time).
	// If End < Start, the window crosses midnight.
	End string `koanf:"end" json:"end"`
}

var dayNameToWeekday = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// IsWithinWorkingHours reports whether t falls inside any of the given
// windows. An empty window list means no working-hours preference, which
// counts as always-inside.
func IsWithinWorkingHours(t time.Time, windows []WorkingHoursWindow) bool {
	if len(windows) == 0 {
		return true
	}
	for _, window := range windows {
		if isTimeInWindow(t, window) {
			return true
		}
	}
	return false
}

// parseTimeOfDay parses a "HH:MM" string into hour and minute.
func parseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}
	_, err = fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time values: %s", s)
	}
	return hour, minute, nil
}

// timeOfDayMinutes converts hour:minute to minutes since midnight.
func timeOfDayMinutes(hour, minute int) int {
	return hour*60 + minute
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if strings.ToLower(d) == day {
			if _, ok := dayNameToWeekday[day]; ok {
				return true
			}
		}
	}
	return false
}

// isTimeInWindow checks if time t falls within the given window.
func isTimeInWindow(t time.Time, window WorkingHoursWindow) bool {
	startH, startM, err1 := parseTimeOfDay(window.Start)
	endH, endM, err2 := parseTimeOfDay(window.End)
	if err1 != nil || err2 != nil {
		return false
	}

	startMins := timeOfDayMinutes(startH, startM)
	endMins := timeOfDayMinutes(endH, endM)
	currentMins := timeOfDayMinutes(t.Hour(), t.Minute())
	isOvernightWindow := endMins < startMins

	if len(window.Days) > 0 {
		currentDay := strings.ToLower(t.Weekday().String())
		yesterdayName := strings.ToLower(t.AddDate(0, 0, -1).Weekday().String())

		currentDayMatches := containsDay(window.Days, currentDay)
		yesterdayMatches := containsDay(window.Days, yesterdayName)

		if isOvernightWindow {
			// For overnight windows with day restrictions:
			// - Evening portion (after start): check if current day matches
			// - Morning portion (before end): check if yesterday matches
			if currentMins < endMins && yesterdayMatches {
				return true
			}
			if currentMins >= startMins && currentDayMatches {
				return true
			}
			return false
		}

		// Same-day window: just check current day
		if !currentDayMatches {
			return false
		}
	}

	if !isOvernightWindow {
		// Same-day window (e.g., 09:00 to 17:00)
		return currentMins >= startMins && currentMins < endMins
	}
	// Overnight window without day restrictions (e.g., 23:00 to 07:00)
	return currentMins >= startMins || currentMins < endMins
}
