package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsWithinWorkingHours(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("Test", 0)

	tests := []struct {
		name      string
		windows   []WorkingHoursWindow
		checkTime time.Time
		want      bool
	}{
		{
			name:      "no windows - always inside",
			windows:   nil,
			checkTime: time.Date(2024, 1, 15, 3, 0, 0, 0, loc),
			want:      true,
		},
		{
			name: "same-day window - inside",
			windows: []WorkingHoursWindow{
				{Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 12, 0, 0, 0, loc), // Monday 12:00
			want:      true,
		},
		{
			name: "same-day window - before start",
			windows: []WorkingHoursWindow{
				{Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 8, 59, 0, 0, loc),
			want:      false,
		},
		{
			name: "same-day window - end is exclusive",
			windows: []WorkingHoursWindow{
				{Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 17, 0, 0, 0, loc),
			want:      false,
		},
		{
			name: "day-restricted window - wrong day",
			windows: []WorkingHoursWindow{
				{Days: []string{"tuesday"}, Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 12, 0, 0, 0, loc), // Monday
			want:      false,
		},
		{
			name: "day-restricted window - matching day",
			windows: []WorkingHoursWindow{
				{Days: []string{"monday"}, Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 12, 0, 0, 0, loc), // Monday
			want:      true,
		},
		{
			name: "overnight window - evening portion",
			windows: []WorkingHoursWindow{
				{Start: "22:00", End: "02:00"},
			},
			checkTime: time.Date(2024, 1, 15, 23, 30, 0, 0, loc),
			want:      true,
		},
		{
			name: "overnight window - morning portion",
			windows: []WorkingHoursWindow{
				{Start: "22:00", End: "02:00"},
			},
			checkTime: time.Date(2024, 1, 15, 1, 0, 0, 0, loc),
			want:      true,
		},
		{
			name: "overnight window with days - morning checks previous day",
			windows: []WorkingHoursWindow{
				{Days: []string{"monday"}, Start: "22:00", End: "02:00"},
			},
			checkTime: time.Date(2024, 1, 16, 1, 0, 0, 0, loc), // Tuesday 01:00, Monday window
			want:      true,
		},
		{
			name: "invalid time format - window ignored",
			windows: []WorkingHoursWindow{
				{Start: "9am", End: "5pm"},
			},
			checkTime: time.Date(2024, 1, 15, 12, 0, 0, 0, loc),
			want:      false,
		},
		{
			name: "multiple windows - second matches",
			windows: []WorkingHoursWindow{
				{Start: "06:00", End: "08:00"},
				{Start: "09:00", End: "17:00"},
			},
			checkTime: time.Date(2024, 1, 15, 10, 0, 0, 0, loc),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsWithinWorkingHours(tt.checkTime, tt.windows))
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	hour, minute, err := parseTimeOfDay("09:30")
	assert.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	_, _, err = parseTimeOfDay("25:00")
	assert.Error(t, err)

	_, _, err = parseTimeOfDay("0900")
	assert.Error(t, err)
}
