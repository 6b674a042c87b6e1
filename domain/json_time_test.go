package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-01T09:00:00Z", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01T09:00:00+02:00", time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)},
		{"2024-03-01T09:00", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01 09:00", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"  2024-03-01T09:00:00Z ", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseEventTime(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.True(t, got.Equal(tt.want), "input %q: got %v, want %v", tt.input, got, tt.want)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestParseEventTimeInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "tomorrow", "9am", "01/03/2024"} {
		_, err := ParseEventTime(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestUTCTimePtr(t *testing.T) {
	t.Parallel()

	assert.Nil(t, UTCTimePtr(nil))

	loc := time.FixedZone("Test", 3600)
	in := time.Date(2024, 3, 1, 10, 0, 0, 0, loc)
	out := UTCTimePtr(&in)
	require.NotNil(t, out)
	assert.Equal(t, time.UTC, out.Location())
	assert.True(t, out.Equal(in))
}
