package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtract(t *testing.T) {
	cases := []struct {
		date string
		spec string
		want string
	}{
		{"2024-03-15", "1 month", "2024-02-15"},
		{"2024-03-15", "3 days", "2024-03-12"},
		{"2024-03-15", "2 weeks", "2024-03-01"},
		{"2024-03-15", "1 year", "2023-03-15"},
		{"2024-03-31", "1 month", "2024-02-29"}, // leap year clamp
		{"2023-03-31", "1 month", "2023-02-28"},
		{"2024-01-15", "2 months", "2023-11-15"},
		{"2024-02-29", "1 year", "2023-02-28"},
		{"2024-03-15", "1 Day", "2024-03-14"},
		{"2024-03-15", "1 d", "2024-03-14"},
	}
	for _, c := range cases {
		got, err := Subtract(c.date, c.spec)
		require.NoError(t, err, "%s - %s", c.date, c.spec)
		assert.Equal(t, c.want, got, "%s - %s", c.date, c.spec)
	}
}

func TestSubtractInvalid(t *testing.T) {
	for _, spec := range []string{"", "3", "3 fortnights", "x days", "3 days extra"} {
		_, err := Subtract("2024-03-15", spec)
		assert.ErrorIs(t, err, ErrInvalidInterval, "spec %q", spec)
	}
	_, err := Subtract("not-a-date", "1 day")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestDateRange(t *testing.T) {
	got, err := DateRange("2024-02-27", "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, got)

	single, err := DateRange("2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, single)

	empty, err := DateRange("2024-01-02", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPrevDay(t *testing.T) {
	got, err := PrevDay("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)
}
