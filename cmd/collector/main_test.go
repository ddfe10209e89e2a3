package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDatesSingle(t *testing.T) {
	start, end, err := resolveDates("2025-01-06", "", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, start, end)
}

func TestResolveDatesRange(t *testing.T) {
	start, end, err := resolveDates("", "2025-01-01", "2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), end)
}

func TestResolveDatesDefaultYesterday(t *testing.T) {
	start, end, err := resolveDates("", "", "")
	require.NoError(t, err)
	yesterday := time.Now().AddDate(0, 0, -1)
	assert.Equal(t, yesterday.Year(), start.Year())
	assert.Equal(t, yesterday.Month(), start.Month())
	assert.Equal(t, yesterday.Day(), start.Day())
	assert.Equal(t, start, end)
}

func TestResolveDatesConflicts(t *testing.T) {
	_, _, err := resolveDates("2025-01-06", "2025-01-01", "")
	assert.ErrorIs(t, err, errDateConflict)

	_, _, err = resolveDates("", "2025-01-01", "")
	assert.ErrorIs(t, err, errRangeIncomplete)

	_, _, err = resolveDates("", "2025-01-07", "2025-01-01")
	assert.ErrorIs(t, err, errRangeInverted)

	_, _, err = resolveDates("01/06/2025", "", "")
	assert.Error(t, err)
}
