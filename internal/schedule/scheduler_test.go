package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cutoff = TimeOfDay{Hours: 18, Minutes: 35}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 12, 44, 0, time.UTC)
}

func TestInitialTriggerOnSaturdayMovesToMonday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	// 2024-06-01 is a Saturday.
	got := s.InitialTrigger(date(2024, time.June, 1))
	assert.Equal(t, time.Date(2024, time.June, 3, 18, 35, 0, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestInitialTriggerOnSundayMovesToMonday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	got := s.InitialTrigger(date(2024, time.June, 2))
	assert.Equal(t, time.Date(2024, time.June, 3, 18, 35, 0, 0, time.UTC), got)
}

func TestInitialTriggerOnWeekdayKeepsDate(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	got := s.InitialTrigger(date(2024, time.June, 5))
	assert.Equal(t, time.Date(2024, time.June, 5, 18, 35, 0, 0, time.UTC), got)
}

func TestInitialTriggerAlwaysWeekday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	start := date(2024, time.January, 1)
	for i := 0; i < 400; i++ {
		got := s.InitialTrigger(start.AddDate(0, 0, i))
		require.NotEqual(t, time.Saturday, got.Weekday())
		require.NotEqual(t, time.Sunday, got.Weekday())
		require.Equal(t, 18, got.Hour())
		require.Equal(t, 35, got.Minute())
	}
}

func TestNextTriggerFridayYieldsMonday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	friday := time.Date(2024, time.June, 7, 18, 35, 0, 0, time.UTC)
	got := s.NextTrigger(friday)
	assert.Equal(t, friday.AddDate(0, 0, 3), got)
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestNextTriggerOtherWeekdaysAddOneDay(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	monday := time.Date(2024, time.June, 3, 18, 35, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		day := monday.AddDate(0, 0, i)
		assert.Equal(t, day.AddDate(0, 0, 1), s.NextTrigger(day), day.Weekday().String())
	}
}

func TestNextTriggerIsLaterWeekday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	p := s.InitialTrigger(date(2023, time.December, 30))
	for i := 0; i < 300; i++ {
		next := s.NextTrigger(p)
		require.True(t, next.After(p))
		require.NotEqual(t, time.Saturday, next.Weekday())
		require.NotEqual(t, time.Sunday, next.Weekday())
		p = next
	}
}

func TestNextTriggerLooksAtCandidateWeekday(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	// From a Saturday the candidate is Sunday, so two days are added.
	saturday := time.Date(2024, time.June, 8, 18, 35, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 10, 18, 35, 0, 0, time.UTC), s.NextTrigger(saturday))
}

func TestNextAfterSkipsPastTriggers(t *testing.T) {
	s := NewBusinessDayScheduler(cutoff)
	monday := time.Date(2024, time.June, 3, 18, 35, 0, 0, time.UTC)
	now := time.Date(2024, time.June, 6, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 7, 18, 35, 0, 0, time.UTC), s.NextAfter(monday, now))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("18:35")
	require.NoError(t, err)
	assert.Equal(t, cutoff, tod)
	assert.Equal(t, "18:35", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayBefore(t *testing.T) {
	assert.True(t, TimeOfDay{Hours: 18, Minutes: 35}.Before(TimeOfDay{Hours: 23, Minutes: 45}))
	assert.False(t, TimeOfDay{Hours: 18, Minutes: 35}.Before(TimeOfDay{Hours: 18, Minutes: 35}))
}

func TestStopAt(t *testing.T) {
	trigger := time.Date(2024, time.June, 3, 18, 35, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 3, 23, 45, 0, 0, time.UTC), StopAt(trigger, TimeOfDay{Hours: 23, Minutes: 45}))
}

func TestRealClockWaitUntilPastReturnsImmediately(t *testing.T) {
	clock := NewRealClock(time.UTC)
	require.NoError(t, clock.WaitUntil(context.Background(), time.Now().Add(-time.Hour)))
}

func TestRealClockWaitUntilCancelled(t *testing.T) {
	clock := NewRealClock(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := clock.WaitUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
