package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// Wednesday.
var testNow = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

func newTestLifecycle(skipCap int) (*Lifecycle, *fixedClock) {
	clock := &fixedClock{now: testNow}
	return NewLifecycle(skipCap, pricing.DefaultZones(), clock), clock
}

func activeSub() *models.Subscription {
	return &models.Subscription{
		ID:               "sub-1",
		ZoneID:           "ZONE_A",
		Frequency:        models.FrequencyWeekly,
		Status:           models.SubscriptionActive,
		NextDeliveryDate: time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC),
	}
}

func TestStart(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := &models.Subscription{ZoneID: "ZONE_A", Frequency: models.FrequencyWeekly, SkipCount: 3}

	lc.Start(sub)

	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, 0, sub.SkipCount)
	assert.Equal(t, time.Friday, sub.NextDeliveryDate.Weekday())
	assert.True(t, sub.NextDeliveryDate.After(testNow))
}

func TestPauseResume(t *testing.T) {
	lc, clock := newTestLifecycle(2)
	sub := activeSub()
	sub.NextDeliveryDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lc.Pause(sub))
	assert.Equal(t, models.SubscriptionPaused, sub.Status)

	assert.True(t, IsTransitionError(lc.Pause(sub)))

	clock.now = testNow.AddDate(0, 0, 20)
	require.NoError(t, lc.Resume(sub))
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.True(t, sub.NextDeliveryDate.After(clock.now))
	assert.True(t, pricing.DefaultZones().All()[0].DeliversOn(sub.NextDeliveryDate.Weekday()))

	assert.True(t, IsTransitionError(lc.Resume(sub)))
}

func TestResumeNeverInThePast(t *testing.T) {
	lc, clock := newTestLifecycle(2)

	for days := 0; days < 14; days++ {
		clock.now = testNow.AddDate(0, 0, days)
		for _, zone := range []string{"ZONE_A", "ZONE_B", "ZONE_C", "UNKNOWN"} {
			sub := activeSub()
			sub.ZoneID = zone
			sub.Status = models.SubscriptionPaused
			sub.NextDeliveryDate = clock.now.AddDate(-1, 0, 0)

			require.NoError(t, lc.Resume(sub))
			assert.False(t, sub.NextDeliveryDate.Before(clock.now), "zone %s day %d", zone, days)
		}
	}
}

func TestResumeUnknownZoneFallsBackToNextDay(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := activeSub()
	sub.ZoneID = "NOWHERE"
	sub.Status = models.SubscriptionPaused

	require.NoError(t, lc.Resume(sub))
	assert.Equal(t, testNow.AddDate(0, 0, 1), sub.NextDeliveryDate)
}

func TestSkipUpToCap(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := activeSub()
	start := sub.NextDeliveryDate

	require.NoError(t, lc.Skip(sub))
	require.NoError(t, lc.Skip(sub))
	assert.Equal(t, 2, sub.SkipCount)
	assert.Equal(t, start.AddDate(0, 0, 14), sub.NextDeliveryDate)

	before := sub.NextDeliveryDate
	err := lc.Skip(sub)
	assert.ErrorIs(t, err, ErrSkipLimitExceeded)
	var le *SkipLimitError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Cap)
	assert.Equal(t, 2, sub.SkipCount)
	assert.Equal(t, before, sub.NextDeliveryDate)

	lc.NewCycle(sub)
	assert.NoError(t, lc.Skip(sub))
}

func TestSkipZeroCap(t *testing.T) {
	lc, _ := newTestLifecycle(0)
	sub := activeSub()

	assert.ErrorIs(t, lc.Skip(sub), ErrSkipLimitExceeded)
	assert.Equal(t, 0, sub.SkipCount)
}

func TestSkipAdvancesByFrequency(t *testing.T) {
	lc, _ := newTestLifecycle(5)

	cases := map[models.Frequency]time.Time{
		models.FrequencyWeekly:   time.Date(2026, 3, 13, 9, 30, 0, 0, time.UTC),
		models.FrequencyBiweekly: time.Date(2026, 3, 20, 9, 30, 0, 0, time.UTC),
		models.FrequencyMonthly:  time.Date(2026, 4, 6, 9, 30, 0, 0, time.UTC),
	}
	for freq, want := range cases {
		sub := activeSub()
		sub.Frequency = freq
		require.NoError(t, lc.Skip(sub))
		assert.Equal(t, want, sub.NextDeliveryDate, string(freq))
	}
}

func TestSkipRequiresActive(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := activeSub()
	sub.Status = models.SubscriptionPaused

	assert.True(t, IsTransitionError(lc.Skip(sub)))
	assert.Equal(t, 0, sub.SkipCount)
}

func TestCancelIsTerminal(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := activeSub()

	require.NoError(t, lc.Pause(sub))
	require.NoError(t, lc.Cancel(sub))
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)

	for name, action := range map[string]func(*models.Subscription) error{
		"resume": lc.Resume,
		"pause":  lc.Pause,
		"skip":   lc.Skip,
		"cancel": lc.Cancel,
	} {
		err := action(sub)
		assert.True(t, IsTransitionError(err), name)
		assert.Equal(t, models.SubscriptionCancelled, sub.Status, name)
	}
}

func TestDue(t *testing.T) {
	lc, _ := newTestLifecycle(2)
	sub := activeSub()

	assert.False(t, lc.Due(sub, sub.NextDeliveryDate.Add(-time.Minute)))
	assert.True(t, lc.Due(sub, sub.NextDeliveryDate))

	sub.Status = models.SubscriptionPaused
	assert.False(t, lc.Due(sub, sub.NextDeliveryDate.Add(time.Hour)))
}

func TestDeliveredAdvancesPastNow(t *testing.T) {
	lc, clock := newTestLifecycle(2)
	sub := activeSub()

	lc.Delivered(sub)
	assert.Equal(t, time.Date(2026, 3, 13, 9, 30, 0, 0, time.UTC), sub.NextDeliveryDate)

	clock.now = testNow.AddDate(0, 2, 0)
	lc.Delivered(sub)
	assert.True(t, sub.NextDeliveryDate.After(clock.now))
}
