package subscription

import (
	"time"

	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Lifecycle applies the ACTIVE / PAUSED / CANCELLED transitions. Methods mutate the given
// subscription only when the transition succeeds.
type Lifecycle struct {
	skipCap int
	zones   *pricing.ZoneTable
	clock   Clock
}

func NewLifecycle(skipCap int, zones *pricing.ZoneTable, clock Clock) *Lifecycle {
	if clock == nil {
		clock = systemClock{}
	}
	return &Lifecycle{skipCap: skipCap, zones: zones, clock: clock}
}

func (l *Lifecycle) SkipCap() int {
	return l.skipCap
}

func (l *Lifecycle) Now() time.Time {
	return l.clock.Now()
}

// KnowsZone reports whether zoneID is a configured delivery zone.
func (l *Lifecycle) KnowsZone(zoneID string) bool {
	if l.zones == nil {
		return false
	}
	_, ok := l.zones.Lookup(zoneID)
	return ok
}

// Start initialises a new subscription: ACTIVE, no skips, first delivery on the zone schedule.
func (l *Lifecycle) Start(sub *models.Subscription) {
	sub.Status = models.SubscriptionActive
	sub.SkipCount = 0
	sub.NextDeliveryDate = l.NextDeliveryAfter(sub.ZoneID, l.clock.Now())
}

func (l *Lifecycle) Pause(sub *models.Subscription) error {
	if sub.Status != models.SubscriptionActive {
		return &TransitionError{Action: "pause", From: sub.Status}
	}
	sub.Status = models.SubscriptionPaused
	return nil
}

// Resume reactivates a paused subscription with the first scheduled delivery after now.
func (l *Lifecycle) Resume(sub *models.Subscription) error {
	if sub.Status != models.SubscriptionPaused {
		return &TransitionError{Action: "resume", From: sub.Status}
	}
	sub.NextDeliveryDate = l.NextDeliveryAfter(sub.ZoneID, l.clock.Now())
	sub.Status = models.SubscriptionActive
	return nil
}

func (l *Lifecycle) Skip(sub *models.Subscription) error {
	if sub.Status != models.SubscriptionActive {
		return &TransitionError{Action: "skip", From: sub.Status}
	}
	if sub.SkipCount >= l.skipCap {
		return &SkipLimitError{Cap: l.skipCap}
	}
	sub.NextDeliveryDate = sub.Frequency.Advance(sub.NextDeliveryDate)
	sub.SkipCount++
	return nil
}

func (l *Lifecycle) Cancel(sub *models.Subscription) error {
	if sub.Status == models.SubscriptionCancelled {
		return &TransitionError{Action: "cancel", From: sub.Status}
	}
	sub.Status = models.SubscriptionCancelled
	return nil
}

// NewCycle resets the skip allowance at the start of a billing cycle.
func (l *Lifecycle) NewCycle(sub *models.Subscription) {
	sub.SkipCount = 0
}

// Due reports whether a delivery should be materialized for sub at now. Only ACTIVE
// subscriptions are ever due.
func (l *Lifecycle) Due(sub *models.Subscription, now time.Time) bool {
	return sub.Status == models.SubscriptionActive && !sub.NextDeliveryDate.After(now)
}

// Delivered moves the schedule past a materialized delivery.
func (l *Lifecycle) Delivered(sub *models.Subscription) {
	next := sub.Frequency.Advance(sub.NextDeliveryDate)
	now := l.clock.Now()
	if !next.After(now) {
		next = l.NextDeliveryAfter(sub.ZoneID, now)
	}
	sub.NextDeliveryDate = next
}

// NextDeliveryAfter returns the first delivery day of the zone that lies strictly after t,
// at t's time of day. Zones without a schedule deliver the next day.
func (l *Lifecycle) NextDeliveryAfter(zoneID string, t time.Time) time.Time {
	var zone pricing.Zone
	if l.zones != nil {
		zone, _ = l.zones.Lookup(zoneID)
	}

	candidate := t.AddDate(0, 0, 1)
	if len(zone.DeliveryDays) == 0 {
		return candidate
	}
	for i := 0; i < 7; i++ {
		if zone.DeliversOn(candidate.Weekday()) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
