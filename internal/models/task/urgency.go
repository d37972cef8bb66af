package task

import (
	"math"
	"time"
)

type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencySoon     Urgency = "soon"
	UrgencyUpcoming Urgency = "upcoming"
)

// DaysRemaining rounds the time left up to whole days, so anything due later today counts as 1.
func (t *Task) DaysRemaining(now time.Time) int {
	return int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
}

func (t *Task) UrgencyAt(now time.Time) Urgency {
	days := t.DaysRemaining(now)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyToday
	case days == 1:
		return UrgencyTomorrow
	case days <= 3:
		return UrgencySoon
	default:
		return UrgencyUpcoming
	}
}
