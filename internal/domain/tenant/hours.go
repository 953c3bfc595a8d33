package tenant

import (
	"fmt"
	"time"

	"github.com/replygate/replygate/internal/shared/biztime"
)

// OperatingHours is a tenant's daily answering window plus the weekdays it
// is closed outright, all evaluated in the tenant's own timezone.
type OperatingHours struct {
	StartHour  int            `json:"start_hour"`
	EndHour    int            `json:"end_hour"`
	Timezone   string         `json:"timezone"`
	ClosedDays []time.Weekday `json:"closed_days,omitempty"`
}

// DefaultOperatingHours answers around the clock.
func DefaultOperatingHours(timezone string) OperatingHours {
	return OperatingHours{StartHour: 0, EndHour: 24, Timezone: timezone}
}

// Validate checks hour bounds and the timezone name. At most six closed
// days are allowed so a tenant cannot close every day of the week.
func (h OperatingHours) Validate() error {
	if h.StartHour < 0 || h.StartHour > 23 {
		return fmt.Errorf("start hour must be between 0 and 23, got %d", h.StartHour)
	}
	if h.EndHour < 1 || h.EndHour > 24 {
		return fmt.Errorf("end hour must be between 1 and 24, got %d", h.EndHour)
	}
	if h.EndHour <= h.StartHour {
		return fmt.Errorf("end hour %d must be after start hour %d", h.EndHour, h.StartHour)
	}
	if len(h.ClosedDays) > 6 {
		return fmt.Errorf("at most 6 closed days are allowed, got %d", len(h.ClosedDays))
	}
	seen := map[time.Weekday]bool{}
	for _, d := range h.ClosedDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate closed day %s", d)
		}
		seen[d] = true
	}
	if !biztime.ValidTimezone(h.Timezone) {
		return fmt.Errorf("unknown timezone %q", h.Timezone)
	}
	return nil
}

// OpenAt reports whether the window is open at the given instant.
func (h OperatingHours) OpenAt(now time.Time) (bool, error) {
	loc, err := biztime.LocationFor(h.Timezone)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	for _, d := range h.ClosedDays {
		if local.Weekday() == d {
			return false, nil
		}
	}

	hour := local.Hour()
	return hour >= h.StartHour && hour < h.EndHour, nil
}
