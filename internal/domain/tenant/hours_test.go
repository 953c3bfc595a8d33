package tenant

import (
	"testing"
	"time"
)

func TestOperatingHours_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hours   OperatingHours
		wantErr bool
	}{
		{"default", DefaultOperatingHours("Africa/Lagos"), false},
		{"nine to five", OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Africa/Lagos"}, false},
		{"closed weekends", OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Africa/Lagos",
			ClosedDays: []time.Weekday{time.Saturday, time.Sunday}}, false},
		{"negative start", OperatingHours{StartHour: -1, EndHour: 17, Timezone: "Africa/Lagos"}, true},
		{"end before start", OperatingHours{StartHour: 17, EndHour: 9, Timezone: "Africa/Lagos"}, true},
		{"every day closed", OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Africa/Lagos",
			ClosedDays: []time.Weekday{0, 1, 2, 3, 4, 5, 6}}, true},
		{"duplicate closed day", OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Africa/Lagos",
			ClosedDays: []time.Weekday{time.Sunday, time.Sunday}}, true},
		{"bad timezone", OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Nowhere/Void"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hours.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOperatingHours_OpenAt(t *testing.T) {
	hours := OperatingHours{StartHour: 9, EndHour: 17, Timezone: "UTC",
		ClosedDays: []time.Weekday{time.Sunday}}

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		// 2026-08-31 is a Monday.
		{"mid morning", time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), true},
		{"start boundary", time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), true},
		{"end boundary is closed", time.Date(2026, 8, 31, 17, 0, 0, 0, time.UTC), false},
		{"evening", time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC), false},
		{"closed weekday", time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hours.OpenAt(tt.at)
			if err != nil {
				t.Fatalf("OpenAt error = %v", err)
			}
			if got != tt.open {
				t.Errorf("OpenAt(%v) = %v, want %v", tt.at, got, tt.open)
			}
		})
	}
}

func TestOperatingHours_TimezoneConversion(t *testing.T) {
	// 9-17 Lagos time (UTC+1): 20:00 UTC is 21:00 in Lagos, closed.
	hours := OperatingHours{StartHour: 9, EndHour: 17, Timezone: "Africa/Lagos"}

	open, err := hours.OpenAt(time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("OpenAt error = %v", err)
	}
	if open {
		t.Error("20:00 UTC should be outside a 9-17 Lagos window")
	}

	// 08:30 UTC is 09:30 in Lagos, open.
	open, err = hours.OpenAt(time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("OpenAt error = %v", err)
	}
	if !open {
		t.Error("08:30 UTC should be inside a 9-17 Lagos window")
	}
}
