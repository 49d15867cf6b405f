package domain

import "fmt"

// Setpoint is a weekly (day, time-of-day) comfort requirement.
type Setpoint struct {
	Day          int // 0..6, Monday=0
	Time         TimeOfDay
	Temperature  float64 // [30,99]
	DrawnVolume  float64 // >=0, liters
}

// NewSetpoint validates and constructs a Setpoint.
func NewSetpoint(day int, t TimeOfDay, temperature, drawnVolume float64) (Setpoint, error) {
	if day < 0 || day > 6 {
		return Setpoint{}, NewValidationError("setpoint.day", fmt.Sprintf("day must be in [0,6], got %d", day))
	}
	if temperature < 30 || temperature > 99 {
		return Setpoint{}, NewValidationError("setpoint.temperature", fmt.Sprintf("must be in [30,99], got %f", temperature))
	}
	if drawnVolume < 0 {
		return Setpoint{}, NewValidationError("setpoint.drawn_volume", "must be >= 0")
	}
	return Setpoint{Day: day, Time: t, Temperature: temperature, DrawnVolume: drawnVolume}, nil
}

// minutesSinceMonday returns the setpoint's absolute position in the week,
// measured in minutes since Monday 00:00.
func (s Setpoint) minutesSinceMonday() int {
	return s.Day*1440 + s.Time.Minutes()
}

// key identifies a setpoint's (day, time) dedup key.
type setpointKey struct {
	day int
	t   TimeOfDay
}

func (s Setpoint) key() setpointKey {
	return setpointKey{day: s.Day, t: s.Time}
}

// Before orders setpoints by (day, time).
func (s Setpoint) Before(other Setpoint) bool {
	if s.Day != other.Day {
		return s.Day < other.Day
	}
	return s.Time < other.Time
}
