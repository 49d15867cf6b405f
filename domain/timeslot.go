package domain

import "fmt"

// TimeOfDay is a minute-of-day offset in [0, 1440).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour/minute, rejecting midnight
// crossing inputs outside the valid range.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, NewValidationError("time_of_day", fmt.Sprintf("invalid hour/minute %d:%d", hour, minute))
	}
	return TimeOfDay(hour*60 + minute), nil
}

// Minutes returns the offset in minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// TimeSlot is a half-open daily interval [Start, End) with Start < End.
// Midnight crossing is not representable; split an overnight window into
// two slots.
type TimeSlot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewTimeSlot validates start < end before constructing the slot.
func NewTimeSlot(start, end TimeOfDay) (TimeSlot, error) {
	if start >= end {
		return TimeSlot{}, NewValidationError("time_slot", "start must be strictly before end (midnight crossing not supported)")
	}
	return TimeSlot{Start: start, End: end}, nil
}

// Contains reports whether t lies in [Start, End).
func (s TimeSlot) Contains(t TimeOfDay) bool {
	return t >= s.Start && t < s.End
}

// Overlaps reports whether the open intervals of s and other intersect.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start < other.End && other.Start < s.End
}

// DurationMinutes returns the slot's length in minutes.
func (s TimeSlot) DurationMinutes() int {
	return int(s.End) - int(s.Start)
}

// Before orders slots by start time, used to keep slot lists sorted.
func (s TimeSlot) Before(other TimeSlot) bool {
	return s.Start < other.Start
}

// SlotsPairwiseDisjointOrdered reports whether slots are ordered (each slot
// ends before or at the next slot's start; adjacent half-open slots are
// accepted) and pairwise non-overlapping.
func SlotsPairwiseDisjointOrdered(slots []TimeSlot) bool {
	for i := 1; i < len(slots); i++ {
		if slots[i-1].End > slots[i].Start {
			return false
		}
	}
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				return false
			}
		}
	}
	return true
}

// TotalDurationMinutes sums slot durations.
func TotalDurationMinutes(slots []TimeSlot) int {
	total := 0
	for _, s := range slots {
		total += s.DurationMinutes()
	}
	return total
}
