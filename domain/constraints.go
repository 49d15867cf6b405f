package domain

// Constraints bundles the consumption baseline, forbidden heating slots and
// minimum tank temperature floor.
type Constraints struct {
	ConsumptionProfile *ConsumptionProfile
	forbidden          []TimeSlot
	MinimumTemperature float64 // [0,95]
}

// NewConstraints validates and constructs Constraints.
func NewConstraints(profile *ConsumptionProfile, forbidden []TimeSlot, minTemp float64) (*Constraints, error) {
	if minTemp < 0 || minTemp > 95 {
		return nil, NewValidationError("constraints.minimum_temperature", "must be in [0,95]")
	}
	if err := validateForbiddenSlots(forbidden); err != nil {
		return nil, err
	}
	cp := profile
	if cp == nil {
		var err error
		cp, err = NewConsumptionProfile(nil, DefaultBackgroundWatts)
		if err != nil {
			return nil, err
		}
	}
	c := &Constraints{ConsumptionProfile: cp, MinimumTemperature: minTemp}
	c.forbidden = append([]TimeSlot(nil), forbidden...)
	return c, nil
}

func validateForbiddenSlots(slots []TimeSlot) error {
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Overlaps(slots[j]) {
				return NewValidationError("constraints.forbidden_slots", "forbidden slots must be pairwise non-overlapping")
			}
		}
	}
	if TotalDurationMinutes(slots) >= 24*60 {
		return NewValidationError("constraints.forbidden_slots", "total forbidden duration must be < 24h")
	}
	return nil
}

// ForbiddenSlots returns a copy of the forbidden slot list.
func (c *Constraints) ForbiddenSlots() []TimeSlot {
	out := make([]TimeSlot, len(c.forbidden))
	copy(out, c.forbidden)
	return out
}

// SetForbiddenSlots validates (non-overlap, total<24h) before accepting a
// new list; invalid attempts leave previous state intact.
func (c *Constraints) SetForbiddenSlots(slots []TimeSlot) error {
	if err := validateForbiddenSlots(slots); err != nil {
		return err
	}
	c.forbidden = append([]TimeSlot(nil), slots...)
	return nil
}

// AddForbiddenSlot is an atomic test-then-insert: builds a candidate list,
// validates it, then commits.
func (c *Constraints) AddForbiddenSlot(slot TimeSlot) error {
	candidate := append(append([]TimeSlot(nil), c.forbidden...), slot)
	if err := validateForbiddenSlots(candidate); err != nil {
		return err
	}
	c.forbidden = candidate
	return nil
}

// IsAllowed returns true iff no forbidden slot contains t.
func (c *Constraints) IsAllowed(t TimeOfDay) bool {
	for _, s := range c.forbidden {
		if s.Contains(t) {
			return false
		}
	}
	return true
}
