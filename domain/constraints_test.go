package domain

import "testing"

func TestConstraintsIsAllowedEmptyForbidden(t *testing.T) {
	c, err := NewConstraints(nil, nil, 40)
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsAllowed(mustTOD(t, 3, 0)) {
		t.Error("expected always-allowed with no forbidden slots")
	}
}

func TestConstraintsDefaultsToBackgroundConsumptionWhenProfileOmitted(t *testing.T) {
	c, err := NewConstraints(nil, nil, 40)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.ConsumptionProfile.At(0, 0); got != DefaultBackgroundWatts {
		t.Errorf("expected background consumption %f, got %f", DefaultBackgroundWatts, got)
	}
}

func TestConstraintsRejectsOverlappingForbiddenSlots(t *testing.T) {
	a, _ := NewTimeSlot(mustTOD(t, 1, 0), mustTOD(t, 5, 0))
	b, _ := NewTimeSlot(mustTOD(t, 4, 0), mustTOD(t, 6, 0))
	if _, err := NewConstraints(nil, []TimeSlot{a, b}, 40); err == nil {
		t.Fatal("expected error for overlapping forbidden slots")
	}
}

func TestConstraintsRejectsFullDayCoverage(t *testing.T) {
	// 00:00-23:59 is only 1439 minutes, so a full day needs an end of 24:00,
	// which NewTimeOfDay cannot build.
	a := TimeSlot{Start: mustTOD(t, 0, 0), End: TimeOfDay(24 * 60)}
	if _, err := NewConstraints(nil, []TimeSlot{a}, 40); err == nil {
		t.Fatal("expected error when total forbidden duration >= 24h")
	}
}

func TestConstraintsSetForbiddenSlotsLeavesPreviousStateOnFailure(t *testing.T) {
	ok, _ := NewTimeSlot(mustTOD(t, 1, 0), mustTOD(t, 2, 0))
	c, err := NewConstraints(nil, []TimeSlot{ok}, 40)
	if err != nil {
		t.Fatal(err)
	}

	overlapA, _ := NewTimeSlot(mustTOD(t, 3, 0), mustTOD(t, 5, 0))
	overlapB, _ := NewTimeSlot(mustTOD(t, 4, 0), mustTOD(t, 6, 0))
	if err := c.SetForbiddenSlots([]TimeSlot{overlapA, overlapB}); err == nil {
		t.Fatal("expected validation error")
	}

	got := c.ForbiddenSlots()
	if len(got) != 1 || got[0] != ok {
		t.Fatalf("expected previous state to be preserved, got %+v", got)
	}
}

func TestConstraintsAddForbiddenSlotAtomic(t *testing.T) {
	a, _ := NewTimeSlot(mustTOD(t, 1, 0), mustTOD(t, 2, 0))
	c, err := NewConstraints(nil, []TimeSlot{a}, 40)
	if err != nil {
		t.Fatal(err)
	}
	overlap, _ := NewTimeSlot(mustTOD(t, 1, 30), mustTOD(t, 2, 30))
	if err := c.AddForbiddenSlot(overlap); err == nil {
		t.Fatal("expected overlap rejection")
	}
	if len(c.ForbiddenSlots()) != 1 {
		t.Fatal("expected no partial commit on failed add")
	}

	disjoint, _ := NewTimeSlot(mustTOD(t, 3, 0), mustTOD(t, 4, 0))
	if err := c.AddForbiddenSlot(disjoint); err != nil {
		t.Fatal(err)
	}
	if len(c.ForbiddenSlots()) != 2 {
		t.Fatal("expected successful add to commit")
	}
}
