package domain

import "testing"

func TestFlatPricesCurrentPurchasePrice(t *testing.T) {
	p, err := NewFlatPrices(0.2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.CurrentPurchasePrice(mustTOD(t, 3, 0)); got != 0.2 {
		t.Errorf("expected flat base price, got %f", got)
	}
	if _, err := p.Peak(); err == nil {
		t.Fatal("expected mode-mismatch reading Peak in FLAT mode")
	}
}

func TestPeakOffPeakCurrentPurchasePrice(t *testing.T) {
	peakSlot, _ := NewTimeSlot(mustTOD(t, 18, 0), mustTOD(t, 20, 0))
	p, err := NewPeakOffPeakPrices(0.3, 0.1, 0.05, []TimeSlot{peakSlot})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.CurrentPurchasePrice(mustTOD(t, 19, 0)); got != 0.3 {
		t.Errorf("expected peak price inside slot, got %f", got)
	}
	if got := p.CurrentPurchasePrice(mustTOD(t, 10, 0)); got != 0.1 {
		t.Errorf("expected off-peak price outside slot, got %f", got)
	}
	if _, err := p.Base(); err == nil {
		t.Fatal("expected mode-mismatch reading Base in HPHC mode")
	}
}

func TestPeakSlotsRejectOverlapAcceptNearFullCoverage(t *testing.T) {
	a, _ := NewTimeSlot(mustTOD(t, 8, 0), mustTOD(t, 12, 0))
	b, _ := NewTimeSlot(mustTOD(t, 10, 0), mustTOD(t, 14, 0))
	if _, err := NewPeakOffPeakPrices(0.3, 0.1, 0.05, []TimeSlot{a, b}); err == nil {
		t.Fatal("expected overlap rejection")
	}

	full, _ := NewTimeSlot(mustTOD(t, 0, 0), mustTOD(t, 23, 59))
	if _, err := NewPeakOffPeakPrices(0.3, 0.1, 0.05, []TimeSlot{full}); err != nil {
		t.Fatalf("expected near-full-day coverage (<24h) to pass, got %v", err)
	}
}

func TestPeakSlotsRejectEmpty(t *testing.T) {
	if _, err := NewPeakOffPeakPrices(0.3, 0.1, 0.05, nil); err == nil {
		t.Fatal("expected error: total peak duration must be > 0")
	}
}
