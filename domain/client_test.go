package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func buildTestClient(t *testing.T) *Client {
	t.Helper()
	wh, err := NewWaterHeater(150, 2500, 0.02, 15)
	if err != nil {
		t.Fatal(err)
	}
	prices, err := NewFlatPrices(0.2, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	features := NewFeatures(true, Cost)
	slot, _ := NewTimeSlot(mustTOD(t, 1, 0), mustTOD(t, 2, 0))
	constraints, err := NewConstraints(nil, []TimeSlot{slot}, 45)
	if err != nil {
		t.Fatal(err)
	}
	sp, _ := NewSetpoint(0, mustTOD(t, 7, 0), 55, 10)
	planning := NewPlanning([]Setpoint{sp})
	return NewClient(42, wh, prices, features, constraints, planning)
}

func TestClientDictRoundTripIsIdempotent(t *testing.T) {
	c := buildTestClient(t)
	d1 := c.ToDict()

	c2, err := ClientFromDict(d1)
	if err != nil {
		t.Fatal(err)
	}
	d2 := c2.ToDict()

	b1, _ := json.Marshal(d1)
	b2, _ := json.Marshal(d2)
	if string(b1) != string(b2) {
		t.Fatalf("round trip not idempotent:\n%s\nvs\n%s", b1, b2)
	}
}

func TestClientYAMLRoundTrip(t *testing.T) {
	c := buildTestClient(t)
	data, err := c.ToYAML()
	if err != nil {
		t.Fatal(err)
	}
	c2, err := ClientFromYAML(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.ToDict(), c2.ToDict()) {
		t.Fatal("expected YAML round trip to preserve the dict form")
	}
}

func TestClientFromDictRejectsBadMode(t *testing.T) {
	c := buildTestClient(t)
	d := c.ToDict()
	d.Prices.Mode = "NOT_A_MODE"
	if _, err := ClientFromDict(d); err == nil {
		t.Fatal("expected error for unknown price mode")
	}
}
