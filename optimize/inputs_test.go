package optimize

import (
	"testing"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
)

func buildCtx(t *testing.T, n int) *externalcontext.ExternalContext {
	t.Helper()
	ctx := externalcontext.New(time.Now(), n, 15*time.Minute)
	ones := make([]float64, n)
	zeros := make([]float64, n)
	floors := make([]float64, n)
	for i := range ones {
		ones[i] = 1
		floors[i] = 45
	}
	if err := ctx.SetPricesPurchase(ones); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetPricesSell(ones); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetSolarProduction(zeros); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetHouseConsumption(zeros); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetWaterDraws(zeros); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetFutureSetpoints(floors); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetAvailabilityOn(ones); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetOffPeakHours(ones); err != nil {
		t.Fatal(err)
	}
	return ctx
}

func TestInputsEqualitiesShapeAndInitialRow(t *testing.T) {
	cfg := &SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.02, ColdWaterC: 15, MaxSafeTemperature: 90, Gradation: true}
	ctx := buildCtx(t, 3)
	in, err := NewInputs(cfg, ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}

	aEq, bEq, err := in.Equalities()
	if err != nil {
		t.Fatal(err)
	}
	r, c := len(aEq), len(aEq[0])
	if r != 2*3+1 || c != 4*3+1 {
		t.Fatalf("expected (2N+1)x(4N+1) = 7x13, got %dx%d", r, c)
	}
	if bEq[0] != 50 {
		t.Fatalf("expected initial-condition RHS = initial temperature, got %f", bEq[0])
	}
	if aEq[0][in.idxT(0)] != 1 {
		t.Fatalf("expected initial row to pin T[0]")
	}
}

func TestInputsBoundsUseFutureSetpointsAsFloor(t *testing.T) {
	cfg := &SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.02, ColdWaterC: 15, MaxSafeTemperature: 90, Gradation: true}
	ctx := buildCtx(t, 2)
	in, err := NewInputs(cfg, ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, err := in.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if lo[in.idxT(1)] != 45 {
		t.Errorf("expected T[1] floor = future setpoint, got %f", lo[in.idxT(1)])
	}
	if hi[in.idxT(1)] != 90 {
		t.Errorf("expected T[1] ceiling = max safe temperature, got %f", hi[in.idxT(1)])
	}
}

func TestInputsIntegralFlagsXWhenGradationDisabled(t *testing.T) {
	cfg := &SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.02, ColdWaterC: 15, MaxSafeTemperature: 90, Gradation: false}
	ctx := buildCtx(t, 2)
	in, err := NewInputs(cfg, ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	intg, err := in.Integral()
	if err != nil {
		t.Fatal(err)
	}
	if !intg[in.idxX(0)] || !intg[in.idxX(1)] {
		t.Fatal("expected x(N) flagged integral when gradation is disabled")
	}
	if intg[in.idxT(0)] {
		t.Fatal("expected T to remain continuous")
	}
}

func TestInputsRejectsOutOfRangeInitialTemperature(t *testing.T) {
	cfg := &SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.02, ColdWaterC: 15, MaxSafeTemperature: 90, Gradation: true}
	ctx := buildCtx(t, 2)
	if _, err := NewInputs(cfg, ctx, 150, domain.Cost); err == nil {
		t.Fatal("expected validation error for out-of-range initial temperature")
	}
}

func TestInputsBuildFailsOnMissingContextVector(t *testing.T) {
	cfg := &SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.02, ColdWaterC: 15, MaxSafeTemperature: 90, Gradation: true}
	ctx := externalcontext.New(time.Now(), 2, 15*time.Minute)
	in, err := NewInputs(cfg, ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := in.Equalities(); err == nil {
		t.Fatal("expected missing-data error when context vectors are unset")
	}
}
