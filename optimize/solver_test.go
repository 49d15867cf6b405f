package optimize

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func singleStepCtx(t *testing.T, purchase, sell, futureSetpoint, availability float64) *externalcontext.ExternalContext {
	t.Helper()
	ctx := externalcontext.New(time.Now(), 1, 15*time.Minute)
	if err := ctx.SetPricesPurchase([]float64{purchase}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetPricesSell([]float64{sell}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetSolarProduction([]float64{0}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetHouseConsumption([]float64{0}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetWaterDraws([]float64{0}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetFutureSetpoints([]float64{futureSetpoint}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetAvailabilityOn([]float64{availability}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetOffPeakHours([]float64{1}); err != nil {
		t.Fatal(err)
	}
	return ctx
}

// Chosen so that K = power*delta*60/(volume*Cp) = 5 exactly: reaching the
// 55C floor from 50C requires exactly x0 = 1 (full duty for the one step).
func heatingConfig(gradation bool) *SystemConfig {
	return &SystemConfig{VolumeLiters: 100, PowerWatts: 2325, Insulation: 0, ColdWaterC: 10, MaxSafeTemperature: 90, Gradation: gradation}
}

func TestSolveLPMeetsFloorAtMinimalDuty(t *testing.T) {
	ctx := singleStepCtx(t, 1, 0.5, 55, 1)
	in, err := NewInputs(heatingConfig(true), ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Solve(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.X[in.idxX(0)], 1) {
		t.Errorf("expected x0=1 to exactly meet the 55C floor, got %f", res.X[in.idxX(0)])
	}
	if !almostEqual(res.X[in.idxT(1)], 55) {
		t.Errorf("expected T1=55, got %f", res.X[in.idxT(1)])
	}
	if !almostEqual(res.X[in.idxE(0)], 0) {
		t.Errorf("expected zero export since purchase exceeds sell price, got %f", res.X[in.idxE(0)])
	}
	if !almostEqual(res.Objective, 2325) {
		t.Errorf("expected objective = power drawn at purchase price, got %f", res.Objective)
	}
}

func TestSolveLPSkipsHeatingWhenFloorAlreadyMet(t *testing.T) {
	ctx := singleStepCtx(t, 1, 0.5, 50, 1)
	in, err := NewInputs(heatingConfig(true), ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Solve(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.X[in.idxX(0)], 0) {
		t.Errorf("expected no heating needed, got x0=%f", res.X[in.idxX(0)])
	}
	if !almostEqual(res.Objective, 0) {
		t.Errorf("expected zero cost, got %f", res.Objective)
	}
}

func TestSolveMILPKeepsIntegralDutyCycle(t *testing.T) {
	ctx := singleStepCtx(t, 1, 0.5, 55, 1)
	in, err := NewInputs(heatingConfig(false), ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Solve(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.X[in.idxX(0)], 1) {
		t.Errorf("expected binary duty x0=1, got %f", res.X[in.idxX(0)])
	}
}

func TestSolveFailsWhenDutyCannotReachFloor(t *testing.T) {
	// availability_on = 0 makes heating impossible, but the floor still
	// requires T1 >= 55 > T0 = 50: infeasible.
	ctx := singleStepCtx(t, 1, 0.5, 55, 0)
	in, err := NewInputs(heatingConfig(true), ctx, 50, domain.Cost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Solve(context.Background(), in); err == nil {
		t.Fatal("expected SolverFailedError for an infeasible floor")
	}
}
