package trajectory

import (
	"math"
	"testing"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
	"github.com/devskill-org/wh-mpc/optimize"
)

func testConfig(gradation bool) *optimize.SystemConfig {
	return &optimize.SystemConfig{VolumeLiters: 150, PowerWatts: 2500, Insulation: 0.01, ColdWaterC: 12, MaxSafeTemperature: 90, Gradation: gradation}
}

func testContext(t *testing.T, n int) *externalcontext.ExternalContext {
	t.Helper()
	ctx := externalcontext.New(time.Now(), n, 15*time.Minute)
	ones := make([]float64, n)
	zeros := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(ctx.SetPricesPurchase(ones))
	must(ctx.SetPricesSell(ones))
	must(ctx.SetSolarProduction(zeros))
	must(ctx.SetHouseConsumption(zeros))
	must(ctx.SetWaterDraws(zeros))
	must(ctx.SetFutureSetpoints(zeros))
	must(ctx.SetAvailabilityOn(ones))
	must(ctx.SetOffPeakHours(ones))
	return ctx
}

func TestSetXRejectsAfterSolverDelivered(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 3))
	sys.MakeSolver()
	sys.MakeSolverDelivered()
	if err := sys.SetX([]float64{0, 0, 0}); err == nil {
		t.Fatal("expected permission error in SOLVER_DELIVERED")
	}
}

func TestSetXRejectsNonBinaryWhenGradationDisabled(t *testing.T) {
	sys := New(testConfig(false), testContext(t, 2))
	if err := sys.SetX([]float64{0.5, 1}); err == nil {
		t.Fatal("expected validation error for non-binary x with gradation disabled")
	}
}

func TestUploadXForbiddenOutsideSolverState(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 2))
	if err := sys.UploadX(make([]float64, 4*2+1)); err == nil {
		t.Fatal("expected permission error: upload_X forbidden in MANUAL")
	}
	sys.MakeSolver()
	if err := sys.UploadX(make([]float64, 4*2+1)); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateXKeepsTemperatureAboveColdWater(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 4))
	if err := sys.SetX([]float64{0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	sys.SetInitialTemperature(5) // below cold water floor
	if err := sys.UpdateX(); err != nil {
		t.Fatal(err)
	}
	// T[0] is the supplied initial value; the floor applies from T[1] on.
	for _, temp := range sys.Temperatures()[1:] {
		if temp < 12-1e-9 {
			t.Errorf("expected every temperature >= cold water (12), got %f", temp)
		}
	}
}

func TestUpdateXImportExportAreComplementary(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 3))
	if err := sys.SetX([]float64{1, 0, 1}); err != nil {
		t.Fatal(err)
	}
	sys.SetInitialTemperature(50)
	if err := sys.UpdateX(); err != nil {
		t.Fatal(err)
	}
	imports := sys.Imports()
	exports := sys.Exports()
	for i := range imports {
		if imports[i] < 0 || exports[i] < 0 {
			t.Fatalf("expected nonnegative imports/exports, got I=%v E=%v", imports, exports)
		}
		if imports[i] != 0 && exports[i] != 0 {
			t.Fatalf("expected at most one of import/export nonzero at step %d", i)
		}
	}
}

func TestComputeCostIsCachedUntilInvalidated(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 2))
	if err := sys.SetX([]float64{1, 0}); err != nil {
		t.Fatal(err)
	}
	sys.SetInitialTemperature(50)
	if err := sys.UpdateX(); err != nil {
		t.Fatal(err)
	}
	c1, err := sys.ComputeCost()
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.SetX([]float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	sys.SetInitialTemperature(50)
	if err := sys.UpdateX(); err != nil {
		t.Fatal(err)
	}
	c2, err := sys.ComputeCost()
	if err != nil {
		t.Fatal(err)
	}
	if c1 == c2 {
		t.Fatal("expected cache invalidation to produce a different cost after re-simulating with zero duty")
	}
}

func TestComputeSelfConsumptionZeroWhenNoSolar(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 2))
	if err := sys.SetX([]float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	sys.SetInitialTemperature(50)
	if err := sys.UpdateX(); err != nil {
		t.Fatal(err)
	}
	ratio, err := sys.ComputeSelfConsumption()
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 0 {
		t.Fatalf("expected 0 self-consumption when total solar production is 0, got %f", ratio)
	}
}

func TestGenerateStandardTrajectoryHeatsOnlyWhenBelowSetpoint(t *testing.T) {
	ctx := testContext(t, 4)
	sys, err := GenerateStandardTrajectory(testConfig(true), ctx, 50, Setpoint, 55)
	if err != nil {
		t.Fatal(err)
	}
	decisions := sys.Decisions()
	temps := sys.Temperatures()
	for i, x := range decisions {
		need := temps[i] < 55
		if need && x != 1 {
			t.Errorf("step %d: expected heating when below setpoint", i)
		}
		if !need && x != 0 {
			t.Errorf("step %d: expected no heating once setpoint reached", i)
		}
	}
}

func TestGenerateStandardTrajectoryOffPeakRespectsWindow(t *testing.T) {
	ctx := testContext(t, 2)
	if err := ctx.SetOffPeakHours([]float64{0, 1}); err != nil {
		t.Fatal(err)
	}
	sys, err := GenerateStandardTrajectory(testConfig(true), ctx, 10, SetpointOffPeak, 90)
	if err != nil {
		t.Fatal(err)
	}
	d := sys.Decisions()
	if d[0] != 0 {
		t.Errorf("expected no heating during on-peak hour, got x[0]=%f", d[0])
	}
	if d[1] != 1 {
		t.Errorf("expected heating allowed during off-peak hour, got x[1]=%f", d[1])
	}
}

func TestGenerateRouterOnlyTrajectorySelfConsumption(t *testing.T) {
	ctx := testContext(t, 4)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(ctx.SetSolarProduction([]float64{0, 3000, 3000, 0}))
	must(ctx.SetHouseConsumption([]float64{500, 500, 500, 500}))

	cfg := testConfig(true)
	cfg.PowerWatts = 2500
	sys, err := GenerateRouterOnlyTrajectory(cfg, ctx, 10, SelfConsOnly, 60)
	if err != nil {
		t.Fatal(err)
	}
	d := sys.Decisions()
	want := []float64{0, 1, 1, 0}
	for i, v := range want {
		if !almostEqualTraj(d[i], v) {
			t.Errorf("step %d: expected duty %f, got %f (full=%v)", i, v, d[i], d)
		}
	}
}

func almostEqualTraj(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestPermissionErrorNamesOperationAndState(t *testing.T) {
	sys := New(testConfig(true), testContext(t, 2))
	sys.MakeSolver()
	sys.MakeSolverDelivered()
	err := sys.SetX([]float64{0, 0})
	perr, ok := err.(*domain.PermissionError)
	if !ok {
		t.Fatalf("expected *domain.PermissionError, got %T", err)
	}
	if perr.State != "SOLVER_DELIVERED" {
		t.Errorf("expected state SOLVER_DELIVERED, got %s", perr.State)
	}
}
