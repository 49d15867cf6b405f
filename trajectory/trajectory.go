// Package trajectory implements the TrajectorySystem state machine: the
// decision vector X, its causal recomputation, KPI caching, and the
// standard-thermostat/router simulators used when the solver is bypassed.
package trajectory

import (
	"math"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
	"github.com/devskill-org/wh-mpc/optimize"
)

// State is the write-permission mode of a TrajectorySystem.
type State int

const (
	Manual State = iota
	Solver
	SolverDelivered
)

func (s State) String() string {
	switch s {
	case Manual:
		return "MANUAL"
	case Solver:
		return "SOLVER"
	case SolverDelivered:
		return "SOLVER_DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// System holds a decision vector X = [x(N) | T(N+1) | I(N) | E(N)] alongside
// the config/context it was built against (borrowed, never mutated) and
// cached cost/self-consumption scalars (C13).
type System struct {
	Config  *optimize.SystemConfig
	Context *externalcontext.ExternalContext

	state State
	n     int
	x     []float64

	cost            *float64
	selfConsumption *float64
}

// New builds an empty trajectory in the MANUAL state for the given config
// and context.
func New(config *optimize.SystemConfig, context *externalcontext.ExternalContext) *System {
	return &System{Config: config, Context: context, state: Manual, n: context.N, x: nanVector(4*context.N + 1)}
}

func nanVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// State returns the current write-permission state.
func (s *System) State() State { return s.state }

// N returns the horizon step count.
func (s *System) N() int { return s.n }

func (s *System) idxX(i int) int { return i }
func (s *System) idxT(i int) int { return s.n + i }
func (s *System) idxI(i int) int { return 2*s.n + 1 + i }
func (s *System) idxE(i int) int { return 3*s.n + 1 + i }

// X returns a copy of the full decision vector.
func (s *System) X() []float64 { return append([]float64(nil), s.x...) }

// Decisions returns a copy of the duty-cycle vector x(N).
func (s *System) Decisions() []float64 { return append([]float64(nil), s.x[:s.n]...) }

// Temperatures returns a copy of the T(N+1) vector.
func (s *System) Temperatures() []float64 {
	return append([]float64(nil), s.x[s.n:2*s.n+1]...)
}

// Imports returns a copy of I(N).
func (s *System) Imports() []float64 {
	return append([]float64(nil), s.x[2*s.n+1:3*s.n+1]...)
}

// Exports returns a copy of E(N).
func (s *System) Exports() []float64 {
	return append([]float64(nil), s.x[3*s.n+1:4*s.n+1]...)
}

func (s *System) invalidateCaches() {
	s.cost = nil
	s.selfConsumption = nil
}

// MakeSolver transitions MANUAL → SOLVER.
func (s *System) MakeSolver() { s.state = Solver }

// MakeSolverDelivered transitions SOLVER → SOLVER_DELIVERED.
func (s *System) MakeSolverDelivered() { s.state = SolverDelivered }

// SetX is the validated "x :=" setter: forbidden in SOLVER_DELIVERED,
// rejects wrong length, out-of-[0,1] values, and (when gradation is
// disabled) non-binary values. On success it stores x at [0,N) and fills
// [N,4N+1) with a NaN sentinel pending UpdateX, and clears KPI caches.
func (s *System) SetX(x []float64) error {
	if s.state == SolverDelivered {
		return &domain.PermissionError{Operation: "x :=", State: s.state.String()}
	}
	if len(x) != s.n {
		return &domain.DimensionError{Field: "x", Expected: s.n, Got: len(x)}
	}
	for _, v := range x {
		if v < 0 || v > 1 {
			return domain.NewValidationError("x", "values must lie in [0,1]")
		}
		if !s.Config.Gradation && v != 0 && v != 1 {
			return domain.NewValidationError("x", "gradation disabled: values must be binary")
		}
	}
	next := nanVector(4*s.n + 1)
	copy(next[:s.n], x)
	s.x = next
	s.invalidateCaches()
	return nil
}

// UploadX is the solver's raw-vector upload: allowed only in SOLVER.
func (s *System) UploadX(x []float64) error {
	if s.state != Solver {
		return &domain.PermissionError{Operation: "upload_X", State: s.state.String()}
	}
	if len(x) != 4*s.n+1 {
		return &domain.DimensionError{Field: "X", Expected: 4*s.n + 1, Got: len(x)}
	}
	s.x = append([]float64(nil), x...)
	s.invalidateCaches()
	return nil
}

// UploadCost is the solver's normalized-cost upload: allowed only in SOLVER.
func (s *System) UploadCost(cost float64) error {
	if s.state != Solver {
		return &domain.PermissionError{Operation: "upload_cost", State: s.state.String()}
	}
	s.cost = &cost
	return nil
}

// UpdateX recomputes the full vector forward from the stored duty cycle:
// the electrical balance vectorized, the thermal recurrence strictly
// causal. Allowed in every state, provided x(N) is set.
func (s *System) UpdateX() error {
	if s.Config == nil || s.Context == nil {
		return &domain.ContextMissingError{Object: "TrajectorySystem"}
	}
	ctx := s.Context
	if ctx.HouseConsumption == nil {
		return &domain.MissingDataError{Field: "house_consumption"}
	}
	if ctx.SolarProduction == nil {
		return &domain.MissingDataError{Field: "solar_production"}
	}
	if ctx.WaterDraws == nil {
		return &domain.MissingDataError{Field: "water_draws"}
	}

	cfg := s.Config
	n := s.n
	k := (cfg.PowerWatts * float64(ctx.Delta.Minutes()) * 60) / (cfg.VolumeLiters * domain.WaterCp)
	l := cfg.Insulation * float64(ctx.Delta.Minutes())

	for i := 0; i < n; i++ {
		x := s.x[s.idxX(i)]
		if math.IsNaN(x) {
			return domain.NewValidationError("x", "duty cycle not set")
		}
		pNet := ctx.HouseConsumption[i] - ctx.SolarProduction[i] + x*cfg.PowerWatts
		s.x[s.idxI(i)] = math.Max(0, pNet)
		s.x[s.idxE(i)] = math.Max(0, -pNet)
	}

	t := s.x[s.idxT(0)]
	if math.IsNaN(t) {
		return domain.NewValidationError("T[0]", "initial temperature not set")
	}
	for i := 0; i < n; i++ {
		rho := ctx.WaterDraws[i] / cfg.VolumeLiters
		x := s.x[s.idxX(i)]
		t = math.Max(cfg.ColdWaterC, t*(1-rho)+rho*cfg.ColdWaterC+k*x-l)
		s.x[s.idxT(i+1)] = t
	}

	s.invalidateCaches()
	return nil
}

// SetInitialTemperature seeds T[0] ahead of UpdateX.
func (s *System) SetInitialTemperature(t0 float64) {
	s.x[s.idxT(0)] = t0
}

// ComputeCost returns the cached cost or computes and caches it: cost =
// (Δ_hours/1000) · (⟨imports, prices_purchase⟩ − ⟨exports, prices_sell⟩).
func (s *System) ComputeCost() (float64, error) {
	if s.cost != nil {
		return *s.cost, nil
	}
	ctx := s.Context
	if ctx.PricesPurchase == nil {
		return 0, &domain.MissingDataError{Field: "prices_purchase"}
	}
	if ctx.PricesSell == nil {
		return 0, &domain.MissingDataError{Field: "prices_sell"}
	}
	deltaHours := ctx.Delta.Minutes() / 60
	imports := s.Imports()
	exports := s.Exports()
	sum := 0.0
	for i := 0; i < s.n; i++ {
		sum += imports[i]*ctx.PricesPurchase[i] - exports[i]*ctx.PricesSell[i]
	}
	cost := (deltaHours / 1000) * sum
	s.cost = &cost
	return cost, nil
}

// ComputeSelfConsumption returns the cached ratio or computes and caches
// it: (total_prod − total_export) / total_prod, or 0 if total_prod == 0.
func (s *System) ComputeSelfConsumption() (float64, error) {
	if s.selfConsumption != nil {
		return *s.selfConsumption, nil
	}
	ctx := s.Context
	if ctx.SolarProduction == nil {
		return 0, &domain.MissingDataError{Field: "solar_production"}
	}
	exports := s.Exports()
	totalProd := 0.0
	for _, v := range ctx.SolarProduction {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, domain.NewValidationError("solar_production", "must be fully materialized")
		}
		totalProd += v
	}
	totalExport := 0.0
	for _, v := range exports {
		if math.IsNaN(v) {
			return 0, domain.NewValidationError("exports", "must be fully materialized")
		}
		totalExport += v
	}
	var ratio float64
	if totalProd == 0 {
		ratio = 0
	} else {
		ratio = (totalProd - totalExport) / totalProd
	}
	s.selfConsumption = &ratio
	return ratio, nil
}
