// Package optimize builds the LP/MILP formulation of the water-heater
// dispatch problem (matrices, bounds, objective) and dispatches to the LP or
// MILP backend to produce a raw decision vector.
package optimize

import (
	"math"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
)

// defaultMaxSafeTemperature bounds the tank temperature for safety; the
// spec's Client does not carry an explicit value for it, so SystemConfig
// defaults here and callers may override it.
const defaultMaxSafeTemperature = 90.0

// SystemConfig is the projection of a Client onto the scalar physical
// parameters the solver needs (C9).
type SystemConfig struct {
	VolumeLiters       float64
	PowerWatts         float64
	Insulation         float64
	ColdWaterC         float64
	MaxSafeTemperature float64
	Gradation          bool
}

// FromClient projects a Client's WaterHeater and Features onto a SystemConfig.
func FromClient(c *domain.Client) *SystemConfig {
	return &SystemConfig{
		VolumeLiters:       c.WaterHeater.VolumeLiters,
		PowerWatts:         c.WaterHeater.PowerWatts,
		Insulation:         c.WaterHeater.Insulation,
		ColdWaterC:         c.WaterHeater.ColdWaterC,
		MaxSafeTemperature: defaultMaxSafeTemperature,
		Gradation:          c.Features.Gradation,
	}
}

// Inputs bundles the system config, external context, initial temperature
// and objective mode, and lazily derives the LP/MILP matrices, bounds,
// objective and integrality vector (C11).
type Inputs struct {
	Config             *SystemConfig
	Context            *externalcontext.ExternalContext
	InitialTemperature float64
	Mode               domain.ObjectiveMode

	n int

	aEq   [][]float64
	bEq   []float64
	lo    []float64
	hi    []float64
	obj   []float64
	intg  []bool
	built bool
}

// alpha, beta are the SELF_CONSUMPTION objective penalties: strongly
// penalize import, gently penalize export, per spec.md §4.7.
const (
	alphaImportPenalty = 1000.0
	betaExportPenalty  = 1.0
)

// NewInputs validates and constructs Inputs. InitialTemperature must be in
// [0,100].
func NewInputs(config *SystemConfig, ctx *externalcontext.ExternalContext, initialTemperature float64, mode domain.ObjectiveMode) (*Inputs, error) {
	if initialTemperature < 0 || initialTemperature > 100 {
		return nil, domain.NewValidationError("initial_temperature", "must be in [0,100]")
	}
	return &Inputs{Config: config, Context: ctx, InitialTemperature: initialTemperature, Mode: mode, n: ctx.N}, nil
}

// N returns the horizon step count.
func (in *Inputs) N() int { return in.n }

// index helpers for the X = [x(N) | T(N+1) | I(N) | E(N)] layout.
func (in *Inputs) idxX(i int) int { return i }
func (in *Inputs) idxT(i int) int { return in.n + i }
func (in *Inputs) idxI(i int) int { return 2*in.n + 1 + i }
func (in *Inputs) idxE(i int) int { return 3*in.n + 1 + i }

// Len returns the decision vector length 4N+1.
func (in *Inputs) Len() int { return 4*in.n + 1 }

func (in *Inputs) requireContext() error {
	c := in.Context
	missing := func(name string, v []float64) error {
		if v == nil {
			return &domain.MissingDataError{Field: name}
		}
		return nil
	}
	if err := missing("water_draws", c.WaterDraws); err != nil {
		return err
	}
	if err := missing("house_consumption", c.HouseConsumption); err != nil {
		return err
	}
	if err := missing("solar_production", c.SolarProduction); err != nil {
		return err
	}
	if err := missing("availability_on", c.AvailabilityOn); err != nil {
		return err
	}
	if err := missing("future_setpoints", c.FutureSetpoints); err != nil {
		return err
	}
	if in.Mode == domain.Cost {
		if err := missing("prices_purchase", c.PricesPurchase); err != nil {
			return err
		}
		if err := missing("prices_sell", c.PricesSell); err != nil {
			return err
		}
	}
	return nil
}

func (in *Inputs) build() error {
	if in.built {
		return nil
	}
	if err := in.requireContext(); err != nil {
		return err
	}

	n := in.n
	cfg := in.Config
	ctx := in.Context
	k := (cfg.PowerWatts * float64(ctx.Delta.Minutes()) * 60) / (cfg.VolumeLiters * domain.WaterCp)
	l := cfg.Insulation * float64(ctx.Delta.Minutes())

	rows := 2*n + 1
	cols := in.Len()
	aEq := make([][]float64, rows)
	for r := range aEq {
		aEq[r] = make([]float64, cols)
	}
	bEq := make([]float64, rows)

	// Initial condition: T[0] = T0
	aEq[0][in.idxT(0)] = 1
	bEq[0] = in.InitialTemperature

	for i := 0; i < n; i++ {
		rho := ctx.WaterDraws[i] / cfg.VolumeLiters

		// Thermodynamics row: T[i+1] - (1-rho)*T[i] - K*x[i] = rho*cold - L
		row := 1 + i
		aEq[row][in.idxT(i+1)] = 1
		aEq[row][in.idxT(i)] = -(1 - rho)
		aEq[row][in.idxX(i)] = -k
		bEq[row] = rho*cfg.ColdWaterC - l

		// Electrical balance row: I[i] - E[i] - power*x[i] = house[i] - solar[i]
		erow := 1 + n + i
		aEq[erow][in.idxI(i)] = 1
		aEq[erow][in.idxE(i)] = -1
		aEq[erow][in.idxX(i)] = -cfg.PowerWatts
		bEq[erow] = ctx.HouseConsumption[i] - ctx.SolarProduction[i]
	}

	lo := make([]float64, cols)
	hi := make([]float64, cols)
	for i := 0; i < n; i++ {
		lo[in.idxX(i)] = 0
		hi[in.idxX(i)] = ctx.AvailabilityOn[i]
	}
	lo[in.idxT(0)] = 0
	hi[in.idxT(0)] = cfg.MaxSafeTemperature
	for i := 1; i <= n; i++ {
		lo[in.idxT(i)] = ctx.FutureSetpoints[i-1]
		hi[in.idxT(i)] = cfg.MaxSafeTemperature
	}
	for i := 0; i < n; i++ {
		lo[in.idxI(i)] = 0
		hi[in.idxI(i)] = math.Inf(1)
		lo[in.idxE(i)] = 0
		hi[in.idxE(i)] = math.Inf(1)
	}

	obj := make([]float64, cols)
	switch in.Mode {
	case domain.Cost:
		for i := 0; i < n; i++ {
			obj[in.idxI(i)] = ctx.PricesPurchase[i]
			obj[in.idxE(i)] = -ctx.PricesSell[i]
		}
	case domain.SelfConsumption:
		for i := 0; i < n; i++ {
			obj[in.idxI(i)] = alphaImportPenalty
			obj[in.idxE(i)] = betaExportPenalty
		}
	}

	intg := make([]bool, cols)
	if !cfg.Gradation {
		for i := 0; i < n; i++ {
			intg[in.idxX(i)] = true
		}
	}

	in.aEq, in.bEq, in.lo, in.hi, in.obj, in.intg = aEq, bEq, lo, hi, obj, intg
	in.built = true
	return nil
}

// Equalities returns A_eq as dense row-major []float64 rows and the B_eq
// vector; the solver assembles these (plus its own slack rows for bounded
// variables) into the mat.Matrix it hands to gonum's simplex.
func (in *Inputs) Equalities() ([][]float64, []float64, error) {
	if err := in.build(); err != nil {
		return nil, nil, err
	}
	rows := make([][]float64, len(in.aEq))
	for i, r := range in.aEq {
		rows[i] = append([]float64(nil), r...)
	}
	return rows, append([]float64(nil), in.bEq...), nil
}

// Bounds returns the per-variable lower/upper bounds.
func (in *Inputs) Bounds() ([]float64, []float64, error) {
	if err := in.build(); err != nil {
		return nil, nil, err
	}
	return append([]float64(nil), in.lo...), append([]float64(nil), in.hi...), nil
}

// Objective returns the linear objective coefficient vector (to minimize).
func (in *Inputs) Objective() ([]float64, error) {
	if err := in.build(); err != nil {
		return nil, err
	}
	return append([]float64(nil), in.obj...), nil
}

// Integral returns, per variable, whether it must take an integer value.
func (in *Inputs) Integral() ([]bool, error) {
	if err := in.build(); err != nil {
		return nil, err
	}
	return append([]bool(nil), in.intg...), nil
}
