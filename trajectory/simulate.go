package trajectory

import (
	"math"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
	"github.com/devskill-org/wh-mpc/optimize"
)

// StandardMode selects the thermostat simulator's arm.
type StandardMode int

const (
	Setpoint StandardMode = iota
	SetpointOffPeak
)

func (m StandardMode) String() string {
	switch m {
	case Setpoint:
		return "SETPOINT"
	case SetpointOffPeak:
		return "SETPOINT_OFFPEAK"
	default:
		return "UNKNOWN"
	}
}

// RouterMode selects the router simulator's arm.
type RouterMode int

const (
	SelfConsOnly RouterMode = iota
	Comfort
)

func (m RouterMode) String() string {
	switch m {
	case SelfConsOnly:
		return "SELF_CONS_ONLY"
	case Comfort:
		return "COMFORT"
	default:
		return "UNKNOWN"
	}
}

func causalStep(cfg *optimize.SystemConfig, ctx *externalcontext.ExternalContext, t, rho, x float64) float64 {
	k := (cfg.PowerWatts * ctx.Delta.Minutes() * 60) / (cfg.VolumeLiters * domain.WaterCp)
	l := cfg.Insulation * ctx.Delta.Minutes()
	return math.Max(cfg.ColdWaterC, t*(1-rho)+rho*cfg.ColdWaterC+k*x-l)
}

// GenerateStandardTrajectory simulates a plain thermostat: heat whenever
// below setpoint_T (and, in SETPOINT_OFFPEAK mode, only during off-peak
// hours). Does not invoke the solver.
func GenerateStandardTrajectory(cfg *optimize.SystemConfig, ctx *externalcontext.ExternalContext, t0 float64, mode StandardMode, setpointT float64) (*System, error) {
	sys := New(cfg, ctx)
	x := make([]float64, sys.n)
	t := t0

	for i := 0; i < sys.n; i++ {
		need := t < setpointT
		allowed := true
		if mode == SetpointOffPeak {
			allowed = ctx.OffPeakHours != nil && ctx.OffPeakHours[i] == 1
		}
		if need && allowed {
			x[i] = 1
		}
		rho := 0.0
		if ctx.WaterDraws != nil {
			rho = ctx.WaterDraws[i] / cfg.VolumeLiters
		}
		t = causalStep(cfg, ctx, t, rho, x[i])
	}

	if err := sys.SetX(x); err != nil {
		return nil, err
	}
	sys.SetInitialTemperature(t0)
	if err := sys.UpdateX(); err != nil {
		return nil, err
	}
	return sys, nil
}

// GenerateRouterOnlyTrajectory simulates a solar router: prioritize surplus
// solar, optionally backed by a comfort floor during off-peak hours.
func GenerateRouterOnlyTrajectory(cfg *optimize.SystemConfig, ctx *externalcontext.ExternalContext, t0 float64, mode RouterMode, setpointT float64) (*System, error) {
	sys := New(cfg, ctx)
	x := make([]float64, sys.n)
	t := t0

	for i := 0; i < sys.n; i++ {
		if t >= setpointT {
			x[i] = 0
		} else {
			solar := 0.0
			if ctx.SolarProduction != nil {
				solar = ctx.SolarProduction[i]
			}
			house := 0.0
			if ctx.HouseConsumption != nil {
				house = ctx.HouseConsumption[i]
			}
			xSolar := clamp(math.Max(0, solar-house)/cfg.PowerWatts, 0, 1)

			xBackup := 0.0
			if mode == Comfort && ctx.OffPeakHours != nil && ctx.OffPeakHours[i] == 1 {
				xBackup = 1
			}
			x[i] = math.Max(xSolar, xBackup)
			if !cfg.Gradation {
				// A relay-only client cannot track partial solar surplus;
				// round to the nearest full/no duty step so SetX's binary
				// invariant holds.
				x[i] = math.Round(x[i])
			}
		}
		rho := 0.0
		if ctx.WaterDraws != nil {
			rho = ctx.WaterDraws[i] / cfg.VolumeLiters
		}
		t = causalStep(cfg, ctx, t, rho, x[i])
	}

	if err := sys.SetX(x); err != nil {
		return nil, err
	}
	sys.SetInitialTemperature(t0)
	if err := sys.UpdateX(); err != nil {
		return nil, err
	}
	return sys, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
