// Package service implements OptimizerService (C14): the end-to-end
// forecast-to-trajectory pipeline, and its standard/router simulator
// siblings.
package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/devskill-org/wh-mpc/domain"
	"github.com/devskill-org/wh-mpc/externalcontext"
	"github.com/devskill-org/wh-mpc/optimize"
	"github.com/devskill-org/wh-mpc/trajectory"
)

// ForecastSeries is a time-indexed numeric series — one column interpreted
// as solar production in watts, ascending timestamps, timezone-naive
// instants.
type ForecastSeries struct {
	Times  []time.Time
	Values []float64
}

// validate checks the series spans [start, start+horizon] with no gap
// between consecutive timestamps wider than 4*delta.
func (f ForecastSeries) validate(start time.Time, horizon, delta time.Duration) error {
	if len(f.Times) == 0 {
		return &domain.WeatherInvalidError{Reason: "forecast series is empty"}
	}
	for i := 1; i < len(f.Times); i++ {
		if f.Times[i].Before(f.Times[i-1]) {
			return &domain.WeatherInvalidError{Reason: "forecast timestamps are not ascending"}
		}
		gap := f.Times[i].Sub(f.Times[i-1])
		if gap > 4*delta {
			return &domain.WeatherInvalidError{Reason: "forecast gap exceeds 4*delta"}
		}
	}
	end := start.Add(horizon)
	if f.Times[0].After(start) || f.Times[len(f.Times)-1].Before(end) {
		return &domain.WeatherInvalidError{Reason: "forecast does not span [start, start+horizon]"}
	}
	return nil
}

// resample produces a length-n vector on the target grid (start, start+delta,
// ...) by linear interpolation between bracketing source points, with
// backfill/forwardfill at the edges.
func (f ForecastSeries) resample(start time.Time, n int, delta time.Duration) ([]float64, error) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		target := start.Add(time.Duration(i) * delta)
		v, err := f.valueAt(target)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &domain.WeatherInvalidError{Reason: "resampled forecast contains NaN or infinite value"}
		}
		out[i] = v
	}
	return out, nil
}

func (f ForecastSeries) valueAt(t time.Time) (float64, error) {
	idx := sort.Search(len(f.Times), func(i int) bool { return !f.Times[i].Before(t) })
	if idx == 0 {
		return f.Values[0], nil
	}
	if idx == len(f.Times) {
		return f.Values[len(f.Values)-1], nil
	}
	if f.Times[idx].Equal(t) {
		return f.Values[idx], nil
	}
	lo, hi := idx-1, idx
	span := f.Times[hi].Sub(f.Times[lo])
	if span <= 0 {
		return f.Values[lo], nil
	}
	frac := t.Sub(f.Times[lo]).Seconds() / span.Seconds()
	return f.Values[lo] + frac*(f.Values[hi]-f.Values[lo]), nil
}

// OptimizerService wires the forecast-to-trajectory pipeline with fixed
// horizon/step parameters and a solver timeout (each call is stateless and
// independently runnable; no shared state across concurrent calls).
type OptimizerService struct {
	HorizonHours  float64
	DeltaMinutes  int
	SolverTimeout time.Duration
}

const defaultSolverTimeout = 60 * time.Second

// NewOptimizerService builds a service with the given horizon/step and the
// spec's default 60s solver timeout.
func NewOptimizerService(horizonHours float64, deltaMinutes int) *OptimizerService {
	return &OptimizerService{HorizonHours: horizonHours, DeltaMinutes: deltaMinutes, SolverTimeout: defaultSolverTimeout}
}

func (s *OptimizerService) n() int {
	return int(s.HorizonHours * 60 / float64(s.DeltaMinutes))
}

func (s *OptimizerService) delta() time.Duration {
	return time.Duration(s.DeltaMinutes) * time.Minute
}

// prepare runs steps 1-3 common to every sibling method: validate, resample,
// assemble ExternalContext and SystemConfig.
func (s *OptimizerService) prepare(client *domain.Client, start time.Time, forecast ForecastSeries) (*externalcontext.ExternalContext, *optimize.SystemConfig, error) {
	horizon := time.Duration(s.HorizonHours * float64(time.Hour))
	delta := s.delta()
	if err := forecast.validate(start, horizon, delta); err != nil {
		return nil, nil, err
	}
	solar, err := forecast.resample(start, s.n(), delta)
	if err != nil {
		return nil, nil, err
	}
	ctx, err := externalcontext.FromClient(client, start, solar, s.HorizonHours, s.DeltaMinutes)
	if err != nil {
		return nil, nil, err
	}
	cfg := optimize.FromClient(client)
	return ctx, cfg, nil
}

// TrajectoryOfClient runs the full pipeline: validate/resample the
// forecast, assemble context, build OptimizationInputs in the client's
// configured objective mode, invoke the solver, and deliver the resulting
// trajectory.
func (s *OptimizerService) TrajectoryOfClient(pctx context.Context, client *domain.Client, start time.Time, t0 float64, forecast ForecastSeries) (*trajectory.System, error) {
	ectx, cfg, err := s.prepare(client, start, forecast)
	if err != nil {
		return nil, err
	}

	inputs, err := optimize.NewInputs(cfg, ectx, t0, client.Features.Mode)
	if err != nil {
		return nil, err
	}

	solveCtx := pctx
	var cancel context.CancelFunc
	if s.SolverTimeout > 0 {
		solveCtx, cancel = context.WithTimeout(pctx, s.SolverTimeout)
		defer cancel()
	}

	result, err := optimize.Solve(solveCtx, inputs)
	if err != nil {
		return nil, err
	}

	sys := trajectory.New(cfg, ectx)
	sys.MakeSolver()
	if err := sys.UploadX(result.X); err != nil {
		return nil, err
	}
	if client.Features.Mode == domain.Cost {
		if err := sys.UploadCost(result.Objective * (float64(s.DeltaMinutes) / 60) / 1000); err != nil {
			return nil, err
		}
	}
	sys.MakeSolverDelivered()
	return sys, nil
}

// TrajectoryOfClientStandard reuses steps 1-3 then calls the thermostat
// simulator, bypassing the solver entirely.
func (s *OptimizerService) TrajectoryOfClientStandard(client *domain.Client, start time.Time, t0 float64, forecast ForecastSeries, mode trajectory.StandardMode, setpointT float64) (*trajectory.System, error) {
	ectx, cfg, err := s.prepare(client, start, forecast)
	if err != nil {
		return nil, err
	}
	return trajectory.GenerateStandardTrajectory(cfg, ectx, t0, mode, setpointT)
}

// TrajectoryOfClientRouter reuses steps 1-3 then calls the router
// simulator, bypassing the solver entirely.
func (s *OptimizerService) TrajectoryOfClientRouter(client *domain.Client, start time.Time, t0 float64, forecast ForecastSeries, mode trajectory.RouterMode, setpointT float64) (*trajectory.System, error) {
	ectx, cfg, err := s.prepare(client, start, forecast)
	if err != nil {
		return nil, err
	}
	return trajectory.GenerateRouterOnlyTrajectory(cfg, ectx, t0, mode, setpointT)
}
