// Package externalcontext assembles the horizon-aligned forecast vectors the
// optimizer consumes from a Client, a reference instant and an externally
// supplied solar production forecast.
package externalcontext

import (
	"time"

	"github.com/devskill-org/wh-mpc/domain"
)

// ExternalContext holds fixed-size (length N) vectors over the horizon. Each
// vector may be nil, meaning "not yet supplied" — callers must check before
// use and raise a MissingDataError naming the field.
type ExternalContext struct {
	ReferenceDatetime time.Time
	N                 int
	Delta             time.Duration

	PricesPurchase  []float64
	PricesSell      []float64
	SolarProduction []float64
	HouseConsumption []float64
	WaterDraws      []float64
	FutureSetpoints []float64
	AvailabilityOn  []float64
	OffPeakHours    []float64
}

// New builds an empty ExternalContext sized for N steps of length delta.
func New(reference time.Time, n int, delta time.Duration) *ExternalContext {
	return &ExternalContext{ReferenceDatetime: reference, N: n, Delta: delta}
}

func (c *ExternalContext) validate(field string, v []float64) error {
	if len(v) != c.N {
		return &domain.DimensionError{Field: field, Expected: c.N, Got: len(v)}
	}
	return nil
}

// SetPricesPurchase validates length and assigns.
func (c *ExternalContext) SetPricesPurchase(v []float64) error {
	if err := c.validate("prices_purchase", v); err != nil {
		return err
	}
	c.PricesPurchase = v
	return nil
}

// SetPricesSell validates length and assigns.
func (c *ExternalContext) SetPricesSell(v []float64) error {
	if err := c.validate("prices_sell", v); err != nil {
		return err
	}
	c.PricesSell = v
	return nil
}

// SetSolarProduction validates length and assigns.
func (c *ExternalContext) SetSolarProduction(v []float64) error {
	if err := c.validate("solar_production", v); err != nil {
		return err
	}
	c.SolarProduction = v
	return nil
}

// SetHouseConsumption validates length and assigns.
func (c *ExternalContext) SetHouseConsumption(v []float64) error {
	if err := c.validate("house_consumption", v); err != nil {
		return err
	}
	c.HouseConsumption = v
	return nil
}

// SetWaterDraws validates length and assigns.
func (c *ExternalContext) SetWaterDraws(v []float64) error {
	if err := c.validate("water_draws", v); err != nil {
		return err
	}
	c.WaterDraws = v
	return nil
}

// SetFutureSetpoints validates length and assigns.
func (c *ExternalContext) SetFutureSetpoints(v []float64) error {
	if err := c.validate("future_setpoints", v); err != nil {
		return err
	}
	c.FutureSetpoints = v
	return nil
}

// SetAvailabilityOn validates length and assigns.
func (c *ExternalContext) SetAvailabilityOn(v []float64) error {
	if err := c.validate("availability_on", v); err != nil {
		return err
	}
	c.AvailabilityOn = v
	return nil
}

// SetOffPeakHours validates length and assigns.
func (c *ExternalContext) SetOffPeakHours(v []float64) error {
	if err := c.validate("off_peak_hours", v); err != nil {
		return err
	}
	c.OffPeakHours = v
	return nil
}

// FromClient assembles an ExternalContext from a Client, reference instant,
// solar production forecast (assumed horizon-aligned) and horizon/step
// parameters, per spec.md §4.6.
func FromClient(client *domain.Client, ref time.Time, solar []float64, horizonHours float64, deltaMinutes int) (*ExternalContext, error) {
	delta := time.Duration(deltaMinutes) * time.Minute
	n := int(horizonHours * 60 / float64(deltaMinutes))

	ctx := New(ref, n, delta)
	if err := ctx.SetSolarProduction(solar); err != nil {
		return nil, err
	}

	purchase := make([]float64, n)
	sell := make([]float64, n)
	availability := make([]float64, n)
	offPeak := make([]float64, n)
	for i := 0; i < n; i++ {
		t := ref.Add(time.Duration(i) * delta)
		tod := timeOfDay(t)

		purchase[i] = client.Prices.CurrentPurchasePrice(tod)
		sell[i] = client.Prices.Resale

		if client.Constraints.IsAllowed(tod) {
			availability[i] = 1
		}

		if client.Prices.Mode == domain.PeakOffPeak && client.Prices.IsPeak(tod) {
			offPeak[i] = 0
		} else {
			offPeak[i] = 1
		}
	}
	if err := ctx.SetPricesPurchase(purchase); err != nil {
		return nil, err
	}
	if err := ctx.SetPricesSell(sell); err != nil {
		return nil, err
	}
	if err := ctx.SetAvailabilityOn(availability); err != nil {
		return nil, err
	}
	if err := ctx.SetOffPeakHours(offPeak); err != nil {
		return nil, err
	}

	houseConsumption := client.Constraints.ConsumptionProfile.Vector(ref, n, delta)
	if err := ctx.SetHouseConsumption(houseConsumption); err != nil {
		return nil, err
	}

	futureSetpoints := make([]float64, n)
	waterDraws := make([]float64, n)
	for i := range futureSetpoints {
		futureSetpoints[i] = client.Constraints.MinimumTemperature
	}

	anchorDay := weekdayIndex(ref.Weekday())
	anchorTime := timeOfDay(ref)
	setpoints, err := client.Planning.FutureSetpoints(anchorDay, anchorTime, horizonHours)
	if err != nil {
		return nil, err
	}

	const weekSpanMinutes = 7 * 1440
	tAnchor := anchorDay*1440 + anchorTime.Minutes()
	for _, sp := range setpoints {
		tSp := sp.Day*1440 + sp.Time.Minutes()
		deltaTMin := tSp - tAnchor
		if deltaTMin < 0 {
			deltaTMin += weekSpanMinutes
		}
		idx := deltaTMin / deltaMinutes
		if idx < 0 || idx >= n {
			continue
		}
		waterDraws[idx] += sp.DrawnVolume
		if sp.Temperature > futureSetpoints[idx] {
			futureSetpoints[idx] = sp.Temperature
		}
	}

	if err := ctx.SetFutureSetpoints(futureSetpoints); err != nil {
		return nil, err
	}
	if err := ctx.SetWaterDraws(waterDraws); err != nil {
		return nil, err
	}

	return ctx, nil
}

func timeOfDay(t time.Time) domain.TimeOfDay {
	tod, _ := domain.NewTimeOfDay(t.Hour(), t.Minute())
	return tod
}

func weekdayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
