package domain

// WaterCp is the specific heat capacity of water, J/(kg*K). 1 L of water is
// taken to be 1 kg throughout.
const WaterCp = 4185.0

// WaterHeater holds the physical parameters of the tank and resistive
// element, plus the scalar thermodynamic helpers the simulators consume.
type WaterHeater struct {
	VolumeLiters float64 // >0
	PowerWatts   float64 // >0
	Insulation   float64 // >=0, degC/min heat loss coefficient
	ColdWaterC   float64 // >=0
}

// NewWaterHeater validates and constructs a WaterHeater.
func NewWaterHeater(volume, power, insulation, coldWater float64) (*WaterHeater, error) {
	if volume <= 0 {
		return nil, NewValidationError("water_heater.volume", "must be > 0")
	}
	if power <= 0 {
		return nil, NewValidationError("water_heater.power", "must be > 0")
	}
	if insulation < 0 {
		return nil, NewValidationError("water_heater.insulation", "must be >= 0")
	}
	if coldWater < 0 {
		return nil, NewValidationError("water_heater.cold_water", "must be >= 0")
	}
	return &WaterHeater{VolumeLiters: volume, PowerWatts: power, Insulation: insulation, ColdWaterC: coldWater}, nil
}

// HeatingTemperature returns T after heating at duty cycle x for deltaMin
// minutes: T + (power*x*deltaMin*60)/(volume*Cp).
func (w *WaterHeater) HeatingTemperature(t, x, deltaMin float64) float64 {
	return t + (w.PowerWatts*x*deltaMin*60)/(w.VolumeLiters*WaterCp)
}

// DrawTemperature mixes in a draw of v liters of cold water:
// rho = min(v/volume, 1); T*(1-rho) + cold*rho.
func (w *WaterHeater) DrawTemperature(t, v float64) float64 {
	rho := v / w.VolumeLiters
	if rho > 1 {
		rho = 1
	}
	return t*(1-rho) + w.ColdWaterC*rho
}

// Loss applies the fixed insulation loss over deltaMin minutes.
func (w *WaterHeater) Loss(t, deltaMin float64) float64 {
	return t - w.Insulation*deltaMin
}

// Step composes draw, heat, then loss in that order.
func (w *WaterHeater) Step(t, drawVolume, x, deltaMin float64) float64 {
	t = w.DrawTemperature(t, drawVolume)
	t = w.HeatingTemperature(t, x, deltaMin)
	t = w.Loss(t, deltaMin)
	return t
}
