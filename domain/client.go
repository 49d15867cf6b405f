package domain

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Client is the aggregate owning exactly one of each of Planning,
// ConsumptionProfile-bearing Constraints, Prices, WaterHeater and Features.
type Client struct {
	ClientID    int
	WaterHeater *WaterHeater
	Prices      *Prices
	Features    *Features
	Constraints *Constraints
	Planning    *Planning
}

// NewClient bundles the components into a Client aggregate.
func NewClient(id int, wh *WaterHeater, prices *Prices, features *Features, constraints *Constraints, planning *Planning) *Client {
	return &Client{ClientID: id, WaterHeater: wh, Prices: prices, Features: features, Constraints: constraints, Planning: planning}
}

// --- Wire (dict/YAML) form -------------------------------------------------

type timeSlotDict struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type waterHeaterDict struct {
	Volume          float64  `json:"volume" yaml:"volume"`
	Power           float64  `json:"power" yaml:"power"`
	InsulationCoeff *float64 `json:"insulation_coeff,omitempty" yaml:"insulation_coeff,omitempty"`
	TempColdWater   *float64 `json:"temp_cold_water,omitempty" yaml:"temp_cold_water,omitempty"`
}

type pricesDict struct {
	Mode        string         `json:"mode" yaml:"mode"`
	BasePrice   *float64       `json:"base_price,omitempty" yaml:"base_price,omitempty"`
	HPPrice     *float64       `json:"hp_price,omitempty" yaml:"hp_price,omitempty"`
	HCPrice     *float64       `json:"hc_price,omitempty" yaml:"hc_price,omitempty"`
	ResellPrice float64        `json:"resell_price" yaml:"resell_price"`
	HPSlots     []timeSlotDict `json:"hp_slots,omitempty" yaml:"hp_slots,omitempty"`
}

type featuresDict struct {
	Gradation bool   `json:"gradation" yaml:"gradation"`
	Mode      string `json:"mode" yaml:"mode"`
}

type setpointDict struct {
	Day        int     `json:"day" yaml:"day"`
	Time       string  `json:"time" yaml:"time"`
	TargetTemp float64 `json:"target_temp" yaml:"target_temp"`
	Volume     float64 `json:"volume" yaml:"volume"`
}

type constraintsDict struct {
	MinTemp            float64        `json:"min_temp" yaml:"min_temp"`
	ForbiddenSlots      []timeSlotDict `json:"forbidden_slots" yaml:"forbidden_slots"`
	ConsumptionProfile *[7][24]float64 `json:"consumption_profile" yaml:"consumption_profile"`
}

// ClientDict is the canonical wire representation consumed/produced at the
// service boundary (§6). It round-trips through both JSON and YAML.
type ClientDict struct {
	ClientID    int             `json:"client_id" yaml:"client_id"`
	WaterHeater waterHeaterDict `json:"water_heater" yaml:"water_heater"`
	Prices      pricesDict      `json:"prices" yaml:"prices"`
	Features    featuresDict    `json:"features" yaml:"features"`
	Constraints constraintsDict `json:"constraints" yaml:"constraints"`
	Planning    []setpointDict  `json:"planning" yaml:"planning"`
}

func parseHHMM(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, NewValidationError("time", fmt.Sprintf("invalid HH:MM value %q", s))
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, NewValidationError("time", fmt.Sprintf("invalid HH:MM value %q", s))
	}
	return NewTimeOfDay(h, m)
}

func slotFromDict(d timeSlotDict) (TimeSlot, error) {
	start, err := parseHHMM(d.Start)
	if err != nil {
		return TimeSlot{}, err
	}
	end, err := parseHHMM(d.End)
	if err != nil {
		return TimeSlot{}, err
	}
	return NewTimeSlot(start, end)
}

func slotToDict(s TimeSlot) timeSlotDict {
	return timeSlotDict{Start: s.Start.String(), End: s.End.String()}
}

// ToDict converts the Client into its canonical wire form.
func (c *Client) ToDict() ClientDict {
	d := ClientDict{ClientID: c.ClientID}

	d.WaterHeater = waterHeaterDict{
		Volume:          c.WaterHeater.VolumeLiters,
		Power:           c.WaterHeater.PowerWatts,
		InsulationCoeff: ptr(c.WaterHeater.Insulation),
		TempColdWater:   ptr(c.WaterHeater.ColdWaterC),
	}

	switch c.Prices.Mode {
	case Flat:
		base, _ := c.Prices.Base()
		d.Prices = pricesDict{Mode: "BASE", BasePrice: ptr(base), ResellPrice: c.Prices.Resale}
	case PeakOffPeak:
		peak, _ := c.Prices.Peak()
		offpeak, _ := c.Prices.OffPeak()
		slots := make([]timeSlotDict, 0, len(c.Prices.PeakSlots()))
		for _, s := range c.Prices.PeakSlots() {
			slots = append(slots, slotToDict(s))
		}
		d.Prices = pricesDict{Mode: "HPHC", HPPrice: ptr(peak), HCPrice: ptr(offpeak), ResellPrice: c.Prices.Resale, HPSlots: slots}
	}

	modeStr := "AutoCons"
	if c.Features.Mode == Cost {
		modeStr = "cost"
	}
	d.Features = featuresDict{Gradation: c.Features.Gradation, Mode: modeStr}

	forbidden := make([]timeSlotDict, 0, len(c.Constraints.ForbiddenSlots()))
	for _, s := range c.Constraints.ForbiddenSlots() {
		forbidden = append(forbidden, slotToDict(s))
	}
	var matrix [7][24]float64
	for day := 0; day < 7; day++ {
		for h := 0; h < 24; h++ {
			matrix[day][h] = c.Constraints.ConsumptionProfile.At(day, h)
		}
	}
	d.Constraints = constraintsDict{
		MinTemp:            c.Constraints.MinimumTemperature,
		ForbiddenSlots:      forbidden,
		ConsumptionProfile: &matrix,
	}

	for _, sp := range c.Planning.Setpoints() {
		d.Planning = append(d.Planning, setpointDict{
			Day:        sp.Day,
			Time:       sp.Time.String(),
			TargetTemp: sp.Temperature,
			Volume:     sp.DrawnVolume,
		})
	}

	return d
}

func ptr(f float64) *float64 { return &f }

// ClientFromDict parses the canonical wire form into a Client. Any parse or
// validation failure surfaces as a single client-build error; there is no
// partial construction.
func ClientFromDict(d ClientDict) (*Client, error) {
	insulation := 0.0
	if d.WaterHeater.InsulationCoeff != nil {
		insulation = *d.WaterHeater.InsulationCoeff
	}
	cold := 0.0
	if d.WaterHeater.TempColdWater != nil {
		cold = *d.WaterHeater.TempColdWater
	}
	wh, err := NewWaterHeater(d.WaterHeater.Volume, d.WaterHeater.Power, insulation, cold)
	if err != nil {
		return nil, err
	}

	var prices *Prices
	switch d.Prices.Mode {
	case "BASE":
		if d.Prices.BasePrice == nil {
			return nil, NewValidationError("prices.base_price", "required in BASE mode")
		}
		prices, err = NewFlatPrices(*d.Prices.BasePrice, d.Prices.ResellPrice)
	case "HPHC":
		if d.Prices.HPPrice == nil || d.Prices.HCPrice == nil {
			return nil, NewValidationError("prices.hp_price/hc_price", "required in HPHC mode")
		}
		slots := make([]TimeSlot, 0, len(d.Prices.HPSlots))
		for _, sd := range d.Prices.HPSlots {
			s, serr := slotFromDict(sd)
			if serr != nil {
				return nil, serr
			}
			slots = append(slots, s)
		}
		prices, err = NewPeakOffPeakPrices(*d.Prices.HPPrice, *d.Prices.HCPrice, d.Prices.ResellPrice, slots)
	default:
		return nil, NewValidationError("prices.mode", fmt.Sprintf("unknown mode %q", d.Prices.Mode))
	}
	if err != nil {
		return nil, err
	}

	var objMode ObjectiveMode
	switch d.Features.Mode {
	case "cost":
		objMode = Cost
	case "AutoCons":
		objMode = SelfConsumption
	default:
		return nil, NewValidationError("features.mode", fmt.Sprintf("unknown mode %q", d.Features.Mode))
	}
	features := NewFeatures(d.Features.Gradation, objMode)

	forbidden := make([]TimeSlot, 0, len(d.Constraints.ForbiddenSlots))
	for _, sd := range d.Constraints.ForbiddenSlots {
		s, serr := slotFromDict(sd)
		if serr != nil {
			return nil, serr
		}
		forbidden = append(forbidden, s)
	}
	var matrix [][24]float64
	if d.Constraints.ConsumptionProfile != nil {
		matrix = make([][24]float64, 7)
		for day := 0; day < 7; day++ {
			matrix[day] = d.Constraints.ConsumptionProfile[day]
		}
	}
	profile, err := NewConsumptionProfile(matrix, DefaultBackgroundWatts)
	if err != nil {
		return nil, err
	}
	constraints, err := NewConstraints(profile, forbidden, d.Constraints.MinTemp)
	if err != nil {
		return nil, err
	}

	var setpoints []Setpoint
	for _, spd := range d.Planning {
		t, terr := parseHHMM(spd.Time)
		if terr != nil {
			return nil, terr
		}
		sp, serr := NewSetpoint(spd.Day, t, spd.TargetTemp, spd.Volume)
		if serr != nil {
			return nil, serr
		}
		setpoints = append(setpoints, sp)
	}
	planning := NewPlanning(setpoints)

	return NewClient(d.ClientID, wh, prices, features, constraints, planning), nil
}

// ToYAML marshals the client's wire form to YAML bytes.
func (c *Client) ToYAML() ([]byte, error) {
	return yaml.Marshal(c.ToDict())
}

// ClientFromYAML parses YAML bytes in the canonical wire form.
func ClientFromYAML(data []byte) (*Client, error) {
	var d ClientDict
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, NewValidationError("client", fmt.Sprintf("invalid YAML: %v", err))
	}
	return ClientFromDict(d)
}
