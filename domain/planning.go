package domain

import "sort"

const weekSpanMinutes = 7 * 1440 // W = 10080

// Planning is a sorted, deduplicated sequence of Setpoints, unique by
// (day, time-of-day). When two setpoints share a key, the one with the
// strictly greater temperature is kept; non-strict ties keep the first seen.
type Planning struct {
	setpoints []Setpoint
}

// NewPlanning builds a Planning from an initial list, applying the same
// dedup+sort rule as Add.
func NewPlanning(setpoints []Setpoint) *Planning {
	p := &Planning{}
	p.setpoints = dedupAndSort(setpoints)
	return p
}

// Setpoints returns a copy of the sorted, deduplicated list.
func (p *Planning) Setpoints() []Setpoint {
	out := make([]Setpoint, len(p.setpoints))
	copy(out, p.setpoints)
	return out
}

// Add inserts a setpoint and re-runs dedup+sort.
func (p *Planning) Add(s Setpoint) {
	p.setpoints = dedupAndSort(append(p.setpoints, s))
}

// Remove filters out the setpoint with the given (day, time) key, if any.
func (p *Planning) Remove(day int, t TimeOfDay) {
	filtered := p.setpoints[:0:0]
	for _, s := range p.setpoints {
		if s.Day == day && s.Time == t {
			continue
		}
		filtered = append(filtered, s)
	}
	p.setpoints = filtered
}

// dedupAndSort keeps, for each (day,time) key, the setpoint with the
// strictly greater temperature (first-seen wins on non-strict ties), then
// returns the result ordered by (day, time).
func dedupAndSort(setpoints []Setpoint) []Setpoint {
	sorted := make([]Setpoint, len(setpoints))
	copy(sorted, setpoints)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best := make(map[setpointKey]Setpoint)
	order := make([]setpointKey, 0, len(sorted))
	for _, s := range sorted {
		k := s.key()
		existing, ok := best[k]
		if !ok {
			best[k] = s
			order = append(order, k)
			continue
		}
		if s.Temperature > existing.Temperature {
			best[k] = s
		}
	}

	out := make([]Setpoint, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FutureSetpoints returns setpoints whose position in minutes-since-Monday
// falls within the forward window of horizonHours starting at
// (anchorDay, anchorTime), wrapping across the week boundary. Results are
// ordered by anchor-relative key. Horizons exceeding one week are not
// supported (see DESIGN.md Open Question decisions) and return an error
// rather than silently duplicating entries.
func (p *Planning) FutureSetpoints(anchorDay int, anchorTime TimeOfDay, horizonHours float64) ([]Setpoint, error) {
	if horizonHours*60 > weekSpanMinutes {
		return nil, NewValidationError("horizon_h", "horizons beyond one week are not supported by future_setpoints")
	}

	tAnchor := anchorDay*1440 + anchorTime.Minutes()
	tEnd := tAnchor + int(horizonHours*60)

	type keyed struct {
		key int
		sp  Setpoint
	}
	var matches []keyed
	for _, s := range p.setpoints {
		tSp := s.minutesSinceMonday()
		direct := tSp >= tAnchor && tSp <= tEnd
		wrapped := tSp+weekSpanMinutes <= tEnd
		if !direct && !wrapped {
			continue
		}
		k := tSp
		if k < tAnchor {
			k += weekSpanMinutes
		}
		matches = append(matches, keyed{key: k, sp: s})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].key < matches[j].key })

	out := make([]Setpoint, len(matches))
	for i, m := range matches {
		out[i] = m.sp
	}
	return out, nil
}
