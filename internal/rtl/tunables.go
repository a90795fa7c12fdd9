package rtl

import "math"

// DelaySigma is the band around zero inside which a land delay counts as
// "land immediately".
const DelaySigma = 0.01

// Tunables are the live RTL parameters. They are fetched from the navigator
// on every use and never cached by the state machine.
type Tunables struct {
	// ReturnAlt is the minimum altitude above home for the return leg (m).
	ReturnAlt float64 `yaml:"RTL_RETURN_ALT"`
	// DescendAlt is the altitude above home to descend to before loitering
	// or landing (m).
	DescendAlt float64 `yaml:"RTL_DESCEND_ALT"`
	// LandDelay is the loiter time before landing (s). Negative loiters
	// forever, zero lands immediately.
	LandDelay float64 `yaml:"RTL_LAND_DELAY"`
}

// Autoland reports whether the descend phase hands over to a loiter rather
// than landing straight away.
func (t Tunables) Autoland() bool {
	return math.Abs(t.LandDelay) > DelaySigma
}

// landsAfterLoiter reports whether the loiter phase is time limited and
// continues into landing.
func (t Tunables) landsAfterLoiter() bool {
	return t.LandDelay > -DelaySigma
}

// loiterTime is the dwell for the loiter phase; never negative.
func (t Tunables) loiterTime() float64 {
	if t.LandDelay < 0 {
		return 0
	}
	return t.LandDelay
}
