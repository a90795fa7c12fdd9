package rtl

// Phase is the sub-phase of the return-to-launch procedure.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseClimb
	PhaseReturn
	PhaseDescend
	PhaseLoiter
	PhaseLand
	PhaseLanded
)

func (p Phase) String() string {
	if p < PhaseNone || p > PhaseLanded {
		return "UNKNOWN"
	}
	return [...]string{
		"NONE",
		"CLIMB",
		"RETURN",
		"DESCEND",
		"LOITER",
		"LAND",
		"LANDED",
	}[p]
}

// next returns the phase that follows p once its command is reached.
// LANDED, NONE and unmapped phases return themselves.
func (p Phase) next(t Tunables) Phase {
	switch p {
	case PhaseClimb:
		return PhaseReturn
	case PhaseReturn:
		return PhaseDescend
	case PhaseDescend:
		// only loiter first if there is a land delay
		if t.Autoland() {
			return PhaseLoiter
		}
		return PhaseLand
	case PhaseLoiter:
		return PhaseLand
	case PhaseLand:
		return PhaseLanded
	default:
		return p
	}
}
