package navigator

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/model"
)

// Mode selects which navigation mode drives the setpoints.
type Mode int

const (
	// ModeManual leaves the setpoints alone.
	ModeManual Mode = iota
	ModeHold
	ModeRTL
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "MANUAL"
	case ModeHold:
		return "HOLD"
	case ModeRTL:
		return "RTL"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "MANUAL":
		return ModeManual, nil
	case "HOLD", "LOITER":
		return ModeHold, nil
	case "RTL", "RETURN":
		return ModeRTL, nil
	default:
		return ModeManual, fmt.Errorf("%w %q", ErrUnknownMode, value)
	}
}

type navMode interface {
	OnInactive()
	OnActivation()
	OnActive()
}

// modeRunner turns "active this cycle or not" into exactly one of the
// three mode entry points.
type modeRunner struct {
	mode     Mode
	impl     navMode
	firstRun bool
}

func (m *modeRunner) run(active bool) {
	if !active {
		m.firstRun = true
		m.impl.OnInactive()
		return
	}
	if m.firstRun {
		m.firstRun = false
		m.impl.OnActivation()
		return
	}
	m.impl.OnActive()
}

// holdMode loiters at the held setpoint when it is safe to hold there,
// otherwise at the current position.
type holdMode struct {
	nav *Navigator
}

func (h *holdMode) OnInactive() {}

func (h *holdMode) OnActive() {}

func (h *holdMode) OnActivation() {
	n := h.nav

	cmd := model.Command{
		Yaw:              math.NaN(),
		LoiterRadius:     n.cfg.LoiterRadius,
		LoiterDirection:  1,
		AcceptanceRadius: n.cfg.AcceptanceRadius,
		Origin:           model.OriginOnboard,
	}

	switch {
	case n.status.Landed:
		// on the ground, don't take off
		idle := n.IdleCommand()
		idle.Lat, idle.Lon, idle.Altitude = n.position.Lat, n.position.Lon, n.position.Alt
		cmd = idle
	case n.canLoiter && n.triplet.Current.Valid:
		cmd.NavCmd = model.NavCmdLoiterUnlimited
		cmd.Lat = n.triplet.Current.Lat
		cmd.Lon = n.triplet.Current.Lon
		cmd.Altitude = n.triplet.Current.Alt
	default:
		cmd.NavCmd = model.NavCmdLoiterUnlimited
		cmd.Lat = n.position.Lat
		cmd.Lon = n.position.Lon
		cmd.Altitude = n.position.Alt
	}

	n.ResetReached()
	n.Publish(cmd)
	n.triplet.Previous.Valid = false
	n.SetCanLoiterAtSetpoint(n.triplet.Current.Type == model.SetpointLoiter)
	log.WithField("session", n.session).Infof("hold at %.0f m", cmd.Altitude)
}
