// Package navigator owns the vehicle's setpoints. It latches telemetry
// inputs once per control cycle, runs the navigation modes (hold, RTL) and
// hands a status snapshot to telemetry whenever the setpoints change.
package navigator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/internal/rtl"
	"github.com/curbz/rtl-navigator/pkg/util"
)

var (
	ErrNoHome      = errors.New("no valid home position")
	ErrUnknownMode = errors.New("unknown navigation mode")
)

// Config is the navigator section of the application config.
type Config struct {
	RateHz           float64       `yaml:"rate_hz"`
	LoiterRadius     float64       `yaml:"loiter_radius"`
	AcceptanceRadius float64       `yaml:"acceptance_radius"`
	FixedWing        bool          `yaml:"fixed_wing"`
	Home             *HomeOverride `yaml:"home"`
}

// HomeOverride pins home instead of recording it from the first landed fix.
type HomeOverride struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	Alt float64 `yaml:"alt"`
	Yaw float64 `yaml:"yaw_deg"`
}

type config struct {
	Navigator Config `yaml:"navigator"`
}

var DefaultConfig = Config{
	RateHz:           10,
	LoiterRadius:     50,
	AcceptanceRadius: 10,
}

func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{Navigator: DefaultConfig}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.Navigator, fmt.Errorf("error reading navigator config: %w", err)
	}
	if cfg.Navigator.RateHz <= 0 {
		return cfg.Navigator, fmt.Errorf("navigator rate_hz must be positive")
	}
	if cfg.Navigator.AcceptanceRadius <= 0 || cfg.Navigator.LoiterRadius <= 0 {
		return cfg.Navigator, fmt.Errorf("navigator radii must be positive")
	}
	return cfg.Navigator, nil
}

// TunablesSource supplies live RTL parameters.
type TunablesSource interface {
	Tunables() rtl.Tunables
}

// Telemetry receives a snapshot after every cycle that changed something.
// PublishStatus must not block.
type Telemetry interface {
	PublishStatus(st *Status)
}

// inputs are written from telemetry and command goroutines.
type inputs struct {
	position     model.Position
	yaw          float64
	havePosition bool
	status       model.VehicleStatus
	home         model.HomePosition
	homePinned   bool
	mode         Mode
}

type Navigator struct {
	cfg       Config
	params    TunablesSource
	telemetry Telemetry
	now       func() time.Time

	mu sync.Mutex
	in inputs

	// everything below is only touched from Cycle
	position       model.Position
	status         model.VehicleStatus
	home           model.HomePosition
	triplet        model.SetpointTriplet
	tripletUpdated bool
	canLoiter      bool
	command        model.Command
	reached        reachedState
	notices        []string

	mode    Mode
	session string
	modes   []*modeRunner
	rtl     *rtl.RTL
}

func New(cfg Config, params TunablesSource, telemetry Telemetry) *Navigator {
	n := &Navigator{
		cfg:       cfg,
		params:    params,
		telemetry: telemetry,
		now:       time.Now,
		mode:      ModeManual,
	}
	if cfg.Home != nil {
		n.in.home = model.HomePosition{
			Lat:   cfg.Home.Lat,
			Lon:   cfg.Home.Lon,
			Alt:   cfg.Home.Alt,
			Yaw:   cfg.Home.Yaw * degToRad,
			Valid: true,
		}
		n.in.homePinned = true
		n.home = n.in.home
	}

	n.rtl = rtl.New(n)
	n.modes = []*modeRunner{
		{mode: ModeHold, impl: &holdMode{nav: n}, firstRun: true},
		{mode: ModeRTL, impl: n.rtl, firstRun: true},
	}
	return n
}

// UpdatePosition feeds a new position fix and true heading in radians.
func (n *Navigator) UpdatePosition(pos model.Position, yaw float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.in.position = pos
	n.in.yaw = yaw
	n.in.havePosition = true
}

func (n *Navigator) UpdateStatus(status model.VehicleStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.in.status = status
}

// SetHome pins home to the given position.
func (n *Navigator) SetHome(home model.HomePosition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	home.Valid = true
	n.in.home = home
	n.in.homePinned = true
}

// SetMode requests a navigation mode for the next cycle.
func (n *Navigator) SetMode(mode Mode) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch mode {
	case ModeManual, ModeHold:
	case ModeRTL:
		if !n.in.home.Valid {
			return ErrNoHome
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	n.in.mode = mode
	return nil
}

// Cycle runs one control cycle.
func (n *Navigator) Cycle() {
	n.latchInputs()

	// manual flight moves the aircraft away from any held setpoint
	if n.mode == ModeManual {
		n.canLoiter = false
	}

	// modes that are not active see their deactivation before the active
	// mode touches the shared setpoint
	for _, m := range n.modes {
		if m.mode != n.mode {
			m.run(false)
		}
	}
	for _, m := range n.modes {
		if m.mode == n.mode {
			m.run(true)
		}
	}

	if n.tripletUpdated || len(n.notices) > 0 {
		n.tripletUpdated = false
		n.telemetry.PublishStatus(n.snapshot())
		n.notices = n.notices[:0]
	}
}

func (n *Navigator) latchInputs() {
	n.mu.Lock()
	defer n.mu.Unlock()

	// home follows the aircraft while it sits on the ground outside of
	// any navigation mode
	if !n.in.homePinned && n.in.havePosition && n.in.status.Landed &&
		(!n.in.home.Valid || n.in.mode == ModeManual) {
		if !n.in.home.Valid {
			log.Printf("home position recorded at %.6f, %.6f, %.1f m", n.in.position.Lat, n.in.position.Lon, n.in.position.Alt)
		}
		n.in.home = model.HomePosition{
			Lat:   n.in.position.Lat,
			Lon:   n.in.position.Lon,
			Alt:   n.in.position.Alt,
			Yaw:   n.in.yaw,
			Valid: true,
		}
	}

	n.position = n.in.position
	n.status = n.in.status
	n.home = n.in.home

	if n.in.mode != n.mode {
		log.WithField("session", n.session).Printf("navigation mode %s -> %s", n.mode, n.in.mode)
		n.mode = n.in.mode
		n.session = ""
		if n.mode != ModeManual {
			n.session = uuid.NewString()
		}
	}
}

// Mode is the mode active in the last cycle.
func (n *Navigator) Mode() Mode {
	return n.mode
}

// RTLPhase exposes the RTL sub-phase for status reporting.
func (n *Navigator) RTLPhase() rtl.Phase {
	return n.rtl.Phase()
}

func (n *Navigator) Triplet() model.SetpointTriplet {
	return n.triplet
}

// --- rtl.Navigator ---

func (n *Navigator) IsLanded() bool {
	return n.status.Landed
}

func (n *Navigator) HomePosition() model.HomePosition {
	return n.home
}

func (n *Navigator) GlobalPosition() model.Position {
	return n.position
}

func (n *Navigator) PreviousSetpoint() model.PositionSetpoint {
	return n.triplet.Previous
}

func (n *Navigator) SetPreviousSetpoint() {
	n.triplet.Previous = n.triplet.Current
}

func (n *Navigator) LoiterRadius() float64 {
	return n.cfg.LoiterRadius
}

func (n *Navigator) AcceptanceRadius() float64 {
	return n.cfg.AcceptanceRadius
}

func (n *Navigator) CanLoiterAtSetpoint() bool {
	return n.canLoiter
}

func (n *Navigator) SetCanLoiterAtSetpoint(v bool) {
	n.canLoiter = v
}

func (n *Navigator) Publish(cmd model.Command) {
	n.command = cmd
	n.triplet.Current = n.toSetpoint(cmd)
	n.triplet.Next.Valid = false
	n.tripletUpdated = true
}

func (n *Navigator) Tunables() rtl.Tunables {
	return n.params.Tunables()
}

func (n *Navigator) LogCritical(text string) {
	log.WithField("session", n.session).Warn(text)
	n.notices = append(n.notices, text)
}
