// Package rtl implements the return-to-launch failsafe procedure: climb to a
// safe altitude, fly home, descend, optionally loiter, land.
//
// The state machine is driven once per control cycle through exactly one of
// OnInactive, OnActivation or OnActive. It is not safe for concurrent use;
// the navigator owning it serialises all calls.
package rtl

import (
	"github.com/curbz/rtl-navigator/internal/model"
)

// Navigator is the context the state machine reads from and publishes to.
type Navigator interface {
	IsLanded() bool
	HomePosition() model.HomePosition
	GlobalPosition() model.Position

	// PreviousSetpoint is the path-continuity baseline.
	PreviousSetpoint() model.PositionSetpoint
	// SetPreviousSetpoint snapshots the currently held setpoint as the
	// new baseline.
	SetPreviousSetpoint()

	LoiterRadius() float64
	AcceptanceRadius() float64

	// CanLoiterAtSetpoint reports whether the held setpoint is still safe
	// to resume from.
	CanLoiterAtSetpoint() bool
	SetCanLoiterAtSetpoint(bool)

	// Publish makes cmd the current setpoint and invalidates the next one.
	Publish(cmd model.Command)

	CommandReached() bool
	ResetReached()

	// Tunables must return the live values on every call.
	Tunables() Tunables

	LandCommand() model.Command
	IdleCommand() model.Command

	LogCritical(text string)
}

// RTL is the return-to-launch state machine. It lives as long as the
// navigator and resumes mid-procedure on re-activation unless the held
// setpoint was invalidated while it was inactive.
type RTL struct {
	nav Navigator

	phase Phase
	// continuityLatch stops the previous setpoint from being re-snapshotted
	// once the return leg has started.
	continuityLatch bool
	// returnAltitude is the absolute altitude flown on the return leg.
	returnAltitude float64
}

func New(nav Navigator) *RTL {
	r := &RTL{nav: nav}
	r.OnInactive()
	return r
}

func (r *RTL) Phase() Phase {
	return r.phase
}

func (r *RTL) ContinuityLatch() bool {
	return r.continuityLatch
}

// ReturnAltitude is the absolute altitude baseline of the return leg.
func (r *RTL) ReturnAltitude() float64 {
	return r.returnAltitude
}

// OnInactive runs every cycle RTL is not the active mode.
func (r *RTL) OnInactive() {
	// reset only if the setpoint was moved away from under us
	if !r.nav.CanLoiterAtSetpoint() {
		r.phase = PhaseNone
	}
}

// OnActivation runs on the first cycle RTL is the active mode. It picks the
// entry phase when starting afresh and resumes otherwise.
func (r *RTL) OnActivation() {
	if r.phase == PhaseNone {
		r.enter()
	}
	r.setItem()
}

// OnActive runs on every later cycle while RTL stays the active mode.
func (r *RTL) OnActive() {
	if r.phase != PhaseLanded && r.nav.CommandReached() {
		r.advance()
		r.setItem()
	}
}

func (r *RTL) enter() {
	tunables := r.nav.Tunables()
	position := r.nav.GlobalPosition()

	switch {
	case r.nav.IsLanded():
		// never fly a return from the ground
		r.phase = PhaseLanded
		r.nav.LogCritical("no RTL when landed")

	case position.Alt < r.nav.HomePosition().Alt+tunables.ReturnAlt:
		r.phase = PhaseClimb
		r.continuityLatch = false

	default:
		// high enough already, return at the current altitude
		r.phase = PhaseReturn
		r.returnAltitude = position.Alt
		r.continuityLatch = false
	}
}

func (r *RTL) advance() {
	r.phase = r.phase.next(r.nav.Tunables())
}

// setItem builds and publishes the command for the current phase.
func (r *RTL) setItem() {
	build, ok := itemBuilders[r.phase]
	if !ok {
		return
	}

	if !r.continuityLatch {
		r.nav.SetPreviousSetpoint()
	}

	in := itemInput{
		tunables:         r.nav.Tunables(),
		home:             r.nav.HomePosition(),
		position:         r.nav.GlobalPosition(),
		previous:         r.nav.PreviousSetpoint(),
		returnAltitude:   r.returnAltitude,
		loiterRadius:     r.nav.LoiterRadius(),
		acceptanceRadius: r.nav.AcceptanceRadius(),
	}
	switch r.phase {
	case PhaseLand:
		in.land = r.nav.LandCommand()
	case PhaseLanded:
		in.idle = r.nav.IdleCommand()
	}

	item, msg := build(in)

	switch r.phase {
	case PhaseClimb:
		// the return leg holds the altitude the climb ends at
		r.returnAltitude = item.Altitude
	case PhaseReturn:
		r.continuityLatch = true
	}

	r.nav.SetCanLoiterAtSetpoint(r.phase == PhaseLoiter)
	r.nav.LogCritical(msg)
	r.nav.ResetReached()
	r.nav.Publish(item)
}
