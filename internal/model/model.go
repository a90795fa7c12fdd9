package model

import "fmt"

// Position is a global position fix. Altitude is metres AMSL.
type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

// HomePosition is the recorded launch location.
type HomePosition struct {
	Lat   float64
	Lon   float64
	Alt   float64
	Yaw   float64 // radians
	Valid bool
}

type VehicleStatus struct {
	Landed bool
}

// NavCmd is the directive kind carried by a Command.
type NavCmd int

const (
	NavCmdWaypoint NavCmd = iota
	NavCmdLoiterUnlimited
	NavCmdLoiterTimeLimit
	NavCmdLand
	NavCmdIdle
)

func (c NavCmd) String() string {
	switch c {
	case NavCmdWaypoint:
		return "waypoint"
	case NavCmdLoiterUnlimited:
		return "loiter-unlimited"
	case NavCmdLoiterTimeLimit:
		return "loiter-timed"
	case NavCmdLand:
		return "land"
	case NavCmdIdle:
		return "idle"
	default:
		return fmt.Sprintf("NavCmd(%d)", int(c))
	}
}

// Origin tags where a command came from.
type Origin int

const (
	OriginOnboard Origin = iota
	OriginUplink
)

func (o Origin) String() string {
	if o == OriginOnboard {
		return "onboard"
	}
	return "uplink"
}

// Command is one flight-plan directive handed to the flight controller.
type Command struct {
	Lat                float64
	Lon                float64
	Altitude           float64
	AltitudeIsRelative bool
	Yaw                float64 // radians, NaN leaves heading unconstrained
	LoiterRadius       float64
	LoiterDirection    int
	AcceptanceRadius   float64
	NavCmd             NavCmd
	Autocontinue       bool
	TimeInside         float64 // seconds
	PitchMin           float64
	Origin             Origin
}

// SetpointType tells the position controller how to treat a setpoint.
type SetpointType int

const (
	SetpointPosition SetpointType = iota
	SetpointLoiter
	SetpointLand
	SetpointIdle
)

func (t SetpointType) String() string {
	return [...]string{
		"position",
		"loiter",
		"land",
		"idle",
	}[t]
}

// PositionSetpoint is the flight controller's view of a target.
// Alt is always absolute.
type PositionSetpoint struct {
	Valid            bool
	Type             SetpointType
	Lat              float64
	Lon              float64
	Alt              float64
	Yaw              float64
	LoiterRadius     float64
	LoiterDirection  int
	PitchMin         float64
	AcceptanceRadius float64
}

type SetpointTriplet struct {
	Previous PositionSetpoint
	Current  PositionSetpoint
	Next     PositionSetpoint
}
