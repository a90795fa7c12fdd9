package navigator

import (
	"math"

	"github.com/curbz/rtl-navigator/internal/model"
)

const degToRad = math.Pi / 180

// toSetpoint converts a command into the flight controller's setpoint.
func (n *Navigator) toSetpoint(cmd model.Command) model.PositionSetpoint {
	sp := model.PositionSetpoint{
		Valid:            true,
		Lat:              cmd.Lat,
		Lon:              cmd.Lon,
		Alt:              cmd.Altitude,
		Yaw:              cmd.Yaw,
		LoiterRadius:     cmd.LoiterRadius,
		LoiterDirection:  cmd.LoiterDirection,
		PitchMin:         cmd.PitchMin,
		AcceptanceRadius: cmd.AcceptanceRadius,
	}
	if cmd.AltitudeIsRelative {
		sp.Alt += n.home.Alt
	}

	switch cmd.NavCmd {
	case model.NavCmdIdle:
		sp.Type = model.SetpointIdle
	case model.NavCmdLand:
		sp.Type = model.SetpointLand
	case model.NavCmdLoiterUnlimited, model.NavCmdLoiterTimeLimit:
		sp.Type = model.SetpointLoiter
	default:
		sp.Type = model.SetpointPosition
	}
	return sp
}

// absoluteAltitude resolves a command altitude against home.
func (n *Navigator) absoluteAltitude(cmd model.Command) float64 {
	if cmd.AltitudeIsRelative {
		return cmd.Altitude + n.home.Alt
	}
	return cmd.Altitude
}

// LandCommand lands at home.
func (n *Navigator) LandCommand() model.Command {
	return model.Command{
		Lat:              n.home.Lat,
		Lon:              n.home.Lon,
		Altitude:         n.home.Alt,
		Yaw:              math.NaN(),
		LoiterRadius:     n.cfg.LoiterRadius,
		LoiterDirection:  1,
		AcceptanceRadius: n.cfg.AcceptanceRadius,
		NavCmd:           model.NavCmdLand,
		Autocontinue:     true,
		Origin:           model.OriginOnboard,
	}
}

// IdleCommand keeps the vehicle idle at home.
func (n *Navigator) IdleCommand() model.Command {
	return model.Command{
		Lat:              n.home.Lat,
		Lon:              n.home.Lon,
		Altitude:         n.home.Alt,
		Yaw:              math.NaN(),
		LoiterRadius:     n.cfg.LoiterRadius,
		LoiterDirection:  1,
		AcceptanceRadius: n.cfg.AcceptanceRadius,
		NavCmd:           model.NavCmdIdle,
		Autocontinue:     true,
		Origin:           model.OriginOnboard,
	}
}
