package rtl

import (
	"fmt"
	"math"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/pkg/geometry"
)

// itemInput is everything a phase builder may look at.
type itemInput struct {
	tunables         Tunables
	home             model.HomePosition
	position         model.Position
	previous         model.PositionSetpoint
	returnAltitude   float64
	loiterRadius     float64
	acceptanceRadius float64
	land             model.Command
	idle             model.Command
}

type itemBuilder func(in itemInput) (model.Command, string)

var itemBuilders = map[Phase]itemBuilder{
	PhaseClimb:   climbItem,
	PhaseReturn:  returnItem,
	PhaseDescend: descendItem,
	PhaseLoiter:  loiterItem,
	PhaseLand:    landItem,
	PhaseLanded:  landedItem,
}

// baseItem fills the fields shared by every onboard-generated RTL command.
func baseItem(in itemInput) model.Command {
	return model.Command{
		LoiterRadius:     in.loiterRadius,
		LoiterDirection:  1,
		AcceptanceRadius: in.acceptanceRadius,
		PitchMin:         0,
		Origin:           model.OriginOnboard,
	}
}

func climbItem(in itemInput) (model.Command, string) {
	climbAlt := in.home.Alt + in.tunables.ReturnAlt

	item := baseItem(in)
	item.Lat = in.position.Lat
	item.Lon = in.position.Lon
	item.Altitude = climbAlt
	item.Yaw = math.NaN()
	item.NavCmd = model.NavCmdWaypoint
	item.TimeInside = 0
	item.Autocontinue = true

	return item, fmt.Sprintf("RTL: climb to %d m (%d m above home)",
		int(climbAlt), int(climbAlt-in.home.Alt))
}

func returnItem(in itemInput) (model.Command, string) {
	item := baseItem(in)
	item.Lat = in.home.Lat
	item.Lon = in.home.Lon
	item.Altitude = in.returnAltitude

	// head for home along the line from the last setpoint if there is one
	if in.previous.Valid {
		item.Yaw = geometry.Bearing(in.previous.Lat, in.previous.Lon, item.Lat, item.Lon)
	} else {
		item.Yaw = geometry.Bearing(in.position.Lat, in.position.Lon, item.Lat, item.Lon)
	}
	item.NavCmd = model.NavCmdWaypoint
	item.TimeInside = 0
	item.Autocontinue = true

	return item, fmt.Sprintf("RTL: return at %d m (%d m above home)",
		int(item.Altitude), int(item.Altitude-in.home.Alt))
}

func descendItem(in itemInput) (model.Command, string) {
	item := baseItem(in)
	item.Lat = in.home.Lat
	item.Lon = in.home.Lon
	item.Altitude = in.home.Alt + in.tunables.DescendAlt
	item.Yaw = in.home.Yaw
	item.NavCmd = model.NavCmdLoiterTimeLimit
	item.TimeInside = 0
	item.Autocontinue = false

	return item, fmt.Sprintf("RTL: descend to %d m (%d m above home)",
		int(item.Altitude), int(item.Altitude-in.home.Alt))
}

func loiterItem(in itemInput) (model.Command, string) {
	autoland := in.tunables.landsAfterLoiter()

	item := baseItem(in)
	item.Lat = in.home.Lat
	item.Lon = in.home.Lon
	item.Altitude = in.home.Alt + in.tunables.DescendAlt
	item.Yaw = in.home.Yaw
	item.NavCmd = model.NavCmdLoiterUnlimited
	if autoland {
		item.NavCmd = model.NavCmdLoiterTimeLimit
	}
	item.TimeInside = in.tunables.loiterTime()
	item.Autocontinue = autoland

	if autoland {
		return item, fmt.Sprintf("RTL: loiter %.1fs", item.TimeInside)
	}
	return item, "RTL: completed, loiter"
}

func landItem(in itemInput) (model.Command, string) {
	return in.land, "RTL: land at home"
}

func landedItem(in itemInput) (model.Command, string) {
	return in.idle, "RTL: completed, landed"
}
