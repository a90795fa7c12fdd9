package navigator

import (
	"time"

	"github.com/mohae/deepcopy"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/pkg/geometry"
)

// Status is a point-in-time view of the navigator for telemetry.
type Status struct {
	Time           time.Time
	Session        string
	Mode           string
	RTLPhase       string
	Landed         bool
	Position       model.Position
	Home           model.HomePosition
	DistanceToHome float64 // metres, horizontal
	Triplet        model.SetpointTriplet
	Command        model.Command
	CanLoiter      bool
	Notices        []string
}

// snapshot copies the live state so the telemetry goroutine never shares
// memory with the control cycle.
func (n *Navigator) snapshot() *Status {
	live := &Status{
		Time:      n.now(),
		Session:   n.session,
		Mode:      n.mode.String(),
		RTLPhase:  n.rtl.Phase().String(),
		Landed:    n.status.Landed,
		Position:  n.position,
		Home:      n.home,
		Triplet:   n.triplet,
		Command:   n.command,
		CanLoiter: n.canLoiter,
		Notices:   n.notices,
	}
	if n.home.Valid {
		live.DistanceToHome = geometry.DistM(n.position.Lat, n.position.Lon, n.home.Lat, n.home.Lon)
	}
	return deepcopy.Copy(live).(*Status)
}
