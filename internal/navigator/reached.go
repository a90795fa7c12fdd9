package navigator

import (
	"time"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/pkg/geometry"
)

// fixed-wing aircraft circle a loiter point, so they count as there once
// inside the circle plus some margin
const loiterRadiusMargin = 1.2

type reachedState struct {
	positionReached bool
	firstInside     time.Time
}

func (n *Navigator) ResetReached() {
	n.reached = reachedState{}
}

// CommandReached reports whether the current command's position and dwell
// conditions hold.
func (n *Navigator) CommandReached() bool {
	cmd := n.command

	switch cmd.NavCmd {
	case model.NavCmdIdle, model.NavCmdLoiterUnlimited:
		return false
	case model.NavCmdLand:
		return n.status.Landed
	}

	now := n.now()

	if !n.reached.positionReached {
		dist := geometry.Dist3DM(
			cmd.Lat, cmd.Lon, n.absoluteAltitude(cmd),
			n.position.Lat, n.position.Lon, n.position.Alt)

		if dist <= n.acceptanceFor(cmd) {
			n.reached.positionReached = true
			n.reached.firstInside = now
		}
	}

	if n.reached.positionReached {
		dwell := time.Duration(cmd.TimeInside * float64(time.Second))
		if now.Sub(n.reached.firstInside) >= dwell {
			return true
		}
	}
	return false
}

func (n *Navigator) acceptanceFor(cmd model.Command) float64 {
	if n.cfg.FixedWing && cmd.NavCmd == model.NavCmdLoiterTimeLimit {
		return cmd.LoiterRadius * loiterRadiusMargin
	}
	return cmd.AcceptanceRadius
}
