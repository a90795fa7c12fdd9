package navigator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/curbz/rtl-navigator/internal/model"
)

func newReachedNav(fixedWing bool) (*Navigator, *time.Time) {
	cfg := DefaultConfig
	cfg.FixedWing = fixedWing
	n := New(cfg, &fixedParams{}, &recorder{})
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }
	n.home = model.HomePosition{Lat: 47.0, Lon: 8.0, Alt: 400, Valid: true}
	return n, &clock
}

func TestReachedNeverForUnlimitedOrIdle(t *testing.T) {
	n, _ := newReachedNav(false)
	n.position = model.Position{Lat: 47.0, Lon: 8.0, Alt: 400}

	for _, c := range []model.NavCmd{model.NavCmdLoiterUnlimited, model.NavCmdIdle} {
		n.Publish(model.Command{Lat: 47.0, Lon: 8.0, Altitude: 400, NavCmd: c, AcceptanceRadius: 10})
		require.False(t, n.CommandReached(), c.String())
	}
}

func TestReachedLandFollowsLanded(t *testing.T) {
	n, _ := newReachedNav(false)
	n.Publish(n.LandCommand())
	require.False(t, n.CommandReached())
	n.status.Landed = true
	require.True(t, n.CommandReached())
}

func TestReachedWaypointAcceptance(t *testing.T) {
	n, _ := newReachedNav(false)
	n.Publish(model.Command{Lat: 47.0, Lon: 8.0, Altitude: 500, NavCmd: model.NavCmdWaypoint, AcceptanceRadius: 10})

	// 15 m below the waypoint
	n.position = model.Position{Lat: 47.0, Lon: 8.0, Alt: 485}
	require.False(t, n.CommandReached())

	n.position.Alt = 495
	require.True(t, n.CommandReached())
}

func TestReachedRelativeAltitude(t *testing.T) {
	n, _ := newReachedNav(false)
	n.Publish(model.Command{Lat: 47.0, Lon: 8.0, Altitude: 100, AltitudeIsRelative: true, NavCmd: model.NavCmdWaypoint, AcceptanceRadius: 10})
	require.InDelta(t, 500, n.Triplet().Current.Alt, 1e-9)

	n.position = model.Position{Lat: 47.0, Lon: 8.0, Alt: 500}
	require.True(t, n.CommandReached())
}

func TestReachedDwell(t *testing.T) {
	n, clock := newReachedNav(false)
	n.position = model.Position{Lat: 47.0, Lon: 8.0, Alt: 420}
	n.Publish(model.Command{Lat: 47.0, Lon: 8.0, Altitude: 420, NavCmd: model.NavCmdLoiterTimeLimit, TimeInside: 8, AcceptanceRadius: 10})

	require.False(t, n.CommandReached())
	*clock = clock.Add(7 * time.Second)
	require.False(t, n.CommandReached())

	// drifting out after the position was reached does not restart the dwell
	n.position.Lat = 47.01
	*clock = clock.Add(time.Second)
	require.True(t, n.CommandReached())

	n.ResetReached()
	require.False(t, n.CommandReached())
}

func TestReachedFixedWingLoiterMargin(t *testing.T) {
	for _, tc := range []struct {
		fixedWing bool
		want      bool
	}{{false, false}, {true, true}} {
		n, _ := newReachedNav(tc.fixedWing)
		n.Publish(model.Command{Lat: 47.0, Lon: 8.0, Altitude: 420, NavCmd: model.NavCmdLoiterTimeLimit, LoiterRadius: 50, AcceptanceRadius: 10})
		// roughly 55 m north of the loiter centre
		n.position = model.Position{Lat: 47.0 + 55.0/111195.0, Lon: 8.0, Alt: 420}
		require.Equal(t, tc.want, n.CommandReached(), "fixed wing %v", tc.fixedWing)
	}
}

func TestToSetpointTypes(t *testing.T) {
	n, _ := newReachedNav(false)
	for c, want := range map[model.NavCmd]model.SetpointType{
		model.NavCmdWaypoint:        model.SetpointPosition,
		model.NavCmdLoiterTimeLimit: model.SetpointLoiter,
		model.NavCmdLoiterUnlimited: model.SetpointLoiter,
		model.NavCmdLand:            model.SetpointLand,
		model.NavCmdIdle:            model.SetpointIdle,
	} {
		sp := n.toSetpoint(model.Command{NavCmd: c, Yaw: math.NaN()})
		require.True(t, sp.Valid)
		require.Equal(t, want, sp.Type, c.String())
		require.True(t, math.IsNaN(sp.Yaw))
	}
}

func TestPublishInvalidatesNext(t *testing.T) {
	n, _ := newReachedNav(false)
	n.triplet.Next = model.PositionSetpoint{Valid: true}
	n.Publish(n.IdleCommand())
	require.False(t, n.Triplet().Next.Valid)
	require.True(t, n.tripletUpdated)
}
