package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/internal/navigator"
)

type notice struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session"`
	Text    string    `json:"text"`
}

func newNotice(st *navigator.Status, text string) notice {
	return notice{Time: st.Time, Session: st.Session, Text: text}
}

type setpointPayload struct {
	Type string   `json:"type"`
	Lat  float64  `json:"lat"`
	Lon  float64  `json:"lon"`
	Alt  float64  `json:"alt"`
	Yaw  *float64 `json:"yaw,omitempty"`
}

type statusPayload struct {
	Time           time.Time        `json:"time"`
	Session        string           `json:"session"`
	Mode           string           `json:"mode"`
	RTLPhase       string           `json:"rtl_phase"`
	Landed         bool             `json:"landed"`
	Lat            float64          `json:"lat"`
	Lon            float64          `json:"lon"`
	Alt            float64          `json:"alt"`
	HomeValid      bool             `json:"home_valid"`
	DistanceToHome float64          `json:"distance_to_home"`
	Command        string           `json:"command"`
	Setpoint       *setpointPayload `json:"setpoint,omitempty"`
}

var setpointTypeNames = [...]string{"position", "loiter", "land", "idle"}

// newStatusPayload flattens a snapshot for the wire. NaN yaw ("keep
// heading") is left out since JSON has no NaN.
func newStatusPayload(st *navigator.Status) statusPayload {
	p := statusPayload{
		Time:           st.Time,
		Session:        st.Session,
		Mode:           st.Mode,
		RTLPhase:       st.RTLPhase,
		Landed:         st.Landed,
		Lat:            st.Position.Lat,
		Lon:            st.Position.Lon,
		Alt:            st.Position.Alt,
		HomeValid:      st.Home.Valid,
		DistanceToHome: st.DistanceToHome,
		Command:        st.Command.NavCmd.String(),
	}
	if cur := st.Triplet.Current; cur.Valid {
		sp := &setpointPayload{Lat: cur.Lat, Lon: cur.Lon, Alt: cur.Alt}
		if int(cur.Type) < len(setpointTypeNames) {
			sp.Type = setpointTypeNames[cur.Type]
		}
		if !math.IsNaN(cur.Yaw) {
			yaw := cur.Yaw
			sp.Yaw = &yaw
		}
		p.Setpoint = sp
	}
	return p
}

// CommandKind is the leaf of a command topic.
type CommandKind string

const (
	CommandMode      CommandKind = "mode"
	CommandParam     CommandKind = "param"
	CommandHeartbeat CommandKind = "heartbeat"
	CommandHome      CommandKind = "home"
)

// Command is an uplinked ground-station command.
type Command struct {
	Kind  CommandKind
	Mode  string
	Param string
	Value float64
	Home  model.HomePosition
}

type paramPayload struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

type homePayload struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
	Alt *float64 `json:"alt"`
	Yaw float64  `json:"yaw_deg"`
}

// ParseCommand decodes the payload of a command topic leaf. Mode payloads
// are the bare mode name, param payloads are {"name": ..., "value": ...} and
// home payloads are {"lat": ..., "lon": ..., "alt": ..., "yaw_deg": ...}.
func ParseCommand(leaf string, payload []byte) (Command, error) {
	switch CommandKind(leaf) {
	case CommandHeartbeat:
		return Command{Kind: CommandHeartbeat}, nil

	case CommandMode:
		mode := strings.Trim(strings.TrimSpace(string(payload)), `"`)
		if mode == "" {
			return Command{}, fmt.Errorf("empty mode")
		}
		return Command{Kind: CommandMode, Mode: mode}, nil

	case CommandParam:
		var pp paramPayload
		if err := json.Unmarshal(payload, &pp); err != nil {
			return Command{}, fmt.Errorf("bad param payload: %w", err)
		}
		if pp.Name == "" || pp.Value == nil {
			return Command{}, fmt.Errorf("param payload needs name and value")
		}
		return Command{Kind: CommandParam, Param: pp.Name, Value: *pp.Value}, nil

	case CommandHome:
		var hp homePayload
		if err := json.Unmarshal(payload, &hp); err != nil {
			return Command{}, fmt.Errorf("bad home payload: %w", err)
		}
		if hp.Lat == nil || hp.Lon == nil || hp.Alt == nil {
			return Command{}, fmt.Errorf("home payload needs lat, lon and alt")
		}
		if math.Abs(*hp.Lat) > 90 || math.Abs(*hp.Lon) > 180 {
			return Command{}, fmt.Errorf("home %v, %v out of range", *hp.Lat, *hp.Lon)
		}
		return Command{Kind: CommandHome, Home: model.HomePosition{
			Lat: *hp.Lat,
			Lon: *hp.Lon,
			Alt: *hp.Alt,
			Yaw: hp.Yaw * math.Pi / 180,
		}}, nil

	default:
		return Command{}, fmt.Errorf("unknown command %s", strconv.Quote(leaf))
	}
}
