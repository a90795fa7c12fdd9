// Package xpapimodel holds the X-Plane 12 Web API wire types and the
// own-ship datarefs the navigator listens to.
package xpapimodel

// Own-ship datarefs.
const (
	Latitude  = "sim/flightmodel/position/latitude"
	Longitude = "sim/flightmodel/position/longitude"
	Elevation = "sim/flightmodel/position/elevation" // metres MSL
	TruePsi   = "sim/flightmodel/position/true_psi"  // degrees true
	OnGround  = "sim/flightmodel/failures/onground_any"
)

// OwnShipDatarefs lists every dataref needed to feed the navigator.
var OwnShipDatarefs = []string{Latitude, Longitude, Elevation, TruePsi, OnGround}

type APIResponseDatarefs struct {
	Data []DatarefInfo `json:"data"`
}

type APIResponseDatarefValue struct {
	Data any `json:"data"`
}

type DatarefInfo struct {
	ID         int    `json:"id"`
	IsWritable bool   `json:"is_writable"`
	Name       string `json:"name"`
	ValueType  string `json:"value_type"`
}

// Dataref is a resolved dataref and its last received value.
type Dataref struct {
	Name    string
	APIInfo DatarefInfo
	Value   float64
	Seen    bool
}

type DatarefSubscriptionRequest struct {
	RequestID int64         `json:"req_id"`
	Type      string        `json:"type"`
	Params    ParamDatarefs `json:"params"`
}

type ParamDatarefs struct {
	Datarefs []SubDataref `json:"datarefs"`
}

type SubDataref struct {
	Id int `json:"id"`
}

type SubscriptionResponse struct {
	RequestID int64          `json:"req_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Success   bool           `json:"success,omitempty"`
	Error     *ErrorPayload  `json:"error,omitempty"`
}

// ErrorPayload is used if Type is "error".
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
