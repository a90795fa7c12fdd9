// Package xpconnect feeds the navigator from a running X-Plane 12 through
// its Web API: dataref ids are resolved over REST, values then stream in
// over a WebSocket subscription.
package xpconnect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/model"
	"github.com/curbz/rtl-navigator/internal/xplaneapi/xpapimodel"
	"github.com/curbz/rtl-navigator/pkg/util"
)

const degToRad = math.Pi / 180

// VehicleSink receives own-ship state. The navigator implements it.
type VehicleSink interface {
	UpdatePosition(pos model.Position, yaw float64)
	UpdateStatus(status model.VehicleStatus)
}

// Config is the xplane_api section of the application config. Mock starts
// the built-in mock server instead of talking to a simulator.
type Config struct {
	RestBaseURL  string `yaml:"web_api_http_url"`
	WebSocketURL string `yaml:"web_api_websocket_url"`
	Mock         bool   `yaml:"mock"`
}

type config struct {
	XPlane Config `yaml:"xplane_api"`
}

var DefaultConfig = Config{
	RestBaseURL:  "http://localhost:8086/api/v2",
	WebSocketURL: "ws://localhost:8086/api/v2",
}

func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{XPlane: DefaultConfig}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.XPlane, fmt.Errorf("error reading xplane_api config: %w", err)
	}
	return cfg.XPlane, nil
}

type XPConnect struct {
	config Config
	sink   VehicleSink
	client *http.Client
	conn   *websocket.Conn

	// resolved datarefs by Web API id
	datarefs map[int]*xpapimodel.Dataref
	byName   map[string]*xpapimodel.Dataref
}

func New(cfg Config, sink VehicleSink) *XPConnect {
	return &XPConnect{
		config: cfg,
		sink:   sink,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

var requestCounter atomic.Int64

// Start resolves the own-ship datarefs, primes the sink with their current
// values and then streams updates until ctx ends or the socket closes.
func (xpc *XPConnect) Start(ctx context.Context) error {
	log.Println("get own-ship dataref indices from x-plane web api")

	var err error
	xpc.datarefs, err = xpc.getDataRefIndices(ctx, xpapimodel.OwnShipDatarefs)
	if err != nil {
		return fmt.Errorf("failed to retrieve dataref indices via REST: %w", err)
	}
	if len(xpc.datarefs) != len(xpapimodel.OwnShipDatarefs) {
		return fmt.Errorf("only %d of %d dataref indices were received", len(xpc.datarefs), len(xpapimodel.OwnShipDatarefs))
	}
	xpc.byName = make(map[string]*xpapimodel.Dataref, len(xpc.datarefs))
	for id, dr := range xpc.datarefs {
		log.Debugf("  - %-40s -> ID: %d", dr.Name, id)
		xpc.byName[dr.Name] = dr
	}

	if err := xpc.prime(ctx); err != nil {
		log.Warnf("could not read initial own-ship state: %v", err)
	}

	log.Println("connecting to x-plane websocket")
	xpc.conn, _, err = websocket.DefaultDialer.DialContext(ctx, xpc.config.WebSocketURL, nil)
	if err != nil {
		return fmt.Errorf("could not connect to x-plane websocket: %w", err)
	}
	defer xpc.conn.Close()
	log.Println("websocket connection established")

	done := make(chan error, 1)
	go func() {
		for {
			_, message, err := xpc.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Println("x-plane websocket closed")
					done <- nil
					return
				}
				done <- err
				return
			}
			xpc.processMessage(message)
		}
	}()

	if err := xpc.sendDatarefSubscription(); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		log.Println("disconnecting from x-plane")
		xpc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}

// prime reads every own-ship dataref once over REST.
func (xpc *XPConnect) prime(ctx context.Context) error {
	for id, dr := range xpc.datarefs {
		value, err := xpc.webGetDataRefValue(ctx, id)
		if err != nil {
			return fmt.Errorf("error retrieving dataref %s value: %w", dr.Name, err)
		}
		if err := updateMemDatarefValue(dr, value); err != nil {
			return err
		}
	}
	xpc.publishOwnShip()
	return nil
}

func (xpc *XPConnect) getDataRefIndices(ctx context.Context, names []string) (map[int]*xpapimodel.Dataref, error) {
	response, err := xpc.webGetDatarefIndices(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("error retrieving dataref indices from web api: %w", err)
	}

	m := make(map[int]*xpapimodel.Dataref)
	for _, info := range response.Data {
		for _, name := range names {
			if name == info.Name {
				m[info.ID] = &xpapimodel.Dataref{Name: name, APIInfo: info}
				break
			}
		}
	}
	return m, nil
}

func (xpc *XPConnect) webGetDataRefValue(ctx context.Context, datarefID int) (any, error) {
	var response xpapimodel.APIResponseDatarefValue
	fullURL := fmt.Sprintf("%s/datarefs/%d/value", xpc.config.RestBaseURL, datarefID)
	if err := xpc.getJSON(ctx, fullURL, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

func (xpc *XPConnect) webGetDatarefIndices(ctx context.Context, names []string) (xpapimodel.APIResponseDatarefs, error) {
	var response xpapimodel.APIResponseDatarefs

	fullURL, err := buildURLWithFilters(xpc.config.RestBaseURL+"/datarefs", names)
	if err != nil {
		return response, err
	}
	err = xpc.getJSON(ctx, fullURL, &response)
	return response, err
}

func (xpc *XPConnect) getJSON(ctx context.Context, fullURL string, out any) error {
	log.Debugf("querying web api: %s", fullURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := xpc.client.Do(req)
	if err != nil {
		return fmt.Errorf("error performing HTTP GET to %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("received non-OK status code %d from X-Plane REST API. Response: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response body: %w", err)
	}
	return nil
}

func (xpc *XPConnect) sendDatarefSubscription() error {
	reqID := requestCounter.Add(1)

	subs := make([]xpapimodel.SubDataref, 0, len(xpc.datarefs))
	for id := range xpc.datarefs {
		subs = append(subs, xpapimodel.SubDataref{Id: id})
	}

	request := xpapimodel.DatarefSubscriptionRequest{
		RequestID: reqID,
		Type:      "dataref_subscribe_values",
		Params:    xpapimodel.ParamDatarefs{Datarefs: subs},
	}
	if err := util.SendJSON(xpc.conn, request); err != nil {
		return fmt.Errorf("failed to subscribe to datarefs: %w", err)
	}
	log.Debugf("-> sent request ID %d: subscribing to %d datarefs", reqID, len(subs))
	return nil
}

func (xpc *XPConnect) processMessage(message []byte) {
	var response xpapimodel.SubscriptionResponse
	if err := json.Unmarshal(message, &response); err != nil {
		log.Warnf("error unmarshaling x-plane message: %v. Raw: %s", err, string(message))
		return
	}

	switch response.Type {
	case "dataref_update_values":
		xpc.handleSubscribedDatarefUpdate(response.Data)
	case "result":
		if response.Success {
			log.Debugf("<- received response ID %d: success", response.RequestID)
		} else if response.Error != nil {
			log.Errorf("<- received response ID %d: failure %d %s", response.RequestID, response.Error.Code, response.Error.Message)
		} else {
			log.Errorf("<- received response ID %d: failure", response.RequestID)
		}
	default:
		log.Debugf("[UNKNOWN] req ID %d, type: %s, payload: %s", response.RequestID, response.Type, string(message))
	}
}

func (xpc *XPConnect) handleSubscribedDatarefUpdate(values map[string]any) {
	for id, value := range values {
		idInt, err := strconv.Atoi(id)
		if err != nil {
			log.Warnf("error converting dataref ID %s to int: %v", id, err)
			continue
		}
		dr, ok := xpc.datarefs[idInt]
		if !ok {
			continue
		}
		if err := updateMemDatarefValue(dr, value); err != nil {
			log.Warnf("error updating dataref ID %d value: %v", idInt, err)
		}
	}
	xpc.publishOwnShip()
}

var errNotNumeric = errors.New("dataref value is not numeric")

// updateMemDatarefValue stores a scalar value. Array datarefs contribute
// their first element.
func updateMemDatarefValue(dr *xpapimodel.Dataref, value any) error {
	switch v := value.(type) {
	case float64:
		dr.Value = v
	case []any:
		if len(v) == 0 {
			return fmt.Errorf("%s: empty array", dr.Name)
		}
		f, ok := v[0].(float64)
		if !ok {
			return fmt.Errorf("%s: %w", dr.Name, errNotNumeric)
		}
		dr.Value = f
	default:
		return fmt.Errorf("%s: %w (%T)", dr.Name, errNotNumeric, value)
	}
	dr.Seen = true
	return nil
}

// publishOwnShip pushes position and landed state once every own-ship
// dataref has a value.
func (xpc *XPConnect) publishOwnShip() {
	for _, name := range xpapimodel.OwnShipDatarefs {
		if dr, ok := xpc.byName[name]; !ok || !dr.Seen {
			return
		}
	}

	pos := model.Position{
		Lat: xpc.byName[xpapimodel.Latitude].Value,
		Lon: xpc.byName[xpapimodel.Longitude].Value,
		Alt: xpc.byName[xpapimodel.Elevation].Value,
	}
	yaw := xpc.byName[xpapimodel.TruePsi].Value * degToRad

	xpc.sink.UpdateStatus(model.VehicleStatus{Landed: xpc.byName[xpapimodel.OnGround].Value != 0})
	xpc.sink.UpdatePosition(pos, yaw)
}

func buildURLWithFilters(urlStr string, names []string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("error parsing base URL: %w", err)
	}

	// one filter[name] per dataref
	q := u.Query()
	for _, name := range names {
		q.Add("filter[name]", name)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
