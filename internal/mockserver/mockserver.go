// Package mockserver imitates the X-Plane 12 Web API for the own-ship
// datarefs, flying a scripted trajectory.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/xplaneapi/xpapimodel"
)

// Sample is the simulated own-ship state at one step.
type Sample struct {
	Lat, Lon  float64
	Elevation float64 // metres MSL
	TruePsi   float64 // degrees
	OnGround  bool
}

// Trajectory returns the sample for update number i.
type Trajectory func(i int) Sample

// Static holds s forever.
func Static(s Sample) Trajectory {
	return func(int) Sample { return s }
}

// Linear moves from a to b over steps updates and then stays at b.
func Linear(a, b Sample, steps int) Trajectory {
	return func(i int) Sample {
		if i <= 0 {
			return a
		}
		if i >= steps {
			return b
		}
		f := float64(i) / float64(steps)
		return Sample{
			Lat:       a.Lat + (b.Lat-a.Lat)*f,
			Lon:       a.Lon + (b.Lon-a.Lon)*f,
			Elevation: a.Elevation + (b.Elevation-a.Elevation)*f,
			TruePsi:   b.TruePsi,
			OnGround:  a.OnGround && b.OnGround,
		}
	}
}

func (s Sample) value(name string) any {
	switch name {
	case xpapimodel.Latitude:
		return s.Lat
	case xpapimodel.Longitude:
		return s.Lon
	case xpapimodel.Elevation:
		return s.Elevation
	case xpapimodel.TruePsi:
		return s.TruePsi
	case xpapimodel.OnGround:
		if s.OnGround {
			return 1
		}
		return 0
	}
	return 0
}

var valueTypes = map[string]string{
	xpapimodel.Latitude:  "double",
	xpapimodel.Longitude: "double",
	xpapimodel.Elevation: "double",
	xpapimodel.TruePsi:   "float",
	xpapimodel.OnGround:  "int",
}

type Server struct {
	traj     Trajectory
	interval time.Duration
	upgrader websocket.Upgrader

	mu sync.Mutex
	// deterministic ids per dataref name
	ids    map[string]int
	names  map[int]string
	nextID int
}

// New returns a mock that sends one update per interval.
func New(traj Trajectory, interval time.Duration) *Server {
	return &Server{
		traj:     traj,
		interval: interval,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		ids:      make(map[string]int),
		names:    make(map[int]string),
		nextID:   1000,
	}
}

func (s *Server) idFor(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[name]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.ids[name] = id
	s.names[id] = name
	return id
}

func (s *Server) nameFor(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[id]
	return name, ok
}

// Handler serves the REST and WebSocket endpoints under /api/v2.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/datarefs", s.datarefsHandler)
	mux.HandleFunc("GET /api/v2/datarefs/{id}/value", s.valueHandler)
	mux.HandleFunc("/api/v2", s.wsHandler)
	return mux
}

// Start serves the mock on the given port (e.g. "8086"). The caller shuts
// the returned server down.
func Start(port string, traj Trajectory, interval time.Duration) *http.Server {
	srv := &http.Server{Addr: ":" + port, Handler: New(traj, interval).Handler()}
	go func() {
		log.Printf("mockserver: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("mockserver: ListenAndServe error: %v", err)
		}
	}()
	return srv
}

func (s *Server) datarefsHandler(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["filter[name]"]
	if len(names) == 0 {
		names = xpapimodel.OwnShipDatarefs
	}

	data := make([]xpapimodel.DatarefInfo, 0, len(names))
	for _, name := range names {
		vt, ok := valueTypes[name]
		if !ok {
			continue
		}
		data = append(data, xpapimodel.DatarefInfo{ID: s.idFor(name), Name: name, ValueType: vt})
	}
	writeJSON(w, xpapimodel.APIResponseDatarefs{Data: data})
}

func (s *Server) valueHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad dataref id", http.StatusBadRequest)
		return
	}
	name, ok := s.nameFor(id)
	if !ok {
		http.Error(w, "unknown dataref", http.StatusNotFound)
		return
	}
	writeJSON(w, xpapimodel.APIResponseDatarefValue{Data: s.traj(0).value(name)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("mockserver: encode error: %v", err)
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("mockserver: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	defer close(done)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("mockserver: read error: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var req xpapimodel.DatarefSubscriptionRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Warnf("mockserver: invalid JSON: %v", err)
			continue
		}

		switch req.Type {
		case "dataref_subscribe_values":
			write(xpapimodel.SubscriptionResponse{RequestID: req.RequestID, Type: "result", Success: true})

			ids := make([]int, 0, len(req.Params.Datarefs))
			for _, d := range req.Params.Datarefs {
				ids = append(ids, d.Id)
			}
			go s.stream(ids, write, done)

		default:
			log.Debugf("mockserver: received unknown ws type=%q msg=%s", req.Type, string(msg))
		}
	}
}

func (s *Server) stream(ids []int, write func(any) error, done <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		sample := s.traj(i)
		payload := make(map[string]any, len(ids))
		for _, id := range ids {
			if name, ok := s.nameFor(id); ok {
				payload[strconv.Itoa(id)] = sample.value(name)
			}
		}
		if err := write(xpapimodel.SubscriptionResponse{Type: "dataref_update_values", Data: payload}); err != nil {
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
