package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devskill-org/wh-mpc/repository"
	"github.com/devskill-org/wh-mpc/trajectory"
)

// Snapshot is the published view of a delivered trajectory: decisions plus
// derived temperature/import/export vectors and the cached KPIs, stripped
// of the domain types so it serializes cleanly over JSON/websocket.
type Snapshot struct {
	ClientID        int       `json:"client_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	Decisions       []float64 `json:"decisions"`
	Temperatures    []float64 `json:"temperatures"`
	Imports         []float64 `json:"imports"`
	Exports         []float64 `json:"exports"`
	Cost            *float64  `json:"cost,omitempty"`
	SelfConsumption *float64  `json:"self_consumption,omitempty"`
}

// SnapshotFrom builds a Snapshot from a delivered trajectory. Cost and
// self-consumption are included on a best-effort basis: a trajectory
// missing the prices needed for one simply omits it.
func SnapshotFrom(clientID int, sys *trajectory.System) Snapshot {
	snap := Snapshot{
		ClientID:     clientID,
		GeneratedAt:  time.Now().UTC(),
		Decisions:    sys.Decisions(),
		Temperatures: sys.Temperatures(),
		Imports:      sys.Imports(),
		Exports:      sys.Exports(),
	}
	if cost, err := sys.ComputeCost(); err == nil {
		snap.Cost = &cost
	}
	if sc, err := sys.ComputeSelfConsumption(); err == nil {
		snap.SelfConsumption = &sc
	}
	return snap
}

// StatusServer exposes /healthz (process + repository connectivity) and
// /ws (a websocket stream pushing the latest delivered trajectory snapshot
// whenever OptimizerService completes a run), grounded on the teacher's
// health.go/server.go pair and generalized from miner/EMS telemetry to
// water-heater trajectory snapshots.
type StatusServer struct {
	logger *log.Logger
	http   *http.Server
	port   int

	clients   repository.ClientRepository
	decisions repository.DecisionRepository

	startTime time.Time
	upgrader  websocket.Upgrader
	conns     sync.Map // *websocket.Conn -> struct{}
	broadcast chan []byte
	done      chan struct{}

	mu   sync.RWMutex
	last map[int]Snapshot
}

// NewStatusServer builds a StatusServer. Passing port<=0 returns nil: a
// disabled status server, mirroring the teacher's health server convention.
func NewStatusServer(port int, clients repository.ClientRepository, decisions repository.DecisionRepository, logger *log.Logger) *StatusServer {
	if port <= 0 {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}

	mux := http.NewServeMux()
	s := &StatusServer{
		logger:    logger,
		port:      port,
		clients:   clients,
		decisions: decisions,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		last:      make(map[int]Snapshot),
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	return s
}

// Start starts the HTTP server and the broadcast pump in background
// goroutines.
func (s *StatusServer) Start() error {
	if s == nil {
		return nil
	}
	go s.handleBroadcasts()
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("status server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server and closes open websockets.
func (s *StatusServer) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	close(s.done)
	s.conns.Range(func(key, _ any) bool {
		if conn, ok := key.(*websocket.Conn); ok {
			conn.Close() //nolint:errcheck
		}
		return true
	})
	return s.http.Shutdown(ctx)
}

// Publish records the latest delivered trajectory for a client and pushes
// it to every connected websocket client. Call this once per completed
// OptimizerService run.
func (s *StatusServer) Publish(clientID int, sys *trajectory.System) {
	if s == nil {
		return
	}
	snap := SnapshotFrom(clientID, sys)

	s.mu.Lock()
	s.last[clientID] = snap
	s.mu.Unlock()

	message, err := json.Marshal(snap)
	if err != nil {
		s.logger.Printf("failed to marshal snapshot: %v", err)
		return
	}
	select {
	case s.broadcast <- message:
	default:
		s.logger.Printf("broadcast channel full, dropping snapshot for client %d", clientID)
	}
}

type healthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	Uptime            string `json:"uptime"`
	RepositoryReady   bool   `json:"repository_ready"`
	ConnectedClients  int    `json:"connected_clients"`
}

func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	repoReady := true
	if s.clients != nil {
		if _, err := s.clients.ListAll(r.Context()); err != nil {
			repoReady = false
		}
	}

	count := 0
	s.conns.Range(func(_, _ any) bool { count++; return true })

	resp := healthResponse{
		Status:           "healthy",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Uptime:           formatUptime(time.Since(s.startTime)),
		RepositoryReady:  repoReady,
		ConnectedClients: count,
	}
	if !repoReady {
		resp.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (s *StatusServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade error: %v", err)
		return
	}
	s.conns.Store(conn, struct{}{})
	defer func() {
		s.conns.Delete(conn)
		conn.Close() //nolint:errcheck
	}()

	s.sendLatestTo(conn)

	// Drain client reads so ping/pong and close frames are processed; this
	// server is push-only and ignores any payload the client sends.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *StatusServer) sendLatestTo(conn *websocket.Conn) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.last {
		if err := conn.WriteJSON(snap); err != nil {
			s.logger.Printf("failed to send initial snapshot: %v", err)
			return
		}
	}
}

func (s *StatusServer) handleBroadcasts() {
	for {
		select {
		case message := <-s.broadcast:
			s.conns.Range(func(key, _ any) bool {
				conn, ok := key.(*websocket.Conn)
				if !ok {
					return true
				}
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					s.logger.Printf("websocket write error: %v", err)
					conn.Close() //nolint:errcheck
					s.conns.Delete(conn)
				}
				return true
			})
		case <-s.done:
			return
		}
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
