package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridfort/internal/game"
)

// statusServer is the read-only HTTP sidecar: health, status JSON,
// prometheus metrics and a websocket spectator feed. The game core is
// single-threaded, so the core publishes immutable JSON blobs under a
// lock and the HTTP handlers only ever read those.
type statusServer struct {
	srv *http.Server

	mu           sync.RWMutex
	statusJSON   []byte
	snapshotJSON []byte

	owner *Server

	subsMu sync.Mutex
	subs   map[*websocket.Conn]struct{}
}

type statusPayload struct {
	Hostname    string `json:"hostname"`
	Map         string `json:"map"`
	Tick        uint32 `json:"tick"`
	Players     int    `json:"players"`
	PlayerLimit int    `json:"playerLimit"`
	RoundsDone  int    `json:"roundsPlayed"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	// The feed is read-only public data; cross-origin viewers are fine.
	CheckOrigin: func(*http.Request) bool { return true },
}

func newStatusServer(owner *Server, port int) *statusServer {
	ss := &statusServer{
		owner: owner,
		subs:  make(map[*websocket.Conn]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		ss.mu.RLock()
		body := ss.statusJSON
		ss.mu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ss.handleWS)

	ss.srv = &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ss
}

func (ss *statusServer) start() {
	go func() {
		if err := ss.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ss.owner.log.Warn().Err(err).Msg("status server stopped")
		}
	}()
}

func (ss *statusServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = ss.srv.Shutdown(ctx)
}

// publish refreshes the cached JSON blobs and fans the spectator snapshot
// out to websocket subscribers. Called from the game thread once per
// frame; the snapshot is taken here, on the game thread, never from a
// handler.
func (ss *statusServer) publish() {
	s := ss.owner
	status, err := json.Marshal(statusPayload{
		Hostname:    s.cvars.Find("sv_hostname").String(),
		Map:         s.gameMap.Name,
		Tick:        s.world.TickCount(),
		Players:     s.joinedPlayerCount(),
		PlayerLimit: s.rules.PlayerLimit,
		RoundsDone:  s.world.RoundsPlayed(),
	})
	if err != nil {
		return
	}

	snap := s.world.TakeSnapshot(game.PlayerIDUnconnected)
	snapshot, err := json.Marshal(&snap)
	if err != nil {
		return
	}

	ss.mu.Lock()
	ss.statusJSON = status
	ss.snapshotJSON = snapshot
	ss.mu.Unlock()

	ss.subsMu.Lock()
	for conn := range ss.subs {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
			delete(ss.subs, conn)
			_ = conn.Close()
		}
	}
	ss.subsMu.Unlock()
}

func (ss *statusServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// New subscribers get the latest snapshot right away.
	ss.mu.RLock()
	latest := ss.snapshotJSON
	ss.mu.RUnlock()
	if len(latest) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, latest); err != nil {
			_ = conn.Close()
			return
		}
	}

	ss.subsMu.Lock()
	ss.subs[conn] = struct{}{}
	ss.subsMu.Unlock()

	// Drain (and discard) client frames so pings are answered and closes
	// are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ss.subsMu.Lock()
				delete(ss.subs, conn)
				ss.subsMu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()
}
