// Package server owns the UDP socket, the per-endpoint client map, the
// world simulation, the cvar store and the tick clock. The entire core is
// single-threaded: the driver calls Update(dt) at frame rate and the
// server drains the socket, advances connections, steps the world a whole
// number of fixed ticks, then serializes snapshots and flushes the send
// buffers.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/netip"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	xrate "golang.org/x/time/rate"

	"gridfort/internal/config"
	"gridfort/internal/console"
	"gridfort/internal/game"
	"gridfort/internal/protocol"
	"gridfort/internal/transport"
)

// maxTicksPerFrame caps how many world ticks one Update may run, so a
// stalled frame cannot spiral.
const maxTicksPerFrame = 10

// disconnectLinger is how long DISCONNECT packets are repeated so the
// reason reaches the peer through loss.
const disconnectLinger = 0.5

// ArchiveSaver receives the Archive-flagged cvars at shutdown.
type ArchiveSaver func(hostname string, port int, cvars []*console.Cvar, bannedIPs []string) error

// Server is the authoritative game server instance.
type Server struct {
	log   zerolog.Logger
	cfg   config.ServerConfig
	cvars *console.Store
	rules game.Rules

	socket  transport.PacketSocket
	connCfg transport.Config
	clients map[transport.Endpoint]*Client

	gameMap *game.Map
	world   *game.World

	resources *ResourceTable
	bans      map[string]string // IP string -> banned username (may be empty)

	passwordSalt []byte
	passwordKey  []byte // derived key of sv_password, empty when open
	rconKey      []byte

	tickAccum    float64
	tickInterval float64

	metaConn  *transport.Conn
	metaTimer float64

	nextLevel string
	stopped   bool
	stopErr   error

	status   *statusServer
	saver    ArchiveSaver
	recvBuf  []byte
	botNames map[string]struct{}
}

// New builds a server over an already-bound socket and a loaded map.
func New(log zerolog.Logger, cfg config.ServerConfig, socket transport.PacketSocket, m *game.Map) (*Server, error) {
	s := &Server{
		log:          log,
		cfg:          cfg,
		cvars:        console.NewStore(),
		rules:        game.DefaultRules(),
		socket:       socket,
		connCfg:      transport.DefaultConfig(),
		clients:      make(map[transport.Endpoint]*Client),
		gameMap:      m,
		resources:    NewResourceTable(),
		bans:         make(map[string]string),
		tickInterval: 1.0 / float64(cfg.TickRate),
		recvBuf:      make([]byte, transport.MaxPacketSize),
		botNames:     make(map[string]struct{}),
	}
	s.rules.PlayerLimit = cfg.PlayerLimit

	s.passwordSalt = make([]byte, 16)
	if _, err := rand.Read(s.passwordSalt); err != nil {
		return nil, errors.Wrap(err, "generate password salt")
	}

	s.registerCvars()
	s.world = game.NewWorld(m, &s.rules, s)
	s.world.StartMap()

	s.resources.Add("map/"+m.Name, m.Data, true, true)

	if cfg.MetaServer != "" {
		meta, err := netip.ParseAddrPort(cfg.MetaServer)
		if err != nil {
			log.Warn().Str("meta", cfg.MetaServer).Msg("bad meta server endpoint, heartbeats disabled")
		} else {
			s.metaConn = transport.NewConn(socket, meta, s.connCfg)
			s.metaConn.Connect()
		}
	}

	if cfg.StatusPort > 0 {
		s.status = newStatusServer(s, cfg.StatusPort)
		s.status.start()
	}

	log.Info().
		Str("map", m.Name).
		Int("tickrate", cfg.TickRate).
		Int("playerlimit", cfg.PlayerLimit).
		Msg("server initialized")
	return s, nil
}

// SetArchiveSaver installs the shutdown persistence hook.
func (s *Server) SetArchiveSaver(saver ArchiveSaver) { s.saver = saver }

// World exposes the simulation to the scripting control surface.
func (s *Server) World() *game.World { return s.world }

// Cvars exposes the cvar store.
func (s *Server) Cvars() *console.Store { return s.cvars }

// Stopped reports whether the server asked its driver to exit.
func (s *Server) Stopped() (bool, error) { return s.stopped, s.stopErr }

// NextLevel returns the queued map name, or "" when the server stopped for
// good. The driver restarts with the new map and the carried-over bans.
func (s *Server) NextLevel() string { return s.nextLevel }

// BannedIPs returns the ban list so a driver can carry it across a map
// change.
func (s *Server) BannedIPs() []string {
	out := make([]string, 0, len(s.bans))
	for ip := range s.bans {
		out = append(out, ip)
	}
	return out
}

// RestoreBans reinstates a ban list saved before a map change or shutdown.
func (s *Server) RestoreBans(ips []string) {
	for _, ip := range ips {
		s.bans[ip] = ""
	}
}

// Update runs one driver frame: socket drain, connection updates, zero or
// more world ticks, snapshot distribution, send-buffer flush.
func (s *Server) Update(dt float64) {
	if s.stopped {
		return
	}

	s.drainSocket()
	s.updateConnections(dt)
	s.updateMeta(dt)

	s.tickAccum += dt
	ticks := 0
	for s.tickAccum >= s.tickInterval && ticks < maxTicksPerFrame {
		s.tickAccum -= s.tickInterval
		start := time.Now()
		s.world.Update(s.tickInterval)
		tickDuration.Observe(time.Since(start).Seconds())
		ticks++
	}
	if ticks == maxTicksPerFrame {
		// Shed the backlog instead of spiraling.
		s.tickAccum = 0
	}

	s.updateBots()
	s.sendSnapshots(dt)
	s.pumpResourceUploads()

	for _, c := range s.clients {
		if c.conn != nil {
			c.conn.Flush(dt)
		}
	}
	if s.status != nil {
		s.status.publish()
	}
	connectedClients.Set(float64(s.connectedCount()))
}

// drainSocket reads until WouldBlock, dispatching datagrams to their
// connections and accepting handshakes from unknown peers.
func (s *Server) drainSocket() {
	for {
		n, ep, ok, err := s.socket.RecvFrom(s.recvBuf)
		if err != nil {
			s.log.Warn().Err(err).Msg("socket receive error")
			return
		}
		if !ok {
			return
		}
		packetsReceived.Inc()
		data := s.recvBuf[:n]

		if s.metaConn != nil && ep == s.metaConn.Peer() {
			s.metaConn.HandlePacket(data)
			continue
		}

		c := s.clients[ep]
		if c == nil {
			if !transport.IsSYN(data) {
				continue
			}
			s.acceptClient(ep)
			continue
		}
		if c.conn != nil {
			c.conn.HandlePacket(data)
		}
	}
}

// acceptClient admits a handshake, subject to the ban list and the
// connecting/total/per-IP caps.
func (s *Server) acceptClient(ep transport.Endpoint) {
	ip := ep.Addr().String()
	if _, banned := s.bans[ip]; banned {
		connectionRejected.WithLabelValues("banned").Inc()
		return
	}
	maxClients := s.cvars.Find("sv_max_clients").Int()
	if len(s.clients) >= maxClients {
		connectionRejected.WithLabelValues("full").Inc()
		return
	}
	connecting := 0
	perIP := 0
	for _, c := range s.clients {
		if c.conn == nil {
			continue
		}
		if c.conn.State() == transport.StateHandshaking {
			connecting++
		}
		if c.endpoint.Addr().String() == ip {
			perIP++
		}
	}
	if connecting >= s.cvars.Find("sv_max_connecting_clients").Int() {
		connectionRejected.WithLabelValues("connecting_cap").Inc()
		return
	}
	if perIP >= s.cvars.Find("sv_max_connections_per_ip").Int() {
		connectionRejected.WithLabelValues("per_ip").Inc()
		return
	}

	conn := transport.NewConn(s.socket, ep, s.connCfg)
	conn.Accept()
	spamLimit := float64(s.cvars.Find("sv_spam_limit").Int())
	c := &Client{
		endpoint:       ep,
		conn:           conn,
		updateInterval: 1.0 / 20.0,
		spam:           xrate.NewLimiter(xrate.Limit(spamLimit), int(spamLimit)),
		uploadLimiter:  xrate.NewLimiter(xrate.Limit(64), 8), // chunks per second
	}
	s.clients[ep] = c
	s.log.Info().Str("peer", ep.String()).Msg("client connecting")
}

// updateConnections advances every connection, dispatches delivered
// messages and reaps drops.
func (s *Server) updateConnections(dt float64) {
	for ep, c := range s.clients {
		if c.conn == nil {
			continue
		}
		c.conn.Update(dt)

		for _, in := range c.conn.Poll() {
			s.handleClientPayload(c, in)
		}

		if c.conn.State() == transport.StateDisconnected {
			s.dropClient(ep, c, c.conn.DisconnectReason())
			continue
		}

		// AFK autokick: the timer advances until any application message
		// arrives; loopback is exempt.
		afkLimit := float64(s.cvars.Find("sv_afk_autokick_time").Int())
		if afkLimit > 0 && c.joined && !c.loopback() {
			c.afkTime += dt
			if c.afkTime >= afkLimit {
				s.kickEndpoint(ep, "inactivity")
			}
		}
	}
}

// dropClient removes the endpoint and its player, logging the connection
// statistics at drop time.
func (s *Server) dropClient(ep transport.Endpoint, c *Client, reason string) {
	if c.playerID != game.PlayerIDUnconnected {
		s.world.DeletePlayer(c.playerID)
		if c.username != "" {
			s.ServerEvent(fmt.Sprintf("%s left the game (%s)", c.username, reason))
		}
	}
	stats := transport.Stats{}
	if c.conn != nil {
		stats = c.conn.Stats()
	}
	s.log.Info().
		Str("peer", ep.String()).
		Str("reason", reason).
		Uint64("packets_sent", stats.PacketsSent).
		Uint64("packets_received", stats.PacketsReceived).
		Uint64("reliable_out_of_order", stats.ReliablePacketsReceivedOutOfOrder).
		Uint64("throttle_count", stats.SendRateThrottleCount).
		Uint64("invalid_message_types", stats.InvalidMessageTypes).
		Uint64("invalid_message_payloads", stats.InvalidMessagePayloads).
		Uint64("invalid_packet_headers", stats.InvalidPacketHeaders).
		Msg("client dropped")
	clientsDropped.WithLabelValues("quit").Inc()
	delete(s.clients, ep)
}

// kickEndpoint disconnects a client with a reason, lingering so the
// DISCONNECT packet gets through.
func (s *Server) kickEndpoint(ep transport.Endpoint, reason string) {
	c := s.clients[ep]
	if c == nil {
		return
	}
	if c.conn != nil {
		c.conn.Disconnect(reason, disconnectLinger)
	}
	if c.playerID != game.PlayerIDUnconnected {
		s.world.DeletePlayer(c.playerID)
		c.playerID = game.PlayerIDUnconnected
	}
	c.joined = false
	clientsDropped.WithLabelValues("kicked").Inc()
	s.log.Info().Str("peer", ep.String()).Str("reason", reason).Msg("client kicked")
}

// sendSnapshots builds and transmits per-client world views whose update
// timers elapsed. Snapshots ride the reliable channel: the delta chain
// depends on every one of them being applied.
func (s *Server) sendSnapshots(dt float64) {
	for _, c := range s.clients {
		if c.conn == nil || !c.joined || c.conn.State() != transport.StateConnected {
			continue
		}
		c.updateTimer -= dt
		if c.updateTimer > 0 {
			continue
		}
		c.updateTimer = c.updateInterval

		if p := s.world.FindPlayer(c.playerID); p != nil && c.conn != nil {
			p.LatestPing = c.conn.RTTMillis()
		}

		snap := s.world.TakeSnapshot(c.playerID)
		var msg protocol.ServerMessage
		kind := "full"
		if old, ok := c.ackedSnapshot(); ok {
			w := newDeltaWriter()
			snap.DeltaEncode(w, old)
			msg = &protocol.SnapshotDelta{SourceTick: old.TickCount, Data: w.Bytes()}
			kind = "delta"
		} else {
			msg = &protocol.SnapshotFull{Snapshot: snap}
		}
		payload := protocol.EncodeServer(msg)
		if len(payload) > transport.MaxReliablePayload && kind == "delta" {
			// A delta larger than a packet degenerates to a full snapshot.
			msg = &protocol.SnapshotFull{Snapshot: snap}
			payload = protocol.EncodeServer(msg)
			kind = "full"
		}
		if err := c.conn.SendReliable(payload); err != nil {
			continue
		}
		snapshotBytes.WithLabelValues(kind).Add(float64(len(payload)))
		c.ring.put(snap.TickCount, snap)
	}
}

// ackedSnapshot returns the ring entry for the client's latest ack, when
// it is still cached; a too-old ack falls back to a full snapshot.
func (c *Client) ackedSnapshot() (*game.Snapshot, bool) {
	if !c.hasAck {
		return nil, false
	}
	return c.ring.get(c.lastAckTick)
}

// updateMeta submits a heartbeat to the optional meta server.
func (s *Server) updateMeta(dt float64) {
	if s.cfg.MetaServer == "" || s.metaConn == nil {
		return
	}
	s.metaConn.Update(dt)
	s.metaTimer -= dt
	if s.metaTimer <= 0 {
		s.metaTimer = float64(s.cvars.Find("sv_meta_submit").Int())
		payload := protocol.EncodeClient(&protocol.HeartbeatRequest{})
		if err := s.metaConn.SendReliable(payload); err != nil {
			s.log.Debug().Err(err).Msg("meta heartbeat failed")
		}
	}
	s.metaConn.Flush(dt)
}

// Stop disconnects everyone, persists archive state and asks the driver
// to exit.
func (s *Server) Stop(message string) {
	if s.stopped {
		return
	}
	for ep := range s.clients {
		s.kickEndpoint(ep, message)
	}
	// Give the DISCONNECT packets a few sends before the process exits.
	for i := 0; i < 3; i++ {
		for _, c := range s.clients {
			if c.conn != nil {
				c.conn.Update(0.2)
			}
		}
	}
	if s.saver != nil {
		banned := make([]string, 0, len(s.bans))
		for ip := range s.bans {
			banned = append(banned, ip)
		}
		archived := s.cvars.WithFlags(console.Archive)
		if err := s.saver(s.cvars.Find("sv_hostname").String(), s.cfg.Port, archived, banned); err != nil {
			s.log.Error().Err(err).Msg("archive save failed")
		}
	}
	if s.status != nil {
		s.status.stop()
	}
	s.stopped = true
	s.log.Info().Str("message", message).Msg("server stopped")
}

func (s *Server) connectedCount() int {
	n := 0
	for _, c := range s.clients {
		if c.isBot || (c.conn != nil && c.conn.State() == transport.StateConnected) {
			n++
		}
	}
	return n
}

// PlayerIDByIP returns the player id of the first joined client at the
// given IP, or 0.
func (s *Server) PlayerIDByIP(ip string) game.PlayerID {
	for _, c := range s.clients {
		if c.joined && c.conn != nil && c.endpoint.Addr().String() == ip {
			return c.playerID
		}
	}
	return game.PlayerIDUnconnected
}

// PlayerIP returns the remote IP of a player, or "" for bots and unknown
// ids.
func (s *Server) PlayerIP(id game.PlayerID) string {
	c := s.clientByPlayer(id)
	if c == nil || c.conn == nil {
		return ""
	}
	return c.endpoint.Addr().String()
}

// joinedPlayerCount counts clients with live players, bots included.
func (s *Server) joinedPlayerCount() int {
	n := 0
	for _, c := range s.clients {
		if c.joined {
			n++
		}
	}
	return n
}

// randomToken returns a short hex session token.
func randomToken() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "0"
	}
	return hex.EncodeToString(b)
}
