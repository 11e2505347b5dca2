package server

import (
	"net/netip"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"gridfort/internal/config"
	"gridfort/internal/game"
	"gridfort/internal/protocol"
	"gridfort/internal/transport"
)

// memNet is a two-endpoint in-memory network for driving the server
// without UDP.
type memNet struct {
	queues map[transport.Endpoint][]packetRec
}

type packetRec struct {
	data []byte
	from transport.Endpoint
}

type memSocket struct {
	net   *memNet
	local transport.Endpoint
}

func newMemNet() *memNet {
	return &memNet{queues: make(map[transport.Endpoint][]packetRec)}
}

func (n *memNet) socket(port uint16) *memSocket {
	return &memSocket{net: n, local: netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port)}
}

func (s *memSocket) SendTo(b []byte, ep transport.Endpoint) error {
	data := make([]byte, len(b))
	copy(data, b)
	s.net.queues[ep] = append(s.net.queues[ep], packetRec{data: data, from: s.local})
	return nil
}

func (s *memSocket) RecvFrom(buf []byte) (int, transport.Endpoint, bool, error) {
	q := s.net.queues[s.local]
	if len(q) == 0 {
		return 0, transport.Endpoint{}, false, nil
	}
	p := q[0]
	s.net.queues[s.local] = q[1:]
	n := copy(buf, p.data)
	return n, p.from, true, nil
}

func (s *memSocket) LocalEndpoint() transport.Endpoint { return s.local }
func (s *memSocket) Close() error                      { return nil }

const arenaMap = `##########
#R  F    #
#        #
#    f  B#
##########`

type testHarness struct {
	srv        *Server
	client     *transport.Conn
	clientSock *memSocket
	received   []protocol.ServerMessage
}

func newHarness(t *testing.T, password string) *testHarness {
	t.Helper()
	net := newMemNet()
	serverSock := net.socket(25605)
	clientSock := net.socket(40000)

	cfg := config.DefaultServer()
	cfg.TickRate = 64
	cfg.StatusPort = 0
	cfg.Password = password
	cfg.GameVersion = "1.0"

	m := game.LoadMap("ctf_well", []byte(arenaMap))
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	srv, err := New(log, cfg, serverSock, m)
	if err != nil {
		t.Fatal(err)
	}

	client := transport.NewConn(clientSock, serverSock.local, transport.DefaultConfig())
	client.Connect()

	h := &testHarness{srv: srv, client: client, clientSock: clientSock}
	for i := 0; i < 20 && client.State() != transport.StateConnected; i++ {
		h.pump(0.02)
	}
	if client.State() != transport.StateConnected {
		t.Fatalf("handshake did not complete: %v", client.State())
	}
	return h
}

// pump advances both ends by dt and collects decoded server messages.
func (h *testHarness) pump(dt float64) {
	h.srv.Update(dt)

	buf := make([]byte, transport.MaxPacketSize)
	for {
		n, _, ok, _ := h.clientSock.RecvFrom(buf)
		if !ok {
			break
		}
		h.client.HandlePacket(buf[:n])
	}
	h.client.Update(dt)
	for _, in := range h.client.Poll() {
		if msg, err := protocol.DecodeServer(in.Payload); err == nil {
			h.received = append(h.received, msg)
		}
	}
	h.client.Flush(dt)
}

func (h *testHarness) send(t *testing.T, m protocol.ClientMessage) {
	t.Helper()
	if err := h.client.SendReliable(protocol.EncodeClient(m)); err != nil {
		t.Fatal(err)
	}
}

// pumpUntil runs frames until pred or the frame budget runs out.
func (h *testHarness) pumpUntil(t *testing.T, frames int, pred func() bool) {
	t.Helper()
	for i := 0; i < frames && !pred(); i++ {
		h.pump(0.01)
	}
	if !pred() {
		t.Fatal("condition never became true")
	}
}

func (h *testHarness) find(match func(protocol.ServerMessage) bool) protocol.ServerMessage {
	for _, m := range h.received {
		if match(m) {
			return m
		}
	}
	return nil
}

// TestJoinFlowHappyPath covers the full join sequence on an open server:
// ServerInfo, Joined, CvarMod, PleaseSelectTeam, in order.
func TestJoinFlowHappyPath(t *testing.T) {
	h := newHarness(t, "")

	h.send(t, &protocol.ServerInfoRequest{})
	h.pumpUntil(t, 100, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }) != nil
	})

	info := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }).(*protocol.ServerInfo)
	if info.TickRate != 64 {
		t.Fatalf("tickrate = %d, want 64", info.TickRate)
	}
	if info.MapName != "ctf_well" {
		t.Fatalf("map = %q, want ctf_well", info.MapName)
	}
	if info.PasswordHashType != hashTypeNone {
		t.Fatal("open server must advertise no password hash")
	}

	h.send(t, &protocol.JoinRequest{
		MapHash:     info.MapHash,
		GameVersion: "1.0",
		Username:    "Alice",
		UpdateRate:  20,
	})
	h.pumpUntil(t, 100, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.PleaseSelectTeam); return ok }) != nil
	})

	joined := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.Joined); return ok }).(*protocol.Joined)
	if joined.PlayerID != 1 {
		t.Fatalf("player id = %d, want 1", joined.PlayerID)
	}

	// Ordering: Joined before CvarMod before PleaseSelectTeam.
	order := map[string]int{}
	for i, m := range h.received {
		switch m.(type) {
		case *protocol.Joined:
			order["joined"] = i
		case *protocol.CvarMod:
			if _, seen := order["cvars"]; !seen {
				order["cvars"] = i
			}
		case *protocol.PleaseSelectTeam:
			order["select"] = i
		}
	}
	if !(order["joined"] < order["cvars"] && order["cvars"] < order["select"]) {
		t.Fatalf("join sequence out of order: %v", order)
	}

	if p := h.srv.World().FindPlayer(1); p == nil || p.Name != "Alice" {
		t.Fatal("player entity missing after join")
	}
}

// TestJoinRejectsBadVersion verifies a version mismatch disconnects with
// a version-specific reason.
func TestJoinRejectsBadVersion(t *testing.T) {
	h := newHarness(t, "")

	h.send(t, &protocol.JoinRequest{MapHash: h.srv.gameMap.Hash, GameVersion: "0.9", Username: "Eve"})
	h.pumpUntil(t, 200, func() bool {
		return h.client.State() == transport.StateDisconnected
	})
	reason := h.client.DisconnectReason()
	if reason == "" || reason == "timed out" {
		t.Fatalf("reason = %q, want a version mismatch message", reason)
	}
}

// TestJoinRequiresPassword verifies the derived-key check.
func TestJoinRequiresPassword(t *testing.T) {
	h := newHarness(t, "hunter2")

	h.send(t, &protocol.ServerInfoRequest{})
	h.pumpUntil(t, 100, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }) != nil
	})
	info := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }).(*protocol.ServerInfo)
	if info.PasswordHashType != hashTypePBKDF2SHA256 {
		t.Fatal("password server must advertise the hash type")
	}

	key := DerivePasswordKey("hunter2", info.PasswordSalt, info.PasswordHashType)
	h.send(t, &protocol.JoinRequest{
		MapHash:     info.MapHash,
		GameVersion: "1.0",
		Username:    "Alice",
		UpdateRate:  20,
		PasswordKey: key,
	})
	h.pumpUntil(t, 100, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.Joined); return ok }) != nil
	})
}

// TestSnapshotDeltaFlow verifies the first snapshot is full, an ack
// switches the server to deltas, and a too-old ack falls back to full.
func TestSnapshotDeltaFlow(t *testing.T) {
	h := newHarness(t, "")

	h.send(t, &protocol.ServerInfoRequest{})
	h.pump(0.02)
	h.send(t, &protocol.JoinRequest{MapHash: h.srv.gameMap.Hash, GameVersion: "1.0", Username: "Alice", UpdateRate: 20})
	h.pump(0.02)
	h.send(t, &protocol.TeamSelect{Team: game.TeamRed, Class: game.ClassScout})

	h.pumpUntil(t, 200, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.SnapshotFull); return ok }) != nil
	})
	full := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.SnapshotFull); return ok }).(*protocol.SnapshotFull)

	// Ack the received tick: subsequent snapshots arrive as deltas.
	h.received = nil
	h.send(t, &protocol.UserCmd{LatestSnapshotReceived: full.Snapshot.TickCount})
	h.pumpUntil(t, 200, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.SnapshotDelta); return ok }) != nil
	})
	delta := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.SnapshotDelta); return ok }).(*protocol.SnapshotDelta)
	if delta.SourceTick != full.Snapshot.TickCount {
		t.Fatalf("delta source = %d, want %d", delta.SourceTick, full.Snapshot.TickCount)
	}

	// Let the server run far past the ring size while acking the same old
	// tick: the cache slot is overwritten, so the next send must be full.
	h.received = nil
	h.send(t, &protocol.UserCmd{LatestSnapshotReceived: full.Snapshot.TickCount})
	for i := 0; i < 300; i++ {
		h.pump(0.02) // > 64 ticks beyond the acked snapshot
	}
	// Re-ack the stale tick after the ring has wrapped.
	h.send(t, &protocol.UserCmd{LatestSnapshotReceived: full.Snapshot.TickCount})
	h.received = nil
	h.pumpUntil(t, 200, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.SnapshotFull); return ok }) != nil
	})
}

// TestSnapshotRingFallback pins scenario: ack of tick T, server at T+64
// with a 32-slot ring, must miss.
func TestSnapshotRingFallback(t *testing.T) {
	var ring snapshotRing
	const T = 1000
	for tick := uint32(T); tick < T+64; tick++ {
		ring.put(tick, game.Snapshot{TickCount: tick})
	}
	if _, ok := ring.get(T); ok {
		t.Fatal("tick T should have been evicted after 63 newer snapshots")
	}
	if snap, ok := ring.get(T + 63); !ok || snap.TickCount != T+63 {
		t.Fatal("latest tick should still be cached")
	}
}

// TestBotJoinsAndActs verifies bot add/kick through the control surface.
func TestBotJoinsAndActs(t *testing.T) {
	h := newHarness(t, "")

	if !h.srv.AddBot("Bravo", game.TeamBlue, game.ClassSoldier) {
		t.Fatal("bot add failed")
	}
	if h.srv.World().FindPlayerIDByName("Bravo") == game.PlayerIDUnconnected {
		t.Fatal("bot player missing")
	}
	for i := 0; i < 10; i++ {
		h.pump(0.02)
	}
	if !h.srv.KickBot("Bravo") {
		t.Fatal("bot kick failed")
	}
	if h.srv.World().FindPlayerIDByName("Bravo") != game.PlayerIDUnconnected {
		t.Fatal("bot player should be gone")
	}
}

// TestResourceDownload verifies the chunked upload reassembles to the
// original file bytes.
func TestResourceDownload(t *testing.T) {
	h := newHarness(t, "")

	h.send(t, &protocol.ServerInfoRequest{})
	h.pumpUntil(t, 100, func() bool {
		return h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }) != nil
	})
	info := h.find(func(m protocol.ServerMessage) bool { _, ok := m.(*protocol.ServerInfo); return ok }).(*protocol.ServerInfo)
	if len(info.Resources) == 0 {
		t.Fatal("manifest is empty")
	}
	res := info.Resources[0]

	h.send(t, &protocol.ResourceDownloadRequest{NameHash: res.NameHash})
	var got []byte
	done := false
	h.pumpUntil(t, 500, func() bool {
		for _, m := range h.received {
			if part, ok := m.(*protocol.ResourceDownloadPart); ok && int(part.Offset) == len(got) {
				got = append(got, part.Data...)
				if part.Final {
					done = true
				}
			}
		}
		h.received = nil
		return done
	})
	if string(got) != arenaMap {
		t.Fatalf("downloaded %d bytes, want %d", len(got), len(arenaMap))
	}
}

// TestBanRejectsHandshake verifies banned IPs cannot reconnect.
func TestBanRejectsHandshake(t *testing.T) {
	h := newHarness(t, "")
	h.srv.bans["127.0.0.1"] = ""

	// A fresh endpoint from the banned IP must be ignored entirely.
	net2 := h.clientSock.net
	other := &memSocket{net: net2, local: netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 40001)}
	conn := transport.NewConn(other, h.srv.socket.LocalEndpoint(), transport.DefaultConfig())
	conn.Connect()
	before := len(h.srv.clients)
	for i := 0; i < 20; i++ {
		h.pump(0.02)
	}
	if len(h.srv.clients) != before {
		t.Fatal("banned IP was accepted")
	}
}
