package transport

import (
	"fmt"
	"math/rand"
	"net/netip"
	"testing"
)

// memNet is a deterministic in-memory network of two endpoints with
// scripted loss and reordering applied to data packets.
type memNet struct {
	queues map[Endpoint][]packet

	// drop decides whether a sent packet is lost; it sees every packet,
	// control traffic included. nil means no loss.
	drop func(pkt []byte) bool
	// reorderWindow > 1 shuffles delivery inside a sliding window.
	reorderWindow int
	rng           *rand.Rand
}

type packet struct {
	data []byte
	from Endpoint
}

type memSocket struct {
	net   *memNet
	local Endpoint
}

func newMemNet() *memNet {
	return &memNet{queues: make(map[Endpoint][]packet), rng: rand.New(rand.NewSource(42))}
}

func (n *memNet) socket(port uint16) *memSocket {
	return &memSocket{net: n, local: netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port)}
}

func (s *memSocket) SendTo(b []byte, ep Endpoint) error {
	data := make([]byte, len(b))
	copy(data, b)
	if s.net.drop != nil && s.net.drop(data) {
		return nil
	}
	q := append(s.net.queues[ep], packet{data: data, from: s.local})
	if s.net.reorderWindow > 1 && len(q) >= 2 {
		w := s.net.reorderWindow
		if w > len(q) {
			w = len(q)
		}
		i := len(q) - 1
		j := len(q) - 1 - s.net.rng.Intn(w)
		q[i], q[j] = q[j], q[i]
	}
	s.net.queues[ep] = q
	return nil
}

func (s *memSocket) RecvFrom(buf []byte) (int, Endpoint, bool, error) {
	q := s.net.queues[s.local]
	if len(q) == 0 {
		return 0, Endpoint{}, false, nil
	}
	p := q[0]
	s.net.queues[s.local] = q[1:]
	n := copy(buf, p.data)
	return n, p.from, true, nil
}

func (s *memSocket) LocalEndpoint() Endpoint { return s.local }
func (s *memSocket) Close() error            { return nil }

// pump runs one simulated step on both ends of a connection pair.
func pump(dt float64, a, b *Conn, sa, sb *memSocket) {
	buf := make([]byte, MaxPacketSize)
	for {
		n, _, ok, _ := sa.RecvFrom(buf)
		if !ok {
			break
		}
		a.HandlePacket(buf[:n])
	}
	for {
		n, _, ok, _ := sb.RecvFrom(buf)
		if !ok {
			break
		}
		b.HandlePacket(buf[:n])
	}
	a.Update(dt)
	b.Update(dt)
	a.Flush(dt)
	b.Flush(dt)
}

// connectedPair returns a client/server pair that completed the
// handshake.
func connectedPair(t *testing.T, net *memNet) (*Conn, *Conn, *memSocket, *memSocket) {
	t.Helper()
	sc := net.socket(1000)
	ss := net.socket(2000)
	client := NewConn(sc, ss.local, DefaultConfig())
	server := NewConn(ss, sc.local, DefaultConfig())

	client.Connect()
	// Server accepts on the first SYN.
	buf := make([]byte, MaxPacketSize)
	if n, _, ok, _ := ss.RecvFrom(buf); !ok || !IsSYN(buf[:n]) {
		t.Fatal("expected a SYN")
	}
	server.Accept()

	for i := 0; i < 20 && (client.State() != StateConnected || server.State() != StateConnected); i++ {
		pump(0.05, client, server, sc, ss)
	}
	if client.State() != StateConnected || server.State() != StateConnected {
		t.Fatalf("handshake failed: client=%v server=%v", client.State(), server.State())
	}
	return client, server, sc, ss
}

// TestHandshake verifies the three-way handshake completes.
func TestHandshake(t *testing.T) {
	connectedPair(t, newMemNet())
}

// TestHandshakeTimeout verifies an unanswered SYN gives up with the
// dedicated reason.
func TestHandshakeTimeout(t *testing.T) {
	net := newMemNet()
	sc := net.socket(1000)
	client := NewConn(sc, net.socket(2000).local, DefaultConfig())
	client.Connect()

	for i := 0; i < 300 && client.State() != StateDisconnected; i++ {
		client.Update(0.1)
		client.Flush(0.1)
	}
	if client.State() != StateDisconnected {
		t.Fatal("client should have given up")
	}
	if client.DisconnectReason() != "handshake timed out" {
		t.Fatalf("reason = %q", client.DisconnectReason())
	}
}

// TestReliableInOrderDelivery verifies plain delivery order.
func TestReliableInOrderDelivery(t *testing.T) {
	client, server, sc, ss := connectedPair(t, newMemNet())

	for i := 0; i < 10; i++ {
		if err := server.SendReliable([]byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	var got []byte
	for i := 0; i < 50 && len(got) < 10; i++ {
		pump(0.02, client, server, sc, ss)
		for _, in := range client.Poll() {
			if in.Reliable {
				got = append(got, in.Payload[0])
			}
		}
	}
	if len(got) != 10 {
		t.Fatalf("delivered %d of 10", len(got))
	}
	for i, b := range got {
		if int(b) != i {
			t.Fatalf("out of order at %d: got %d", i, b)
		}
	}
}

// TestReliableLossRecovery drops one packet once: delivery order is
// preserved and the out-of-order stat counts exactly one packet.
func TestReliableLossRecovery(t *testing.T) {
	net := newMemNet()
	client, server, sc, ss := connectedPair(t, net)

	// Drop the second reliable data packet, once.
	dropped := false
	net.drop = func(pkt []byte) bool {
		if dropped || len(pkt) < 6 || pkt[0] != packetReliable {
			return false
		}
		seq := uint32(pkt[1])<<24 | uint32(pkt[2])<<16 | uint32(pkt[3])<<8 | uint32(pkt[4])
		if seq == 2 {
			dropped = true
			return true
		}
		return false
	}

	for i := 0; i < 3; i++ {
		if err := server.SendReliable([]byte{byte(100 + i)}); err != nil {
			t.Fatal(err)
		}
	}
	var got []byte
	for i := 0; i < 200 && len(got) < 3; i++ {
		pump(0.02, client, server, sc, ss)
		for _, in := range client.Poll() {
			if in.Reliable {
				got = append(got, in.Payload[0])
			}
		}
	}
	if fmt.Sprint(got) != fmt.Sprint([]byte{100, 101, 102}) {
		t.Fatalf("got %v, want [100 101 102]", got)
	}
	if n := client.Stats().ReliablePacketsReceivedOutOfOrder; n != 1 {
		t.Fatalf("out-of-order stat = %d, want 1", n)
	}
}

// TestReliableFuzzedLossReorder pushes 200 messages through 30% loss and
// a reorder window of 8; everything must arrive, in order.
func TestReliableFuzzedLossReorder(t *testing.T) {
	net := newMemNet()
	client, server, sc, ss := connectedPair(t, net)

	rng := rand.New(rand.NewSource(99))
	net.reorderWindow = 8
	net.drop = func(pkt []byte) bool {
		// Only data packets are dropped; dropping ACKs is covered by
		// retransmission anyway but slows the test greatly.
		return pkt[0] == packetReliable && rng.Float64() < 0.30
	}

	const total = 200
	sent := 0
	var got []byte
	for i := 0; i < 5000 && len(got) < total; i++ {
		for j := 0; j < 4 && sent < total; j++ {
			if err := server.SendReliable([]byte{byte(sent % 251)}); err != nil {
				t.Fatal(err)
			}
			sent++
		}
		pump(0.02, client, server, sc, ss)
		for _, in := range client.Poll() {
			if in.Reliable {
				got = append(got, in.Payload[0])
			}
		}
	}
	if len(got) != total {
		t.Fatalf("delivered %d of %d", len(got), total)
	}
	for i, b := range got {
		if b != byte(i%251) {
			t.Fatalf("sequence error at %d", i)
		}
	}
}

// TestConnectionTimeout verifies silence drops the connection with the
// "timed out" reason.
func TestConnectionTimeout(t *testing.T) {
	client, server, sc, ss := connectedPair(t, newMemNet())
	_ = server

	// Stop pumping the server side entirely; only the client ticks.
	_ = ss
	for i := 0; i < 300 && client.State() != StateDisconnected; i++ {
		buf := make([]byte, MaxPacketSize)
		for {
			if _, _, ok, _ := sc.RecvFrom(buf); !ok {
				break
			}
			// Discard: simulates a dead peer whose packets stopped.
		}
		client.Update(0.1)
		client.Flush(0.1)
	}
	if client.State() != StateDisconnected || client.DisconnectReason() != "timed out" {
		t.Fatalf("state=%v reason=%q", client.State(), client.DisconnectReason())
	}
}

// TestDisconnectReasonDelivery verifies the DISCONNECT reason reaches the
// peer.
func TestDisconnectReasonDelivery(t *testing.T) {
	client, server, sc, ss := connectedPair(t, newMemNet())

	server.Disconnect("kicked by admin", 0.5)
	for i := 0; i < 50 && client.State() != StateDisconnected; i++ {
		pump(0.05, client, server, sc, ss)
	}
	if client.State() != StateDisconnected {
		t.Fatal("client never saw the disconnect")
	}
	if client.DisconnectReason() != "kicked by admin" {
		t.Fatalf("reason = %q", client.DisconnectReason())
	}
}

// TestUnreliableDelivery verifies the lossy channel carries payloads when
// the network is clean.
func TestUnreliableDelivery(t *testing.T) {
	client, server, sc, ss := connectedPair(t, newMemNet())

	if err := server.SendUnreliable([]byte{0xab}); err != nil {
		t.Fatal(err)
	}
	var got [][]byte
	for i := 0; i < 10 && len(got) == 0; i++ {
		pump(0.02, client, server, sc, ss)
		for _, in := range client.Poll() {
			if !in.Reliable {
				got = append(got, in.Payload)
			}
		}
	}
	if len(got) != 1 || got[0][0] != 0xab {
		t.Fatalf("got %v", got)
	}
}

// TestInvalidPacketsCounted verifies malformed datagrams increment the
// stats without tearing the connection down.
func TestInvalidPacketsCounted(t *testing.T) {
	client, _, _, _ := connectedPair(t, newMemNet())

	client.HandlePacket([]byte{0xff, 0x01})          // unknown type
	client.HandlePacket([]byte{packetReliable, 0x01}) // short reliable header

	stats := client.Stats()
	if stats.InvalidPacketHeaders != 2 {
		t.Fatalf("invalid packet headers = %d, want 2", stats.InvalidPacketHeaders)
	}
	if client.State() != StateConnected {
		t.Fatal("malformed packets must not kill the connection")
	}
}

// TestPayloadTooLarge verifies oversized payloads are rejected up front.
func TestPayloadTooLarge(t *testing.T) {
	client, _, _, _ := connectedPair(t, newMemNet())
	if err := client.SendReliable(make([]byte, MaxPacketSize)); err != ErrPayloadTooLarge {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

// TestThrottleDisconnect verifies a permanently throttled connection is
// reclaimed with the dedicated reason.
func TestThrottleDisconnect(t *testing.T) {
	net := newMemNet()
	cfg := DefaultConfig()
	cfg.ThrottleLimit = 64
	cfg.ThrottleMaxPeriod = 1

	sc := net.socket(1000)
	ss := net.socket(2000)
	client := NewConn(sc, ss.local, cfg)
	server := NewConn(ss, sc.local, cfg)
	client.Connect()
	server.Accept()
	for i := 0; i < 20 && client.State() != StateConnected; i++ {
		pump(0.05, client, server, sc, ss)
	}

	// Flood past the throttle limit and never let an ack back.
	for i := 0; i < 50; i++ {
		_ = client.SendReliable(make([]byte, 100))
	}
	for i := 0; i < 100 && client.State() == StateConnected; i++ {
		client.Update(0.05)
		client.Flush(0.05)
	}
	if client.State() == StateConnected {
		t.Fatal("client should have dropped itself")
	}
	if client.DisconnectReason() != "send rate too low" {
		t.Fatalf("reason = %q", client.DisconnectReason())
	}
	if client.Stats().SendRateThrottleCount == 0 {
		t.Fatal("throttle count should be nonzero")
	}
}
