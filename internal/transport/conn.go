package transport

import (
	"strings"

	"github.com/pkg/errors"

	"gridfort/internal/wire"
)

// Packet types. The type byte is the first byte of every datagram; the
// values are part of the wire contract.
const (
	packetSYN uint8 = iota
	packetSYNACK
	packetACKHandshake
	packetReliable
	packetUnreliable
	packetACK
	packetKeepAlive
	packetDisconnect
	packetTypeCount
)

// MaxPacketSize is the largest datagram the protocol emits.
const MaxPacketSize = 1200

// reliableHeaderSize is type byte + u32 sequence + u16 payload length.
const reliableHeaderSize = 1 + 4 + 2

// MaxReliablePayload is the largest payload one reliable packet carries.
const MaxReliablePayload = MaxPacketSize - reliableHeaderSize

// reorderWindow is how many out-of-order reliable packets are buffered.
const reorderWindow = 32

// ErrPayloadTooLarge is returned for payloads exceeding the datagram size.
var ErrPayloadTooLarge = errors.New("transport: payload exceeds max packet size")

// ErrNotConnected is returned when sending on a connection that is not in
// the connected state.
var ErrNotConnected = errors.New("transport: not connected")

// State is the connection lifecycle state. Retransmission sub-state is
// tracked separately; the enum never hides in booleans.
type State uint8

const (
	StateHandshaking State = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "disconnected"
}

// Stats are the observable per-connection counters. All counters are
// monotonically non-decreasing.
type Stats struct {
	PacketsSent                       uint64
	PacketsReceived                   uint64
	ReliablePacketsWritten            uint64
	ReliablePacketsReceived           uint64
	ReliablePacketsReceivedOutOfOrder uint64
	SendRateThrottleCount             uint64
	PacketSendErrors                  uint64
	InvalidMessageTypes               uint64
	InvalidMessagePayloads            uint64
	InvalidPacketHeaders              uint64
}

// Config holds the connection tuning knobs.
type Config struct {
	Timeout           float64 // seconds without any packet before drop
	HandshakeRetry    float64 // SYN/SYN-ACK retransmit interval
	KeepAliveInterval float64
	ThrottleLimit     int     // max buffered send bytes before deferring
	ThrottleMaxPeriod float64 // continuous throttle before drop
}

// DefaultConfig returns the stock connection tuning.
func DefaultConfig() Config {
	return Config{
		Timeout:           10,
		HandshakeRetry:    0.5,
		KeepAliveInterval: 1,
		ThrottleLimit:     6144,
		ThrottleMaxPeriod: 10,
	}
}

// Incoming is one application payload delivered by the connection.
type Incoming struct {
	Reliable bool
	Payload  []byte
}

type pendingReliable struct {
	seq        uint32
	packet     []byte // framed datagram, reused for retransmission
	lastSentAt float64
	sent       bool
}

// Conn is the reliable protocol state machine for one peer. It is driven
// by HandlePacket for inbound datagrams and Update/Flush once per tick;
// nothing blocks.
type Conn struct {
	socket PacketSocket
	peer   Endpoint
	cfg    Config

	state            State
	serverRole       bool
	disconnectReason string

	now            float64
	lastReceivedAt float64
	lastSentAt     float64

	handshakeRetryAt float64

	// Outgoing reliable channel.
	nextSendSeq uint32
	pending     []pendingReliable

	// Incoming reliable channel.
	nextRecvSeq   uint32
	recvBuffer    map[uint32][]byte
	latestRecvSeq uint32
	recvSeqMask   uint32
	recvAny       bool

	// Unreliable + control send queue, framed datagrams.
	outQueue      [][]byte
	queuedBytes   int
	throttledFor  float64

	// Disconnecting state.
	disconnectAt     float64
	disconnectResend float64

	smoothedRTT  float64
	lastPingSent float64

	inbox []Incoming
	stats Stats
}

// NewConn creates a connection for a peer over the shared socket. Call
// Connect (client role) or Accept (server role) before the first Update.
func NewConn(socket PacketSocket, peer Endpoint, cfg Config) *Conn {
	return &Conn{
		socket:      socket,
		peer:        peer,
		cfg:         cfg,
		state:       StateHandshaking,
		nextSendSeq: 1,
		nextRecvSeq: 1,
		recvBuffer:  make(map[uint32][]byte),
	}
}

// State returns the lifecycle state.
func (c *Conn) State() State { return c.state }

// Peer returns the remote endpoint.
func (c *Conn) Peer() Endpoint { return c.peer }

// DisconnectReason returns the reason recorded when the connection ended.
func (c *Conn) DisconnectReason() string { return c.disconnectReason }

// Stats returns a copy of the counters.
func (c *Conn) Stats() Stats { return c.stats }

// RTTMillis returns the smoothed round-trip time in milliseconds.
func (c *Conn) RTTMillis() uint32 { return uint32(c.smoothedRTT * 1000) }

// Connect starts the client side of the handshake.
func (c *Conn) Connect() {
	c.serverRole = false
	c.state = StateHandshaking
	c.sendControl([]byte{packetSYN})
	c.handshakeRetryAt = c.now + c.cfg.HandshakeRetry
}

// Accept starts the server side of the handshake in response to a SYN
// from an unknown peer.
func (c *Conn) Accept() {
	c.serverRole = true
	c.state = StateHandshaking
	c.lastReceivedAt = c.now
	c.sendControl([]byte{packetSYNACK})
	c.handshakeRetryAt = c.now + c.cfg.HandshakeRetry
}

// IsSYN reports whether a raw datagram is a handshake SYN.
func IsSYN(data []byte) bool {
	return len(data) == 1 && data[0] == packetSYN
}

// SendReliable queues a payload on the sequenced reliable channel.
func (c *Conn) SendReliable(payload []byte) error {
	if c.state == StateDisconnected || c.state == StateDisconnecting {
		return ErrNotConnected
	}
	if len(payload) > MaxReliablePayload {
		return ErrPayloadTooLarge
	}
	seq := c.nextSendSeq
	c.nextSendSeq++

	w := wire.NewWriter(reliableHeaderSize + len(payload))
	w.WriteU8(packetReliable)
	w.WriteU32(seq)
	w.WriteU16(uint16(len(payload)))
	w.WriteBytes(payload)

	c.pending = append(c.pending, pendingReliable{seq: seq, packet: w.Bytes()})
	c.queuedBytes += len(payload) + reliableHeaderSize
	c.stats.ReliablePacketsWritten++
	return nil
}

// SendUnreliable queues a payload on the unordered lossy channel.
func (c *Conn) SendUnreliable(payload []byte) error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if len(payload) > MaxPacketSize-1 {
		return ErrPayloadTooLarge
	}
	w := wire.NewWriter(1 + len(payload))
	w.WriteU8(packetUnreliable)
	w.WriteBytes(payload)
	c.enqueue(w.Bytes())
	return nil
}

// Disconnect starts a graceful teardown: the DISCONNECT packet with the
// reason is repeated for delay seconds so it survives packet loss.
func (c *Conn) Disconnect(reason string, delay float64) {
	if c.state == StateDisconnected {
		return
	}
	if c.state == StateDisconnecting {
		return
	}
	c.state = StateDisconnecting
	c.disconnectReason = reason
	c.disconnectAt = c.now + delay
	c.disconnectResend = 0
}

// Poll drains the delivered application payloads in order.
func (c *Conn) Poll() []Incoming {
	out := c.inbox
	c.inbox = nil
	return out
}

// InvalidMessageType bumps the invalid-message-type counter; called by the
// owner when a delivered payload carries an unknown tag.
func (c *Conn) InvalidMessageType() { c.stats.InvalidMessageTypes++ }

// InvalidMessagePayload bumps the malformed-payload counter.
func (c *Conn) InvalidMessagePayload() { c.stats.InvalidMessagePayloads++ }

// HandlePacket processes one inbound datagram from the peer. Malformed
// packets are dropped and counted; they never tear the connection down.
func (c *Conn) HandlePacket(data []byte) {
	if c.state == StateDisconnected {
		return
	}
	if len(data) == 0 || data[0] >= packetTypeCount {
		c.stats.InvalidPacketHeaders++
		return
	}
	c.stats.PacketsReceived++
	c.lastReceivedAt = c.now

	switch data[0] {
	case packetSYN:
		// Duplicate SYN during the handshake: repeat the SYN-ACK.
		if c.serverRole && c.state == StateHandshaking {
			c.sendControl([]byte{packetSYNACK})
		}
	case packetSYNACK:
		if !c.serverRole && c.state == StateHandshaking {
			c.sendControl([]byte{packetACKHandshake})
			c.state = StateConnected
		} else if !c.serverRole && c.state == StateConnected {
			// The peer missed our handshake ACK; repeat it.
			c.sendControl([]byte{packetACKHandshake})
		}
	case packetACKHandshake:
		if c.serverRole && c.state == StateHandshaking {
			c.state = StateConnected
		}
	case packetReliable:
		c.handleReliable(data[1:])
	case packetUnreliable:
		if c.state == StateConnected {
			payload := make([]byte, len(data)-1)
			copy(payload, data[1:])
			c.inbox = append(c.inbox, Incoming{Reliable: false, Payload: payload})
		}
	case packetACK:
		c.handleAck(data[1:])
	case packetKeepAlive:
		c.handleKeepAlive(data[1:])
	case packetDisconnect:
		r := wire.NewReader(data[1:])
		reason := sanitizeReason(r.String())
		if reason == "" {
			reason = "disconnected by peer"
		}
		c.disconnectReason = reason
		c.state = StateDisconnected
	}
}

func (c *Conn) handleReliable(body []byte) {
	r := wire.NewReader(body)
	seq := r.U32()
	length := int(r.U16())
	if !r.Valid() || r.Remaining() != length {
		c.stats.InvalidPacketHeaders++
		return
	}
	payload := r.Bytes(length)
	c.stats.ReliablePacketsReceived++

	diff := wire.SeqDiff(c.nextRecvSeq, seq)
	switch {
	case diff < 0:
		// Duplicate of something already delivered; re-ack so the peer
		// stops retransmitting.
	case diff == 0:
		c.deliverReliable(payload)
		// Drain any buffered successors.
		for {
			next, ok := c.recvBuffer[c.nextRecvSeq]
			if !ok {
				break
			}
			delete(c.recvBuffer, c.nextRecvSeq)
			c.deliverReliable(next)
		}
	default:
		if diff > reorderWindow {
			// Too far ahead to buffer. Dropped WITHOUT an ack: an acked
			// packet is never retransmitted, so acking here would lose
			// the payload for good.
			return
		}
		c.stats.ReliablePacketsReceivedOutOfOrder++
		if _, dup := c.recvBuffer[seq]; !dup {
			c.recvBuffer[seq] = payload
		}
	}

	c.trackRecvSeq(seq)
	c.sendAck()
}

func (c *Conn) deliverReliable(payload []byte) {
	c.inbox = append(c.inbox, Incoming{Reliable: true, Payload: payload})
	c.nextRecvSeq++
}

// trackRecvSeq maintains the latest-seq + 32-bit history mask the ACK
// packet reports.
func (c *Conn) trackRecvSeq(seq uint32) {
	if !c.recvAny {
		c.recvAny = true
		c.latestRecvSeq = seq
		c.recvSeqMask = 0
		return
	}
	diff := wire.SeqDiff(c.latestRecvSeq, seq)
	switch {
	case diff > 0:
		if diff >= 32 {
			c.recvSeqMask = 0
		} else {
			c.recvSeqMask = (c.recvSeqMask << uint(diff)) | (1 << uint(diff-1))
		}
		c.latestRecvSeq = seq
	case diff < 0:
		back := -diff
		if back <= 32 {
			c.recvSeqMask |= 1 << uint(back-1)
		}
	}
}

func (c *Conn) sendAck() {
	w := wire.NewWriter(9)
	w.WriteU8(packetACK)
	w.WriteU32(c.latestRecvSeq)
	w.WriteU32(c.recvSeqMask)
	c.sendControl(w.Bytes())
}

func (c *Conn) handleAck(body []byte) {
	r := wire.NewReader(body)
	latest := r.U32()
	mask := r.U32()
	if !r.Valid() || r.Remaining() != 0 {
		c.stats.InvalidPacketHeaders++
		return
	}
	acked := func(seq uint32) bool {
		if seq == latest {
			return true
		}
		back := wire.SeqDiff(seq, latest)
		return back > 0 && back <= 32 && mask&(1<<uint(back-1)) != 0
	}
	kept := c.pending[:0]
	for _, p := range c.pending {
		if acked(p.seq) {
			if !p.sent {
				c.queuedBytes -= len(p.packet)
			}
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept
}

func (c *Conn) handleKeepAlive(body []byte) {
	r := wire.NewReader(body)
	echo := r.Bool()
	stamp := r.F64()
	if !r.Valid() || r.Remaining() != 0 {
		c.stats.InvalidPacketHeaders++
		return
	}
	if !echo {
		w := wire.NewWriter(10)
		w.WriteU8(packetKeepAlive)
		w.WriteBool(true)
		w.WriteF64(stamp)
		c.sendControl(w.Bytes())
		return
	}
	rtt := c.now - stamp
	if rtt < 0 {
		return
	}
	if c.smoothedRTT == 0 {
		c.smoothedRTT = rtt
	} else {
		c.smoothedRTT = c.smoothedRTT*0.875 + rtt*0.125
	}
}

// retransmitInterval derives the reliable retransmission delay from the
// smoothed RTT, clamped to a sane window.
func (c *Conn) retransmitInterval() float64 {
	iv := c.smoothedRTT * 2
	if iv < 0.1 {
		iv = 0.1
	}
	if iv > 1.0 {
		iv = 1.0
	}
	return iv
}

// Update advances timers: handshake retries, keep-alives, retransmission,
// timeout and the disconnect linger. It must be called once per tick.
func (c *Conn) Update(dt float64) {
	if c.state == StateDisconnected {
		return
	}
	c.now += dt

	switch c.state {
	case StateHandshaking:
		if c.now-c.lastReceivedAt > c.cfg.Timeout {
			c.disconnectReason = "handshake timed out"
			c.state = StateDisconnected
			return
		}
		if c.now >= c.handshakeRetryAt {
			if c.serverRole {
				c.sendControl([]byte{packetSYNACK})
			} else {
				c.sendControl([]byte{packetSYN})
			}
			c.handshakeRetryAt = c.now + c.cfg.HandshakeRetry
		}
	case StateConnected:
		if c.now-c.lastReceivedAt > c.cfg.Timeout {
			c.disconnectReason = "timed out"
			c.state = StateDisconnected
			return
		}
		if c.now-c.lastPingSent >= c.cfg.KeepAliveInterval {
			c.lastPingSent = c.now
			w := wire.NewWriter(10)
			w.WriteU8(packetKeepAlive)
			w.WriteBool(false)
			w.WriteF64(c.now)
			c.sendControl(w.Bytes())
		}
		iv := c.retransmitInterval()
		for i := range c.pending {
			p := &c.pending[i]
			if p.sent && c.now-p.lastSentAt >= iv {
				p.sent = false
				c.queuedBytes += len(p.packet)
			}
		}
	case StateDisconnecting:
		if c.now >= c.disconnectAt {
			c.state = StateDisconnected
			return
		}
		if c.now >= c.disconnectResend {
			w := wire.NewWriter(3 + len(c.disconnectReason))
			w.WriteU8(packetDisconnect)
			w.WriteString(c.disconnectReason)
			c.transmit(w.Bytes())
			c.disconnectResend = c.now + 0.1
		}
	}
}

// Flush transmits buffered datagrams, deferring everything once the
// throttle limit is exceeded. A continuous throttle longer than the
// configured period terminates the connection.
func (c *Conn) Flush(dt float64) {
	if c.state == StateDisconnected || c.state == StateDisconnecting {
		return
	}

	if c.queuedBytes > c.cfg.ThrottleLimit {
		c.stats.SendRateThrottleCount++
		c.throttledFor += dt
		if c.throttledFor >= c.cfg.ThrottleMaxPeriod {
			c.Disconnect("send rate too low", 0.5)
		}
		return
	}
	c.throttledFor = 0

	for _, pkt := range c.outQueue {
		c.transmit(pkt)
		c.queuedBytes -= len(pkt)
	}
	c.outQueue = c.outQueue[:0]

	for i := range c.pending {
		p := &c.pending[i]
		if p.sent {
			continue
		}
		c.transmit(p.packet)
		p.sent = true
		p.lastSentAt = c.now
		c.queuedBytes -= len(p.packet)
	}
	if c.queuedBytes < 0 {
		c.queuedBytes = 0
	}
}

// enqueue adds an already-framed datagram to the unreliable send queue.
func (c *Conn) enqueue(pkt []byte) {
	c.outQueue = append(c.outQueue, pkt)
	c.queuedBytes += len(pkt)
}

// sendControl transmits a protocol control packet immediately; control
// traffic is never throttled.
func (c *Conn) sendControl(pkt []byte) {
	c.transmit(pkt)
}

func (c *Conn) transmit(pkt []byte) {
	if err := c.socket.SendTo(pkt, c.peer); err != nil {
		c.stats.PacketSendErrors++
		return
	}
	c.stats.PacketsSent++
	c.lastSentAt = c.now
}

// sanitizeReason strips non-printable bytes from a peer-supplied reason
// string and caps its length.
func sanitizeReason(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
		if b.Len() >= 120 {
			break
		}
	}
	return b.String()
}
