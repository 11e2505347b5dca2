// Package transport implements the reliable-over-UDP connection protocol:
// non-blocking sockets, the per-peer handshake/ack/retransmission state
// machine, send-rate throttling and connection statistics.
package transport

import (
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Endpoint identifies a peer as a 48-bit address + port pair.
type Endpoint = netip.AddrPort

// ErrWouldBlock marks a transient send failure. Conn counts it as a send
// error and does not queue the datagram again: a reliable packet goes out
// again when its retransmission timer fires, an unreliable one is lost.
var ErrWouldBlock = errors.New("transport: would block")

// ErrBind marks a bind failure, typically a port already in use.
var ErrBind = errors.New("transport: bind failed")

// PacketSocket is the socket surface the connection layer needs. The UDP
// implementation is non-blocking; tests substitute an in-memory pair with
// scripted loss and reordering.
type PacketSocket interface {
	// SendTo transmits one datagram. May fail with ErrWouldBlock.
	SendTo(b []byte, ep Endpoint) error
	// RecvFrom returns the next datagram, or ok=false when drained.
	RecvFrom(buf []byte) (n int, ep Endpoint, ok bool, err error)
	// LocalEndpoint returns the bound address.
	LocalEndpoint() Endpoint
	Close() error
}

// UDPSocket is the production PacketSocket over a non-blocking UDP port.
type UDPSocket struct {
	conn *net.UDPConn
}

// Bind opens a UDP socket on the given endpoint.
func Bind(ep Endpoint) (*UDPSocket, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(ep))
	if err != nil {
		return nil, errors.Wrapf(ErrBind, "%v", err)
	}
	return &UDPSocket{conn: conn}, nil
}

// SendTo transmits one datagram without blocking.
func (s *UDPSocket) SendTo(b []byte, ep Endpoint) error {
	if err := s.conn.SetWriteDeadline(time.Now()); err != nil {
		return err
	}
	_, err := s.conn.WriteToUDPAddrPort(b, ep)
	if err != nil {
		if isWouldBlock(err) {
			return ErrWouldBlock
		}
		return err
	}
	return nil
}

// RecvFrom fetches the next queued datagram; ok=false means drained.
func (s *UDPSocket) RecvFrom(buf []byte) (int, Endpoint, bool, error) {
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, Endpoint{}, false, err
	}
	n, ep, err := s.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, Endpoint{}, false, nil
		}
		return 0, Endpoint{}, false, err
	}
	return n, ep, true, nil
}

// LocalEndpoint returns the bound address.
func (s *UDPSocket) LocalEndpoint() Endpoint {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Close releases the socket.
func (s *UDPSocket) Close() error { return s.conn.Close() }

func isWouldBlock(err error) bool {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
