package server

import (
	"strings"

	"golang.org/x/time/rate"

	"gridfort/internal/game"
	"gridfort/internal/transport"
)

// Client is the per-endpoint record: connection state, identity, snapshot
// ring, spam/AFK bookkeeping and the resource-upload cursor. Bots are
// clients without a connection.
type Client struct {
	endpoint transport.Endpoint
	conn     *transport.Conn // nil for bots

	username    string
	playerID    game.PlayerID
	inventoryID uint64
	joined      bool
	isBot       bool

	rconToken string // non-empty once an rcon session is authenticated

	updateInterval float64
	updateTimer    float64
	ring           snapshotRing
	lastAckTick    uint32
	hasAck         bool

	afkTime float64
	spam    *rate.Limiter

	upload        *resourceUpload
	uploadLimiter *rate.Limiter
}

// resourceUpload is the cursor of one in-flight chunked download.
type resourceUpload struct {
	nameHash uint32
	offset   int
}

func (c *Client) loopback() bool {
	return c.conn != nil && c.endpoint.Addr().IsLoopback()
}

// sanitizeUsername reduces a requested name to printable ASCII minus a
// small blocklist and caps the length.
func sanitizeUsername(name string) string {
	const blocklist = "\"'`;\\"
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r >= 0x7f || strings.ContainsRune(blocklist, r) {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= 24 {
			break
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		out = "unnamed"
	}
	return out
}
