package server

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"gridfort/internal/console"
	"gridfort/internal/game"
	"gridfort/internal/protocol"
	"gridfort/internal/transport"
	"gridfort/internal/wire"
)

// Password hash types advertised in ServerInfo.
const (
	hashTypeNone         uint8 = 0
	hashTypePBKDF2SHA256 uint8 = 1
)

const pbkdf2Iterations = 4096

// DerivePasswordKey computes the join key from a plaintext password and
// the server-provided salt. Clients run the same derivation, so the
// password itself never crosses the wire.
func DerivePasswordKey(password string, salt []byte, hashType uint8) []byte {
	if hashType == hashTypeNone || password == "" {
		return nil
	}
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
}

func newDeltaWriter() *wire.Writer { return wire.NewWriter(512) }

// handleClientPayload decodes and dispatches one delivered payload.
// Malformed payloads bump the connection counters and are dropped;
// protocol violations disconnect the offender with a descriptive reason.
func (s *Server) handleClientPayload(c *Client, in transport.Incoming) {
	msg, err := protocol.DecodeClient(in.Payload)
	if err != nil {
		switch err {
		case protocol.ErrUnknownTag:
			c.conn.InvalidMessageType()
		default:
			c.conn.InvalidMessagePayload()
		}
		return
	}
	c.afkTime = 0

	switch m := msg.(type) {
	case *protocol.ServerInfoRequest:
		s.handleServerInfoRequest(c)
	case *protocol.JoinRequest:
		s.handleJoinRequest(c, m)
	case *protocol.UserCmd:
		s.handleUserCmd(c, m)
	case *protocol.ChatMessage:
		s.handleChat(c, m.Text, false)
	case *protocol.TeamChatMessage:
		s.handleChat(c, m.Text, true)
	case *protocol.TeamSelect:
		s.handleTeamSelect(c, m)
	case *protocol.ResourceDownloadRequest:
		s.handleResourceDownloadRequest(c, m)
	case *protocol.UpdateRateChange:
		s.setClientUpdateRate(c, m.UpdateRate)
	case *protocol.UsernameChange:
		s.handleUsernameChange(c, m)
	case *protocol.ForwardedCommand:
		s.handleForwardedCommand(c, m)
	case *protocol.HeartbeatRequest:
		// Meta traffic; nothing for a game client to do here.
	}
}

func (s *Server) sendTo(c *Client, m protocol.ServerMessage) {
	if c.conn == nil {
		return
	}
	if err := c.conn.SendReliable(protocol.EncodeServer(m)); err != nil {
		s.log.Debug().Err(err).Str("peer", c.endpoint.String()).Msg("reliable send failed")
	}
}

func (s *Server) sendUnreliableTo(c *Client, m protocol.ServerMessage) {
	if c.conn == nil {
		return
	}
	_ = c.conn.SendUnreliable(protocol.EncodeServer(m))
}

func (s *Server) handleServerInfoRequest(c *Client) {
	hashType := hashTypeNone
	if s.cvars.Find("sv_password").String() != "" {
		hashType = hashTypePBKDF2SHA256
	}
	s.sendTo(c, &protocol.ServerInfo{
		MapName:          s.gameMap.Name,
		MapHash:          s.gameMap.Hash,
		TickRate:         uint32(s.cfg.TickRate),
		PlayerCount:      uint32(s.joinedPlayerCount()),
		PlayerLimit:      uint32(s.rules.PlayerLimit),
		GameVersion:      s.cfg.GameVersion,
		PasswordSalt:     s.passwordSalt,
		PasswordHashType: hashType,
		Resources:        s.resources.Manifest(),
	})
}

func (s *Server) handleJoinRequest(c *Client, m *protocol.JoinRequest) {
	if c.joined {
		return
	}
	if m.GameVersion != s.cfg.GameVersion {
		s.kickEndpoint(c.endpoint, fmt.Sprintf("game version mismatch (server runs %s)", s.cfg.GameVersion))
		return
	}
	if m.MapHash != s.gameMap.Hash {
		s.kickEndpoint(c.endpoint, "map differs from server; download it first")
		return
	}
	if len(s.passwordKey) > 0 && !bytes.Equal(m.PasswordKey, s.passwordKey) {
		s.kickEndpoint(c.endpoint, "wrong password")
		return
	}
	if s.joinedPlayerCount() >= s.rules.PlayerLimit {
		s.kickEndpoint(c.endpoint, "server is full")
		return
	}
	name := sanitizeUsername(m.Username)
	if s.world.IsPlayerNameTaken(name) {
		s.kickEndpoint(c.endpoint, "username already taken")
		return
	}

	c.username = name
	c.playerID = s.world.CreatePlayer(name)
	c.inventoryID = m.InventoryID
	c.joined = true
	c.ring.reset()
	c.hasAck = false
	s.setClientUpdateRate(c, m.UpdateRate)

	s.sendTo(c, &protocol.Joined{
		PlayerID:       c.playerID,
		InventoryID:    c.inventoryID,
		InventoryToken: m.InventoryToken,
		MOTD:           s.cvars.Find("sv_motd").String(),
	})
	s.sendTo(c, s.replicatedCvarMod())
	s.sendTo(c, &protocol.PleaseSelectTeam{})
	s.ServerEvent(fmt.Sprintf("%s joined the game", name))
	s.log.Info().Str("peer", c.endpoint.String()).Str("name", name).Uint32("player", uint32(c.playerID)).Msg("player joined")
}

func (s *Server) replicatedCvarMod() *protocol.CvarMod {
	var mod protocol.CvarMod
	for _, cv := range s.cvars.WithFlags(console.Replicated) {
		mod.Cvars = append(mod.Cvars, protocol.CvarValue{Name: cv.Name(), Value: cv.String()})
	}
	return &mod
}

func (s *Server) handleUserCmd(c *Client, m *protocol.UserCmd) {
	if !c.joined {
		return
	}
	s.world.ApplyPlayerActions(c.playerID, m.Actions)
	// The ack picks the delta source; an unknown tick simply means the
	// next snapshot goes out full.
	c.lastAckTick = m.LatestSnapshotReceived
	c.hasAck = true
}

func (s *Server) handleTeamSelect(c *Client, m *protocol.TeamSelect) {
	if !c.joined {
		return
	}
	if !m.Team.Valid() || !m.Class.Valid() {
		s.kickEndpoint(c.endpoint, "invalid team selection")
		return
	}
	p := s.world.FindPlayer(c.playerID)
	if p == nil {
		return
	}
	oldTeam, oldClass := p.Team, p.Class
	if !s.world.PlayerTeamSelect(c.playerID, m.Team, m.Class) {
		s.sendTo(c, &protocol.ServerEventMessagePersonal{Text: "That class is full on that team."})
		return
	}
	s.broadcast(&protocol.PlayerTeamSelected{PlayerID: c.playerID, OldTeam: oldTeam, NewTeam: m.Team})
	s.broadcast(&protocol.PlayerClassSelected{PlayerID: c.playerID, OldClass: oldClass, NewClass: m.Class})
}

func (s *Server) handleChat(c *Client, text string, teamOnly bool) {
	if !c.joined || !c.spam.Allow() {
		return
	}
	text = sanitizeChat(text)
	if text == "" {
		return
	}
	sender := s.world.FindPlayer(c.playerID)
	msg := &protocol.ChatBroadcast{Sender: c.playerID, TeamOnly: teamOnly, Text: text}
	for _, other := range s.clients {
		if !other.joined || other.conn == nil {
			continue
		}
		if teamOnly && sender != nil {
			op := s.world.FindPlayer(other.playerID)
			if op == nil || op.Team != sender.Team {
				continue
			}
		}
		s.sendTo(other, msg)
	}
	s.log.Info().Str("name", c.username).Bool("team", teamOnly).Str("text", text).Msg("chat")
}

func (s *Server) handleUsernameChange(c *Client, m *protocol.UsernameChange) {
	if !c.joined || !c.spam.Allow() {
		return
	}
	name := sanitizeUsername(m.NewUsername)
	if s.world.SetPlayerName(c.playerID, name) {
		c.username = name
	} else {
		s.sendTo(c, &protocol.ServerEventMessagePersonal{Text: "That name is taken."})
	}
}

func (s *Server) setClientUpdateRate(c *Client, rate uint32) {
	if rate < 1 {
		rate = 1
	}
	if rate > uint32(s.cfg.TickRate) {
		rate = uint32(s.cfg.TickRate)
	}
	c.updateInterval = 1.0 / float64(rate)
}

// broadcast sends a reliable message to every joined client.
func (s *Server) broadcast(m protocol.ServerMessage) {
	for _, c := range s.clients {
		if c.joined && c.conn != nil {
			s.sendTo(c, m)
		}
	}
}

func sanitizeChat(text string) string {
	var out []rune
	for _, r := range text {
		if r >= 0x20 && r != 0x7f {
			out = append(out, r)
		}
		if len(out) >= 200 {
			break
		}
	}
	return string(out)
}

// clientByPlayer finds the client owning a player id.
func (s *Server) clientByPlayer(id game.PlayerID) *Client {
	for _, c := range s.clients {
		if c.playerID == id {
			return c
		}
	}
	return nil
}
