package server

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/pkg/errors"

	"gridfort/internal/bot"
	"gridfort/internal/game"
	"gridfort/internal/transport"
)

// Bots are clients without a connection: they occupy a player slot, feed
// on the same snapshots a human client would, and submit the same action
// bitmask through the world's input path.

var botCounter int

func botEndpoint() transport.Endpoint {
	botCounter++
	return netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(botCounter))
}

// cmdBotAdd implements "bot_add [name] [team] [class]".
func (s *Server) cmdBotAdd(args []string) (string, error) {
	name := fmt.Sprintf("Bot%02d", botCounter+1)
	team := game.TeamRed
	class := game.ClassSoldier
	if len(args) >= 1 {
		name = sanitizeUsername(args[0])
	}
	if len(args) >= 2 {
		t, err := parseTeam(args[1])
		if err != nil {
			return "", err
		}
		team = t
	}
	if len(args) >= 3 {
		class = parseClass(args[2])
		if class == game.ClassNone {
			return "", errors.Errorf("no class named %s", args[2])
		}
	}
	if !s.AddBot(name, team, class) {
		return "", errors.Errorf("cannot add bot %s", name)
	}
	return "added bot " + name, nil
}

// AddBot joins a bot to the game.
func (s *Server) AddBot(name string, team game.Team, class game.PlayerClass) bool {
	if s.joinedPlayerCount() >= s.rules.PlayerLimit {
		return false
	}
	if s.world.IsPlayerNameTaken(name) {
		return false
	}
	c := &Client{
		endpoint: botEndpoint(),
		username: name,
		isBot:    true,
		joined:   true,
	}
	c.playerID = s.world.CreatePlayer(name)
	if !s.world.PlayerTeamSelect(c.playerID, team, class) {
		s.world.DeletePlayer(c.playerID)
		return false
	}
	s.clients[c.endpoint] = c
	s.botNames[name] = struct{}{}
	s.ServerEvent(fmt.Sprintf("%s joined the game", name))
	return true
}

// KickBot removes a bot by name.
func (s *Server) KickBot(name string) bool {
	for ep, c := range s.clients {
		if c.isBot && c.username == name {
			s.world.DeletePlayer(c.playerID)
			delete(s.clients, ep)
			delete(s.botNames, name)
			s.ServerEvent(fmt.Sprintf("%s left the game", name))
			return true
		}
	}
	return false
}

// KickAllBots removes every bot and returns how many were kicked.
func (s *Server) KickAllBots() int {
	var names []string
	for _, c := range s.clients {
		if c.isBot {
			names = append(names, c.username)
		}
	}
	for _, n := range names {
		s.KickBot(n)
	}
	return len(names)
}

// BotNames lists the hosted bots.
func (s *Server) BotNames() []string {
	out := make([]string, 0, len(s.botNames))
	for n := range s.botNames {
		out = append(out, n)
	}
	return out
}

// IsPlayerBot reports whether a player id belongs to a hosted bot.
func (s *Server) IsPlayerBot(id game.PlayerID) bool {
	c := s.clientByPlayer(id)
	return c != nil && c.isBot
}

// updateBots feeds each bot its snapshot and applies the resulting
// actions.
func (s *Server) updateBots() {
	for _, c := range s.clients {
		if !c.isBot || !c.joined {
			continue
		}
		snap := s.world.TakeSnapshot(c.playerID)
		s.world.ApplyPlayerActions(c.playerID, bot.Think(&snap))
	}
}

func parseClass(name string) game.PlayerClass {
	switch strings.ToLower(name) {
	case "scout":
		return game.ClassScout
	case "soldier":
		return game.ClassSoldier
	case "pyro":
		return game.ClassPyro
	case "demoman":
		return game.ClassDemoman
	case "heavy":
		return game.ClassHeavy
	case "engineer":
		return game.ClassEngineer
	case "medic":
		return game.ClassMedic
	case "sniper":
		return game.ClassSniper
	case "spy":
		return game.ClassSpy
	}
	return game.ClassNone
}
