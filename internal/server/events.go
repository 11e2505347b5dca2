package server

import (
	"gridfort/internal/game"
	"gridfort/internal/protocol"
)

// The server implements game.Events by translating world events into
// client messages. Positional sounds ride the unreliable channel: a lost
// sound effect is not worth a retransmission. Event text is reliable.

// PlayWorldSound plays a sound at a world position for every client.
func (s *Server) PlayWorldSound(sound game.SoundID, position game.Vec2) {
	msg := &protocol.PlaySoundPositional{Sound: sound, Position: position}
	for _, c := range s.clients {
		if c.joined && c.conn != nil {
			s.sendUnreliableTo(c, msg)
		}
	}
}

// PlayTeamSound plays one sound for the named team and another for
// everyone else.
func (s *Server) PlayTeamSound(ownTeam, otherTeam game.SoundID, team game.Team) {
	for _, c := range s.clients {
		if !c.joined || c.conn == nil {
			continue
		}
		sound := otherTeam
		if p := s.world.FindPlayer(c.playerID); p != nil && p.Team == team {
			sound = ownTeam
		}
		s.sendUnreliableTo(c, &protocol.PlaySound{Sound: sound})
	}
}

// PlayGameSound plays an interface sound for every client.
func (s *Server) PlayGameSound(sound game.SoundID) {
	msg := &protocol.PlaySound{Sound: sound}
	for _, c := range s.clients {
		if c.joined && c.conn != nil {
			s.sendUnreliableTo(c, msg)
		}
	}
}

// ServerEvent broadcasts an event line to every client and the log.
func (s *Server) ServerEvent(message string) {
	s.log.Info().Str("event", message).Msg("world event")
	s.broadcast(&protocol.ServerEventMessage{Text: message})
}

// TeamServerEvent broadcasts an event line to one team.
func (s *Server) TeamServerEvent(message string, team game.Team) {
	for _, c := range s.clients {
		if !c.joined || c.conn == nil {
			continue
		}
		if p := s.world.FindPlayer(c.playerID); p != nil && p.Team == team {
			s.sendTo(c, &protocol.ServerEventMessage{Text: message})
		}
	}
}

// PersonalServerEvent sends an event line to one player.
func (s *Server) PersonalServerEvent(message string, player game.PlayerID) {
	if c := s.clientByPlayer(player); c != nil && c.conn != nil {
		s.sendTo(c, &protocol.ServerEventMessagePersonal{Text: message})
	}
}

// HitConfirmed tells the inflictor their shot landed.
func (s *Server) HitConfirmed(damage int32, player game.PlayerID) {
	if c := s.clientByPlayer(player); c != nil && c.conn != nil {
		s.sendUnreliableTo(c, &protocol.HitConfirmed{Damage: damage})
	}
}

// MapChangeWanted queues a level change at the end of the current frame.
func (s *Server) MapChangeWanted() {
	if s.nextLevel == "" {
		s.nextLevel = s.gameMap.Name
	}
	s.log.Info().Str("next", s.nextLevel).Msg("map end criteria reached")
	s.Stop("changing level: " + s.nextLevel)
}
