package server

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"gridfort/internal/console"
	"gridfort/internal/game"
	"gridfort/internal/protocol"
)

// cmdContext identifies who invoked a console command.
type cmdContext struct {
	client *Client
	rcon   bool
}

// handleForwardedCommand routes a console command from a client. Commands
// share the chat spam limit. "login <key-hex>" opens an rcon session; any
// other command runs with the privileges of its session.
func (s *Server) handleForwardedCommand(c *Client, m *protocol.ForwardedCommand) {
	if !c.spam.Allow() {
		s.sendTo(c, &protocol.CommandError{Text: "too many commands"})
		return
	}
	fields := strings.Fields(m.Command)
	if len(fields) == 0 {
		return
	}

	if fields[0] == "login" {
		s.handleRconLogin(c, fields)
		return
	}

	rcon := m.RconToken != "" && m.RconToken == c.rconToken
	out, err := s.Execute(cmdContext{client: c, rcon: rcon}, fields)
	if err != nil {
		s.sendTo(c, &protocol.CommandError{Text: err.Error()})
		return
	}
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line != "" {
			s.sendTo(c, &protocol.CommandOutput{Text: line})
		}
	}
}

func (s *Server) handleRconLogin(c *Client, fields []string) {
	if len(fields) != 2 {
		s.sendTo(c, &protocol.CommandError{Text: "usage: login <key>"})
		return
	}
	key, err := hex.DecodeString(fields[1])
	if err != nil || len(s.rconKey) == 0 || !bytes.Equal(key, s.rconKey) {
		s.sendTo(c, &protocol.CommandError{Text: "bad rcon credentials"})
		s.log.Warn().Str("peer", c.endpoint.String()).Msg("failed rcon login")
		return
	}
	c.rconToken = randomToken()
	s.sendTo(c, &protocol.CommandOutput{Text: "token " + c.rconToken})
	s.log.Info().Str("peer", c.endpoint.String()).Msg("rcon session opened")
}

// Execute runs one console command. This is the control surface the
// scripting collaborator calls into; the rcon flag gates the privileged
// commands.
func (s *Server) Execute(ctx cmdContext, fields []string) (string, error) {
	name, args := fields[0], fields[1:]

	// Commands any joined player may run.
	switch name {
	case "status":
		return s.statusString(), nil
	case "players":
		var b strings.Builder
		for _, id := range s.world.PlayerIDs() {
			if p := s.world.FindPlayer(id); p != nil {
				fmt.Fprintf(&b, "#%d %s (%s, %s, score %d)\n", id, p.Name, p.Team, p.Class, p.Score)
			}
		}
		return b.String(), nil
	case "rtv":
		return "", errors.New("rock the vote is not enabled on this server")
	}

	if !ctx.rcon {
		return "", errors.Errorf("unknown or restricted command: %s", name)
	}
	return s.executePrivileged(name, args)
}

func (s *Server) executePrivileged(name string, args []string) (string, error) {
	switch name {
	case "say":
		s.ServerEvent("[server] " + strings.Join(args, " "))
		return "", nil
	case "say_team":
		if len(args) < 2 {
			return "", errors.New("usage: say_team <team> <message>")
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return "", err
		}
		s.TeamServerEvent("[server] "+strings.Join(args[1:], " "), team)
		return "", nil
	case "kick":
		return s.cmdKick(args)
	case "ban":
		return s.cmdBan(args)
	case "unban":
		if len(args) != 1 {
			return "", errors.New("usage: unban <ip>")
		}
		if _, ok := s.bans[args[0]]; !ok {
			return "", errors.Errorf("%s is not banned", args[0])
		}
		delete(s.bans, args[0])
		return "unbanned " + args[0], nil
	case "banlist":
		ips := make([]string, 0, len(s.bans))
		for ip, who := range s.bans {
			entry := ip
			if who != "" {
				entry += " (" + who + ")"
			}
			ips = append(ips, entry)
		}
		sort.Strings(ips)
		return strings.Join(ips, "\n"), nil
	case "bot_add":
		return s.cmdBotAdd(args)
	case "bot_kick":
		if len(args) != 1 {
			return "", errors.New("usage: bot_kick <name>")
		}
		if !s.KickBot(args[0]) {
			return "", errors.Errorf("no bot named %s", args[0])
		}
		return "kicked bot " + args[0], nil
	case "bot_kick_all":
		n := s.KickAllBots()
		return fmt.Sprintf("kicked %d bots", n), nil
	case "changelevel":
		if len(args) != 1 {
			return "", errors.New("usage: changelevel <map>")
		}
		s.nextLevel = args[0]
		s.Stop("changing level: " + args[0])
		return "", nil
	case "nextlevel":
		if len(args) != 1 {
			return "", errors.New("usage: nextlevel <map>")
		}
		s.nextLevel = args[0]
		return "next level queued: " + args[0], nil
	case "round_win":
		if len(args) != 1 {
			return "", errors.New("usage: round_win <team>")
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return "", err
		}
		s.world.Win(team)
		return "", nil
	case "round_stalemate":
		s.world.Stalemate()
		return "", nil
	case "round_reset":
		s.world.ResetRound()
		return "", nil
	case "round_time":
		if len(args) != 1 {
			return "", errors.New("usage: round_time <seconds>")
		}
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return "", errors.Wrap(err, "bad seconds")
		}
		s.world.SetRoundTimeLeft(secs)
		return "", nil
	case "award":
		if len(args) != 2 {
			return "", errors.New("usage: award <player> <points>")
		}
		id := s.world.FindPlayerIDByName(args[0])
		if id == game.PlayerIDUnconnected {
			return "", errors.Errorf("no player named %s", args[0])
		}
		points, err := strconv.Atoi(args[1])
		if err != nil {
			return "", errors.Wrap(err, "bad points")
		}
		s.world.AwardPlayerScore(id, int32(points))
		return "", nil
	case "hurt":
		return s.cmdHurt(args)
	case "teleport":
		return s.cmdTeleport(args)
	case "resupply":
		if len(args) != 1 {
			return "", errors.New("usage: resupply <player>")
		}
		id := s.world.FindPlayerIDByName(args[0])
		if !s.world.ResupplyPlayer(id) {
			return "", errors.Errorf("cannot resupply %s", args[0])
		}
		return "", nil
	case "noclip":
		if len(args) != 1 {
			return "", errors.New("usage: noclip <player>")
		}
		id := s.world.FindPlayerIDByName(args[0])
		p := s.world.FindPlayer(id)
		if p == nil {
			return "", errors.Errorf("no player named %s", args[0])
		}
		s.world.SetPlayerNoclip(id, !p.Noclip)
		return fmt.Sprintf("noclip %v for %s", p.Noclip, args[0]), nil
	case "say_to":
		if len(args) < 2 {
			return "", errors.New("usage: say_to <player> <message>")
		}
		id := s.world.FindPlayerIDByName(args[0])
		if id == game.PlayerIDUnconnected {
			return "", errors.Errorf("no player named %s", args[0])
		}
		s.PersonalServerEvent("[server] "+strings.Join(args[1:], " "), id)
		return "", nil
	case "ent_create_medkit", "ent_create_ammopack", "ent_create_generic":
		return s.cmdEntCreate(name, args)
	case "ent_delete":
		return s.cmdEntDelete(args)
	case "ent_list":
		return s.cmdEntList(), nil
	case "playsound":
		return s.cmdPlaySound(args)
	case "playsound_team":
		if len(args) != 2 {
			return "", errors.New("usage: playsound_team <team> <id>")
		}
		team, err := parseTeam(args[0])
		if err != nil {
			return "", err
		}
		id, err := strconv.Atoi(args[1])
		if err != nil || !game.SoundID(id).Valid() {
			return "", errors.Errorf("no sound with id %s", args[1])
		}
		s.PlayTeamSound(game.SoundID(id), game.SoundNone, team)
		return "", nil
	case "cvar":
		return s.cmdCvar(args)
	case "stop":
		s.nextLevel = ""
		s.Stop("server stopped by console")
		return "", nil
	}
	return "", errors.Errorf("unknown command: %s", name)
}

func (s *Server) cmdKick(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: kick <name|ip>")
	}
	for ep, c := range s.clients {
		if c.username == args[0] || ep.Addr().String() == args[0] {
			s.kickEndpoint(ep, "kicked by admin")
			return "kicked " + args[0], nil
		}
	}
	if s.KickBot(args[0]) {
		return "kicked bot " + args[0], nil
	}
	return "", errors.Errorf("no client matching %s", args[0])
}

func (s *Server) cmdBan(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: ban <name|ip>")
	}
	for ep, c := range s.clients {
		if c.username == args[0] || ep.Addr().String() == args[0] {
			s.bans[ep.Addr().String()] = c.username
			s.kickEndpoint(ep, "banned by admin")
			return "banned " + ep.Addr().String(), nil
		}
	}
	// A raw IP can be banned while offline.
	s.bans[args[0]] = ""
	return "banned " + args[0], nil
}

func (s *Server) cmdHurt(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: hurt <player> <damage>")
	}
	id := s.world.FindPlayerIDByName(args[0])
	if id == game.PlayerIDUnconnected {
		return "", errors.Errorf("no player named %s", args[0])
	}
	damage, err := strconv.Atoi(args[1])
	if err != nil {
		return "", errors.Wrap(err, "bad damage")
	}
	s.world.ApplyDamageToPlayer(id, int32(damage), game.SoundPlayerHurt, false, game.PlayerIDUnconnected, game.WeaponNone)
	return "", nil
}

func (s *Server) cmdTeleport(args []string) (string, error) {
	if len(args) != 3 {
		return "", errors.New("usage: teleport <player> <x> <y>")
	}
	id := s.world.FindPlayerIDByName(args[0])
	x, errX := strconv.Atoi(args[1])
	y, errY := strconv.Atoi(args[2])
	if errX != nil || errY != nil {
		return "", errors.New("bad coordinates")
	}
	if !s.world.TeleportPlayer(id, game.Vec2{X: int16(x), Y: int16(y)}) {
		return "", errors.Errorf("no player named %s", args[0])
	}
	return "", nil
}

func (s *Server) cmdEntCreate(name string, args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: " + name + " <x> <y>")
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		return "", errors.New("bad coordinates")
	}
	pos := game.Vec2{X: int16(x), Y: int16(y)}
	switch name {
	case "ent_create_medkit":
		return fmt.Sprintf("medkit #%d", s.world.CreateMedkit(pos)), nil
	case "ent_create_ammopack":
		return fmt.Sprintf("ammopack #%d", s.world.CreateAmmopack(pos)), nil
	default:
		return fmt.Sprintf("entity #%d", s.world.CreateGenericEntity(pos)), nil
	}
}

func (s *Server) cmdEntDelete(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: ent_delete <kind> <id>")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id < 0 {
		return "", errors.New("bad id")
	}
	ok := false
	switch args[0] {
	case "projectile":
		ok = s.world.DeleteProjectile(game.ProjectileID(id))
	case "explosion":
		ok = s.world.DeleteExplosion(game.ExplosionID(id))
	case "sentry":
		ok = s.world.DeleteSentryGun(game.SentryGunID(id))
	case "medkit":
		ok = s.world.DeleteMedkit(game.MedkitID(id))
	case "ammopack":
		ok = s.world.DeleteAmmopack(game.AmmopackID(id))
	case "generic":
		ok = s.world.DeleteGenericEntity(game.GenericEntityID(id))
	case "flag":
		ok = s.world.DeleteFlag(game.FlagID(id))
	case "cart":
		ok = s.world.DeletePayloadCart(game.PayloadCartID(id))
	default:
		return "", errors.Errorf("unknown entity kind: %s", args[0])
	}
	if !ok {
		return "", errors.Errorf("no %s with id %d", args[0], id)
	}
	return "", nil
}

func (s *Server) cmdEntList() string {
	return fmt.Sprintf(
		"players=%d projectiles=%d explosions=%d sentries=%d medkits=%d ammopacks=%d generic=%d flags=%d carts=%d",
		s.world.PlayerCount(), s.world.ProjectileCount(), s.world.ExplosionCount(),
		s.world.SentryGunCount(), s.world.MedkitCount(), s.world.AmmopackCount(),
		s.world.GenericEntityCount(), s.world.FlagCount(), s.world.PayloadCartCount())
}

func (s *Server) cmdPlaySound(args []string) (string, error) {
	if len(args) != 1 && len(args) != 3 {
		return "", errors.New("usage: playsound <id> [x y]")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "", errors.Wrap(err, "bad sound id")
	}
	sound := game.SoundID(id)
	if !sound.Valid() {
		return "", errors.Errorf("no sound with id %d", id)
	}
	if len(args) == 3 {
		x, errX := strconv.Atoi(args[1])
		y, errY := strconv.Atoi(args[2])
		if errX != nil || errY != nil {
			return "", errors.New("bad coordinates")
		}
		s.PlayWorldSound(sound, game.Vec2{X: int16(x), Y: int16(y)})
	} else {
		s.PlayGameSound(sound)
	}
	return "", nil
}

func (s *Server) cmdCvar(args []string) (string, error) {
	switch len(args) {
	case 1:
		c := s.cvars.Find(args[0])
		if c == nil {
			return "", errors.Errorf("unknown cvar: %s", args[0])
		}
		return fmt.Sprintf("%s = %q (default %q) - %s", c.Name(), c.String(), c.Default(), c.Help()), nil
	case 2:
		if err := s.cvars.Set(args[0], args[1], true); err != nil {
			return "", err
		}
		// Replicated changes go out to every client immediately.
		if c := s.cvars.Find(args[0]); c != nil && c.Flags()&console.Replicated != 0 {
			s.broadcast(&protocol.CvarMod{Cvars: []protocol.CvarValue{{Name: args[0], Value: args[1]}}})
		}
		return "", nil
	}
	return "", errors.New("usage: cvar <name> [value]")
}

// statusString renders the admin status table.
func (s *Server) statusString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "hostname: %s\nmap: %s\ntick: %d\nplayers: %d/%d\n",
		s.cvars.Find("sv_hostname").String(), s.gameMap.Name, s.world.TickCount(),
		s.joinedPlayerCount(), s.rules.PlayerLimit)

	table := tablewriter.NewTable(&buf)
	table.Header("ID", "NAME", "TEAM", "CLASS", "SCORE", "PING", "ADDRESS")
	for _, c := range s.clients {
		if !c.joined {
			continue
		}
		p := s.world.FindPlayer(c.playerID)
		if p == nil {
			continue
		}
		addr := "bot"
		ping := uint32(0)
		if c.conn != nil {
			addr = c.endpoint.String()
			ping = c.conn.RTTMillis()
		}
		table.Append(
			strconv.FormatUint(uint64(c.playerID), 10),
			p.Name, p.Team.String(), p.Class.String(),
			strconv.FormatInt(int64(p.Score), 10),
			strconv.FormatUint(uint64(ping), 10),
			addr,
		)
	}
	table.Render()
	return buf.String()
}

func parseTeam(name string) (game.Team, error) {
	switch strings.ToLower(name) {
	case "red":
		return game.TeamRed, nil
	case "blue", "blu":
		return game.TeamBlue, nil
	case "spectators", "spec":
		return game.TeamSpectators, nil
	}
	return game.TeamNone, errors.Errorf("no team named %s", name)
}
