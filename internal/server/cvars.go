package server

import (
	"strconv"

	"gridfort/internal/console"
)

// registerCvars declares the server's variables and binds the gameplay
// ones to the live Rules so changes apply on the next tick.
func (s *Server) registerCvars() {
	cv := s.cvars

	cv.Register("sv_hostname", s.cfg.Hostname, console.Archive, "Name of the server shown in listings.")
	cv.Register("sv_motd", s.cfg.MOTD, console.Archive, "Message of the day shown on join.")
	pw := cv.Register("sv_password", s.cfg.Password, console.NoRcon, "Password required to join; empty for open.")
	pw.OnChange(func(string) { s.refreshPasswordKey() })
	rc := cv.Register("rcon_password", "", console.NoRcon|console.Archive, "Password for remote console sessions.")
	rc.OnChange(func(string) { s.refreshRconKey() })

	cv.RegisterInt("sv_port", s.cfg.Port, console.ReadOnly, "UDP port the server is bound to.", 0, 65535)
	cv.RegisterInt("sv_tickrate", s.cfg.TickRate, console.ReadOnly|console.Replicated, "Simulation ticks per second.", 1, 1000)

	limit := cv.RegisterInt("sv_playerlimit", s.cfg.PlayerLimit, console.Archive|console.Replicated, "Maximum number of players.", 1, 255)
	limit.OnChange(func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			s.rules.PlayerLimit = n
		}
	})

	cv.RegisterInt("sv_max_clients", 100, console.Archive, "Maximum simultaneous client endpoints.", 1, 1024)
	cv.RegisterInt("sv_max_connecting_clients", 10, console.Archive, "Maximum clients in handshake at once.", 1, 255)
	cv.RegisterInt("sv_max_connections_per_ip", 3, console.Archive, "Maximum client endpoints per IP.", 1, 255)
	cv.RegisterInt("sv_afk_autokick_time", 600, console.Archive, "Seconds of inactivity before a kick; 0 disables.", 0, 100000)
	cv.RegisterInt("sv_spam_limit", 3, console.Archive, "Chat and command messages allowed per second.", 1, 100)
	cv.RegisterInt("sv_meta_submit", 300, console.Archive, "Seconds between meta server heartbeats.", 1, 86400)
	cv.RegisterInt("sv_resource_upload_chunk_size", 1024, console.Archive, "Bytes per resource download chunk.", 64, 1100)

	to := cv.RegisterFloat("sv_timeout", s.connCfg.Timeout, console.Archive, "Seconds without packets before a connection drops.", 1, 300)
	to.OnChange(func(v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.connCfg.Timeout = f
		}
	})
	tl := cv.RegisterInt("sv_throttle_limit", s.connCfg.ThrottleLimit, console.Archive, "Buffered send bytes before throttling.", 0, 1<<20)
	tl.OnChange(func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			s.connCfg.ThrottleLimit = n
		}
	})
	tp := cv.RegisterFloat("sv_throttle_max_period", s.connCfg.ThrottleMaxPeriod, console.Archive, "Continuous throttle seconds before dropping.", 1, 300)
	tp.OnChange(func(v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.connCfg.ThrottleMaxPeriod = f
		}
	})

	bindInt := func(name string, def int, help string, set func(int)) {
		c := cv.RegisterInt(name, def, console.Archive|console.Replicated, help, 0, 1<<30)
		c.OnChange(func(v string) {
			if n, err := strconv.Atoi(v); err == nil {
				set(n)
			}
		})
	}
	bindFloat := func(name string, def float64, help string, set func(float64)) {
		c := cv.RegisterFloat(name, def, console.Archive|console.Replicated, help, 0, 1e9)
		c.OnChange(func(v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				set(f)
			}
		})
	}

	r := &s.rules
	bindFloat("mp_respawn_time", r.RespawnTime, "Seconds dead players wait before respawning.", func(v float64) { r.RespawnTime = v })
	bindFloat("mp_round_end_time", r.RoundEndTime, "Seconds between round end and the next round.", func(v float64) { r.RoundEndTime = v })
	bindFloat("mp_round_time", r.RoundTime, "Round length in seconds.", func(v float64) { r.RoundTime = v })
	bindInt("mp_roundlimit", r.RoundLimit, "Rounds before a map change; 0 disables.", func(v int) { r.RoundLimit = v })
	bindInt("mp_winlimit", r.WinLimit, "Round wins before a map change; 0 disables.", func(v int) { r.WinLimit = v })
	bindFloat("mp_timelimit", r.TimeLimit, "Map time limit in seconds; 0 disables.", func(v float64) { r.TimeLimit = v })
	sw := cv.RegisterBool("mp_switch_teams_between_rounds", r.SwitchTeamsBetweenRounds, console.Archive|console.Replicated, "Swap red and blue between rounds.")
	sw.OnChange(func(string) { r.SwitchTeamsBetweenRounds = sw.Bool() })

	bindInt("mp_score_kill", int(r.ScoreKill), "Score awarded for a kill.", func(v int) { r.ScoreKill = int32(v) })
	bindInt("mp_score_objective", int(r.ScoreObjective), "Score awarded for an objective.", func(v int) { r.ScoreObjective = int32(v) })
	bindInt("mp_ctf_capture_limit", int(r.CaptureLimit), "Flag captures needed to win the round.", func(v int) { r.CaptureLimit = int32(v) })

	bindFloat("mp_self_damage_coefficient", r.SelfDamageCoefficient, "Scale applied to self-inflicted damage.", func(v float64) { r.SelfDamageCoefficient = v })
	bindInt("mp_spy_backstab_range", int(r.SpyBackstabRange), "Knife reach in tiles.", func(v int) { r.SpyBackstabRange = int16(v) })
	bindFloat("mp_explosion_disappear_time", r.ExplosionDisappearTime, "Explosion lifetime in seconds.", func(v float64) { r.ExplosionDisappearTime = v })
	bindInt("mp_shotgun_spread", r.ShotgunSpread, "Pellets per shotgun shot.", func(v int) { r.ShotgunSpread = v })
	bindInt("mp_sniper_range", int(r.SniperRange), "Sniper rifle range in tiles.", func(v int) { r.SniperRange = int16(v) })
	bindFloat("mp_overheal_cap", r.OverhealCap, "Overheal cap as a fraction of max health.", func(v float64) { r.OverhealCap = v })
	bindInt("mp_sticky_limit", r.StickyLimit, "Live stickybombs allowed per demoman.", func(v int) { r.StickyLimit = v })
	bindInt("mp_sentry_health", int(r.SentryHealth), "Hit points of a freshly built sentry gun.", func(v int) { r.SentryHealth = int32(v) })
	bindInt("mp_sentry_range", int(r.SentryRange), "Sentry gun target range in tiles.", func(v int) { r.SentryRange = int16(v) })
	bindFloat("mp_sentry_despawn_time", r.SentryDespawnTime, "Seconds a destroyed sentry lingers.", func(v float64) { r.SentryDespawnTime = v })
	bindFloat("mp_medkit_respawn_time", r.MedkitRespawnTime, "Seconds before a collected medkit respawns.", func(v float64) { r.MedkitRespawnTime = v })
	bindFloat("mp_ammopack_respawn_time", r.AmmopackRespawnTime, "Seconds before a collected ammopack respawns.", func(v float64) { r.AmmopackRespawnTime = v })
	bindFloat("mp_flag_return_time", r.FlagReturnTime, "Seconds before a dropped flag returns.", func(v float64) { r.FlagReturnTime = v })
	bindFloat("mp_payload_push_time", r.PayloadPushTime, "Seconds per payload cart track step.", func(v float64) { r.PayloadPushTime = v })
	bindFloat("mp_blast_jump_move_interval", r.BlastJumpMoveInterval, "Move interval while blast jumping.", func(v float64) { r.BlastJumpMoveInterval = v })
	bindFloat("mp_blast_jump_duration", r.BlastJumpDuration, "Seconds a blast jump lasts.", func(v float64) { r.BlastJumpDuration = v })
	bindFloat("mp_blast_jump_chain_coefficient", r.BlastJumpChainCoefficient, "Duration multiplier for chained blast jumps.", func(v float64) { r.BlastJumpChainCoefficient = v })

	s.refreshPasswordKey()
	s.refreshRconKey()
}

func (s *Server) refreshPasswordKey() {
	s.passwordKey = DerivePasswordKey(s.cvars.Find("sv_password").String(), s.passwordSalt, hashTypePBKDF2SHA256)
}

func (s *Server) refreshRconKey() {
	s.rconKey = DerivePasswordKey(s.cvars.Find("rcon_password").String(), s.passwordSalt, hashTypePBKDF2SHA256)
}
