package game

import "fmt"

// updatePickups is tick phase 6: medkit and ammopack respawn countdowns.
func (w *World) updatePickups(dt float64) {
	for _, id := range w.medkits.IDs() {
		mk := w.medkits.Find(id)
		if mk == nil || mk.Alive {
			continue
		}
		if mk.RespawnCountdown.Advance(dt) {
			mk.Alive = true
			w.events.PlayWorldSound(SoundMedkitSpawn, mk.Position)
		}
	}
	for _, id := range w.ammopacks.IDs() {
		ap := w.ammopacks.Find(id)
		if ap == nil || ap.Alive {
			continue
		}
		if ap.RespawnCountdown.Advance(dt) {
			ap.Alive = true
		}
	}
}

// updateGenericEntities is tick phase 7: velocity-driven stepping through
// the collision map. Classes named in the entity's solid flags block it;
// players in the path are pushed when the tile behind them is free.
func (w *World) updateGenericEntities(dt float64) {
	for _, id := range w.generics.IDs() {
		g := w.generics.Find(id)
		if g == nil || g.MoveInterval <= 0 || (g.Velocity.X == 0 && g.Velocity.Y == 0) {
			continue
		}
		g.MoveTimer.SetInterval(g.MoveInterval)
		for steps := g.MoveTimer.Advance(dt); steps > 0; steps-- {
			step := Vec2{signOf(g.Velocity.X), signOf(g.Velocity.Y)}
			if step.X != 0 && !w.stepGenericAxis(id, g, Vec2{step.X, 0}) {
				g.Velocity.X = 0
			}
			if step.Y != 0 && !w.stepGenericAxis(id, g, Vec2{0, step.Y}) {
				g.Velocity.Y = 0
			}
		}
	}
}

func signOf(v int16) int16 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// stepGenericAxis tries to advance the entity one tile along one axis.
func (w *World) stepGenericAxis(id GenericEntityID, g *GenericEntity, step Vec2) bool {
	self := collider{collideGeneric, uint32(id), SolidGenericEntities}
	// Every occupied cell of the sprite must be able to enter its
	// destination tile.
	for y := int16(0); y < g.Matrix.H; y++ {
		for x := int16(0); x < g.Matrix.W; x++ {
			if g.Matrix.At(x, y) == ' ' {
				continue
			}
			dest := g.Position.Add(Vec2{x, y}).Add(step)
			if w.gameMap.IsSolid(dest, TeamNone) {
				return false
			}
			for _, c := range w.collision[dest] {
				if c.kind == self.kind && c.id == self.id {
					continue
				}
				if c.solid&g.SolidFlags == 0 {
					continue
				}
				if c.kind == collidePlayer {
					if !w.pushPlayer(PlayerID(c.id), step) {
						return false
					}
					continue
				}
				return false
			}
		}
	}
	g.Position = g.Position.Add(step)
	return true
}

// pushPlayer shoves a player one tile; fails when the tile behind them is
// blocked.
func (w *World) pushPlayer(id PlayerID, step Vec2) bool {
	p := w.players.Find(id)
	if p == nil || !p.Alive {
		return true
	}
	self := collider{collidePlayer, uint32(id), PlayerSolid(p.Team)}
	dest := p.Position.Add(step)
	if w.tileBlocked(dest, p.Team, playerBlockedBy(), self) {
		return false
	}
	p.Position = dest
	return true
}

// checkFlagPickup resolves flag contacts for a player: enemies pick up,
// carriers capture at a friendly flag spawn.
func (w *World) checkFlagPickup(id PlayerID, p *Player) {
	if !p.Alive || p.Team == TeamSpectators {
		return
	}
	for _, fid := range w.flags.IDs() {
		f := w.flags.Find(fid)
		if f == nil {
			continue
		}
		if f.Carrier == PlayerIDUnconnected && f.Position == p.Position && f.Team != p.Team {
			f.Carrier = id
			f.Returning = false
			f.ReturnCountdown.Stop()
			w.events.PlayTeamSound(SoundWePickedIntel, SoundTheyPickedIntel, p.Team)
			w.events.ServerEvent(fmt.Sprintf("%s picked up %s's flag!", p.Name, f.Team))
		}
	}
	w.checkFlagCapture(id, p)
}

// checkFlagCapture scores a carried enemy flag when the carrier stands on
// a spawn tile of their own team's flag.
func (w *World) checkFlagCapture(id PlayerID, p *Player) {
	var carried *Flag
	for _, fid := range w.flags.IDs() {
		if f := w.flags.Find(fid); f != nil && f.Carrier == id {
			carried = f
			break
		}
	}
	if carried == nil {
		return
	}
	for _, fid := range w.flags.IDs() {
		home := w.flags.Find(fid)
		if home == nil || home.Team != p.Team || home.SpawnPosition != p.Position {
			continue
		}
		home.Score++
		p.Score += w.rules.ScoreObjective
		carried.Carrier = PlayerIDUnconnected
		carried.Position = carried.SpawnPosition
		carried.Returning = false
		carried.ReturnCountdown.Stop()
		w.events.PlayTeamSound(SoundWeCapturedIntel, SoundTheyCapturedIntel, p.Team)
		w.events.ServerEvent(fmt.Sprintf("%s captured %s's flag", p.Team, carried.Team))
		if home.Score >= w.rules.CaptureLimit {
			w.Win(p.Team)
		}
		return
	}
}

// updateFlags is tick phase 8: carried flags follow their carrier, dropped
// flags auto-return on countdown expiry.
func (w *World) updateFlags(dt float64) {
	for _, id := range w.flags.IDs() {
		f := w.flags.Find(id)
		if f == nil {
			continue
		}
		if f.Carrier != PlayerIDUnconnected {
			carrier := w.players.Find(f.Carrier)
			if carrier == nil || !carrier.Alive {
				// Invariant: a dead or vanished carrier never keeps the
				// flag; drop handles both.
				f.Carrier = PlayerIDUnconnected
				f.Returning = true
				f.ReturnCountdown.Start(w.rules.FlagReturnTime)
				continue
			}
			f.Position = carrier.Position
			continue
		}
		if f.Returning && f.ReturnCountdown.Advance(dt) {
			f.Position = f.SpawnPosition
			f.Returning = false
			w.events.PlayTeamSound(SoundWeReturnedIntel, SoundTheyReturnedIntel, f.Team)
			w.events.ServerEvent(fmt.Sprintf("%s's flag has returned.", f.Team))
		}
	}
}

// updatePayloadCarts is tick phase 9: the push timer runs while at least
// one attacker and no defender touches the cart; each expiry advances one
// track point. Reaching the end wins the round for the pushing team.
func (w *World) updatePayloadCarts(dt float64) {
	for _, id := range w.carts.IDs() {
		c := w.carts.Find(id)
		if c == nil || len(c.Track) == 0 {
			continue
		}
		attackers, defenders := 0, 0
		area := RectAround(c.Position(), 1)
		for _, pid := range w.players.IDs() {
			p := w.players.Find(pid)
			if p == nil || !p.Alive || !area.Contains(p.Position) {
				continue
			}
			switch p.Team {
			case c.Team:
				attackers++
			case c.Team.Opponent():
				defenders++
			}
		}
		if attackers == 0 || defenders > 0 {
			c.PushTimer.Reset()
			continue
		}
		c.PushTimer.SetInterval(w.rules.PayloadPushTime)
		for steps := c.PushTimer.Advance(dt); steps > 0; steps-- {
			if c.TrackIndex+1 >= len(c.Track) {
				w.events.ServerEvent(fmt.Sprintf("%s pushed the cart to the end!", c.Team))
				w.Win(c.Team)
				break
			}
			c.TrackIndex++
			w.events.PlayWorldSound(SoundPushCart, c.Position())
		}
	}
}
