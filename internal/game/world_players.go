package game

import "fmt"

// Action bits of a client UserCmd.
const (
	ActionMoveLeft uint16 = 1 << iota
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionAimLeft
	ActionAimRight
	ActionAimUp
	ActionAimDown
	ActionAttack1
	ActionAttack2
)

// ApplyPlayerActions decodes an action bitmask into the player's input
// state. A neutral aim keeps the previous aim so the player always faces
// somewhere.
func (w *World) ApplyPlayerActions(id PlayerID, actions uint16) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	p.MoveDirection = NewDirection(
		actions&ActionMoveLeft != 0,
		actions&ActionMoveRight != 0,
		actions&ActionMoveUp != 0,
		actions&ActionMoveDown != 0,
	)
	aim := NewDirection(
		actions&ActionAimLeft != 0,
		actions&ActionAimRight != 0,
		actions&ActionAimUp != 0,
		actions&ActionAimDown != 0,
	)
	if aim.IsAny() {
		p.AimDirection = aim
	}
	p.Attack1 = actions&ActionAttack1 != 0
	p.Attack2 = actions&ActionAttack2 != 0
	return true
}

// PlayerTeamSelect puts a player on a team with a class. Spectators get
// the spectator class; joining a combat team spawns the player at once.
// Class limits are enforced per team.
func (w *World) PlayerTeamSelect(id PlayerID, team Team, class PlayerClass) bool {
	p := w.players.Find(id)
	if p == nil || !team.Valid() || !class.Valid() {
		return false
	}
	if team == TeamSpectators || team == TeamNone {
		team = TeamSpectators
		class = ClassSpectator
	}
	if class.Playable() {
		limit := class.Stats().Limit
		if w.PlayerClassCount(team, class) >= limit {
			return false
		}
	} else if team != TeamSpectators {
		return false
	}

	w.dropFlagsCarriedBy(id)
	oldTeam := p.Team
	p.Team = team
	p.Class = class
	p.Alive = false
	p.Disguised = false
	p.Respawning = false
	p.RespawnCountdown.Stop()

	if team == TeamSpectators {
		p.Class = ClassSpectator
		if oldTeam != TeamSpectators {
			w.events.ServerEvent(fmt.Sprintf("%s joined the spectators.", p.Name))
		}
		return true
	}

	w.events.ServerEvent(fmt.Sprintf("%s joined team %s as %s.", p.Name, team, class))
	return w.SpawnPlayer(id)
}

// SpawnPlayer places a player at the next spawn point of its team, fully
// healed and resupplied.
func (w *World) SpawnPlayer(id PlayerID) bool {
	p := w.players.Find(id)
	if p == nil || !p.Class.Playable() {
		return false
	}
	spawns := w.gameMap.SpawnPoints(p.Team)
	if len(spawns) == 0 {
		return false
	}
	idx := w.spawnCounter[p.Team] % len(spawns)
	w.spawnCounter[p.Team]++

	stats := p.Class.Stats()
	pos := spawns[idx]
	if free, ok := w.findFreeTile(pos, p.Team, playerBlockedBy()); ok {
		pos = free
	}
	p.Position = pos
	p.Alive = true
	p.Health = stats.Health
	p.Respawning = false
	p.RespawnCountdown.Stop()
	p.Disguised = false
	p.BlastJumping = false
	p.BlastJumpCountdown.Stop()
	p.MoveTimer.SetInterval(stats.MoveInterval)
	p.MoveTimer.Reset()
	w.resetWeaponState(p)
	w.events.PlayWorldSound(SoundPlayerSpawn, p.Position)
	return true
}

func (w *World) resetWeaponState(p *Player) {
	primary := p.Class.Stats().PrimaryWeapon
	secondary := p.Class.Stats().SecondaryWeapon
	p.PrimaryAmmo = primary.Stats().AmmoPerClip
	p.SecondaryAmmo = secondary.Stats().AmmoPerClip
	p.Attack1Cooldown.Stop()
	p.Attack2Cooldown.Stop()
	p.PrimaryReloadTimer.Stop()
	p.SecondaryReloadTimer.Stop()
}

// ResupplyPlayer refills a living player's health and ammo.
func (w *World) ResupplyPlayer(id PlayerID) bool {
	p := w.players.Find(id)
	if p == nil || !p.Alive {
		return false
	}
	stats := p.Class.Stats()
	if p.Health < stats.Health {
		p.Health = stats.Health
	}
	p.PrimaryAmmo = stats.PrimaryWeapon.Stats().AmmoPerClip
	p.SecondaryAmmo = stats.SecondaryWeapon.Stats().AmmoPerClip
	w.events.PlayWorldSound(SoundResupply, p.Position)
	return true
}

// ApplyDamageToPlayer damages (or, with negative amount, heals) a player.
// Healing is capped at class max health unless allowOverheal. Self-damage
// is scaled by the configured coefficient. Returns false when the target
// is missing or dead.
func (w *World) ApplyDamageToPlayer(id PlayerID, amount int32, hurtSound SoundID, allowOverheal bool, inflictor PlayerID, weapon Weapon) bool {
	p := w.players.Find(id)
	if p == nil || !p.Alive {
		return false
	}
	if amount > 0 && inflictor == id {
		amount = int32(float64(amount) * w.rules.SelfDamageCoefficient)
	}
	if amount < 0 {
		maxHealth := p.Class.Stats().Health
		cap := maxHealth
		if allowOverheal {
			cap = int32(float64(maxHealth) * w.rules.OverhealCap)
		}
		if p.Health >= cap {
			return true
		}
		p.Health -= amount
		if p.Health > cap {
			p.Health = cap
		}
		if hurtSound != SoundNone {
			w.events.PlayWorldSound(hurtSound, p.Position)
		}
		return true
	}

	p.Health -= amount
	if hurtSound != SoundNone {
		w.events.PlayWorldSound(hurtSound, p.Position)
	}
	if inflictor != PlayerIDUnconnected && inflictor != id {
		w.events.HitConfirmed(amount, inflictor)
	}
	if p.Health <= 0 {
		w.KillPlayer(id, true, inflictor, weapon)
	}
	return true
}

// KillPlayer kills a player, credits the killer, drops carried flags and
// starts the respawn countdown.
func (w *World) KillPlayer(id PlayerID, announce bool, killer PlayerID, weapon Weapon) bool {
	p := w.players.Find(id)
	if p == nil || !p.Alive {
		return false
	}
	p.Alive = false
	p.Health = 0
	p.Disguised = false
	p.BlastJumping = false
	p.Respawning = true
	p.RespawnCountdown.Start(w.rules.RespawnTime)
	w.events.PlayWorldSound(SoundPlayerDeath, p.Position)

	w.dropFlagsCarriedBy(id)
	w.detonateStickiesOf(id)

	if k := w.players.Find(killer); k != nil && killer != id {
		k.Score += w.rules.ScoreKill
		if announce {
			w.events.ServerEvent(fmt.Sprintf("%s killed %s with %s.", k.Name, p.Name, weapon))
		}
	} else if announce {
		w.events.ServerEvent(fmt.Sprintf("%s died.", p.Name))
	}
	return true
}

// updatePlayers is tick phase 2: respawn countdowns, blast-jump timers,
// spectator flight, movement, pickups and weapon fire, in player-registry
// order.
func (w *World) updatePlayers(dt float64) {
	for _, id := range w.players.IDs() {
		p := w.players.Find(id)
		if p == nil {
			continue
		}

		if p.Respawning && w.state == roundPlaying {
			if p.RespawnCountdown.Advance(dt) {
				w.SpawnPlayer(id)
			}
			continue
		}

		if p.Team == TeamSpectators {
			// Spectators free-fly in their aim direction, clamped to the
			// map bounds only.
			for i := p.MoveTimer.Advance(dt); i > 0; i-- {
				dest := p.Position.Add(p.AimDirection.Vec())
				if dest.X >= 0 && dest.Y >= 0 && dest.X < w.gameMap.Width() && dest.Y < w.gameMap.Height() {
					p.Position = dest
				}
			}
			continue
		}

		if !p.Alive {
			continue
		}

		if p.BlastJumping {
			if p.BlastJumpCountdown.Advance(dt) {
				p.BlastJumping = false
				p.MoveTimer.SetInterval(p.Class.Stats().MoveInterval)
			} else {
				for i := p.BlastJumpTimer.Advance(dt); i > 0; i-- {
					w.stepPlayer(id, p, p.BlastJumpDirection)
				}
			}
		}

		if p.MoveDirection.IsAny() {
			for i := p.MoveTimer.Advance(dt); i > 0; i-- {
				w.stepPlayer(id, p, p.MoveDirection)
			}
		}

		w.collectPickups(id, p)
		w.updatePlayerWeapons(dt, id, p)
	}
}

// stepPlayer performs one clipped move step and picks up anything on the
// destination tile.
func (w *World) stepPlayer(id PlayerID, p *Player, dir Direction) {
	self := collider{collidePlayer, uint32(id), PlayerSolid(p.Team)}
	clipped := w.clippedDirection(p.Position, p.Team, p.Noclip, playerBlockedBy(), self, dir)
	if clipped == 0 {
		return
	}
	p.Position = p.Position.Add(clipped.Vec())
	w.collectPickups(id, p)
}

// collectPickups resolves medkit/ammopack/flag contacts at the player's
// current tile.
func (w *World) collectPickups(id PlayerID, p *Player) {
	if !p.Alive {
		return
	}
	for _, c := range w.collision[p.Position] {
		switch c.kind {
		case collideMedkit:
			mk := w.medkits.Find(MedkitID(c.id))
			if mk == nil || !mk.Alive {
				continue
			}
			if p.Health < p.Class.Stats().Health {
				p.Health = p.Class.Stats().Health
				mk.Alive = false
				mk.RespawnCountdown.Start(w.rules.MedkitRespawnTime)
				w.events.PlayWorldSound(SoundMedkitCollect, p.Position)
			}
		case collideAmmopack:
			ap := w.ammopacks.Find(AmmopackID(c.id))
			if ap == nil || !ap.Alive {
				continue
			}
			stats := p.Class.Stats()
			full := p.PrimaryAmmo >= stats.PrimaryWeapon.Stats().AmmoPerClip &&
				p.SecondaryAmmo >= stats.SecondaryWeapon.Stats().AmmoPerClip
			if !full {
				p.PrimaryAmmo = stats.PrimaryWeapon.Stats().AmmoPerClip
				p.SecondaryAmmo = stats.SecondaryWeapon.Stats().AmmoPerClip
				ap.Alive = false
				ap.RespawnCountdown.Start(w.rules.AmmopackRespawnTime)
				w.events.PlayWorldSound(SoundResupply, p.Position)
			}
		}
	}
	w.checkFlagPickup(id, p)
}

// dropFlagsCarriedBy releases every flag the player carries and starts the
// return countdown.
func (w *World) dropFlagsCarriedBy(id PlayerID) {
	for _, fid := range w.flags.IDs() {
		f := w.flags.Find(fid)
		if f == nil || f.Carrier != id {
			continue
		}
		if p := w.players.Find(id); p != nil {
			f.Position = p.Position
		}
		f.Carrier = PlayerIDUnconnected
		f.Returning = true
		f.ReturnCountdown.Start(w.rules.FlagReturnTime)
		w.events.PlayTeamSound(SoundWeDroppedIntel, SoundTheyDroppedIntel, f.Team.Opponent())
		w.events.ServerEvent(fmt.Sprintf("%s's flag was dropped!", f.Team))
	}
}
