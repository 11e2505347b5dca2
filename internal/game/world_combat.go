package game

import "fmt"

// updatePlayerWeapons advances cooldown and reload timers for both weapon
// slots and fires held attacks. The first shot after a quiet spell is
// immediate; the shoot interval only spaces consecutive shots.
func (w *World) updatePlayerWeapons(dt float64, id PlayerID, p *Player) {
	stats := p.Class.Stats()

	p.Attack1Cooldown.Advance(dt)
	p.Attack2Cooldown.Advance(dt)

	// A finished reload refills the clip.
	if p.PrimaryReloadTimer.Advance(dt) {
		p.PrimaryAmmo = stats.PrimaryWeapon.Stats().AmmoPerClip
		if snd := stats.PrimaryWeapon.Stats().ReloadSound; snd != SoundNone {
			w.events.PlayWorldSound(snd, p.Position)
		}
	}
	if p.SecondaryReloadTimer.Advance(dt) {
		p.SecondaryAmmo = stats.SecondaryWeapon.Stats().AmmoPerClip
	}

	if p.Attack1 && !p.Attack1Cooldown.Active() && stats.PrimaryWeapon != WeaponNone {
		w.tryShoot(id, p, stats.PrimaryWeapon, &p.PrimaryAmmo, &p.Attack1Cooldown, &p.PrimaryReloadTimer)
	}
	if p.Attack2 && !p.Attack2Cooldown.Active() && stats.SecondaryWeapon != WeaponNone {
		w.tryShoot(id, p, stats.SecondaryWeapon, &p.SecondaryAmmo, &p.Attack2Cooldown, &p.SecondaryReloadTimer)
	}
}

// tryShoot fires one shot when the clip suffices and no reload is in
// progress. An empty clip starts the reload instead of firing.
func (w *World) tryShoot(id PlayerID, p *Player, weapon Weapon, ammo *int32, cooldown, reload *Countdown) {
	if reload.Active() {
		return
	}
	stats := weapon.Stats()
	if *ammo < stats.AmmoPerShot {
		w.events.PlayWorldSound(SoundDryFire, p.Position)
		reload.Start(stats.ReloadDelay)
		return
	}
	*ammo -= stats.AmmoPerShot
	cooldown.Start(stats.ShootInterval)
	if stats.ShootSound != SoundNone {
		w.events.PlayWorldSound(stats.ShootSound, p.Position)
	}
	w.fireWeapon(id, p, weapon)
}

// fireWeapon executes the weapon-specific shot effect.
func (w *World) fireWeapon(id PlayerID, p *Player, weapon Weapon) {
	stats := weapon.Stats()
	dir := p.AimDirection
	muzzle := p.Position.Add(dir.Vec())

	switch weapon {
	case WeaponShotgun:
		w.fireShotgun(id, p, stats)
	case WeaponSniperRifle:
		w.fireSniperRifle(id, p, stats)
	case WeaponKnife:
		w.swingKnife(id, p, stats)
	case WeaponBuildTool:
		w.buildSentry(id, p)
	case WeaponStickyDetonator:
		w.detonateStickiesOf(id)
	case WeaponDisguiseKit:
		p.Disguised = !p.Disguised
	case WeaponStickybombLauncher:
		w.CreateProjectile(muzzle, dir, stats.ProjectileType, p.Team, id, weapon, stats.Damage, stats.HurtSound)
		p.NumStickies++
		w.limitStickies(id, p)
	default:
		if stats.ProjectileType != ProjectileNone {
			w.CreateProjectile(muzzle, dir, stats.ProjectileType, p.Team, id, weapon, stats.Damage, stats.HurtSound)
		}
	}
}

// rotate45CW rotates a unit tile offset 45 degrees clockwise.
func rotate45CW(v Vec2) Vec2 {
	clamp := func(n int16) int16 {
		if n > 1 {
			return 1
		}
		if n < -1 {
			return -1
		}
		return n
	}
	return Vec2{clamp(v.X - v.Y), clamp(v.X + v.Y)}
}

// rotate45CCW rotates a unit tile offset 45 degrees counterclockwise.
func rotate45CCW(v Vec2) Vec2 {
	clamp := func(n int16) int16 {
		if n > 1 {
			return 1
		}
		if n < -1 {
			return -1
		}
		return n
	}
	return Vec2{clamp(v.X + v.Y), clamp(v.Y - v.X)}
}

// fireShotgun spreads pellets over the aim direction and its 45-degree
// neighbors, plus parallel pellets from the flanking tiles.
func (w *World) fireShotgun(id PlayerID, p *Player, stats WeaponStats) {
	aim := p.AimDirection.Vec()
	cw := rotate45CW(aim)
	ccw := rotate45CCW(aim)
	perp := Vec2{-aim.Y, aim.X}

	spawn := func(pos Vec2, step Vec2) {
		w.CreateProjectile(pos, DirectionFromVec(step), stats.ProjectileType, p.Team, id, WeaponShotgun, stats.Damage, stats.HurtSound)
	}
	origin := p.Position
	pellets := []struct {
		pos  Vec2
		step Vec2
	}{
		{origin.Add(aim), aim},
		{origin.Add(cw), cw},
		{origin.Add(ccw), ccw},
		{origin.Add(aim).Add(perp), aim},
		{origin.Add(aim).Sub(perp), aim},
	}
	for i := 0; i < len(pellets) && i < w.rules.ShotgunSpread; i++ {
		spawn(pellets[i].pos, pellets[i].step)
	}
}

// fireSniperRifle lays an instantaneous trail to the first solid tile and
// damages the first enemy on it.
func (w *World) fireSniperRifle(id PlayerID, p *Player, stats WeaponStats) {
	step := p.AimDirection.Vec()
	if step.X == 0 && step.Y == 0 {
		return
	}
	pos := p.Position
	hit := false
	for i := int16(0); i < w.rules.SniperRange; i++ {
		pos = pos.Add(step)
		if w.gameMap.IsSolid(pos, p.Team) {
			break
		}
		w.CreateProjectile(pos, 0, ProjectileSniperTrail, p.Team, id, WeaponSniperRifle, 0, SoundNone)
		if hit {
			continue
		}
		for _, c := range w.collision[pos] {
			switch c.kind {
			case collidePlayer:
				target := PlayerID(c.id)
				tp := w.players.Find(target)
				if tp != nil && tp.Alive && tp.Team != p.Team {
					w.ApplyDamageToPlayer(target, stats.Damage, stats.HurtSound, false, id, WeaponSniperRifle)
					hit = true
				}
			case collideSentryGun:
				sg := SentryGunID(c.id)
				if s := w.sentryGuns.Find(sg); s != nil && s.Alive && s.Team != p.Team {
					w.ApplyDamageToSentryGun(sg, stats.Damage, SoundSentryHurt, id)
					hit = true
				}
			}
			if hit {
				break
			}
		}
	}
}

// swingKnife resolves a melee strike on the faced tile. A target facing
// away within backstab range dies instantly.
func (w *World) swingKnife(id PlayerID, p *Player, stats WeaponStats) {
	step := p.AimDirection.Vec()
	for reach := int16(1); reach <= w.rules.SpyBackstabRange; reach++ {
		target := p.Position.Add(Vec2{step.X * reach, step.Y * reach})
		for _, c := range w.collision[target] {
			if c.kind != collidePlayer {
				continue
			}
			victimID := PlayerID(c.id)
			victim := w.players.Find(victimID)
			if victim == nil || !victim.Alive || victim.Team == p.Team {
				continue
			}
			facing := victim.AimDirection.Vec()
			toVictim := victim.Position.Sub(p.Position)
			// Facing away: the victim's facing has a component along the
			// spy's approach, never toward the spy.
			backstab := int32(facing.X)*int32(toVictim.X)+int32(facing.Y)*int32(toVictim.Y) > 0
			if backstab {
				w.events.PlayWorldSound(stats.HurtSound, victim.Position)
				w.KillPlayer(victimID, true, id, WeaponKnife)
			} else {
				w.ApplyDamageToPlayer(victimID, stats.Damage, SoundPlayerHurt, false, id, WeaponKnife)
			}
			return
		}
	}
}

// buildSentry places a sentry gun on a free tile in front of the engineer.
func (w *World) buildSentry(id PlayerID, p *Player) {
	pos := p.Position.Add(p.AimDirection.Vec())
	blocked := playerBlockedBy() | SolidMedkits | SolidAmmopacks
	if w.tileBlocked(pos, p.Team, blocked, collider{collidePlayer, uint32(id), 0}) {
		return
	}
	w.CreateSentryGun(pos, p.Team, w.rules.SentryHealth, id)
	w.events.PlayWorldSound(SoundSentryBuild, pos)
}

// limitStickies detonates the oldest stickies past the per-owner limit.
func (w *World) limitStickies(owner PlayerID, p *Player) {
	if p.NumStickies <= w.rules.StickyLimit {
		return
	}
	for _, pid := range w.projectiles.IDs() {
		proj := w.projectiles.Find(pid)
		if proj == nil || proj.Type != ProjectileSticky || proj.Owner != owner {
			continue
		}
		w.detonateSticky(pid, proj)
		if p.NumStickies <= w.rules.StickyLimit {
			return
		}
	}
}

// detonateStickiesOf converts every live sticky owned by the player into
// an explosion.
func (w *World) detonateStickiesOf(owner PlayerID) {
	for _, pid := range w.projectiles.IDs() {
		proj := w.projectiles.Find(pid)
		if proj == nil || proj.Type != ProjectileSticky || proj.Owner != owner {
			continue
		}
		w.detonateSticky(pid, proj)
	}
	if p := w.players.Find(owner); p != nil {
		p.NumStickies = 0
	}
}

func (w *World) detonateSticky(id ProjectileID, proj *Projectile) {
	for _, d := range w.deadProjectiles {
		if d == id {
			return
		}
	}
	w.CreateExplosion(proj.Position, proj.Team, proj.Owner, proj.Weapon, proj.Damage, proj.HurtSound, w.rules.ExplosionDisappearTime)
	w.markProjectileDead(id)
	if p := w.players.Find(proj.Owner); p != nil && p.NumStickies > 0 {
		p.NumStickies--
	}
}

// ApplyDamageToSentryGun damages a sentry gun; lethal damage starts the
// despawn countdown.
func (w *World) ApplyDamageToSentryGun(id SentryGunID, amount int32, hurtSound SoundID, inflictor PlayerID) bool {
	s := w.sentryGuns.Find(id)
	if s == nil || !s.Alive {
		return false
	}
	s.Health -= amount
	if hurtSound != SoundNone {
		w.events.PlayWorldSound(hurtSound, s.Position)
	}
	if s.Health <= 0 {
		w.KillSentryGun(id, inflictor)
	}
	return true
}

// KillSentryGun destroys a sentry gun and credits the killer.
func (w *World) KillSentryGun(id SentryGunID, killer PlayerID) bool {
	s := w.sentryGuns.Find(id)
	if s == nil || !s.Alive {
		return false
	}
	s.Alive = false
	s.Health = 0
	s.DespawnTimer.Start(w.rules.SentryDespawnTime)
	w.events.PlayWorldSound(SoundSentryDeath, s.Position)
	if k := w.players.Find(killer); k != nil && killer != s.Owner {
		k.Score += w.rules.ScoreKill
		if owner := w.players.Find(s.Owner); owner != nil {
			w.events.ServerEvent(fmt.Sprintf("%s destroyed %s's sentry gun.", k.Name, owner.Name))
		}
	}
	return true
}

// updateSentryGuns is tick phase 3: target acquisition and fire, despawn
// of dead guns.
func (w *World) updateSentryGuns(dt float64) {
	for _, id := range w.sentryGuns.IDs() {
		s := w.sentryGuns.Find(id)
		if s == nil {
			continue
		}
		if !s.Alive {
			if s.DespawnTimer.Advance(dt) {
				w.markSentryGunDead(id)
			}
			continue
		}

		target := w.nearestSentryTarget(s)
		shots := s.ShootTimer.Advance(dt)
		if target == nil {
			continue
		}
		s.AimDirection = DirectionFromVec(target.Position.Sub(s.Position))
		stats := WeaponSentryGun.Stats()
		for ; shots > 0; shots-- {
			w.CreateProjectile(s.Position.Add(s.AimDirection.Vec()), s.AimDirection, stats.ProjectileType, s.Team, s.Owner, WeaponSentryGun, stats.Damage, stats.HurtSound)
			w.events.PlayWorldSound(stats.ShootSound, s.Position)
		}
	}
}

// nearestSentryTarget picks the closest living, undisguised enemy within
// range.
func (w *World) nearestSentryTarget(s *SentryGun) *Player {
	var best *Player
	var bestDist int32 = -1
	maxDist := int32(w.rules.SentryRange) * int32(w.rules.SentryRange)
	for _, id := range w.players.IDs() {
		p := w.players.Find(id)
		if p == nil || !p.Alive || p.Team == s.Team || p.Team == TeamSpectators || p.Disguised {
			continue
		}
		d := p.Position.DistanceSquared(s.Position)
		if d > maxDist {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}

// updateProjectiles is tick phase 4: movement, collision, expiry.
func (w *World) updateProjectiles(dt float64) {
	for _, id := range w.projectiles.IDs() {
		p := w.projectiles.Find(id)
		if p == nil {
			continue
		}

		if p.DisappearTimer.Active() && p.DisappearTimer.Advance(dt) {
			if p.Type == ProjectileRocket {
				w.CreateExplosion(p.Position, p.Team, p.Owner, p.Weapon, p.Damage, p.HurtSound, w.rules.ExplosionDisappearTime)
			}
			w.markProjectileDead(id)
			continue
		}

		if p.MoveInterval <= 0 || p.StickyAttached {
			w.collideProjectileAt(id, p, p.Position)
			continue
		}

		steps := p.MoveTimer.Advance(dt)
		for ; steps > 0; steps-- {
			next := p.Position.Add(p.MoveDirection.Vec())
			if w.gameMap.IsSolid(next, p.Team) {
				switch p.Type {
				case ProjectileRocket:
					w.CreateExplosion(p.Position, p.Team, p.Owner, p.Weapon, p.Damage, p.HurtSound, w.rules.ExplosionDisappearTime)
					w.markProjectileDead(id)
				case ProjectileSticky:
					p.StickyAttached = true
				default:
					w.markProjectileDead(id)
				}
				break
			}
			p.Position = next
			if w.collideProjectileAt(id, p, next) {
				break
			}
		}
	}
}

// collideProjectileAt resolves the projectile against whatever shares its
// tile. Returns true when the projectile was consumed.
func (w *World) collideProjectileAt(id ProjectileID, p *Projectile, pos Vec2) bool {
	if p.Type == ProjectileSticky || p.Type == ProjectileSniperTrail {
		return false
	}
	for _, c := range w.collision[pos] {
		switch c.kind {
		case collidePlayer:
			targetID := PlayerID(c.id)
			target := w.players.Find(targetID)
			if target == nil || !target.Alive {
				continue
			}
			if p.Type == ProjectileHealBeam {
				if target.Team == p.Team && targetID != p.Owner {
					w.ApplyDamageToPlayer(targetID, p.Damage, p.HurtSound, true, p.Owner, p.Weapon)
					w.markProjectileDead(id)
					return true
				}
				continue
			}
			if target.Team == p.Team || targetID == p.Owner {
				continue
			}
			if p.Type == ProjectileRocket {
				w.CreateExplosion(p.Position, p.Team, p.Owner, p.Weapon, p.Damage, p.HurtSound, w.rules.ExplosionDisappearTime)
			} else {
				w.ApplyDamageToPlayer(targetID, p.Damage, p.HurtSound, false, p.Owner, p.Weapon)
			}
			w.markProjectileDead(id)
			return true
		case collideSentryGun:
			sgID := SentryGunID(c.id)
			s := w.sentryGuns.Find(sgID)
			if s == nil || !s.Alive || s.Team == p.Team || p.Type == ProjectileHealBeam {
				continue
			}
			if p.Type == ProjectileRocket {
				w.CreateExplosion(p.Position, p.Team, p.Owner, p.Weapon, p.Damage, p.HurtSound, w.rules.ExplosionDisappearTime)
			} else {
				w.ApplyDamageToSentryGun(sgID, p.Damage, SoundSentryHurt, p.Owner)
			}
			w.markProjectileDead(id)
			return true
		}
	}
	return false
}

// updateExplosions is tick phase 5: each explosion damages entities inside
// its 3x3 area at most once over its lifetime.
func (w *World) updateExplosions(dt float64) {
	for _, id := range w.explosions.IDs() {
		e := w.explosions.Find(id)
		if e == nil {
			continue
		}
		area := RectAround(e.Position, 1)

		for _, pid := range w.players.IDs() {
			p := w.players.Find(pid)
			if p == nil || !p.Alive || !area.Contains(p.Position) {
				continue
			}
			if _, done := e.DamagedPlayers[pid]; done {
				continue
			}
			e.DamagedPlayers[pid] = struct{}{}
			w.ApplyDamageToPlayer(pid, e.Damage, e.HurtSound, false, e.Owner, e.Weapon)
			w.maybeStartBlastJump(e, pid)
		}
		for _, sid := range w.sentryGuns.IDs() {
			s := w.sentryGuns.Find(sid)
			if s == nil || !s.Alive || !area.Contains(s.Position) || s.Team == e.Team {
				continue
			}
			if _, done := e.DamagedSentryGuns[sid]; done {
				continue
			}
			e.DamagedSentryGuns[sid] = struct{}{}
			w.ApplyDamageToSentryGun(sid, e.Damage, SoundSentryHurt, e.Owner)
		}
		// Attached stickies caught in a blast go off too.
		for _, pid := range w.projectiles.IDs() {
			proj := w.projectiles.Find(pid)
			if proj == nil || proj.Type != ProjectileSticky || !proj.StickyAttached || !area.Contains(proj.Position) {
				continue
			}
			if proj.Owner == e.Owner && proj.Weapon == e.Weapon {
				continue
			}
			w.detonateSticky(pid, proj)
		}

		if e.DisappearTimer.Advance(dt) {
			w.markExplosionDead(id)
		}
	}
}

// maybeStartBlastJump puts a surviving soldier or demoman hit by their own
// explosion into the blast-jumping state. A chained jump refreshes the
// timer with the chain coefficient.
func (w *World) maybeStartBlastJump(e *Explosion, victim PlayerID) {
	if victim != e.Owner {
		return
	}
	p := w.players.Find(victim)
	if p == nil || !p.Alive {
		return
	}
	if p.Class != ClassSoldier && p.Class != ClassDemoman {
		return
	}
	dir := DirectionFromVec(p.Position.Sub(e.Position))
	if !dir.IsAny() {
		dir = p.AimDirection.Opposite()
	}
	duration := w.rules.BlastJumpDuration
	if p.BlastJumping {
		duration *= w.rules.BlastJumpChainCoefficient
	}
	p.BlastJumping = true
	p.BlastJumpDirection = dir
	p.BlastJumpInterval = w.rules.BlastJumpMoveInterval
	p.BlastJumpTimer.SetInterval(p.BlastJumpInterval)
	p.BlastJumpTimer.Reset()
	p.BlastJumpCountdown.Start(duration)
}
