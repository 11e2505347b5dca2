package game

import "fmt"

// CreatePlayer registers a new player. The player joins as a spectator and
// selects a team separately.
func (w *World) CreatePlayer(name string) PlayerID {
	p := Player{
		Name:         name,
		Team:         TeamSpectators,
		Class:        ClassSpectator,
		AimDirection: NewDirection(false, false, true, false),
	}
	p.MoveTimer.SetInterval(ClassSpectator.Stats().MoveInterval)
	p.MoveTimer.Reset()
	return w.players.Create(p)
}

// CreateProjectile spawns a projectile and returns its id.
func (w *World) CreateProjectile(position Vec2, moveDirection Direction, typ ProjectileType, team Team, owner PlayerID, weapon Weapon, damage int32, hurtSound SoundID) ProjectileID {
	stats := typ.Stats()
	p := Projectile{
		Position:      position,
		Type:          typ,
		Team:          team,
		MoveDirection: moveDirection,
		Owner:         owner,
		Weapon:        weapon,
		Damage:        damage,
		HurtSound:     hurtSound,
		MoveInterval:  stats.MoveInterval,
	}
	p.MoveTimer.SetInterval(stats.MoveInterval)
	p.MoveTimer.Reset()
	// Stickies persist until detonated; everything else disappears on a
	// timer.
	if typ != ProjectileSticky {
		p.DisappearTimer.Start(stats.DisappearTime)
	}
	return w.projectiles.Create(p)
}

// CreateExplosion spawns an explosion centered on position.
func (w *World) CreateExplosion(position Vec2, team Team, owner PlayerID, weapon Weapon, damage int32, hurtSound SoundID, disappearTime float64) ExplosionID {
	e := Explosion{
		Position:          position,
		Team:              team,
		Owner:             owner,
		Weapon:            weapon,
		Damage:            damage,
		HurtSound:         hurtSound,
		DamagedPlayers:    make(map[PlayerID]struct{}),
		DamagedSentryGuns: make(map[SentryGunID]struct{}),
	}
	e.DisappearTimer.Start(disappearTime)
	w.events.PlayWorldSound(SoundExplosion, position)
	return w.explosions.Create(e)
}

// CreateSentryGun spawns a sentry gun.
func (w *World) CreateSentryGun(position Vec2, team Team, health int32, owner PlayerID) SentryGunID {
	s := SentryGun{
		Position: position,
		Team:     team,
		Health:   health,
		Owner:    owner,
		Alive:    true,
	}
	s.ShootTimer.SetInterval(WeaponSentryGun.Stats().ShootInterval)
	s.ShootTimer.Reset()
	return w.sentryGuns.Create(s)
}

// CreateMedkit spawns a medkit pickup.
func (w *World) CreateMedkit(position Vec2) MedkitID {
	return w.medkits.Create(Medkit{Position: position, Alive: true})
}

// CreateAmmopack spawns an ammopack pickup.
func (w *World) CreateAmmopack(position Vec2) AmmopackID {
	return w.ammopacks.Create(Ammopack{Position: position, Alive: true})
}

// CreateGenericEntity spawns a visible, immobile generic entity at
// position. The scripting layer configures it through the field accessors.
func (w *World) CreateGenericEntity(position Vec2) GenericEntityID {
	return w.generics.Create(GenericEntity{
		Position: position,
		Matrix:   NewTileMatrix(1, 1, '#'),
		Visible:  true,
	})
}

// CreateFlag spawns a flag for team at position.
func (w *World) CreateFlag(position Vec2, team Team, name string) FlagID {
	return w.flags.Create(Flag{
		Name:          name,
		Position:      position,
		SpawnPosition: position,
		Team:          team,
	})
}

// CreatePayloadCart spawns a cart pushed by team along track.
func (w *World) CreatePayloadCart(team Team, track []Vec2) PayloadCartID {
	c := PayloadCart{Team: team, Track: track}
	c.PushTimer.SetInterval(w.rules.PayloadPushTime)
	c.PushTimer.Reset()
	return w.carts.Create(c)
}

// DeletePlayer removes a player, dropping any carried flags first.
func (w *World) DeletePlayer(id PlayerID) bool {
	if !w.players.Has(id) {
		return false
	}
	w.dropFlagsCarriedBy(id)
	return w.players.Remove(id)
}

func (w *World) DeleteProjectile(id ProjectileID) bool    { return w.projectiles.Remove(id) }
func (w *World) DeleteExplosion(id ExplosionID) bool      { return w.explosions.Remove(id) }
func (w *World) DeleteSentryGun(id SentryGunID) bool      { return w.sentryGuns.Remove(id) }
func (w *World) DeleteMedkit(id MedkitID) bool            { return w.medkits.Remove(id) }
func (w *World) DeleteAmmopack(id AmmopackID) bool        { return w.ammopacks.Remove(id) }
func (w *World) DeleteGenericEntity(id GenericEntityID) bool { return w.generics.Remove(id) }
func (w *World) DeleteFlag(id FlagID) bool                { return w.flags.Remove(id) }
func (w *World) DeletePayloadCart(id PayloadCartID) bool  { return w.carts.Remove(id) }

func (w *World) FindPlayer(id PlayerID) *Player                { return w.players.Find(id) }
func (w *World) FindProjectile(id ProjectileID) *Projectile    { return w.projectiles.Find(id) }
func (w *World) FindExplosion(id ExplosionID) *Explosion       { return w.explosions.Find(id) }
func (w *World) FindSentryGun(id SentryGunID) *SentryGun       { return w.sentryGuns.Find(id) }
func (w *World) FindMedkit(id MedkitID) *Medkit                { return w.medkits.Find(id) }
func (w *World) FindAmmopack(id AmmopackID) *Ammopack          { return w.ammopacks.Find(id) }
func (w *World) FindGenericEntity(id GenericEntityID) *GenericEntity { return w.generics.Find(id) }
func (w *World) FindFlag(id FlagID) *Flag                      { return w.flags.Find(id) }
func (w *World) FindPayloadCart(id PayloadCartID) *PayloadCart { return w.carts.Find(id) }

func (w *World) PlayerCount() int      { return w.players.Count() }
func (w *World) ProjectileCount() int  { return w.projectiles.Count() }
func (w *World) ExplosionCount() int   { return w.explosions.Count() }
func (w *World) SentryGunCount() int   { return w.sentryGuns.Count() }
func (w *World) MedkitCount() int      { return w.medkits.Count() }
func (w *World) AmmopackCount() int    { return w.ammopacks.Count() }
func (w *World) GenericEntityCount() int { return w.generics.Count() }
func (w *World) FlagCount() int        { return w.flags.Count() }
func (w *World) PayloadCartCount() int { return w.carts.Count() }

func (w *World) PlayerIDs() []PlayerID               { return w.players.IDs() }
func (w *World) ProjectileIDs() []ProjectileID       { return w.projectiles.IDs() }
func (w *World) ExplosionIDs() []ExplosionID         { return w.explosions.IDs() }
func (w *World) SentryGunIDs() []SentryGunID         { return w.sentryGuns.IDs() }
func (w *World) MedkitIDs() []MedkitID               { return w.medkits.IDs() }
func (w *World) AmmopackIDs() []AmmopackID           { return w.ammopacks.IDs() }
func (w *World) GenericEntityIDs() []GenericEntityID { return w.generics.IDs() }
func (w *World) FlagIDs() []FlagID                   { return w.flags.IDs() }
func (w *World) PayloadCartIDs() []PayloadCartID     { return w.carts.IDs() }

// FindPlayerIDByName returns the id of the named player, or 0.
func (w *World) FindPlayerIDByName(name string) PlayerID {
	for _, id := range w.players.IDs() {
		if p := w.players.Find(id); p != nil && p.Name == name {
			return id
		}
	}
	return PlayerIDUnconnected
}

// IsPlayerNameTaken reports whether any player uses name.
func (w *World) IsPlayerNameTaken(name string) bool {
	return w.FindPlayerIDByName(name) != PlayerIDUnconnected
}

// IsPlayerCarryingFlag reports whether the player carries any flag.
func (w *World) IsPlayerCarryingFlag(id PlayerID) bool {
	for _, fid := range w.flags.IDs() {
		if f := w.flags.Find(fid); f != nil && f.Carrier == id {
			return true
		}
	}
	return false
}

// TeamPlayerCounts returns the number of players on each team.
func (w *World) TeamPlayerCounts() map[Team]int {
	counts := make(map[Team]int)
	for _, id := range w.players.IDs() {
		if p := w.players.Find(id); p != nil {
			counts[p.Team]++
		}
	}
	return counts
}

// PlayerClassCount returns how many players of team play the given class.
func (w *World) PlayerClassCount(team Team, class PlayerClass) int {
	n := 0
	for _, id := range w.players.IDs() {
		if p := w.players.Find(id); p != nil && p.Team == team && p.Class == class {
			n++
		}
	}
	return n
}

// TeleportPlayer moves a player without collision checks.
func (w *World) TeleportPlayer(id PlayerID, destination Vec2) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	p.Position = destination
	return true
}

// TeleportProjectile moves a projectile without collision checks.
func (w *World) TeleportProjectile(id ProjectileID, destination Vec2) bool {
	p := w.projectiles.Find(id)
	if p == nil {
		return false
	}
	p.Position = destination
	return true
}

// TeleportSentryGun moves a sentry gun without collision checks.
func (w *World) TeleportSentryGun(id SentryGunID, destination Vec2) bool {
	s := w.sentryGuns.Find(id)
	if s == nil {
		return false
	}
	s.Position = destination
	return true
}

// TeleportGenericEntity moves a generic entity without collision checks.
func (w *World) TeleportGenericEntity(id GenericEntityID, destination Vec2) bool {
	g := w.generics.Find(id)
	if g == nil {
		return false
	}
	g.Position = destination
	return true
}

// TeleportFlag moves a flag without collision checks.
func (w *World) TeleportFlag(id FlagID, destination Vec2) bool {
	f := w.flags.Find(id)
	if f == nil {
		return false
	}
	f.Position = destination
	return true
}

// SetPlayerName renames a player; fails when the name is taken.
func (w *World) SetPlayerName(id PlayerID, name string) bool {
	if w.IsPlayerNameTaken(name) {
		return false
	}
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	old := p.Name
	p.Name = name
	w.events.ServerEvent(fmt.Sprintf("%s changed name to %s.", old, name))
	return true
}

// SetPlayerNoclip toggles collision bypass for a player.
func (w *World) SetPlayerNoclip(id PlayerID, value bool) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	p.Noclip = value
	return true
}

// EquipPlayerHat sets a player's hat.
func (w *World) EquipPlayerHat(id PlayerID, hat Hat) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	p.Hat = hat
	return true
}

// AwardPlayerScore adds points to a player's score.
func (w *World) AwardPlayerScore(id PlayerID, points int32) bool {
	p := w.players.Find(id)
	if p == nil {
		return false
	}
	p.Score += points
	return true
}
