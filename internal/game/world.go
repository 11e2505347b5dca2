package game

import "fmt"

// Events is the sink the world reports through: sounds, event text and hit
// confirmation. The server implements it by broadcasting messages; tests
// use a recording stub.
type Events interface {
	PlayWorldSound(sound SoundID, position Vec2)
	PlayTeamSound(ownTeam, otherTeam SoundID, team Team)
	PlayGameSound(sound SoundID)
	ServerEvent(message string)
	TeamServerEvent(message string, team Team)
	PersonalServerEvent(message string, player PlayerID)
	HitConfirmed(damage int32, player PlayerID)
	MapChangeWanted()
}

// NopEvents discards every event. Useful for tests and headless ticks.
type NopEvents struct{}

func (NopEvents) PlayWorldSound(SoundID, Vec2)            {}
func (NopEvents) PlayTeamSound(SoundID, SoundID, Team)    {}
func (NopEvents) PlayGameSound(SoundID)                   {}
func (NopEvents) ServerEvent(string)                      {}
func (NopEvents) TeamServerEvent(string, Team)            {}
func (NopEvents) PersonalServerEvent(string, PlayerID)    {}
func (NopEvents) HitConfirmed(int32, PlayerID)            {}
func (NopEvents) MapChangeWanted()                        {}

type roundState uint8

const (
	roundPlaying roundState = iota
	roundEnded
)

// World is the authoritative tick-driven simulation. Update advances it by
// exactly one tick; all phases run in a strict order so a mutation in phase
// K is visible to later phases of the same tick.
type World struct {
	gameMap *Map
	rules   *Rules
	events  Events

	tick          uint32
	mapTime       float64
	roundTimeLeft float64
	roundsPlayed  int
	state         roundState
	roundEndTimer Countdown
	teamWins      map[Team]int32
	spawnCounter  map[Team]int

	players     *Registry[PlayerID, Player]
	projectiles *Registry[ProjectileID, Projectile]
	explosions  *Registry[ExplosionID, Explosion]
	sentryGuns  *Registry[SentryGunID, SentryGun]
	medkits     *Registry[MedkitID, Medkit]
	ammopacks   *Registry[AmmopackID, Ammopack]
	generics    *Registry[GenericEntityID, GenericEntity]
	flags       *Registry[FlagID, Flag]
	carts       *Registry[PayloadCartID, PayloadCart]

	collision collisionMap

	deadProjectiles []ProjectileID
	deadExplosions  []ExplosionID
	deadSentryGuns  []SentryGunID
}

// NewWorld builds a world over the given map and rules. Rules are shared
// with the cvar layer; changes apply on the next tick.
func NewWorld(m *Map, rules *Rules, events Events) *World {
	if events == nil {
		events = NopEvents{}
	}
	w := &World{
		gameMap:      m,
		rules:        rules,
		events:       events,
		teamWins:     make(map[Team]int32),
		spawnCounter: make(map[Team]int),
		players:      NewRegistry[PlayerID, Player](),
		projectiles:  NewRegistry[ProjectileID, Projectile](),
		explosions:   NewRegistry[ExplosionID, Explosion](),
		sentryGuns:   NewRegistry[SentryGunID, SentryGun](),
		medkits:      NewRegistry[MedkitID, Medkit](),
		ammopacks:    NewRegistry[AmmopackID, Ammopack](),
		generics:     NewRegistry[GenericEntityID, GenericEntity](),
		flags:        NewRegistry[FlagID, Flag](),
		carts:        NewRegistry[PayloadCartID, PayloadCart](),
		collision:    make(collisionMap),
	}
	w.roundTimeLeft = rules.RoundTime
	return w
}

// StartMap places the map's static entities and starts the first round.
func (w *World) StartMap() {
	for _, pos := range w.gameMap.Medkits {
		w.CreateMedkit(pos)
	}
	for _, pos := range w.gameMap.Ammopacks {
		w.CreateAmmopack(pos)
	}
	for _, pos := range w.gameMap.RedFlags {
		w.CreateFlag(pos, TeamRed, "RED intelligence")
	}
	for _, pos := range w.gameMap.BlueFlags {
		w.CreateFlag(pos, TeamBlue, "BLU intelligence")
	}
	w.roundTimeLeft = w.rules.RoundTime
	w.state = roundPlaying
}

// TickCount returns the current tick. It wraps at 2^32 and must be
// compared with circular arithmetic.
func (w *World) TickCount() uint32 { return w.tick }

// MapTime returns the seconds simulated since the map started.
func (w *World) MapTime() float64 { return w.mapTime }

// RoundsPlayed returns the number of completed rounds.
func (w *World) RoundsPlayed() int { return w.roundsPlayed }

// RoundTimeLeft returns the seconds remaining in the current round.
func (w *World) RoundTimeLeft() float64 { return w.roundTimeLeft }

// SetRoundTimeLeft overrides the round clock.
func (w *World) SetRoundTimeLeft(seconds float64) { w.roundTimeLeft = seconds }

// AddRoundTimeLeft extends the round clock.
func (w *World) AddRoundTimeLeft(seconds float64) { w.roundTimeLeft += seconds }

// TeamWins returns the number of round wins for a team.
func (w *World) TeamWins(team Team) int32 { return w.teamWins[team] }

// Update advances the world by one tick of dt seconds. The phase order is
// load-bearing: collision map, players, sentries, projectiles, explosions,
// pickups, generic entities, flags, carts, round logic, cleanup.
func (w *World) Update(dt float64) {
	w.tick++
	w.mapTime += dt

	w.rebuildCollisionMap()
	w.updatePlayers(dt)
	w.updateSentryGuns(dt)
	w.updateProjectiles(dt)
	w.updateExplosions(dt)
	w.updatePickups(dt)
	w.updateGenericEntities(dt)
	w.updateFlags(dt)
	w.updatePayloadCarts(dt)
	w.updateRound(dt)
	w.cleanup()
}

// Win ends the round in favor of team.
func (w *World) Win(team Team) {
	if w.state != roundPlaying {
		return
	}
	w.teamWins[team]++
	w.events.PlayTeamSound(SoundVictory, SoundDefeat, team)
	w.events.ServerEvent(fmt.Sprintf("%s team wins the round!", team))
	w.endRound()
}

// Stalemate ends the round with no winner.
func (w *World) Stalemate() {
	if w.state != roundPlaying {
		return
	}
	w.events.PlayGameSound(SoundStalemate)
	w.events.ServerEvent("Stalemate!")
	w.endRound()
}

func (w *World) endRound() {
	w.state = roundEnded
	w.roundEndTimer.Start(w.rules.RoundEndTime)
}

func (w *World) updateRound(dt float64) {
	switch w.state {
	case roundPlaying:
		if w.roundTimeLeft > 0 {
			w.roundTimeLeft -= dt
			if w.roundTimeLeft <= 0 {
				w.roundTimeLeft = 0
				w.Stalemate()
			}
		}
	case roundEnded:
		if w.roundEndTimer.Advance(dt) {
			w.roundsPlayed++
			if w.mapEndCriteriaReached() {
				w.events.MapChangeWanted()
				return
			}
			if w.rules.SwitchTeamsBetweenRounds {
				w.switchTeams()
			}
			w.ResetRound()
		}
	}
}

func (w *World) mapEndCriteriaReached() bool {
	if w.rules.RoundLimit > 0 && w.roundsPlayed >= w.rules.RoundLimit {
		return true
	}
	if w.rules.WinLimit > 0 {
		for _, wins := range w.teamWins {
			if wins >= int32(w.rules.WinLimit) {
				return true
			}
		}
	}
	if w.rules.TimeLimit > 0 && w.mapTime >= w.rules.TimeLimit {
		return true
	}
	return false
}

// switchTeams swaps red and blue assignments atomically for every
// non-spectator player.
func (w *World) switchTeams() {
	for _, id := range w.players.IDs() {
		p := w.players.Find(id)
		if p == nil {
			continue
		}
		switch p.Team {
		case TeamRed:
			p.Team = TeamBlue
		case TeamBlue:
			p.Team = TeamRed
		}
	}
}

// ResetRound respawns every player and returns objectives to their spawn
// state. Projectiles and explosions are cleared; ids are not reused.
func (w *World) ResetRound() {
	w.projectiles.Clear()
	w.explosions.Clear()
	w.sentryGuns.Clear()

	for _, id := range w.medkits.IDs() {
		if mk := w.medkits.Find(id); mk != nil {
			mk.Alive = true
			mk.RespawnCountdown.Stop()
		}
	}
	for _, id := range w.ammopacks.IDs() {
		if ap := w.ammopacks.Find(id); ap != nil {
			ap.Alive = true
			ap.RespawnCountdown.Stop()
		}
	}
	for _, id := range w.flags.IDs() {
		if f := w.flags.Find(id); f != nil {
			f.Position = f.SpawnPosition
			f.Carrier = PlayerIDUnconnected
			f.Returning = false
			f.ReturnCountdown.Stop()
		}
	}
	for _, id := range w.carts.IDs() {
		if c := w.carts.Find(id); c != nil {
			c.TrackIndex = 0
			c.PushTimer.Reset()
		}
	}
	for _, id := range w.players.IDs() {
		p := w.players.Find(id)
		if p == nil {
			continue
		}
		p.NumStickies = 0
		if p.Team == TeamSpectators {
			continue
		}
		w.SpawnPlayer(id)
	}

	w.roundTimeLeft = w.rules.RoundTime
	w.state = roundPlaying
}

func (w *World) cleanup() {
	for _, id := range w.deadProjectiles {
		w.projectiles.Remove(id)
	}
	w.deadProjectiles = w.deadProjectiles[:0]
	for _, id := range w.deadExplosions {
		w.explosions.Remove(id)
	}
	w.deadExplosions = w.deadExplosions[:0]
	for _, id := range w.deadSentryGuns {
		w.sentryGuns.Remove(id)
	}
	w.deadSentryGuns = w.deadSentryGuns[:0]
}

func (w *World) markProjectileDead(id ProjectileID) {
	for _, d := range w.deadProjectiles {
		if d == id {
			return
		}
	}
	w.deadProjectiles = append(w.deadProjectiles, id)
}

func (w *World) markExplosionDead(id ExplosionID) {
	for _, d := range w.deadExplosions {
		if d == id {
			return
		}
	}
	w.deadExplosions = append(w.deadExplosions, id)
}

func (w *World) markSentryGunDead(id SentryGunID) {
	for _, d := range w.deadSentryGuns {
		if d == id {
			return
		}
	}
	w.deadSentryGuns = append(w.deadSentryGuns, id)
}
