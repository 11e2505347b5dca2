package game

// Snapshot is the complete observable world state from one player's point
// of view at one tick. The field order here is the wire schema: encoder
// and decoder walk the same fields in the same order, both for full
// encoding and for delta compression. Adding a field is a protocol break.
type Snapshot struct {
	TickCount        uint32
	RoundSecondsLeft uint32
	SelfPlayer       SelfPlayer
	FlagInfo         []FlagInfo
	CartInfo         []CartInfo
	PlayerInfo       []PlayerInfo
	Players          []VisiblePlayer
	Corpses          []VisibleCorpse
	SentryGuns       []VisibleSentryGun
	Projectiles      []VisibleProjectile
	Explosions       []VisibleExplosion
	Medkits          []VisibleMedkit
	Ammopacks        []VisibleAmmopack
	GenericEntities  []VisibleGenericEntity
	Flags            []VisibleFlag
	Carts            []VisibleCart
}

// SelfPlayer is the viewer's own record, including private state the
// renderable player list omits.
type SelfPlayer struct {
	Position      Vec2
	Team          Team
	SkinTeam      Team
	Alive         bool
	AimDirection  Direction
	Class         PlayerClass
	Health        int32
	PrimaryAmmo   int32
	SecondaryAmmo int32
	Hat           Hat
}

// FlagInfo is the scoreboard row for one flag.
type FlagInfo struct {
	Team  Team
	Score int32
}

// CartInfo is the scoreboard row for one payload cart.
type CartInfo struct {
	Team        Team
	Progress    uint16
	TrackLength uint16
}

// PlayerInfo is the scoreboard row for one player.
type PlayerInfo struct {
	ID    PlayerID
	Team  Team
	Score int32
	Class PlayerClass
	Ping  uint32
	Name  string
}

// VisiblePlayer is a renderable player.
type VisiblePlayer struct {
	Position     Vec2
	Team         Team
	AimDirection Direction
	Class        PlayerClass
	Hat          Hat
	Name         string
}

// VisibleCorpse is a renderable corpse.
type VisibleCorpse struct {
	Position Vec2
	Team     Team
}

// VisibleSentryGun is a renderable sentry gun.
type VisibleSentryGun struct {
	Position     Vec2
	Team         Team
	AimDirection Direction
	Owner        PlayerID
}

// VisibleProjectile is a renderable projectile.
type VisibleProjectile struct {
	Position Vec2
	Team     Team
	Type     ProjectileType
	Owner    PlayerID
}

// VisibleExplosion is a renderable explosion.
type VisibleExplosion struct {
	Position Vec2
	Team     Team
}

// VisibleMedkit is a renderable medkit.
type VisibleMedkit struct {
	Position Vec2
}

// VisibleAmmopack is a renderable ammopack.
type VisibleAmmopack struct {
	Position Vec2
}

// VisibleGenericEntity is a renderable generic entity.
type VisibleGenericEntity struct {
	Position Vec2
	Matrix   TileMatrix
	Color    uint32
}

// VisibleFlag is a renderable flag.
type VisibleFlag struct {
	Position Vec2
	Team     Team
}

// VisibleCart is a renderable payload cart.
type VisibleCart struct {
	Position Vec2
	Team     Team
}

// TakeSnapshot extracts the world state tailored for one player. Disguised
// enemy spies are shown with the viewer's team; the viewer's own private
// state goes into SelfPlayer.
func (w *World) TakeSnapshot(viewer PlayerID) Snapshot {
	snap := Snapshot{
		TickCount:        w.tick,
		RoundSecondsLeft: uint32(max(0, int64(w.roundTimeLeft))),
	}

	viewerTeam := TeamSpectators
	if vp := w.players.Find(viewer); vp != nil {
		viewerTeam = vp.Team
		snap.SelfPlayer = SelfPlayer{
			Position:      vp.Position,
			Team:          vp.Team,
			SkinTeam:      vp.SkinTeam(),
			Alive:         vp.Alive,
			AimDirection:  vp.AimDirection,
			Class:         vp.Class,
			Health:        vp.Health,
			PrimaryAmmo:   vp.PrimaryAmmo,
			SecondaryAmmo: vp.SecondaryAmmo,
			Hat:           vp.Hat,
		}
	}

	for _, id := range w.flags.IDs() {
		f := w.flags.Find(id)
		if f == nil {
			continue
		}
		snap.FlagInfo = append(snap.FlagInfo, FlagInfo{Team: f.Team, Score: f.Score})
		snap.Flags = append(snap.Flags, VisibleFlag{Position: f.Position, Team: f.Team})
	}
	for _, id := range w.carts.IDs() {
		c := w.carts.Find(id)
		if c == nil {
			continue
		}
		snap.CartInfo = append(snap.CartInfo, CartInfo{
			Team:        c.Team,
			Progress:    uint16(c.TrackIndex),
			TrackLength: uint16(len(c.Track)),
		})
		snap.Carts = append(snap.Carts, VisibleCart{Position: c.Position(), Team: c.Team})
	}

	for _, id := range w.players.IDs() {
		p := w.players.Find(id)
		if p == nil {
			continue
		}
		snap.PlayerInfo = append(snap.PlayerInfo, PlayerInfo{
			ID:    id,
			Team:  p.Team,
			Score: p.Score,
			Class: p.Class,
			Ping:  p.LatestPing,
			Name:  p.Name,
		})
		if id == viewer {
			continue
		}
		if p.Alive {
			shownTeam := p.Team
			if p.Disguised && p.Team != viewerTeam && viewerTeam != TeamSpectators {
				shownTeam = viewerTeam
			}
			snap.Players = append(snap.Players, VisiblePlayer{
				Position:     p.Position,
				Team:         shownTeam,
				AimDirection: p.AimDirection,
				Class:        p.Class,
				Hat:          p.Hat,
				Name:         p.Name,
			})
		} else if p.Class.Playable() {
			snap.Corpses = append(snap.Corpses, VisibleCorpse{Position: p.Position, Team: p.Team})
		}
	}

	for _, id := range w.sentryGuns.IDs() {
		s := w.sentryGuns.Find(id)
		if s == nil || !s.Alive {
			continue
		}
		snap.SentryGuns = append(snap.SentryGuns, VisibleSentryGun{
			Position:     s.Position,
			Team:         s.Team,
			AimDirection: s.AimDirection,
			Owner:        s.Owner,
		})
	}
	for _, id := range w.projectiles.IDs() {
		p := w.projectiles.Find(id)
		if p == nil {
			continue
		}
		snap.Projectiles = append(snap.Projectiles, VisibleProjectile{
			Position: p.Position,
			Team:     p.Team,
			Type:     p.Type,
			Owner:    p.Owner,
		})
	}
	for _, id := range w.explosions.IDs() {
		e := w.explosions.Find(id)
		if e == nil {
			continue
		}
		snap.Explosions = append(snap.Explosions, VisibleExplosion{Position: e.Position, Team: e.Team})
	}
	for _, id := range w.medkits.IDs() {
		mk := w.medkits.Find(id)
		if mk == nil || !mk.Alive {
			continue
		}
		snap.Medkits = append(snap.Medkits, VisibleMedkit{Position: mk.Position})
	}
	for _, id := range w.ammopacks.IDs() {
		ap := w.ammopacks.Find(id)
		if ap == nil || !ap.Alive {
			continue
		}
		snap.Ammopacks = append(snap.Ammopacks, VisibleAmmopack{Position: ap.Position})
	}
	for _, id := range w.generics.IDs() {
		g := w.generics.Find(id)
		if g == nil || !g.Visible {
			continue
		}
		snap.GenericEntities = append(snap.GenericEntities, VisibleGenericEntity{
			Position: g.Position,
			Matrix:   g.Matrix.Clone(),
			Color:    g.Color,
		})
	}
	return snap
}
