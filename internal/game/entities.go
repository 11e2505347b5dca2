package game

// Entity identifiers. Each kind has its own 32-bit id space; ids are never
// reused within a map lifetime. PlayerID 0 means unconnected.
type (
	PlayerID        uint32
	ProjectileID    uint32
	ExplosionID     uint32
	SentryGunID     uint32
	MedkitID        uint32
	AmmopackID      uint32
	GenericEntityID uint32
	FlagID          uint32
	PayloadCartID   uint32
)

// PlayerIDUnconnected is the reserved "no player" id.
const PlayerIDUnconnected PlayerID = 0

// Player is the authoritative server-side player entity.
type Player struct {
	Name     string
	Position Vec2

	Team        Team
	Class       PlayerClass
	Alive       bool
	Health      int32
	Score       int32
	Hat         Hat
	Disguised   bool
	Noclip      bool
	LatestPing  uint32 // most recent round-trip time, milliseconds
	NumStickies int

	MoveDirection Direction
	AimDirection  Direction
	Attack1       bool
	Attack2       bool

	BlastJumping       bool
	BlastJumpDirection Direction
	BlastJumpInterval  float64
	BlastJumpTimer     CountdownLoop
	BlastJumpCountdown Countdown

	Respawning       bool
	RespawnCountdown Countdown

	MoveTimer            CountdownLoop
	Attack1Cooldown      Countdown
	Attack2Cooldown      Countdown
	PrimaryReloadTimer   Countdown
	SecondaryReloadTimer Countdown
	PrimaryAmmo          int32
	SecondaryAmmo        int32
}

// SkinTeam is the team the player appears to belong to. A disguised spy
// shows up as the opposing team.
func (p *Player) SkinTeam() Team {
	if p.Disguised {
		return p.Team.Opponent()
	}
	return p.Team
}

// Projectile is a moving shot owned by a player or sentry gun.
type Projectile struct {
	Position       Vec2
	Type           ProjectileType
	Team           Team
	MoveDirection  Direction
	Owner          PlayerID
	Weapon         Weapon
	Damage         int32
	HurtSound      SoundID
	DisappearTimer Countdown
	MoveInterval   float64
	MoveTimer      CountdownLoop
	StickyAttached bool
}

// Explosion damages everything that enters its 3x3 area during its
// lifetime, at most once per entity.
type Explosion struct {
	Position          Vec2
	Team              Team
	Owner             PlayerID
	Weapon            Weapon
	Damage            int32
	HurtSound         SoundID
	DamagedPlayers    map[PlayerID]struct{}
	DamagedSentryGuns map[SentryGunID]struct{}
	DisappearTimer    Countdown
}

// SentryGun is an engineer-built automatic turret.
type SentryGun struct {
	Position     Vec2
	AimDirection Direction
	Team         Team
	Health       int32
	Owner        PlayerID
	ShootTimer   CountdownLoop
	DespawnTimer Countdown
	Alive        bool
}

// Medkit is a world pickup restoring health.
type Medkit struct {
	Position         Vec2
	RespawnCountdown Countdown
	Alive            bool
}

// Ammopack is a world pickup restoring ammo.
type Ammopack struct {
	Position         Vec2
	RespawnCountdown Countdown
	Alive            bool
}

// Flag is a capturable objective. Carrier 0 means uncarried.
type Flag struct {
	Name            string
	Position        Vec2
	SpawnPosition   Vec2
	Team            Team
	Score           int32
	Carrier         PlayerID
	ReturnCountdown Countdown
	Returning       bool
}

// PayloadCart moves along a fixed track when attackers stand next to it.
type PayloadCart struct {
	Team       Team
	Track      []Vec2
	TrackIndex int
	PushTimer  CountdownLoop
}

// Position returns the cart's current track point.
func (c *PayloadCart) Position() Vec2 {
	if len(c.Track) == 0 {
		return Vec2{}
	}
	return c.Track[c.TrackIndex]
}

// GenericEntity is a scripted solid body with a character-tile sprite.
type GenericEntity struct {
	Position     Vec2
	Velocity     Vec2
	Matrix       TileMatrix
	Color        uint32
	SolidFlags   SolidFlags
	MoveInterval float64
	MoveTimer    CountdownLoop
	Visible      bool
}
