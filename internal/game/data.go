package game

import "gridfort/internal/wire"

// Team is a closed byte enumeration. Out-of-range wire values invalidate
// the input stream.
type Team uint8

const (
	TeamNone Team = iota
	TeamRed
	TeamBlue
	TeamSpectators
	teamCount
)

func (t Team) Valid() bool { return t < teamCount }

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "RED"
	case TeamBlue:
		return "BLU"
	case TeamSpectators:
		return "Spectators"
	}
	return "None"
}

// Opponent returns the opposing combat team, or TeamNone for non-combat
// teams.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	}
	return TeamNone
}

func (t Team) Encode(w wire.Sink) { w.WriteU8(uint8(t)) }

func DecodeTeam(r *wire.Reader) Team {
	t := Team(r.U8())
	if !t.Valid() {
		r.Invalidate()
		return TeamNone
	}
	return t
}

// PlayerClass is a closed byte enumeration.
type PlayerClass uint8

const (
	ClassNone PlayerClass = iota
	ClassScout
	ClassSoldier
	ClassPyro
	ClassDemoman
	ClassHeavy
	ClassEngineer
	ClassMedic
	ClassSniper
	ClassSpy
	ClassSpectator
	classCount
)

func (c PlayerClass) Valid() bool { return c < classCount }

func (c PlayerClass) String() string {
	if stats, ok := classStats[c]; ok {
		return stats.Name
	}
	return "None"
}

func (c PlayerClass) Encode(w wire.Sink) { w.WriteU8(uint8(c)) }

func DecodePlayerClass(r *wire.Reader) PlayerClass {
	c := PlayerClass(r.U8())
	if !c.Valid() {
		r.Invalidate()
		return ClassNone
	}
	return c
}

// ClassStats are the per-class gameplay constants.
type ClassStats struct {
	Name            string
	Health          int32
	MoveInterval    float64
	Limit           int
	PrimaryWeapon   Weapon
	SecondaryWeapon Weapon
}

var classStats = map[PlayerClass]ClassStats{
	ClassSpectator: {"Spectator", 0, 0.06, 100, WeaponNone, WeaponNone},
	ClassScout:     {"Scout", 125, 0.11, 100, WeaponScattergun, WeaponNone},
	ClassSoldier:   {"Soldier", 200, 0.17, 100, WeaponRocketLauncher, WeaponShotgun},
	ClassPyro:      {"Pyro", 175, 0.16, 100, WeaponFlameThrower, WeaponNone},
	ClassDemoman:   {"Demoman", 175, 0.16, 100, WeaponStickybombLauncher, WeaponStickyDetonator},
	ClassHeavy:     {"Heavy", 300, 0.23, 100, WeaponMinigun, WeaponNone},
	ClassEngineer:  {"Engineer", 125, 0.15, 100, WeaponShotgun, WeaponBuildTool},
	ClassMedic:     {"Medic", 150, 0.13, 100, WeaponMediGun, WeaponSyringeGun},
	ClassSniper:    {"Sniper", 125, 0.15, 100, WeaponSniperRifle, WeaponNone},
	ClassSpy:       {"Spy", 125, 0.15, 100, WeaponKnife, WeaponDisguiseKit},
}

// Stats returns the gameplay constants for the class. The zero value is
// returned for ClassNone.
func (c PlayerClass) Stats() ClassStats { return classStats[c] }

// Playable reports whether the class takes part in combat.
func (c PlayerClass) Playable() bool {
	return c != ClassNone && c != ClassSpectator
}

// Weapon is a closed byte enumeration.
type Weapon uint8

const (
	WeaponNone Weapon = iota
	WeaponScattergun
	WeaponRocketLauncher
	WeaponFlameThrower
	WeaponStickybombLauncher
	WeaponMinigun
	WeaponShotgun
	WeaponSyringeGun
	WeaponSniperRifle
	WeaponKnife
	WeaponBuildTool
	WeaponMediGun
	WeaponDisguiseKit
	WeaponSentryGun
	WeaponStickyDetonator
	weaponCount
)

func (wp Weapon) Valid() bool { return wp < weaponCount }

func (wp Weapon) String() string {
	if stats, ok := weaponStats[wp]; ok {
		return stats.Name
	}
	return "None"
}

func (wp Weapon) Encode(w wire.Sink) { w.WriteU8(uint8(wp)) }

func DecodeWeapon(r *wire.Reader) Weapon {
	wp := Weapon(r.U8())
	if !wp.Valid() {
		r.Invalidate()
		return WeaponNone
	}
	return wp
}

// WeaponStats are the per-weapon gameplay constants. Negative damage heals.
type WeaponStats struct {
	Name           string
	AmmoPerShot    int32
	AmmoPerClip    int32
	Damage         int32
	ShootInterval  float64
	ReloadDelay    float64
	ProjectileType ProjectileType
	ShootSound     SoundID
	HurtSound      SoundID
	ReloadSound    SoundID
}

var weaponStats = map[Weapon]WeaponStats{
	WeaponScattergun:         {"Scattergun", 1, 6, 50, 0.7, 0.7, ProjectileBullet, SoundShootScattergun, SoundPlayerHurt, SoundReloadScattergun},
	WeaponRocketLauncher:     {"Rocket Launcher", 1, 4, 150, 0.8, 0.8, ProjectileRocket, SoundShootRocket, SoundPlayerHurt, SoundReloadRocket},
	WeaponFlameThrower:       {"Flamethrower", 2, 200, 40, 0.1, 1.0, ProjectileFlame, SoundShootFlame, SoundPlayerHurtFlame, SoundNone},
	WeaponStickybombLauncher: {"Stickybomb Launcher", 1, 8, 150, 0.6, 0.8, ProjectileSticky, SoundShootSticky, SoundPlayerHurt, SoundReloadSticky},
	WeaponMinigun:            {"Minigun", 2, 200, 30, 0.133333, 1.0, ProjectileBullet, SoundShootMinigun, SoundPlayerHurt, SoundNone},
	WeaponShotgun:            {"Shotgun", 1, 6, 45, 0.7, 1.0, ProjectileBullet, SoundShootShotgun, SoundPlayerHurt, SoundReloadShotgun},
	WeaponSyringeGun:         {"Syringe Gun", 1, 40, 15, 0.12, 0.7, ProjectileSyringe, SoundShootSyringe, SoundPlayerHurt, SoundNone},
	WeaponSniperRifle:        {"Sniper Rifle", 1, 1, 150, 2.0, 0, ProjectileSniperTrail, SoundShootSniper, SoundPlayerHurt, SoundReloadSniper},
	WeaponKnife:              {"Knife", 1, 1, 500, 2.0, 0, ProjectileNone, SoundNone, SoundSpyKill, SoundNone},
	WeaponBuildTool:          {"Build Tool", 130, 200, 0, 1.0, 9.0, ProjectileNone, SoundSentryBuild, SoundNone, SoundNone},
	WeaponMediGun:            {"Medi Gun", 1, 1, -50, 0.166667, 0, ProjectileHealBeam, SoundShootHealBeam, SoundPlayerHeal, SoundNone},
	WeaponDisguiseKit:        {"Disguise Kit", 1, 1, 0, 1.0, 0, ProjectileNone, SoundSpyDisguise, SoundNone, SoundNone},
	WeaponSentryGun:          {"Sentry Gun", 1, 1, 40, 0.2, 0, ProjectileBullet, SoundShootSentry, SoundPlayerHurt, SoundNone},
	WeaponStickyDetonator:    {"Stickybomb Detonator", 1, 1, 0, 0.001, 0, ProjectileNone, SoundNone, SoundNone, SoundNone},
}

// Stats returns the gameplay constants for the weapon.
func (wp Weapon) Stats() WeaponStats { return weaponStats[wp] }

// ProjectileType is a closed byte enumeration.
type ProjectileType uint8

const (
	ProjectileNone ProjectileType = iota
	ProjectileBullet
	ProjectileRocket
	ProjectileSticky
	ProjectileFlame
	ProjectileHealBeam
	ProjectileSyringe
	ProjectileSniperTrail
	projectileTypeCount
)

func (p ProjectileType) Valid() bool { return p < projectileTypeCount }

func (p ProjectileType) Encode(w wire.Sink) { w.WriteU8(uint8(p)) }

func DecodeProjectileType(r *wire.Reader) ProjectileType {
	p := ProjectileType(r.U8())
	if !p.Valid() {
		r.Invalidate()
		return ProjectileNone
	}
	return p
}

// ProjectileStats are the per-projectile-type movement constants.
type ProjectileStats struct {
	MoveInterval  float64
	DisappearTime float64
	Char          byte
}

var projectileStats = map[ProjectileType]ProjectileStats{
	ProjectileBullet:      {0.01666, 0.6, '*'},
	ProjectileRocket:      {0.04, 1.5, 'o'},
	ProjectileSticky:      {0.082, 0.7, 'B'},
	ProjectileFlame:       {0.06, 0.5, 'f'},
	ProjectileHealBeam:    {0.06, 0.5, '+'},
	ProjectileSyringe:     {0.03, 0.7, '-'},
	ProjectileSniperTrail: {0, 0.1, 'x'},
}

func (p ProjectileType) Stats() ProjectileStats { return projectileStats[p] }

// SoundID is a closed byte enumeration of game sound events.
type SoundID uint8

const (
	SoundNone SoundID = iota
	SoundPlayerSpawn
	SoundPlayerDeath
	SoundWePickedIntel
	SoundTheyPickedIntel
	SoundWeDroppedIntel
	SoundTheyDroppedIntel
	SoundWeReturnedIntel
	SoundTheyReturnedIntel
	SoundWeCapturedIntel
	SoundTheyCapturedIntel
	SoundSentryBuild
	SoundSentryDeath
	SoundMedkitSpawn
	SoundMedkitCollect
	SoundExplosion
	SoundHitsound
	SoundDryFire
	SoundShootScattergun
	SoundShootRocket
	SoundShootFlame
	SoundShootSticky
	SoundShootMinigun
	SoundShootShotgun
	SoundShootHealBeam
	SoundShootSyringe
	SoundShootSniper
	SoundShootSentry
	SoundReloadRocket
	SoundReloadScattergun
	SoundReloadShotgun
	SoundReloadSniper
	SoundReloadSticky
	SoundSpyKill
	SoundPlayerHurt
	SoundPlayerHeal
	SoundPlayerHurtFlame
	SoundSentryHurt
	SoundVictory
	SoundDefeat
	SoundChatMessage
	SoundResupply
	SoundSpyDisguise
	SoundStalemate
	SoundPushCart
	soundCount
)

func (s SoundID) Valid() bool { return s < soundCount }

func (s SoundID) Encode(w wire.Sink) { w.WriteU8(uint8(s)) }

func DecodeSoundID(r *wire.Reader) SoundID {
	s := SoundID(r.U8())
	if !s.Valid() {
		r.Invalidate()
		return SoundNone
	}
	return s
}

// Hat is a closed byte enumeration of cosmetic hats.
type Hat uint8

const (
	HatNone Hat = iota
	HatGhastlyGibus
	HatTroublemakersTossleCap
	HatToweringPillarOfHats
	HatScotsmansStovePipe
	HatGlengarryBonnet
	HatPartyHat
	HatCharmersChapeau
	HatBattersHelmet
	HatOfficersUshanka
	HatPotassiumBonnet
	HatKillersKabuto
	HatTriboniophorusTyrannus
	HatVintageTyrolean
	HatAnger
	HatModestPileOfHat
	HatARatherFestiveTree
	HatBoxcarBomber
	HatEllisCap
	HatTexasTenGallon
	hatCount
)

func (h Hat) Valid() bool { return h < hatCount }

func (h Hat) Encode(w wire.Sink) { w.WriteU8(uint8(h)) }

func DecodeHat(r *wire.Reader) Hat {
	h := Hat(r.U8())
	if !h.Valid() {
		r.Invalidate()
		return HatNone
	}
	return h
}

// hatDropWeights drive the random hat awarded on join.
var hatDropWeights = map[Hat]float64{
	HatGhastlyGibus:           200,
	HatTroublemakersTossleCap: 50,
	HatToweringPillarOfHats:   100,
	HatScotsmansStovePipe:     100,
	HatGlengarryBonnet:        100,
	HatPartyHat:               150,
	HatCharmersChapeau:        75,
	HatBattersHelmet:          100,
	HatOfficersUshanka:        200,
	HatPotassiumBonnet:        50,
	HatKillersKabuto:          100,
	HatTriboniophorusTyrannus: 100,
	HatVintageTyrolean:        100,
	HatAnger:                  75,
	HatModestPileOfHat:        200,
	HatARatherFestiveTree:     100,
	HatBoxcarBomber:           100,
	HatEllisCap:               100,
	HatTexasTenGallon:         100,
}

// PickHat maps a roll in [0, 1) to a hat according to the drop weights.
func PickHat(roll float64) Hat {
	var total float64
	for _, w := range hatDropWeights {
		total += w
	}
	target := roll * total
	for h := HatGhastlyGibus; h < hatCount; h++ {
		target -= hatDropWeights[h]
		if target < 0 {
			return h
		}
	}
	return HatGhastlyGibus
}
