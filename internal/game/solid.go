package game

// SolidFlags name the collision classes an entity occupies or collides
// with. The collision map intersects an entity's collides-with set with
// the flags of whatever sits on the destination tile.
type SolidFlags uint32

const SolidNone SolidFlags = 0

const (
	SolidWorld SolidFlags = 1 << iota
	SolidRedPlayers
	SolidBluePlayers
	SolidRedProjectiles
	SolidBlueProjectiles
	SolidRedExplosions
	SolidBlueExplosions
	SolidRedSentries
	SolidBlueSentries
	SolidMedkits
	SolidAmmopacks
	SolidRedFlags
	SolidBlueFlags
	SolidRedCarts
	SolidBlueCarts
	SolidGenericEntities
)

const (
	SolidRedAll  = SolidRedPlayers | SolidRedProjectiles | SolidRedExplosions | SolidRedSentries | SolidRedFlags | SolidRedCarts
	SolidBlueAll = SolidBluePlayers | SolidBlueProjectiles | SolidBlueExplosions | SolidBlueSentries | SolidBlueFlags | SolidBlueCarts
	SolidAll     = SolidWorld | SolidRedAll | SolidBlueAll | SolidMedkits | SolidAmmopacks | SolidGenericEntities
)

// PlayerSolid returns the occupancy class of a player on the given team.
func PlayerSolid(t Team) SolidFlags {
	switch t {
	case TeamRed:
		return SolidRedPlayers
	case TeamBlue:
		return SolidBluePlayers
	}
	return SolidNone
}

// ProjectileSolid returns the occupancy class of a projectile of a team.
func ProjectileSolid(t Team) SolidFlags {
	switch t {
	case TeamRed:
		return SolidRedProjectiles
	case TeamBlue:
		return SolidBlueProjectiles
	}
	return SolidNone
}

// SentrySolid returns the occupancy class of a sentry gun of a team.
func SentrySolid(t Team) SolidFlags {
	switch t {
	case TeamRed:
		return SolidRedSentries
	case TeamBlue:
		return SolidBlueSentries
	}
	return SolidNone
}

// FlagSolid returns the occupancy class of a flag owned by a team.
func FlagSolid(t Team) SolidFlags {
	switch t {
	case TeamRed:
		return SolidRedFlags
	case TeamBlue:
		return SolidBlueFlags
	}
	return SolidNone
}

// CartSolid returns the occupancy class of a payload cart pushed by a team.
func CartSolid(t Team) SolidFlags {
	switch t {
	case TeamRed:
		return SolidRedCarts
	case TeamBlue:
		return SolidBlueCarts
	}
	return SolidNone
}
