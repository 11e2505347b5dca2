package game

// colliderKind discriminates the entity kinds that can occupy a tile in
// the per-tick collision map.
type colliderKind uint8

const (
	collidePlayer colliderKind = iota
	collideProjectile
	collideExplosion
	collideSentryGun
	collideMedkit
	collideAmmopack
	collideFlag
	collideCart
	collideGeneric
)

// collider is one entry in the per-tick collision map: the occupying
// entity's kind, raw id and collision class.
type collider struct {
	kind  colliderKind
	id    uint32
	solid SolidFlags
}

type collisionMap map[Vec2][]collider

// rebuildCollisionMap rebuilds the tile occupancy index from scratch. The
// map is never mutated during the tick; entities removed mid-tick are
// flagged dead and swept in the cleanup phase instead.
func (w *World) rebuildCollisionMap() {
	for k := range w.collision {
		delete(w.collision, k)
	}
	add := func(pos Vec2, c collider) {
		w.collision[pos] = append(w.collision[pos], c)
	}

	for _, id := range w.players.IDs() {
		if p := w.players.Find(id); p != nil && p.Alive {
			add(p.Position, collider{collidePlayer, uint32(id), PlayerSolid(p.Team)})
		}
	}
	for _, id := range w.projectiles.IDs() {
		if p := w.projectiles.Find(id); p != nil {
			add(p.Position, collider{collideProjectile, uint32(id), ProjectileSolid(p.Team)})
		}
	}
	for _, id := range w.sentryGuns.IDs() {
		if s := w.sentryGuns.Find(id); s != nil && s.Alive {
			add(s.Position, collider{collideSentryGun, uint32(id), SentrySolid(s.Team)})
		}
	}
	for _, id := range w.medkits.IDs() {
		if mk := w.medkits.Find(id); mk != nil && mk.Alive {
			add(mk.Position, collider{collideMedkit, uint32(id), SolidMedkits})
		}
	}
	for _, id := range w.ammopacks.IDs() {
		if ap := w.ammopacks.Find(id); ap != nil && ap.Alive {
			add(ap.Position, collider{collideAmmopack, uint32(id), SolidAmmopacks})
		}
	}
	for _, id := range w.flags.IDs() {
		if f := w.flags.Find(id); f != nil && f.Carrier == PlayerIDUnconnected {
			add(f.Position, collider{collideFlag, uint32(id), FlagSolid(f.Team)})
		}
	}
	for _, id := range w.carts.IDs() {
		if c := w.carts.Find(id); c != nil {
			add(c.Position(), collider{collideCart, uint32(id), CartSolid(c.Team)})
		}
	}
	for _, id := range w.generics.IDs() {
		g := w.generics.Find(id)
		if g == nil {
			continue
		}
		for y := int16(0); y < g.Matrix.H; y++ {
			for x := int16(0); x < g.Matrix.W; x++ {
				if g.Matrix.At(x, y) != ' ' {
					add(g.Position.Add(Vec2{x, y}), collider{collideGeneric, uint32(id), SolidGenericEntities})
				}
			}
		}
	}
}

// tileBlocked reports whether the destination tile blocks a mover of the
// given team: map solidity first, then any collision-map occupant whose
// class intersects blockedBy. The mover's own entry is skipped via self.
func (w *World) tileBlocked(pos Vec2, team Team, blockedBy SolidFlags, self collider) bool {
	if w.gameMap.IsSolid(pos, team) {
		return true
	}
	for _, c := range w.collision[pos] {
		if c.kind == self.kind && c.id == self.id {
			continue
		}
		if c.solid&blockedBy != 0 {
			return true
		}
	}
	return false
}

// playerBlockedBy is the set of collision classes that stop a walking
// player: other players, sentries, carts and solid generic entities.
func playerBlockedBy() SolidFlags {
	return SolidRedPlayers | SolidBluePlayers | SolidRedSentries | SolidBlueSentries |
		SolidRedCarts | SolidBlueCarts | SolidGenericEntities
}

// canMove reports whether a step from pos in dir is legal for a mover of
// team. Diagonal motion requires at least one free cardinal component, so
// nothing cuts through a solid corner.
func (w *World) canMove(pos Vec2, team Team, noclip bool, blockedBy SolidFlags, self collider, dir Direction) bool {
	step := dir.Vec()
	if step.X == 0 && step.Y == 0 {
		return false
	}
	if noclip {
		dest := pos.Add(step)
		return dest.X >= 0 && dest.Y >= 0 && dest.X < w.gameMap.Width() && dest.Y < w.gameMap.Height()
	}
	if step.X != 0 && step.Y != 0 {
		hFree := !w.tileBlocked(pos.Add(Vec2{step.X, 0}), team, blockedBy, self)
		vFree := !w.tileBlocked(pos.Add(Vec2{0, step.Y}), team, blockedBy, self)
		if !hFree && !vFree {
			return false
		}
		return !w.tileBlocked(pos.Add(step), team, blockedBy, self)
	}
	return !w.tileBlocked(pos.Add(step), team, blockedBy, self)
}

// clippedDirection clamps a requested move to the furthest legal component
// in the requested direction: the full diagonal when allowed, otherwise a
// free cardinal component, otherwise nothing.
func (w *World) clippedDirection(pos Vec2, team Team, noclip bool, blockedBy SolidFlags, self collider, dir Direction) Direction {
	step := dir.Vec()
	if step.X == 0 && step.Y == 0 {
		return 0
	}
	if w.canMove(pos, team, noclip, blockedBy, self, dir) {
		return dir
	}
	if step.X != 0 && step.Y != 0 {
		h := dir.Horizontal()
		if w.canMove(pos, team, noclip, blockedBy, self, h) {
			return h
		}
		v := dir.Vertical()
		if w.canMove(pos, team, noclip, blockedBy, self, v) {
			return v
		}
	}
	return 0
}

// findFreeTile returns the first tile at or next to pos that does not
// block the given team, scanning outward. ok is false when nothing within
// two tiles is free.
func (w *World) findFreeTile(pos Vec2, team Team, blockedBy SolidFlags) (Vec2, bool) {
	for radius := int16(0); radius <= 2; radius++ {
		area := RectAround(pos, radius)
		for y := area.Min.Y; y <= area.Max.Y; y++ {
			for x := area.Min.X; x <= area.Max.X; x++ {
				p := Vec2{x, y}
				if !w.tileBlocked(p, team, blockedBy, collider{id: ^uint32(0)}) {
					return p, true
				}
			}
		}
	}
	return Vec2{}, false
}
