// Package bot implements the server-hosted AI policy. A bot is a pure
// function over the same snapshot a human client renders, emitting the
// same action bitmask a human client sends; it gets no extra information
// from the world.
package bot

import "gridfort/internal/game"

// engageRange is how close an enemy has to be before the bot opens fire.
const engageRange = 12

// Think maps a snapshot to the bot's next action bitmask.
func Think(snap *game.Snapshot) uint16 {
	self := &snap.SelfPlayer
	if !self.Alive {
		return 0
	}

	var actions uint16

	if target, ok := nearestEnemy(snap); ok {
		d := target.Sub(self.Position)
		actions |= aimToward(d)
		if onAxis(d) && within(d, engageRange) {
			actions |= game.ActionAttack1
		} else {
			actions |= moveToward(d)
		}
		return actions
	}

	if goal, ok := objective(snap); ok {
		d := goal.Sub(self.Position)
		actions |= moveToward(d)
		actions |= aimToward(d)
	}
	return actions
}

// nearestEnemy picks the closest visible player not on the bot's team.
func nearestEnemy(snap *game.Snapshot) (game.Vec2, bool) {
	self := &snap.SelfPlayer
	var best game.Vec2
	var bestDist int32 = -1
	for i := range snap.Players {
		p := &snap.Players[i]
		if p.Team == self.Team || p.Team == game.TeamSpectators {
			continue
		}
		d := p.Position.DistanceSquared(self.Position)
		if bestDist < 0 || d < bestDist {
			best = p.Position
			bestDist = d
		}
	}
	return best, bestDist >= 0
}

// objective picks the first flag not owned by the bot's team, or else the
// first flag of any team.
func objective(snap *game.Snapshot) (game.Vec2, bool) {
	self := &snap.SelfPlayer
	for i := range snap.Flags {
		if snap.Flags[i].Team != self.Team {
			return snap.Flags[i].Position, true
		}
	}
	if len(snap.Flags) > 0 {
		return snap.Flags[0].Position, true
	}
	return game.Vec2{}, false
}

func moveToward(d game.Vec2) uint16 {
	var a uint16
	if d.X < 0 {
		a |= game.ActionMoveLeft
	}
	if d.X > 0 {
		a |= game.ActionMoveRight
	}
	if d.Y < 0 {
		a |= game.ActionMoveUp
	}
	if d.Y > 0 {
		a |= game.ActionMoveDown
	}
	return a
}

// aimToward prefers the dominant axis so shots line up with the grid.
func aimToward(d game.Vec2) uint16 {
	abs := func(v int16) int16 {
		if v < 0 {
			return -v
		}
		return v
	}
	if abs(d.X) >= abs(d.Y) && d.X != 0 {
		if d.X < 0 {
			return game.ActionAimLeft
		}
		return game.ActionAimRight
	}
	if d.Y < 0 {
		return game.ActionAimUp
	}
	if d.Y > 0 {
		return game.ActionAimDown
	}
	return game.ActionAimRight
}

func onAxis(d game.Vec2) bool { return d.X == 0 || d.Y == 0 }

func within(d game.Vec2, r int32) bool {
	return int32(d.X)*int32(d.X)+int32(d.Y)*int32(d.Y) <= r*r
}
