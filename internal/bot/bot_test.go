package bot

import (
	"testing"

	"gridfort/internal/game"
)

func selfAt(x, y int16) game.SelfPlayer {
	return game.SelfPlayer{
		Position: game.Vec2{X: x, Y: y},
		Team:     game.TeamRed,
		Alive:    true,
		Class:    game.ClassSoldier,
	}
}

// TestDeadBotIdles verifies a dead bot emits no actions.
func TestDeadBotIdles(t *testing.T) {
	snap := game.Snapshot{SelfPlayer: selfAt(0, 0)}
	snap.SelfPlayer.Alive = false
	if got := Think(&snap); got != 0 {
		t.Fatalf("actions = %#x, want 0", got)
	}
}

// TestEngagesAlignedEnemy verifies the bot fires at an enemy on its
// shooting axis.
func TestEngagesAlignedEnemy(t *testing.T) {
	snap := game.Snapshot{
		SelfPlayer: selfAt(10, 10),
		Players: []game.VisiblePlayer{
			{Position: game.Vec2{X: 15, Y: 10}, Team: game.TeamBlue, Name: "Enemy"},
		},
	}
	got := Think(&snap)
	if got&game.ActionAttack1 == 0 {
		t.Fatal("bot should fire at an aligned enemy in range")
	}
	if got&game.ActionAimRight == 0 {
		t.Fatal("bot should aim toward the enemy")
	}
}

// TestChasesOffAxisEnemy verifies movement toward a diagonal enemy
// without firing wide.
func TestChasesOffAxisEnemy(t *testing.T) {
	snap := game.Snapshot{
		SelfPlayer: selfAt(10, 10),
		Players: []game.VisiblePlayer{
			{Position: game.Vec2{X: 14, Y: 14}, Team: game.TeamBlue, Name: "Enemy"},
		},
	}
	got := Think(&snap)
	if got&game.ActionAttack1 != 0 {
		t.Fatal("bot must not fire off-axis")
	}
	if got&game.ActionMoveRight == 0 || got&game.ActionMoveDown == 0 {
		t.Fatalf("bot should chase diagonally, got %#x", got)
	}
}

// TestIgnoresTeammates verifies teammates are not targets.
func TestIgnoresTeammates(t *testing.T) {
	snap := game.Snapshot{
		SelfPlayer: selfAt(10, 10),
		Players: []game.VisiblePlayer{
			{Position: game.Vec2{X: 11, Y: 10}, Team: game.TeamRed, Name: "Friend"},
		},
		Flags: []game.VisibleFlag{
			{Position: game.Vec2{X: 50, Y: 10}, Team: game.TeamBlue},
		},
	}
	got := Think(&snap)
	if got&game.ActionAttack1 != 0 {
		t.Fatal("bot fired at a teammate")
	}
	if got&game.ActionMoveRight == 0 {
		t.Fatal("bot should head for the enemy flag instead")
	}
}

// TestPrefersNearestEnemy verifies target selection by distance.
func TestPrefersNearestEnemy(t *testing.T) {
	snap := game.Snapshot{
		SelfPlayer: selfAt(10, 10),
		Players: []game.VisiblePlayer{
			{Position: game.Vec2{X: 40, Y: 10}, Team: game.TeamBlue, Name: "Far"},
			{Position: game.Vec2{X: 10, Y: 13}, Team: game.TeamBlue, Name: "Near"},
		},
	}
	got := Think(&snap)
	if got&game.ActionAimDown == 0 {
		t.Fatalf("bot should engage the nearer enemy below, got %#x", got)
	}
}
