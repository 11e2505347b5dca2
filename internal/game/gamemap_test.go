package game

import "testing"

const wellMap = `#########
#R  F   #
#r     b#
#   f  B#
#  + a  #
#########`

// TestLoadMapExtractsEntities verifies marker tiles become spawn
// metadata and read back as floor.
func TestLoadMapExtractsEntities(t *testing.T) {
	m := LoadMap("well", []byte(wellMap))

	if len(m.RedSpawns) != 1 || m.RedSpawns[0] != (Vec2{1, 1}) {
		t.Fatalf("red spawns = %v", m.RedSpawns)
	}
	if len(m.BlueSpawns) != 1 || m.BlueSpawns[0] != (Vec2{7, 3}) {
		t.Fatalf("blue spawns = %v", m.BlueSpawns)
	}
	if len(m.RedFlags) != 1 || m.RedFlags[0] != (Vec2{4, 1}) {
		t.Fatalf("red flags = %v", m.RedFlags)
	}
	if len(m.BlueFlags) != 1 || m.BlueFlags[0] != (Vec2{4, 3}) {
		t.Fatalf("blue flags = %v", m.BlueFlags)
	}
	if len(m.Medkits) != 1 || len(m.Ammopacks) != 1 {
		t.Fatalf("pickups = %v %v", m.Medkits, m.Ammopacks)
	}

	// Marker tiles must not be solid.
	if m.IsSolid(Vec2{1, 1}, TeamRed) {
		t.Fatal("spawn tile should be walkable")
	}
}

// TestSpawnGates verifies gates are solid only to the opposing team.
func TestSpawnGates(t *testing.T) {
	m := LoadMap("well", []byte(wellMap))
	redGate := Vec2{1, 2}
	blueGate := Vec2{7, 2}

	if m.IsSolid(redGate, TeamRed) {
		t.Fatal("red gate should open for red")
	}
	if !m.IsSolid(redGate, TeamBlue) {
		t.Fatal("red gate should block blue")
	}
	if m.IsSolid(blueGate, TeamBlue) {
		t.Fatal("blue gate should open for blue")
	}
	if !m.IsSolid(blueGate, TeamRed) {
		t.Fatal("blue gate should block red")
	}
}

// TestOutOfBoundsIsSolid verifies positions off the grid block everyone.
func TestOutOfBoundsIsSolid(t *testing.T) {
	m := LoadMap("well", []byte(wellMap))
	for _, pos := range []Vec2{{-1, 0}, {0, -1}, {100, 0}, {0, 100}} {
		if !m.IsSolid(pos, TeamRed) {
			t.Fatalf("%v should be solid", pos)
		}
	}
}

// TestMapHashChangesWithContent verifies the hash detects edits.
func TestMapHashChangesWithContent(t *testing.T) {
	a := LoadMap("well", []byte(wellMap))
	b := LoadMap("well", []byte(wellMap+" "))
	if a.Hash == b.Hash {
		t.Fatal("different content must hash differently")
	}
}
