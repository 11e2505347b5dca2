package game

import (
	"bytes"
	"math/rand"
	"testing"

	"gridfort/internal/wire"
)

func randomSnapshot(rng *rand.Rand) Snapshot {
	randVec := func() Vec2 {
		return Vec2{int16(rng.Intn(200) - 100), int16(rng.Intn(200) - 100)}
	}
	randTeam := func() Team { return Team(rng.Intn(int(teamCount))) }

	s := Snapshot{
		TickCount:        rng.Uint32(),
		RoundSecondsLeft: uint32(rng.Intn(300)),
		SelfPlayer: SelfPlayer{
			Position:      randVec(),
			Team:          randTeam(),
			SkinTeam:      randTeam(),
			Alive:         rng.Intn(2) == 0,
			AimDirection:  Direction(rng.Intn(16)),
			Class:         PlayerClass(rng.Intn(int(classCount))),
			Health:        int32(rng.Intn(300)),
			PrimaryAmmo:   int32(rng.Intn(200)),
			SecondaryAmmo: int32(rng.Intn(200)),
			Hat:           Hat(rng.Intn(int(hatCount))),
		},
	}
	for i := 0; i < rng.Intn(4); i++ {
		s.FlagInfo = append(s.FlagInfo, FlagInfo{Team: randTeam(), Score: int32(rng.Intn(5))})
		s.Flags = append(s.Flags, VisibleFlag{Position: randVec(), Team: randTeam()})
	}
	for i := 0; i < rng.Intn(5); i++ {
		s.PlayerInfo = append(s.PlayerInfo, PlayerInfo{
			ID:    PlayerID(rng.Uint32()),
			Team:  randTeam(),
			Score: int32(rng.Intn(50)),
			Class: PlayerClass(rng.Intn(int(classCount))),
			Ping:  uint32(rng.Intn(200)),
			Name:  "p" + string(rune('a'+rng.Intn(26))),
		})
		s.Players = append(s.Players, VisiblePlayer{
			Position:     randVec(),
			Team:         randTeam(),
			AimDirection: Direction(rng.Intn(16)),
			Class:        PlayerClass(rng.Intn(int(classCount))),
			Hat:          Hat(rng.Intn(int(hatCount))),
			Name:         "p" + string(rune('a'+rng.Intn(26))),
		})
	}
	for i := 0; i < rng.Intn(4); i++ {
		s.Projectiles = append(s.Projectiles, VisibleProjectile{
			Position: randVec(),
			Team:     randTeam(),
			Type:     ProjectileType(rng.Intn(int(projectileTypeCount))),
			Owner:    PlayerID(rng.Uint32()),
		})
	}
	for i := 0; i < rng.Intn(3); i++ {
		s.Medkits = append(s.Medkits, VisibleMedkit{Position: randVec()})
		s.Ammopacks = append(s.Ammopacks, VisibleAmmopack{Position: randVec()})
		s.Explosions = append(s.Explosions, VisibleExplosion{Position: randVec(), Team: randTeam()})
		s.Corpses = append(s.Corpses, VisibleCorpse{Position: randVec(), Team: randTeam()})
	}
	return s
}

// mutateSnapshot makes a plausible between-tick change.
func mutateSnapshot(rng *rand.Rand, s *Snapshot) {
	s.TickCount++
	for i := range s.Players {
		if rng.Intn(2) == 0 {
			s.Players[i].Position.X++
		}
	}
	for i := range s.Projectiles {
		s.Projectiles[i].Position.Y--
	}
	if rng.Intn(3) == 0 && len(s.Projectiles) > 0 {
		s.Projectiles = s.Projectiles[:len(s.Projectiles)-1]
	}
	if rng.Intn(3) == 0 {
		s.Projectiles = append(s.Projectiles, VisibleProjectile{
			Position: Vec2{1, 2}, Team: TeamRed, Type: ProjectileBullet, Owner: 1,
		})
	}
	s.SelfPlayer.Health -= int32(rng.Intn(10))
}

// TestSnapshotEncodeRoundTrip verifies full-snapshot encode/decode.
func TestSnapshotEncodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		s := randomSnapshot(rng)
		w := wire.NewWriter(0)
		s.Encode(w)

		var got Snapshot
		r := wire.NewReader(w.Bytes())
		got.Decode(r)
		if !r.Valid() || r.Remaining() != 0 {
			t.Fatalf("decode failed: valid=%v remaining=%d", r.Valid(), r.Remaining())
		}
		if !got.Equal(&s) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, s)
		}
	}
}

// TestDeltaIdentity verifies the zero delta is a no-op that emits only
// the nothing-changed masks.
func TestDeltaIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := randomSnapshot(rng)

	w := wire.NewWriter(0)
	s.DeltaEncode(w, &s)
	if len(w.Bytes()) != 2 {
		t.Fatalf("zero delta should be a bare u16 mask, got %d bytes", len(w.Bytes()))
	}

	applied := s.Clone()
	r := wire.NewReader(w.Bytes())
	applied.DeltaDecode(r)
	if !r.Valid() || r.Remaining() != 0 {
		t.Fatal("zero delta failed to decode")
	}
	if !applied.Equal(&s) {
		t.Fatal("zero delta changed the snapshot")
	}
}

// TestDeltaConsistency verifies delta(a, b) applied to a copy of a yields
// exactly b, over many random mutations.
func TestDeltaConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 100; i++ {
		a := randomSnapshot(rng)
		b := a.Clone()
		mutateSnapshot(rng, &b)

		w := wire.NewWriter(0)
		b.DeltaEncode(w, &a)

		applied := a.Clone()
		r := wire.NewReader(w.Bytes())
		applied.DeltaDecode(r)
		if !r.Valid() || r.Remaining() != 0 {
			t.Fatalf("delta decode failed: valid=%v remaining=%d", r.Valid(), r.Remaining())
		}
		if !applied.Equal(&b) {
			t.Fatalf("delta application mismatch at iteration %d", i)
		}
	}
}

// TestDeltaMovingProjectile pins the scenario of one projectile stepping
// one tile between ticks.
func TestDeltaMovingProjectile(t *testing.T) {
	tickT := Snapshot{
		TickCount: 100,
		Projectiles: []VisibleProjectile{
			{Position: Vec2{10, 10}, Type: ProjectileBullet, Team: TeamRed, Owner: 1},
		},
	}
	tickT1 := tickT.Clone()
	tickT1.TickCount = 101
	tickT1.Projectiles[0].Position = Vec2{11, 10}

	w := wire.NewWriter(0)
	tickT1.DeltaEncode(w, &tickT)

	applied := tickT.Clone()
	r := wire.NewReader(w.Bytes())
	applied.DeltaDecode(r)
	if !r.Valid() {
		t.Fatal("delta decode failed")
	}
	if !applied.Equal(&tickT1) {
		t.Fatalf("applied snapshot != tick T+1:\n got %+v\nwant %+v", applied, tickT1)
	}
	// The delta must be much smaller than the full snapshot.
	full := wire.NewWriter(0)
	tickT1.Encode(full)
	if len(w.Bytes()) >= len(full.Bytes()) {
		t.Fatalf("delta (%d bytes) not smaller than full (%d bytes)", len(w.Bytes()), len(full.Bytes()))
	}
}

// TestDeltaGrowShrink exercises element-count changes in both directions.
func TestDeltaGrowShrink(t *testing.T) {
	a := Snapshot{TickCount: 1}
	for i := 0; i < 10; i++ {
		a.Medkits = append(a.Medkits, VisibleMedkit{Position: Vec2{int16(i), 0}})
	}

	t.Run("shrink", func(t *testing.T) {
		b := a.Clone()
		b.TickCount = 2
		b.Medkits = b.Medkits[:3]
		checkDelta(t, a, b)
	})
	t.Run("grow past one mask chunk", func(t *testing.T) {
		b := a.Clone()
		b.TickCount = 2
		for i := 10; i < 20; i++ {
			b.Medkits = append(b.Medkits, VisibleMedkit{Position: Vec2{int16(i), 1}})
		}
		checkDelta(t, a, b)
	})
	t.Run("empty", func(t *testing.T) {
		b := a.Clone()
		b.TickCount = 2
		b.Medkits = nil
		checkDelta(t, a, b)
	})
}

func checkDelta(t *testing.T, a, b Snapshot) {
	t.Helper()
	w := wire.NewWriter(0)
	b.DeltaEncode(w, &a)
	applied := a.Clone()
	r := wire.NewReader(w.Bytes())
	applied.DeltaDecode(r)
	if !r.Valid() || r.Remaining() != 0 {
		t.Fatalf("delta decode failed: valid=%v remaining=%d", r.Valid(), r.Remaining())
	}
	if !applied.Equal(&b) {
		t.Fatal("applied snapshot does not match target")
	}
}

// TestEncodeDeterministic verifies repeated encodes produce identical
// bytes.
func TestEncodeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	s := randomSnapshot(rng)
	w1 := wire.NewWriter(0)
	w2 := wire.NewWriter(1024)
	s.Encode(w1)
	s.Encode(w2)
	if !bytes.Equal(w1.Bytes(), w2.Bytes()) {
		t.Fatal("encoding is not deterministic across buffers")
	}
}
