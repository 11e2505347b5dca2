package game

import (
	"hash/crc32"
	"strings"
)

// Map tile characters. Spawn gates are solid only to the opposing team, so
// a team cannot be camped inside its own spawn room.
const (
	tileWall     = '#'
	tileRedGate  = 'r'
	tileBlueGate = 'b'
	tileRedSpawn  = 'R'
	tileBlueSpawn = 'B'
	tileMedkit    = '+'
	tileAmmopack  = 'a'
	tileRedFlag   = 'F'
	tileBlueFlag  = 'f'
)

// Map is the static tile geometry plus the entity spawn metadata parsed
// from a map file. It is read-only during a tick and shared between the
// server and the world.
type Map struct {
	Name string
	Hash uint32
	Data []byte // raw file bytes, served to downloading clients

	grid TileMatrix

	RedSpawns  []Vec2
	BlueSpawns []Vec2
	Medkits    []Vec2
	Ammopacks  []Vec2
	RedFlags   []Vec2
	BlueFlags  []Vec2
}

// LoadMap parses map data from an already-loaded byte slice. The format is
// a plain character grid, one row per line.
func LoadMap(name string, data []byte) *Map {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	w := 0
	for _, line := range lines {
		if len(line) > w {
			w = len(line)
		}
	}
	m := &Map{
		Name: name,
		Hash: crc32.ChecksumIEEE(data),
		Data: data,
		grid: NewTileMatrix(int16(w), int16(len(lines)), ' '),
	}
	for y, line := range lines {
		for x := 0; x < len(line); x++ {
			ch := line[x]
			pos := Vec2{int16(x), int16(y)}
			switch ch {
			case tileRedSpawn:
				m.RedSpawns = append(m.RedSpawns, pos)
				ch = ' '
			case tileBlueSpawn:
				m.BlueSpawns = append(m.BlueSpawns, pos)
				ch = ' '
			case tileMedkit:
				m.Medkits = append(m.Medkits, pos)
				ch = ' '
			case tileAmmopack:
				m.Ammopacks = append(m.Ammopacks, pos)
				ch = ' '
			case tileRedFlag:
				m.RedFlags = append(m.RedFlags, pos)
				ch = ' '
			case tileBlueFlag:
				m.BlueFlags = append(m.BlueFlags, pos)
				ch = ' '
			}
			m.grid.Set(int16(x), int16(y), ch)
		}
	}
	return m
}

// Width returns the grid width in tiles.
func (m *Map) Width() int16 { return m.grid.W }

// Height returns the grid height in tiles.
func (m *Map) Height() int16 { return m.grid.H }

// IsSolid reports whether the tile blocks the given team. Positions
// outside the grid are solid.
func (m *Map) IsSolid(pos Vec2, team Team) bool {
	if pos.X < 0 || pos.Y < 0 || pos.X >= m.grid.W || pos.Y >= m.grid.H {
		return true
	}
	switch m.grid.At(pos.X, pos.Y) {
	case tileWall:
		return true
	case tileRedGate:
		return team != TeamRed
	case tileBlueGate:
		return team != TeamBlue
	}
	return false
}

// SpawnPoints returns the spawn tiles for a team.
func (m *Map) SpawnPoints(team Team) []Vec2 {
	switch team {
	case TeamRed:
		return m.RedSpawns
	case TeamBlue:
		return m.BlueSpawns
	}
	return nil
}
