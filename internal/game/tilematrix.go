package game

import "gridfort/internal/wire"

// TileMatrix is a dense width x height character grid used for generic
// entity sprites and map geometry.
type TileMatrix struct {
	W, H  int16
	Cells []byte
}

// NewTileMatrix allocates a w x h matrix filled with fill.
func NewTileMatrix(w, h int16, fill byte) TileMatrix {
	cells := make([]byte, int(w)*int(h))
	for i := range cells {
		cells[i] = fill
	}
	return TileMatrix{W: w, H: h, Cells: cells}
}

// At returns the cell at (x, y), or 0 when out of bounds.
func (m *TileMatrix) At(x, y int16) byte {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return 0
	}
	return m.Cells[int(y)*int(m.W)+int(x)]
}

// Set writes the cell at (x, y). Out-of-bounds writes are dropped.
func (m *TileMatrix) Set(x, y int16, v byte) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	m.Cells[int(y)*int(m.W)+int(x)] = v
}

// Equal reports cell-for-cell equality.
func (m *TileMatrix) Equal(o *TileMatrix) bool {
	if m.W != o.W || m.H != o.H {
		return false
	}
	for i, c := range m.Cells {
		if o.Cells[i] != c {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *TileMatrix) Clone() TileMatrix {
	cells := make([]byte, len(m.Cells))
	copy(cells, m.Cells)
	return TileMatrix{W: m.W, H: m.H, Cells: cells}
}

func (m *TileMatrix) Encode(w wire.Sink) {
	w.WriteI16(m.W)
	w.WriteI16(m.H)
	w.WriteBytes(m.Cells)
}

func DecodeTileMatrix(r *wire.Reader) TileMatrix {
	w := r.I16()
	h := r.I16()
	if w < 0 || h < 0 {
		r.Invalidate()
		return TileMatrix{}
	}
	cells := r.Bytes(int(w) * int(h))
	if cells == nil {
		return TileMatrix{}
	}
	return TileMatrix{W: w, H: h, Cells: cells}
}
