package game

import "gridfort/internal/wire"

// Vec2 is a position or offset on the tile grid. Coordinates are 16-bit
// signed; the world never addresses tiles outside that range.
type Vec2 struct {
	X, Y int16
}

// Add returns v + o componentwise.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o componentwise.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// DistanceSquared returns the squared euclidean distance to o.
func (v Vec2) DistanceSquared(o Vec2) int32 {
	dx := int32(v.X) - int32(o.X)
	dy := int32(v.Y) - int32(o.Y)
	return dx*dx + dy*dy
}

func (v Vec2) Encode(w wire.Sink) {
	w.WriteI16(v.X)
	w.WriteI16(v.Y)
}

func DecodeVec2(r *wire.Reader) Vec2 {
	return Vec2{X: r.I16(), Y: r.I16()}
}

// Direction bits. Opposing bits may be set at once; they cancel on that
// axis when the direction is resolved to an offset.
const (
	DirLeft uint8 = 1 << iota
	DirRight
	DirUp
	DirDown
)

// Direction is a 4-bit movement/aim bitfield.
type Direction uint8

func NewDirection(left, right, up, down bool) Direction {
	var d Direction
	if left {
		d |= Direction(DirLeft)
	}
	if right {
		d |= Direction(DirRight)
	}
	if up {
		d |= Direction(DirUp)
	}
	if down {
		d |= Direction(DirDown)
	}
	return d
}

func DirectionFromVec(v Vec2) Direction {
	return NewDirection(v.X < 0, v.X > 0, v.Y < 0, v.Y > 0)
}

func (d Direction) HasLeft() bool  { return d&Direction(DirLeft) != 0 }
func (d Direction) HasRight() bool { return d&Direction(DirRight) != 0 }
func (d Direction) HasUp() bool    { return d&Direction(DirUp) != 0 }
func (d Direction) HasDown() bool  { return d&Direction(DirDown) != 0 }

// IsAny reports whether any axis resolves to a nonzero step.
func (d Direction) IsAny() bool {
	v := d.Vec()
	return v.X != 0 || v.Y != 0
}

// Vec resolves the bitfield to a unit tile offset. Opposing bits are
// neutral on their axis.
func (d Direction) Vec() Vec2 {
	var v Vec2
	if d.HasLeft() && !d.HasRight() {
		v.X = -1
	}
	if d.HasRight() && !d.HasLeft() {
		v.X = 1
	}
	if d.HasUp() && !d.HasDown() {
		v.Y = -1
	}
	if d.HasDown() && !d.HasUp() {
		v.Y = 1
	}
	return v
}

// Horizontal returns the direction with only its horizontal component.
func (d Direction) Horizontal() Direction {
	return d & Direction(DirLeft|DirRight)
}

// Vertical returns the direction with only its vertical component.
func (d Direction) Vertical() Direction {
	return d & Direction(DirUp|DirDown)
}

// Opposite flips both axes.
func (d Direction) Opposite() Direction {
	return DirectionFromVec(Vec2{}.Sub(d.Vec()))
}

func (d Direction) Encode(w wire.Sink) { w.WriteU8(uint8(d)) }

func DecodeDirection(r *wire.Reader) Direction {
	v := r.U8()
	if v > 0x0f {
		r.Invalidate()
		return 0
	}
	return Direction(v)
}

// Rect is an inclusive axis-aligned tile rectangle.
type Rect struct {
	Min, Max Vec2
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// RectAround returns the square of the given radius centered on p.
func RectAround(p Vec2, radius int16) Rect {
	return Rect{
		Min: Vec2{p.X - radius, p.Y - radius},
		Max: Vec2{p.X + radius, p.Y + radius},
	}
}
