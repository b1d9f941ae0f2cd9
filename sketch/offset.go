package sketch

// Offset is an integer point on the plane. Snapped to the grid it doubles as a
// tile id (the tile's upper-left corner).
type Offset struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (o Offset) Add(p Offset) Offset {
	return Offset{X: o.X + p.X, Y: o.Y + p.Y}
}

func (o Offset) Sub(p Offset) Offset {
	return Offset{X: o.X - p.X, Y: o.Y - p.Y}
}

func (o Offset) Neg() Offset {
	return Offset{X: -o.X, Y: -o.Y}
}
