package sketch

import (
	"cmp"
	"math"
)

type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Brush fully describes how a stroke is rendered. Replace means the stroke
// overwrites the pixels under it instead of blending.
type Brush struct {
	Color    Color   `json:"color"`
	Width    float32 `json:"width"`
	Hardness float32 `json:"hardness"`
	Smudging float32 `json:"smudging"`
	Replace  bool    `json:"replace"`
}

func DefaultBrush() Brush {
	return Brush{
		Color:    Color{A: 255},
		Width:    1,
		Hardness: 1,
		Smudging: 1,
	}
}

// Valid reports whether the width is a number in [0, MaxBrushWidth].
func (b Brush) Valid() bool {
	w := float64(b.Width)
	return !math.IsNaN(w) && w >= 0 && w <= MaxBrushWidth
}

type StrokePoint struct {
	Pressure float32 `json:"p"`
	X        int32   `json:"x"`
	Y        int32   `json:"y"`
}

func (p StrokePoint) Add(o Offset) StrokePoint {
	return StrokePoint{Pressure: p.Pressure, X: p.X + o.X, Y: p.Y + o.Y}
}

func (p StrokePoint) Offset() Offset {
	return Offset{X: p.X, Y: p.Y}
}

// PaintStroke is one continuous gesture. ID is assigned by the owning Layer
// and is the stroke's only identity: two strokes with the same ID are the
// same stroke whatever their content. A stroke without points always has nil
// Points; the wire codec and Layer both normalise an empty slice to nil.
type PaintStroke struct {
	ID     uint64        `json:"id"`
	UserID uint64        `json:"userId"`
	Brush  Brush         `json:"brush"`
	Points []StrokePoint `json:"points"`
}

func (s *PaintStroke) Same(o *PaintStroke) bool {
	return s.ID == o.ID
}

func (s *PaintStroke) Compare(o *PaintStroke) int {
	return cmp.Compare(s.ID, o.ID)
}

// Translate returns a copy of the stroke with every point moved by o.
func (s PaintStroke) Translate(o Offset) PaintStroke {
	points := make([]StrokePoint, len(s.Points))
	for i, p := range s.Points {
		points[i] = p.Add(o)
	}
	s.Points = points
	return s
}
