package sketch

import (
	"cmp"
	"math"
	"slices"
)

// TileSet is a set of tile ids.
type TileSet map[Offset]struct{}

func NewTileSet(tiles ...Offset) TileSet {
	s := make(TileSet, len(tiles))
	for _, t := range tiles {
		s[t] = struct{}{}
	}
	return s
}

func (s TileSet) Add(t Offset) {
	s[t] = struct{}{}
}

func (s TileSet) Has(t Offset) bool {
	_, ok := s[t]
	return ok
}

// Intersects reports whether s and o share at least one tile.
func (s TileSet) Intersects(o TileSet) bool {
	small, big := s, o
	if len(big) < len(small) {
		small, big = big, small
	}
	for t := range small {
		if big.Has(t) {
			return true
		}
	}
	return false
}

// Sorted returns the tiles in row-major order.
func (s TileSet) Sorted() []Offset {
	out := make([]Offset, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, compareRowMajor)
	return out
}

func compareRowMajor(a, b Offset) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// Grid maps plane coordinates to square tiles of side Size.
type Grid struct {
	Size int32
}

// Of snaps a coordinate to the origin of its enclosing tile. Negative
// coordinates round toward negative infinity so tiles stay aligned across 0.
func (g Grid) Of(x, y int32) Offset {
	return Offset{X: g.snap(x), Y: g.snap(y)}
}

// snap rounds v down to a multiple of Size. Near math.MinInt32 the leftmost
// partial tile is merged into its right neighbour so the origin still fits.
func (g Grid) snap(v int32) int32 {
	o := int64(floorDiv(v, g.Size)) * int64(g.Size)
	if o < math.MinInt32 {
		o += int64(g.Size)
	}
	return int32(o)
}

// MaxBrushWidth is the widest brush a stroke may use. MaxBrushRadius is its
// BrushRadius and caps the footprint padding of any stroke.
const (
	MaxBrushWidth  = 2048
	MaxBrushRadius = MaxBrushWidth/2 + 1
)

// BrushRadius is the half-width, rounded, used to pad a stroke's footprint.
// It is always in [0, MaxBrushRadius]; NaN counts as zero width.
func BrushRadius(width float32) int32 {
	r := math.Round((float64(width) + 1) / 2)
	switch {
	case math.IsNaN(r) || r < 0:
		return 0
	case r > MaxBrushRadius:
		return MaxBrushRadius
	}
	return int32(r)
}

func addSat(a, b int32) int32 {
	return int32(min(max(int64(a)+int64(b), math.MinInt32), math.MaxInt32))
}

// ForStroke returns every tile touched by the square of brush radius around
// each point. When the brush is narrower than a tile that is exactly the
// tiles of the four corners. It over-covers on purpose; a stroke may land in a
// tile it doesn't visibly reach, never the reverse.
func (g Grid) ForStroke(s *PaintStroke) TileSet {
	r := BrushRadius(s.Brush.Width)

	tiles := make(TileSet)
	for _, p := range s.Points {
		ul := Offset{X: addSat(p.X, -r), Y: addSat(p.Y, -r)}
		lr := Offset{X: addSat(p.X, r), Y: addSat(p.Y, r)}
		g.eachCell(ul, lr, tiles.Add)
	}
	return tiles
}

// Cells lists the tiles of the inclusive rectangle ul..lr in row-major order.
// ul must not lie right of or below lr.
func (g Grid) Cells(ul, lr Offset) []Offset {
	n := g.CellCount(ul, lr)
	if n == 0 {
		return nil
	}

	out := make([]Offset, 0, n)
	g.eachCell(ul, lr, func(o Offset) {
		out = append(out, o)
	})
	return out
}

func (g Grid) eachCell(ul, lr Offset, fn func(Offset)) {
	from := g.Of(ul.X, ul.Y)
	to := g.Of(lr.X, lr.Y)
	for y := int64(from.Y); y <= int64(to.Y); y += int64(g.Size) {
		for x := int64(from.X); x <= int64(to.X); x += int64(g.Size) {
			fn(Offset{X: int32(x), Y: int32(y)})
		}
	}
}

// CellCount is len(g.Cells(ul, lr)) without building the slice.
func (g Grid) CellCount(ul, lr Offset) int64 {
	from := g.Of(ul.X, ul.Y)
	to := g.Of(lr.X, lr.Y)
	if to.X < from.X || to.Y < from.Y {
		return 0
	}
	cols := (int64(to.X)-int64(from.X))/int64(g.Size) + 1
	rows := (int64(to.Y)-int64(from.Y))/int64(g.Size) + 1
	return cols * rows
}

func (g Grid) InRect(ul, lr Offset) TileSet {
	return NewTileSet(g.Cells(ul, lr)...)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
