package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridOf(t *testing.T) {
	g := Grid{Size: 100}

	tests := []struct {
		x, y int32
		want Offset
	}{
		{0, 0, Offset{0, 0}},
		{99, 99, Offset{0, 0}},
		{100, 0, Offset{100, 0}},
		{150, 250, Offset{100, 200}},
		{-1, 0, Offset{-100, 0}},
		{-100, -100, Offset{-100, -100}},
		{-101, -1, Offset{-200, -100}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Of(tt.x, tt.y), "Of(%d, %d)", tt.x, tt.y)
	}
}

func TestBrushRadius(t *testing.T) {
	assert.Equal(t, int32(1), BrushRadius(1))
	assert.Equal(t, int32(2), BrushRadius(2)) // 1.5 rounds away from zero
	assert.Equal(t, int32(5), BrushRadius(9))
	assert.Equal(t, int32(1), BrushRadius(0))
}

func TestBrushRadiusOutOfRange(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())

	assert.Equal(t, int32(MaxBrushRadius), BrushRadius(1e10))
	assert.Equal(t, int32(MaxBrushRadius), BrushRadius(inf))
	assert.Equal(t, int32(0), BrushRadius(-inf))
	assert.Equal(t, int32(0), BrushRadius(nan))
	assert.Equal(t, int32(0), BrushRadius(-7))
}

func TestForStrokeAlwaysCoversOwnTile(t *testing.T) {
	g := Grid{Size: 1024}
	widths := []float32{
		1, 0, -5, 1e10, -1e10,
		float32(math.Inf(1)), float32(math.Inf(-1)), float32(math.NaN()),
	}
	for _, w := range widths {
		s := &PaintStroke{Brush: Brush{Width: w}, Points: []StrokePoint{{X: 10, Y: 10}}}
		assert.True(t, g.ForStroke(s).Has(Offset{0, 0}), "width %v", w)
	}
}

func TestForStrokeWideBrushFillsSquare(t *testing.T) {
	g := Grid{Size: 100}
	// radius 251 around (350, 10) spans x 99..601 and y -241..261
	s := &PaintStroke{Brush: Brush{Width: 500}, Points: []StrokePoint{{X: 350, Y: 10}}}

	tiles := g.ForStroke(s)
	assert.Len(t, tiles, 7*6)
	assert.True(t, tiles.Has(Offset{200, 0}), "tiles between the corners must be covered")
	assert.True(t, tiles.Has(Offset{300, 0}), "the point's own tile must be covered")
	assert.Equal(t, NewTileSet(g.Cells(Offset{99, -241}, Offset{601, 261})...), tiles)
}

func TestBrushValid(t *testing.T) {
	assert.True(t, Brush{Width: 0}.Valid())
	assert.True(t, DefaultBrush().Valid())
	assert.True(t, Brush{Width: MaxBrushWidth}.Valid())
	assert.False(t, Brush{Width: MaxBrushWidth + 1}.Valid())
	assert.False(t, Brush{Width: -1}.Valid())
	assert.False(t, Brush{Width: float32(math.NaN())}.Valid())
	assert.False(t, Brush{Width: float32(math.Inf(1))}.Valid())
}

func TestForStrokeNearInt32Edges(t *testing.T) {
	g := Grid{Size: 1024}
	s := &PaintStroke{
		Brush: Brush{Width: float32(math.Inf(1))},
		Points: []StrokePoint{
			{X: math.MaxInt32, Y: math.MaxInt32},
			{X: math.MinInt32, Y: math.MinInt32},
		},
	}
	tiles := g.ForStroke(s)
	assert.True(t, tiles.Has(g.Of(math.MaxInt32, math.MaxInt32)))
	assert.True(t, tiles.Has(g.Of(math.MinInt32, math.MinInt32)))
	for tile := range tiles {
		assert.Equal(t, tile, g.Of(tile.X, tile.Y), "tile %v not aligned", tile)
	}
}

func TestGridOfExtremesNonPowerOfTwo(t *testing.T) {
	g := Grid{Size: 1000}

	left := g.Of(math.MinInt32, math.MinInt32)
	assert.Less(t, left.X, int32(0))
	assert.Zero(t, left.X%1000)
	assert.Equal(t, left, g.Of(left.X, left.Y), "snapping must be idempotent")
	assert.Equal(t, left, g.Of(math.MinInt32+1, math.MinInt32+1))

	right := g.Of(math.MaxInt32, 0)
	assert.Equal(t, Offset{X: 2147483000, Y: 0}, right)

	cells := g.Cells(Offset{math.MinInt32, 0}, Offset{left.X + 1000, 0})
	assert.Equal(t, []Offset{{left.X, 0}, {left.X + 1000, 0}}, cells)
}

func TestForStrokeScenario(t *testing.T) {
	g := Grid{Size: 100}
	s := &PaintStroke{
		Brush:  Brush{Width: 1},
		Points: []StrokePoint{{X: 0, Y: 0}, {X: 150, Y: 0}},
	}

	got := g.ForStroke(s)

	want := NewTileSet(
		Offset{-100, -100}, Offset{0, -100}, Offset{100, -100},
		Offset{-100, 0}, Offset{0, 0}, Offset{100, 0},
	)
	assert.Equal(t, want, got)
}

func TestForStrokeInteriorPoint(t *testing.T) {
	g := Grid{Size: 100}
	s := &PaintStroke{
		Brush:  Brush{Width: 3},
		Points: []StrokePoint{{X: 50, Y: 50}},
	}

	assert.Equal(t, NewTileSet(Offset{0, 0}), g.ForStroke(s))
}

func TestForStrokeEmpty(t *testing.T) {
	g := Grid{Size: 100}
	assert.Empty(t, g.ForStroke(&PaintStroke{Brush: DefaultBrush()}))
}

func TestCellsRowMajor(t *testing.T) {
	g := Grid{Size: 100}

	got := g.Cells(Offset{-50, -50}, Offset{150, 50})

	want := []Offset{
		{-100, -100}, {0, -100}, {100, -100},
		{-100, 0}, {0, 0}, {100, 0},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int64(len(want)), g.CellCount(Offset{-50, -50}, Offset{150, 50}))
}

func TestInRectSingleTile(t *testing.T) {
	g := Grid{Size: 100}
	assert.Equal(t, NewTileSet(Offset{500, 500}), g.InRect(Offset{510, 520}, Offset{599, 599}))
}

func TestInRectInverted(t *testing.T) {
	g := Grid{Size: 100}
	assert.Empty(t, g.InRect(Offset{300, 300}, Offset{0, 0}))
	assert.Zero(t, g.CellCount(Offset{300, 300}, Offset{0, 0}))
}

func TestTileSetIntersects(t *testing.T) {
	a := NewTileSet(Offset{0, 0}, Offset{100, 0})
	b := NewTileSet(Offset{100, 0}, Offset{500, 500}, Offset{600, 600})
	c := NewTileSet(Offset{500, 500})

	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a))
	assert.False(t, a.Intersects(c))
	assert.False(t, a.Intersects(TileSet{}))
	assert.False(t, TileSet(nil).Intersects(a))
}

func TestOffsetArithmetic(t *testing.T) {
	a := Offset{3, -4}
	b := Offset{-1, 10}

	assert.Equal(t, Offset{2, 6}, a.Add(b))
	assert.Equal(t, Offset{4, -14}, a.Sub(b))
	assert.Equal(t, Offset{-3, 4}, a.Neg())
	assert.Equal(t, a, a.Add(b).Sub(b))
}

func TestTranslate(t *testing.T) {
	s := PaintStroke{ID: 4, Points: []StrokePoint{{Pressure: 0.5, X: 1, Y: 2}}}

	moved := s.Translate(Offset{10, -10})

	assert.Equal(t, []StrokePoint{{Pressure: 0.5, X: 11, Y: -8}}, moved.Points)
	assert.Equal(t, int32(1), s.Points[0].X, "source stroke must not change")
	assert.True(t, moved.Same(&s))
}
