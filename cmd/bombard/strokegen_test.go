package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorFromNameIsStable(t *testing.T) {
	a := colorFromName("ana")
	assert.Equal(t, a, colorFromName("ana"))
	assert.Equal(t, uint8(255), a.A)
}

func TestHSLToRGB(t *testing.T) {
	r, g, b := hslToRGB(0, 1, 0.5)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})

	r, g, b = hslToRGB(120, 1, 0.5)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{r, g, b})

	r, g, b = hslToRGB(240, 1, 0.5)
	assert.Equal(t, [3]uint8{0, 0, 255}, [3]uint8{r, g, b})
}

func TestStrokeGenStaysNearStart(t *testing.T) {
	g := newStrokeGen("bo", 42, 500, 8)

	for range 50 {
		s := g.next()
		require.Len(t, s.Points, 8)
		assert.Zero(t, s.ID)
		first := s.Points[0]
		assert.GreaterOrEqual(t, first.X, int32(-500))
		assert.Less(t, first.X, int32(500))
		for _, p := range s.Points {
			assert.LessOrEqual(t, abs(p.X-first.X), int32(10*8))
			assert.LessOrEqual(t, abs(p.Y-first.Y), int32(10*8))
		}
	}
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestOptionsValidate(t *testing.T) {
	ok := options{clients: 1, rate: 10, points: 4, spread: 100, layers: 1}
	require.NoError(t, ok.validate())

	tests := map[string]func(o *options){
		"no clients":  func(o *options) { o.clients = 0 },
		"zero rate":   func(o *options) { o.rate = 0 },
		"fast rate":   func(o *options) { o.rate = maxRate + 1 },
		"huge spread": func(o *options) { o.spread = 1<<30 + 1 },
		"neg spread":  func(o *options) { o.spread = -1 },
		"many layers": func(o *options) { o.layers = maxLayers + 1 },
		"zero points": func(o *options) { o.points = 0 },
		"zero layers": func(o *options) { o.layers = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := ok
			mutate(&o)
			assert.Error(t, o.validate())
		})
	}
}

func TestStrokeGenAtMaxSpread(t *testing.T) {
	g := newStrokeGen("cy", 7, maxSpread, 2)
	for range 100 {
		p := g.next().Points[0]
		assert.GreaterOrEqual(t, p.X, int32(-maxSpread))
		assert.Less(t, p.X, int32(maxSpread))
	}
}
