package main

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/Tk21111/sketch_server/sketch"
)

// colorFromName gives every client a stable, distinguishable hue.
func colorFromName(name string) sketch.Color {
	h := fnv.New32a()
	h.Write([]byte(name))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.7, 0.55)
	return sketch.Color{R: r, G: g, B: b, A: 255}
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g = c, x
	case h < 120:
		r, g = x, c
	case h < 180:
		g, b = c, x
	case h < 240:
		g, b = x, c
	case h < 300:
		r, b = x, c
	default:
		r, b = c, x
	}
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r), to8(g), to8(b)
}

type strokeGen struct {
	rng    *rand.Rand
	brush  sketch.Brush
	spread int32
	points int
}

func newStrokeGen(name string, seed uint64, spread int32, points int) *strokeGen {
	brush := sketch.DefaultBrush()
	brush.Color = colorFromName(name)
	brush.Width = 3
	return &strokeGen{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		brush:  brush,
		spread: spread,
		points: points,
	}
}

// next returns a short random walk starting anywhere in [-spread, spread)².
func (g *strokeGen) next() sketch.PaintStroke {
	x := g.rng.Int32N(2*g.spread) - g.spread
	y := g.rng.Int32N(2*g.spread) - g.spread

	points := make([]sketch.StrokePoint, g.points)
	for i := range points {
		points[i] = sketch.StrokePoint{Pressure: 0.5, X: x, Y: y}
		x += g.rng.Int32N(21) - 10
		y += g.rng.Int32N(21) - 10
	}
	return sketch.PaintStroke{Brush: g.brush, Points: points}
}
