package sketch

import (
	"errors"
	"fmt"
)

var ErrLayerOutOfRange = errors.New("layer id out of range")

// Canvas is the ordered, lazily grown set of layers of one room.
type Canvas struct {
	grid      Grid
	maxLayers int
	undoDepth int
	layers    []*Layer
}

func NewCanvas(grid Grid, maxLayers, undoDepth int) *Canvas {
	return &Canvas{
		grid:      grid,
		maxLayers: maxLayers,
		undoDepth: undoDepth,
	}
}

// Layer returns layer id, creating it and every missing layer below it.
func (c *Canvas) Layer(id uint8) (*Layer, error) {
	if int(id) >= c.maxLayers {
		return nil, fmt.Errorf("%w: %d >= %d", ErrLayerOutOfRange, id, c.maxLayers)
	}
	for len(c.layers) <= int(id) {
		c.layers = append(c.layers, NewLayer(c.grid, c.undoDepth))
	}
	return c.layers[id], nil
}

// Peek returns layer id only if it already exists.
func (c *Canvas) Peek(id uint8) (*Layer, bool) {
	if int(id) >= len(c.layers) {
		return nil, false
	}
	return c.layers[id], true
}

func (c *Canvas) Len() int {
	return len(c.layers)
}

func (c *Canvas) Each(fn func(id uint8, l *Layer)) {
	for i, l := range c.layers {
		fn(uint8(i), l)
	}
}

func (c *Canvas) Grid() Grid {
	return c.grid
}

// StrokeCount sums live strokes across layers.
func (c *Canvas) StrokeCount() int {
	n := 0
	for _, l := range c.layers {
		n += l.Len()
	}
	return n
}
