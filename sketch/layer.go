package sketch

import (
	"slices"
)

// Layer is one independently indexed stack of strokes. Strokes live once in
// the strokes list; tile buckets hold the same pointers, sorted by ID.
//
// Layer is not safe for concurrent use; the owning room serializes access.
type Layer struct {
	grid      Grid
	undoDepth int

	strokes []*PaintStroke
	tiles   map[Offset][]*PaintStroke
	lastID  uint64
}

func NewLayer(grid Grid, undoDepth int) *Layer {
	return &Layer{
		grid:      grid,
		undoDepth: undoDepth,
		tiles:     make(map[Offset][]*PaintStroke),
	}
}

// AddStroke assigns the next id to draft, stores it and indexes it under
// every tile of its footprint. Whatever ID and UserID the draft carried are
// replaced.
func (l *Layer) AddStroke(userID uint64, draft PaintStroke) (*PaintStroke, TileSet) {
	l.lastID++
	draft.ID = l.lastID
	draft.UserID = userID
	if len(draft.Points) == 0 {
		draft.Points = nil
	}

	stroke := &draft
	l.strokes = append(l.strokes, stroke)

	footprint := l.grid.ForStroke(stroke)
	for t := range footprint {
		// ids only grow, so appending keeps every bucket sorted
		l.tiles[t] = append(l.tiles[t], stroke)
	}
	return stroke, footprint
}

// TileStrokes returns the strokes indexed under tile in ascending id order.
func (l *Layer) TileStrokes(tile Offset) []*PaintStroke {
	return slices.Clone(l.tiles[tile])
}

// Undo removes the newest stroke by userID among the last undoDepth strokes.
// ok is false when there is none in that window, even if an older one exists.
func (l *Layer) Undo(userID uint64) (removed *PaintStroke, affected TileSet, ok bool) {
	stop := max(len(l.strokes)-l.undoDepth, 0)
	for i := len(l.strokes) - 1; i >= stop; i-- {
		if l.strokes[i].UserID != userID {
			continue
		}
		removed = l.strokes[i]
		l.strokes = slices.Delete(l.strokes, i, i+1)

		affected = l.grid.ForStroke(removed)
		for t := range affected {
			l.unindex(t, removed)
		}
		return removed, affected, true
	}
	return nil, nil, false
}

func (l *Layer) unindex(tile Offset, s *PaintStroke) {
	bucket := l.tiles[tile]
	i, found := slices.BinarySearchFunc(bucket, s, (*PaintStroke).Compare)
	if !found {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(l.tiles, tile)
		return
	}
	l.tiles[tile] = bucket
}

func (l *Layer) Len() int {
	return len(l.strokes)
}

func (l *Layer) LastID() uint64 {
	return l.lastID
}

// Strokes returns the live strokes in creation order.
func (l *Layer) Strokes() []*PaintStroke {
	return slices.Clone(l.strokes)
}

// TileCount is the number of non-empty tile buckets.
func (l *Layer) TileCount() int {
	return len(l.tiles)
}
