package ws

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Tk21111/sketch_server/config"
	"github.com/Tk21111/sketch_server/sketch"
	"github.com/Tk21111/sketch_server/wire"
)

// ConnID identifies a connection for the life of the process. It doubles as
// the user id stamped on that connection's strokes.
type ConnID uint64

var nextConnID atomic.Uint64

// Journal records accepted edits. Implementations must not block.
type Journal interface {
	WriteStroke(room int, layer uint8, s sketch.PaintStroke)
	WriteUndo(room int, layer uint8, strokeID, userID uint64)
}

type Connection struct {
	id    ConnID
	name  string
	out   Outbound
	tiles sketch.TileSet
}

// Room owns one canvas and the connections drawing on it.
//
// Lock order is canvasMu before connMu. Nothing takes canvasMu while holding
// connMu.
type Room struct {
	id               int
	log              *zap.Logger
	grid             sketch.Grid
	maxLayers        int
	maxViewportTiles int64
	journal          Journal

	canvasMu sync.RWMutex
	canvas   *sketch.Canvas

	connMu sync.RWMutex
	conns  map[ConnID]*Connection
}

type RoomStats struct {
	ID          int `json:"id"`
	Connections int `json:"connections"`
	Viewing     int `json:"viewing"`
	Layers      int `json:"layers"`
	Strokes     int `json:"strokes"`
}

// NewRoom builds an empty room. journal may be nil.
func NewRoom(id int, s config.Settings, log *zap.Logger, journal Journal) *Room {
	grid := sketch.Grid{Size: s.TileSize}
	return &Room{
		id:               id,
		log:              log,
		grid:             grid,
		maxLayers:        s.MaxLayers,
		maxViewportTiles: s.MaxViewportTiles,
		journal:          journal,
		canvas:           sketch.NewCanvas(grid, s.MaxLayers, s.UndoSearchDepth),
		conns:            make(map[ConnID]*Connection),
	}
}

func (r *Room) ID() int {
	return r.id
}

// Connect registers out under a fresh id. The connection receives nothing
// until it declares a viewport.
func (r *Room) Connect(out Outbound, name string) ConnID {
	id := ConnID(nextConnID.Add(1))

	r.connMu.Lock()
	r.conns[id] = &Connection{
		id:    id,
		name:  name,
		out:   out,
		tiles: sketch.TileSet{},
	}
	r.connMu.Unlock()

	r.log.Info("connected", zap.Uint64("conn", uint64(id)), zap.String("name", name))
	return id
}

// Disconnect forgets id. Calling it twice is fine.
func (r *Room) Disconnect(id ConnID) {
	r.connMu.Lock()
	conn, ok := r.conns[id]
	delete(r.conns, id)
	r.connMu.Unlock()

	if ok {
		r.log.Info("good bye", zap.Uint64("conn", uint64(id)), zap.String("name", conn.name))
	}
}

// Receive handles one inbound frame from id. Bad input is logged and dropped;
// nothing is ever reported back to the sender.
func (r *Room) Receive(id ConnID, raw []byte) {
	log := r.log.With(zap.Uint64("conn", uint64(id)))

	msg, err := wire.DecodeClient(raw)
	if err != nil {
		log.Warn("decode failed",
			zap.String("size", humanize.Bytes(uint64(len(raw)))),
			zap.Error(err),
		)
		return
	}

	if !r.connected(id) {
		log.Warn("message from unknown connection")
		return
	}

	switch m := msg.(type) {
	case wire.SubmitStroke:
		r.submitStroke(log, id, m)
	case wire.DeclareViewport:
		r.declareViewport(log, id, m)
	case wire.UndoRequest:
		r.undo(log, id, m)
	case wire.FetchTile:
		r.fetchTile(log, id, m)
	case wire.ChatText:
		r.chat(id, m)
	}
}

func (r *Room) submitStroke(log *zap.Logger, id ConnID, m wire.SubmitStroke) {
	if int(m.Layer) >= r.maxLayers {
		log.Warn("layer out of range", zap.Uint8("layer", m.Layer), zap.Int("max", r.maxLayers))
		return
	}
	if !m.Stroke.Brush.Valid() {
		log.Warn("invalid brush", zap.Float32("width", m.Stroke.Brush.Width))
		return
	}

	r.canvasMu.Lock()
	defer r.canvasMu.Unlock()

	layer, err := r.canvas.Layer(m.Layer)
	if err != nil {
		log.Warn("layer unavailable", zap.Error(err))
		return
	}
	stroke, tiles := layer.AddStroke(uint64(id), m.Stroke)

	if r.journal != nil {
		r.journal.WriteStroke(r.id, m.Layer, *stroke)
	}

	r.fanOut(log, id, tiles,
		wire.StrokeAdded{Layer: m.Layer, Stroke: *stroke},
		wire.StrokeAddedEcho{Layer: m.Layer, Stroke: *stroke},
	)
}

func (r *Room) declareViewport(log *zap.Logger, id ConnID, m wire.DeclareViewport) {
	if n := r.grid.CellCount(m.UpperLeft, m.LowerRight); n > r.maxViewportTiles {
		log.Warn("viewport too large", zap.Int64("tiles", n), zap.Int64("max", r.maxViewportTiles))
		return
	}
	tiles := r.grid.InRect(m.UpperLeft, m.LowerRight)

	// Holding the canvas read lock across the swap and the catch-up means no
	// stroke lands between them: each one is either in the catch-up or fanned
	// out to the new subscription, never both or neither.
	r.canvasMu.RLock()
	defer r.canvasMu.RUnlock()

	r.connMu.Lock()
	conn, ok := r.conns[id]
	if ok {
		conn.tiles = tiles
	}
	r.connMu.Unlock()
	if !ok {
		return
	}

	sent := 0
	r.canvas.Each(func(layerID uint8, l *sketch.Layer) {
		for _, s := range visibleStrokes(l, tiles) {
			r.send(log, conn, wire.StrokeAdded{Layer: layerID, Stroke: *s})
			sent++
		}
	})
	log.Debug("viewport declared", zap.Int("tiles", len(tiles)), zap.Int("strokes", sent))
}

// visibleStrokes collects the strokes of every tile in tiles, each once, in
// ascending id order.
func visibleStrokes(l *sketch.Layer, tiles sketch.TileSet) []*sketch.PaintStroke {
	seen := make(map[uint64]*sketch.PaintStroke)
	for t := range tiles {
		for _, s := range l.TileStrokes(t) {
			seen[s.ID] = s
		}
	}
	out := slices.Collect(maps.Values(seen))
	slices.SortFunc(out, (*sketch.PaintStroke).Compare)
	return out
}

func (r *Room) undo(log *zap.Logger, id ConnID, m wire.UndoRequest) {
	if int(m.Layer) >= r.maxLayers {
		log.Warn("layer out of range", zap.Uint8("layer", m.Layer), zap.Int("max", r.maxLayers))
		return
	}

	r.canvasMu.Lock()
	defer r.canvasMu.Unlock()

	layer, ok := r.canvas.Peek(m.Layer)
	if !ok {
		log.Debug("nothing to undo", zap.Uint8("layer", m.Layer))
		return
	}
	removed, tiles, ok := layer.Undo(uint64(id))
	if !ok {
		log.Debug("nothing to undo", zap.Uint8("layer", m.Layer))
		return
	}

	if r.journal != nil {
		r.journal.WriteUndo(r.id, m.Layer, removed.ID, removed.UserID)
	}

	msg := wire.StrokeRemoved{Layer: m.Layer, StrokeID: removed.ID}
	r.fanOut(log, id, tiles, msg, msg)
}

func (r *Room) fetchTile(log *zap.Logger, id ConnID, m wire.FetchTile) {
	if int(m.Layer) >= r.maxLayers {
		log.Warn("layer out of range", zap.Uint8("layer", m.Layer), zap.Int("max", r.maxLayers))
		return
	}
	tile := r.grid.Of(m.Tile.X, m.Tile.Y)

	r.canvasMu.RLock()
	defer r.canvasMu.RUnlock()

	layer, ok := r.canvas.Peek(m.Layer)
	if !ok {
		return
	}

	r.connMu.RLock()
	conn, ok := r.conns[id]
	r.connMu.RUnlock()
	if !ok {
		return
	}

	for _, s := range layer.TileStrokes(tile) {
		r.send(log, conn, wire.StrokeAdded{Layer: m.Layer, Stroke: *s})
	}
}

// chat relays text to everyone in the room, tiles notwithstanding.
func (r *Room) chat(id ConnID, m wire.ChatText) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	sender, ok := r.conns[id]
	if !ok {
		return
	}
	payload, err := wire.EncodeServer(wire.ChatBroadcast{Name: sender.name, Text: m.Text})
	if err != nil {
		r.log.Error("encode chat", zap.Error(err))
		return
	}
	for cid, c := range r.conns {
		r.deliver(cid, c.out, payload)
	}
}

// fanOut sends echo to author and msg to every other connection whose
// subscription meets tiles. The author gets echo even when not subscribed.
func (r *Room) fanOut(log *zap.Logger, author ConnID, tiles sketch.TileSet, msg, echo wire.ServerMessage) {
	payload, err := wire.EncodeServer(msg)
	if err != nil {
		log.Error("encode broadcast", zap.Error(err))
		return
	}
	echoPayload, err := wire.EncodeServer(echo)
	if err != nil {
		log.Error("encode echo", zap.Error(err))
		return
	}

	r.connMu.RLock()
	defer r.connMu.RUnlock()

	for cid, c := range r.conns {
		switch {
		case cid == author:
			r.deliver(cid, c.out, echoPayload)
		case c.tiles.Intersects(tiles):
			r.deliver(cid, c.out, payload)
		}
	}
}

func (r *Room) send(log *zap.Logger, c *Connection, m wire.ServerMessage) {
	payload, err := wire.EncodeServer(m)
	if err != nil {
		log.Error("encode", zap.Error(err))
		return
	}
	r.deliver(c.id, c.out, payload)
}

// deliver never blocks and never disconnects; a dead receiver is only logged.
func (r *Room) deliver(id ConnID, out Outbound, payload []byte) {
	if err := out.Enqueue(payload); err != nil {
		r.log.Warn("send failed", zap.Uint64("conn", uint64(id)), zap.Error(err))
	}
}

func (r *Room) connected(id ConnID) bool {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// Subscription returns a copy of id's subscribed tiles.
func (r *Room) Subscription(id ConnID) (sketch.TileSet, bool) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(c.tiles), true
}

func (r *Room) Stats() RoomStats {
	r.canvasMu.RLock()
	defer r.canvasMu.RUnlock()
	r.connMu.RLock()
	defer r.connMu.RUnlock()

	st := RoomStats{
		ID:          r.id,
		Connections: len(r.conns),
		Layers:      r.canvas.Len(),
		Strokes:     r.canvas.StrokeCount(),
	}
	for _, c := range r.conns {
		if len(c.tiles) > 0 {
			st.Viewing++
		}
	}
	return st
}
