package ws

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tk21111/sketch_server/config"
	"github.com/Tk21111/sketch_server/internal/logx"
)

// Handler upgrades GET /ws/{room}/{name} and runs the connection until the
// peer goes away.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	maxFrame int64
}

func NewHandler(hub *Hub, s config.Settings) *Handler {
	origin := s.AllowedOrigin
	return &Handler{
		hub:      hub,
		maxFrame: s.MaxFrameBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin == "*" || r.Header.Get("Origin") == origin
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.Atoi(chi.URLParam(r, "room"))
	if err != nil {
		http.Error(w, "bad room", http.StatusBadRequest)
		return
	}
	room, ok := h.hub.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.From(r.Context()).Warn("upgrade", zap.Error(err))
		return
	}

	out := NewOutbox()
	id := room.Connect(out, name)
	ctx := logx.With(r.Context(),
		zap.Int("room", roomID),
		zap.Uint64("conn", uint64(id)),
	)

	client := &Client{
		conn:     conn,
		out:      out,
		room:     room,
		id:       id,
		maxFrame: h.maxFrame,
		log:      logx.From(ctx),
	}

	go client.write()
	client.read()
}
