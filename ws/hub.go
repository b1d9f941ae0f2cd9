package ws

import (
	"go.uber.org/zap"

	"github.com/Tk21111/sketch_server/config"
	"github.com/Tk21111/sketch_server/internal/logx"
)

// Hub is the fixed table of rooms, built once at startup and addressed by
// index.
type Hub struct {
	rooms []*Room
}

// NewHub creates s.Rooms empty rooms. journal may be nil.
func NewHub(s config.Settings, log *zap.Logger, journal Journal) *Hub {
	rooms := make([]*Room, s.Rooms)
	for i := range rooms {
		rooms[i] = NewRoom(i, s, logx.Room(log, i), journal)
	}
	return &Hub{rooms: rooms}
}

func (h *Hub) Room(id int) (*Room, bool) {
	if id < 0 || id >= len(h.rooms) {
		return nil, false
	}
	return h.rooms[id], true
}

func (h *Hub) Len() int {
	return len(h.rooms)
}

// Stats reports only rooms that have connections or content.
func (h *Hub) Stats() []RoomStats {
	var out []RoomStats
	for _, r := range h.rooms {
		st := r.Stats()
		if st.Connections > 0 || st.Strokes > 0 {
			out = append(out, st)
		}
	}
	return out
}
