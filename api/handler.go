package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Tk21111/sketch_server/db"
	"github.com/Tk21111/sketch_server/internal/logx"
	"github.com/Tk21111/sketch_server/ws"
)

const (
	defaultEventLimit = 500
	maxEventLimit     = 5000
)

// EventSource is the read side of the stroke journal.
type EventSource interface {
	Events(ctx context.Context, room int, from int64, limit int) ([]db.Event, error)
}

// Routes mounts the inspection endpoints. events may be nil when the journal
// is disabled.
func Routes(r chi.Router, hub *ws.Hub, events EventSource) {
	r.Get("/healthz", Health())
	r.Get("/rooms", ListRooms(hub))
	r.Get("/rooms/{room}", GetRoom(hub))
	r.Get("/rooms/{room}/events", GetEvents(hub, events))
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}
}

func ListRooms(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := hub.Stats()
		if stats == nil {
			stats = []ws.RoomStats{}
		}
		writeJSON(w, r, stats)
	}
}

func GetRoom(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := roomParam(w, r, hub)
		if !ok {
			return
		}
		writeJSON(w, r, room.Stats())
	}
}

func GetEvents(hub *ws.Hub, events EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if events == nil {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}

		room, ok := roomParam(w, r, hub)
		if !ok {
			return
		}

		var from int64
		if v := r.URL.Query().Get("from"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				http.Error(w, "bad from", http.StatusBadRequest)
				return
			}
			from = n
		}

		limit := defaultEventLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxEventLimit)
		}

		list, err := events.Events(r.Context(), room.ID(), from, limit)
		if err != nil {
			logx.From(r.Context()).Error("fail to get events", zap.Error(err))
			http.Error(w, "fail to get events", http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, list)
	}
}

func roomParam(w http.ResponseWriter, r *http.Request, hub *ws.Hub) (*ws.Room, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "room"))
	if err != nil {
		http.Error(w, "bad room", http.StatusBadRequest)
		return nil, false
	}
	room, ok := hub.Room(id)
	if !ok {
		http.Error(w, "room not exist", http.StatusNotFound)
		return nil, false
	}
	return room, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.From(r.Context()).Warn("encode response", zap.Error(err))
	}
}
