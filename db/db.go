package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Tk21111/sketch_server/sketch"
)

// Operation Types
const (
	OpStroke = iota
	OpUndo
	OpSync
)

const queueSize = 10000

var ErrClosed = errors.New("journal closed")

// Event is one journaled edit. Payload is the stroke as JSON for OpStroke
// rows and null for OpUndo rows.
type Event struct {
	Seq       int64           `json:"seq"`
	RoomID    int             `json:"roomId"`
	LayerID   uint8           `json:"layerId"`
	StrokeID  uint64          `json:"strokeId"`
	UserID    uint64          `json:"userId"`
	Op        string          `json:"op"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt int64           `json:"ts"`
}

type DbJob struct {
	Type   int
	Event  Event
	Result chan error
}

// Writer appends stroke events to sqlite from a single goroutine. It is an
// audit trail only; nothing reads it back into a room.
type Writer struct {
	db   *sql.DB
	log  *zap.Logger
	opCh chan DbJob
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func Open(dbPath string, log *zap.Logger) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA busy_timeout = 5000; -- Wait 5s if db is locked
    `); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS stroke_events (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id INTEGER NOT NULL,
            layer_id INTEGER NOT NULL,
            stroke_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            op TEXT NOT NULL,
            payload BLOB,
            created_at INTEGER NOT NULL
        );
    `)
	if err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_stroke_events_room
        ON stroke_events(room_id, seq);
    `)
	if err != nil {
		db.Close()
		return nil, err
	}

	stmt, err := db.Prepare(`
        INSERT INTO stroke_events
        (room_id, layer_id, stroke_id, user_id, op, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		db.Close()
		return nil, err
	}

	w := &Writer{
		db:   db,
		log:  log,
		opCh: make(chan DbJob, queueSize),
		done: make(chan struct{}),
	}
	go w.writerLoop(stmt)
	return w, nil
}

func (w *Writer) writerLoop(stmt *sql.Stmt) {
	defer close(w.done)
	defer stmt.Close()

	for job := range w.opCh {
		switch job.Type {
		case OpStroke, OpUndo:
			e := job.Event
			var payload any
			if len(e.Payload) > 0 {
				payload = []byte(e.Payload)
			}
			_, err := stmt.Exec(
				e.RoomID, e.LayerID, e.StrokeID, e.UserID,
				e.Op, payload, e.CreatedAt,
			)
			if err != nil {
				w.log.Error("journal write", zap.String("op", e.Op), zap.Error(err))
			}

		case OpSync:
			job.Result <- nil
		}
	}
}

// --- Public Write Methods ---

func (w *Writer) WriteStroke(room int, layer uint8, s sketch.PaintStroke) {
	payload, err := json.Marshal(s)
	if err != nil {
		w.log.Error("journal encode", zap.Error(err))
		return
	}
	w.enqueue(DbJob{Type: OpStroke, Event: Event{
		RoomID:    room,
		LayerID:   layer,
		StrokeID:  s.ID,
		UserID:    s.UserID,
		Op:        "stroke",
		Payload:   payload,
		CreatedAt: time.Now().UnixMilli(),
	}})
}

func (w *Writer) WriteUndo(room int, layer uint8, strokeID, userID uint64) {
	w.enqueue(DbJob{Type: OpUndo, Event: Event{
		RoomID:    room,
		LayerID:   layer,
		StrokeID:  strokeID,
		UserID:    userID,
		Op:        "undo",
		CreatedAt: time.Now().UnixMilli(),
	}})
}

func (w *Writer) enqueue(job DbJob) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.opCh <- job:
	default:
		// channel full
		w.log.Warn("journal queue full, dropping event",
			zap.Int("room", job.Event.RoomID),
			zap.Uint64("stroke", job.Event.StrokeID),
		)
	}
}

// Sync returns once every event enqueued before it has been written.
func (w *Writer) Sync(ctx context.Context) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	result := make(chan error, 1)
	select {
	case w.opCh <- DbJob{Type: OpSync, Result: result}:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and closes the database. Writes after Close are
// dropped.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.closed = true
	close(w.opCh)
	w.mu.Unlock()

	<-w.done
	return w.db.Close()
}

// --- Read Methods ---

// Events returns up to limit events of room with seq > from, oldest first.
func (w *Writer) Events(ctx context.Context, room int, from int64, limit int) ([]Event, error) {
	rows, err := w.db.QueryContext(ctx, `
        SELECT seq, room_id, layer_id, stroke_id, user_id, op, payload, created_at
        FROM stroke_events
        WHERE room_id = ? AND seq > ?
        ORDER BY seq ASC
        LIMIT ?
    `, room, from, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}

	for rows.Next() {
		var (
			e       Event
			payload []byte
		)
		if err := rows.Scan(
			&e.Seq, &e.RoomID, &e.LayerID, &e.StrokeID, &e.UserID, &e.Op, &payload, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			e.Payload = payload
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
