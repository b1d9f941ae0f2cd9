// Command bombard opens many websocket clients against one room and floods it
// with random strokes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tk21111/sketch_server/internal/logx"
	"github.com/Tk21111/sketch_server/sketch"
	"github.com/Tk21111/sketch_server/wire"
)

type options struct {
	url      string
	room     int
	clients  int
	rate     int
	duration time.Duration
	points   int
	spread   int32
	layers   int
}

type counters struct {
	sent      atomic.Uint64
	sentBytes atomic.Uint64
	received  atomic.Uint64
	recvBytes atomic.Uint64
	bad       atomic.Uint64
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:          "bombard",
		Short:        "Flood a sketch-server room with random strokes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			logx.Init("dev")
			defer logx.L.Sync()
			return run(cmd.Context(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.url, "url", "ws://localhost:8081/ws", "websocket base url")
	f.IntVar(&o.room, "room", 0, "room index")
	f.IntVar(&o.clients, "clients", 10, "concurrent connections")
	f.IntVar(&o.rate, "rate", 20, "strokes per second per client")
	f.DurationVar(&o.duration, "duration", 10*time.Second, "how long to bombard")
	f.IntVar(&o.points, "points", 16, "points per stroke")
	f.Int32Var(&o.spread, "spread", 2048, "strokes start within [-spread, spread)")
	f.IntVar(&o.layers, "layers", 4, "layers to spread strokes over")
	return cmd
}

const (
	maxRate   = 1000
	maxSpread = 1 << 29
	maxLayers = 256
)

func (o options) validate() error {
	if o.clients <= 0 || o.rate <= 0 || o.points <= 0 || o.spread <= 0 || o.layers <= 0 {
		return errors.New("clients, rate, points, spread and layers must be positive")
	}
	switch {
	case o.rate > maxRate:
		return fmt.Errorf("rate must be at most %d", maxRate)
	case o.spread > maxSpread:
		return fmt.Errorf("spread must be at most %d", maxSpread)
	case o.layers > maxLayers:
		return fmt.Errorf("layers must be at most %d", maxLayers)
	}
	return nil
}

func run(ctx context.Context, o options) error {
	ctx, cancel := context.WithTimeout(ctx, o.duration)
	defer cancel()

	var c counters
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := range o.clients {
		g.Go(func() error {
			return bombard(gctx, o, uint64(i), &c)
		})
	}
	err := g.Wait()

	elapsed := time.Since(start)
	logx.L.Info("💥 Bombardment finished",
		zap.Duration("elapsed", elapsed),
		zap.Uint64("sent", c.sent.Load()),
		zap.String("sentBytes", humanize.Bytes(c.sentBytes.Load())),
		zap.Uint64("received", c.received.Load()),
		zap.String("receivedBytes", humanize.Bytes(c.recvBytes.Load())),
		zap.Uint64("undecodable", c.bad.Load()),
		zap.String("sendRate", fmt.Sprintf("%.0f/s", float64(c.sent.Load())/elapsed.Seconds())),
	)
	return err
}

func bombard(ctx context.Context, o options, seed uint64, c *counters) error {
	name := "bomb-" + uuid.NewString()[:8]
	log := logx.L.With(zap.String("name", name))

	target := fmt.Sprintf("%s/%d/%s", o.url, o.room, url.PathEscape(name))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	log.Debug("🔥 connected", zap.String("url", target))

	// watch the whole area strokes land in so every stroke echoes back
	view, err := wire.EncodeClient(wire.DeclareViewport{
		UpperLeft:  sketch.Offset{X: -o.spread - 100, Y: -o.spread - 100},
		LowerRight: sketch.Offset{X: o.spread + 100, Y: o.spread + 100},
	})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, view); err != nil {
		return fmt.Errorf("declare viewport: %w", err)
	}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			c.received.Add(1)
			c.recvBytes.Add(uint64(len(data)))
			if _, err := wire.DecodeServer(data); err != nil {
				c.bad.Add(1)
			}
		}
	}()

	gen := newStrokeGen(name, seed, o.spread, o.points)
	ticker := time.NewTicker(time.Second / time.Duration(o.rate))
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil

		case <-ticker.C:
			data, err := wire.EncodeClient(wire.SubmitStroke{
				Layer:  uint8(n % o.layers),
				Stroke: gen.next(),
			})
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Warn("write error", zap.Error(err))
				return nil
			}
			c.sent.Add(1)
			c.sentBytes.Add(uint64(len(data)))
		}
	}
}
