package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tk21111/sketch_server/api"
	"github.com/Tk21111/sketch_server/config"
	"github.com/Tk21111/sketch_server/db"
	"github.com/Tk21111/sketch_server/internal/logx"
	"github.com/Tk21111/sketch_server/middleware"
	"github.com/Tk21111/sketch_server/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "sketch-server",
		Short:        "Multi-room tiled drawing server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logx.Init(s.Env)
			defer logx.L.Sync()

			return serve(cmd.Context(), s)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML settings file")
	return cmd
}

func serve(ctx context.Context, s config.Settings) (err error) {
	log := logx.L

	// journal stays an untyped nil when disabled so Room's nil check holds
	var (
		journal ws.Journal
		events  api.EventSource
		writer  *db.Writer
	)
	if s.JournalPath != "" {
		writer, err = db.Open(s.JournalPath, log.Named("journal"))
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		journal, events = writer, writer
		defer func() {
			err = multierr.Append(err, writer.Close())
		}()
	}

	hub := ws.NewHub(s, log, journal)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(s.AllowedOrigin))
	r.Method(http.MethodGet, "/ws/{room}/{name}", ws.NewHandler(hub, s))
	api.Routes(r, hub, events)

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", s.Addr),
			zap.Int("rooms", hub.Len()),
			zap.Bool("journal", writer != nil),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// hijacked websocket connections are not tracked by Shutdown; they
		// end with the process
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
