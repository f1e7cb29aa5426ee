// Package server wires the coordination components into one process and runs
// the HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"voicehooks/agent/internal/api"
	"voicehooks/agent/internal/config"
	"voicehooks/agent/internal/debuglog"
	"voicehooks/agent/internal/events"
	"voicehooks/agent/internal/floor"
	"voicehooks/agent/internal/hub"
	"voicehooks/agent/internal/loop"
	"voicehooks/agent/internal/sound"
	"voicehooks/agent/internal/speech"
	"voicehooks/agent/internal/state"
	"voicehooks/agent/internal/store"
	"voicehooks/agent/internal/wait"
)

// HealthService is the name reported through the gRPC health protocol.
const HealthService = "voicehooks.Coordinator"

type App struct {
	Cfg        config.Config
	Trace      *events.Log
	Store      *store.Store
	Prefs      *state.Preferences
	Turns      *state.Turns
	Hub        *hub.Hub
	Streams    *hub.Server
	Waiter     *wait.Coordinator
	Gate       *floor.Gate
	Speaker    *speech.Speaker
	Dispatcher *loop.Dispatcher
	Handler    http.Handler
}

// New builds the process-wide state. player and voice may be nil.
func New(cfg config.Config, player sound.Player, voice sound.Voice) *App {
	debuglog.SetEnabled(cfg.Debug)

	a := &App{Cfg: cfg}
	a.Trace = events.NewLog(cfg.Events.Max)
	a.Store = store.New(a.Trace)
	a.Prefs = state.NewPreferences()
	a.Turns = state.NewTurns()

	// Nobody left to listen or play replies: turn both voice features off.
	a.Hub = hub.New(func() {
		log.Printf("[hub] last observer disconnected, disabling voice features")
		a.Prefs.Reset()
		a.Trace.Append("voice_features_reset", nil)
	})
	a.Streams = hub.NewServer(a.Hub, cfg.Server.ObserverSecret)
	a.Dispatcher = loop.New(a.Store, a.Prefs, a.Trace)
	a.Streams.OnMessage = a.Dispatcher.OnMessage

	var sp wait.SoundPlayer
	if player != nil {
		sp = player
	}
	a.Waiter = wait.New(a.Store, a.Prefs, a.Hub, sp, a.Trace, wait.Config{
		MaxDuration:  cfg.Wait.Timeout,
		PollInterval: cfg.Wait.PollInterval,
	})
	a.Gate = floor.New(a.Store, a.Prefs, a.Turns, a.Waiter, a.Trace)
	a.Speaker = speech.New(a.Store, a.Hub, a.Prefs, a.Turns, voice)

	h := api.NewHandlers(cfg, api.Deps{
		Store:   a.Store,
		Prefs:   a.Prefs,
		Gate:    a.Gate,
		Waiter:  a.Waiter,
		Speaker: a.Speaker,
		Streams: a.Streams,
		Trace:   a.Trace,
	})
	a.Handler = api.LogMiddleware(api.NewRouter(h))
	return a
}

// NewGRPCServer serves the standard health protocol with keepalive settings
// tuned for fast detection of dead clients.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	kap := keepalive.ServerParameters{
		MaxConnectionIdle:     2 * time.Minute,
		MaxConnectionAge:      15 * time.Minute,
		MaxConnectionAgeGrace: 30 * time.Second,
		Time:                  30 * time.Second,
		Timeout:               10 * time.Second,
	}
	kasp := keepalive.EnforcementPolicy{
		MinTime:             10 * time.Second,
		PermitWithoutStream: true,
	}
	s := grpc.NewServer(grpc.KeepaliveParams(kap), grpc.KeepaliveEnforcementPolicy(kasp))
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// Run serves until ctx is cancelled, then drains both listeners.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Cfg.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Request contexts end with ctx so streams and in-flight waits unblock on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var (
		gs *grpc.Server
		hs *health.Server
	)
	if a.Cfg.Server.GRPCPort != "" && a.Cfg.Server.GRPCPort != "0" {
		addr := a.Cfg.Server.Host + ":" + a.Cfg.Server.GRPCPort
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		gs, hs = NewGRPCServer()
		go func() {
			log.Printf("grpc health listening on %s", addr)
			if err := gs.Serve(l); err != nil {
				log.Printf("grpc serve error: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		if gs != nil {
			gs.Stop()
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutdown signal received; stopping server...")
	if hs != nil {
		hs.Shutdown()
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutCtx)
	if gs != nil {
		gs.GracefulStop()
	}
	return err
}
