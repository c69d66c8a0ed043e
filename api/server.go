package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

// StatsFunc returns a JSON-serializable snapshot of the running pipeline.
type StatsFunc func(ctx context.Context) any

// Player is the playback lifecycle exposed over HTTP.
type Player interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

// Api serves the web client, the stats endpoint and the playback controls.
type Api struct {
	listen string
	static string
	stats  StatsFunc
	player Player
}

// NewApi creates an instance of an Api.
func NewApi(listen, static string, stats StatsFunc, player Player) *Api {
	a := new(Api)
	a.listen = listen
	a.static = static
	a.stats = stats
	a.player = player
	return a
}

// Handler builds the routes. Playback started from a request runs under ctx,
// not under the request.
func (a *Api) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/playback/start", a.handlePlayback(func() { a.player.Start(ctx) }))
	mux.HandleFunc("/playback/stop", a.handlePlayback(func() { a.player.Stop(ctx) }))
	mux.Handle("/", http.FileServer(http.Dir(a.static)))
	return mux
}

func (a *Api) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.stats(r.Context())); err != nil {
		logger.Errorf(r.Context(), "unable to write the stats: %v", err)
	}
}

func (a *Api) handlePlayback(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if a.player == nil {
			http.Error(w, "playback control is not available", http.StatusNotImplemented)
			return
		}
		fn()
		w.WriteHeader(http.StatusNoContent)
	}
}

// Serve listens until ctx is cancelled.
func (a *Api) Serve(ctx context.Context) error {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	srv := &http.Server{
		Addr:        a.listen,
		Handler:     a.Handler(ctx),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	observability.Go(ctx, func() {
		<-ctx.Done()
		shutdownCtx, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancelFn()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "unable to shut the API server down: %v", err)
		}
	})

	logger.Infof(ctx, "listening on %s", a.listen)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("unable to serve on '%s': %w", a.listen, err)
}
