// internal/httpserver/server.go
//
// HTTP server wiring for the Wikipedle backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts,
//     access log, CORS, browser identity, rate limits).
//   - Page and game endpoints (routes_game.go).
//   - Background upkeep: puzzle load for the new day, store sweep, pruning
//     yesterday's live games.
//   - Graceful shutdown when the serve context ends.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wikipedle/assets"
	"github.com/robalobadob/wikipedle/internal/daily"
	"github.com/robalobadob/wikipedle/internal/puzzle"
	"github.com/robalobadob/wikipedle/internal/store"
)

// Searcher looks up article titles for autocomplete.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Options configures a Server.
type Options struct {
	Store    store.Store
	Puzzles  *puzzle.Loader
	Search   Searcher
	Location *time.Location // "local" for midnight and day of month

	Secret       string // browser cookie signing secret
	SecureCookie bool
	ClientOrigin string // CORS origin; empty disables CORS headers
	PublicURL    string // page URL for share text; empty derives it from the request

	RateLimitRPS   float64
	RateLimitBurst int
	SweepInterval  time.Duration

	Now func() time.Time // defaults to time.Now
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	opts    Options
	store   store.Store
	puzzles *puzzle.Loader
	search  Searcher
	ident   *identity
	limiter *rateLimiter
	games   *registry
	page    *template.Template
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Minute
	}
	s := &Server{
		r:       chi.NewRouter(),
		opts:    opts,
		store:   opts.Store,
		puzzles: opts.Puzzles,
		search:  opts.Search,
		ident:   newIdentity(opts.Secret, opts.SecureCookie, opts.Now),
		limiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		games:   newRegistry(),
		page:    template.Must(template.ParseFS(assets.Templates(), "index.html")),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(cors(opts.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/health", s.handleHealth)

	// --- game ---
	s.r.Group(func(r chi.Router) {
		r.Use(s.ident.middleware) // browser cookie → namespace
		s.mountGame(r)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})
	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.puzzles.Begin(s.now())
	go s.upkeep(ctx)

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received, shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("server shutdown complete")
	return nil
}

// upkeep runs periodic maintenance until ctx is done.
func (s *Server) upkeep(ctx context.Context) {
	t := time.NewTicker(s.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	now := s.now()
	s.puzzles.Begin(now)
	pruned := s.games.prune(daily.DateKey(now))
	evicted := s.limiter.evictIdle(time.Now().Add(-s.opts.SweepInterval))
	n, err := s.store.Sweep(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("store sweep")
		return
	}
	log.Debug().Int("expired", n).Int("prunedGames", pruned).Int("evictedLimiters", evicted).Msg("sweep complete")
}

// now is the configured clock in the configured location.
func (s *Server) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, readiness, _ := s.puzzles.Today(s.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"puzzle": readiness.String(),
		"games":  s.games.len(),
	})
}

// ------------------------------- small util --------------------------------

// errorBody is the JSON error payload.
type errorBody struct {
	Error   string    `json:"error"`
	Message string    `json:"message,omitempty"`
	Game    *gameView `json:"game,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
