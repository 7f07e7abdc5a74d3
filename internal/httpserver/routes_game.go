// internal/httpserver/routes_game.go
//
// HTTP routes for today's game.
//   - GET  /                → HTML page
//   - GET  /api/state       → JSON game view
//   - POST /api/guess       → submit a guess (JSON or form)
//   - POST /api/onboarding  → mark the about panel as seen
//   - GET  /api/share       → share text once the game is over
//   - GET  /api/share.png   → QR code of the page URL
//   - GET  /api/search      → article title autocomplete
//
// Each browser has one live machine per date, held in memory and keyed by
// browserID|date. Only a guess registers one. Reads without a live machine
// (first visit today, cookie-less clients, or after a restart) render from a
// throwaway machine started from the browser's persisted progress, which is
// the same state the guess will see.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/robalobadob/wikipedle/internal/daily"
	"github.com/robalobadob/wikipedle/internal/game"
	"github.com/robalobadob/wikipedle/internal/puzzle"
	"github.com/robalobadob/wikipedle/internal/session"
	"github.com/robalobadob/wikipedle/internal/store"
)

const (
	msgNotReady    = "Im not ready yet..."
	msgUnavailable = "unable to load today's puzzle"
	msgGameOver    = "Today's game is over. Come back tomorrow!"
)

// maxGuessBody bounds a guess request body, JSON or form.
const maxGuessBody = 4 << 10

// mountGame registers the page and /api game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Get("/", s.handleHome)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/share", s.handleShare)
		r.Get("/share.png", s.handleShareQR)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.middleware)
			r.Post("/guess", s.handleGuess)
			r.Post("/onboarding", s.handleOnboarding)
			r.Get("/search", s.handleSearch)
		})
	})
}

// -----------------------------------------------------------------------------
// live games

// liveGame is one browser's machine for one date.
type liveGame struct {
	mu      sync.Mutex // serializes transitions for this browser
	date    string
	machine *game.Machine
	view    *view
}

// registry holds live games keyed by browserID|date.
type registry struct {
	mu    sync.Mutex
	games map[string]*liveGame
}

func newRegistry() *registry {
	return &registry{games: make(map[string]*liveGame)}
}

func newLiveGame(date string) *liveGame {
	v := newView()
	return &liveGame{date: date, machine: game.New(v), view: v}
}

// get returns the browser's live game, registering a new one if needed.
func (g *registry) get(browserID, date string) *liveGame {
	key := browserID + "|" + date
	g.mu.Lock()
	defer g.mu.Unlock()
	if lg, ok := g.games[key]; ok {
		return lg
	}
	lg := newLiveGame(date)
	g.games[key] = lg
	return lg
}

// peek returns the browser's live game, or an unregistered one.
func (g *registry) peek(browserID, date string) *liveGame {
	g.mu.Lock()
	lg, ok := g.games[browserID+"|"+date]
	g.mu.Unlock()
	if ok {
		return lg
	}
	return newLiveGame(date)
}

// prune drops games that are not for today and reports how many.
func (g *registry) prune(today string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for k, lg := range g.games {
		if lg.date != today {
			delete(g.games, k)
			n++
		}
	}
	return n
}

func (g *registry) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.games)
}

// turn is the context of one request against the browser's game.
type turn struct {
	lg        *liveGame
	st        store.Store // the browser's namespace
	readiness puzzle.Readiness
	loadErr   error
}

// withGame runs fn with the browser's live game locked. The machine is
// started first if today's puzzle has become available. Only register (the
// guess route) keeps the game in the registry.
func (s *Server) withGame(r *http.Request, register bool, fn func(t *turn)) {
	ctx := r.Context()
	bid := browserID(ctx)
	now := s.now()
	date := daily.DateKey(now)
	t := &turn{st: store.Namespace(s.store, bid)}
	if register {
		t.lg = s.games.get(bid, date)
	} else {
		t.lg = s.games.peek(bid, date)
	}

	t.lg.mu.Lock()
	defer t.lg.mu.Unlock()

	if t.lg.machine.State().Status != game.StatusNotReady {
		t.readiness = puzzle.Ready
		fn(t)
		return
	}

	p, readiness, err := s.puzzles.Today(now)
	t.readiness, t.loadErr = readiness, err
	if readiness == puzzle.Ready {
		saved := session.Load(ctx, t.st)
		if err := t.lg.machine.Start(p, saved); err != nil {
			t.readiness, t.loadErr = puzzle.Failed, err
		} else if saved != nil && saved.GuessCount > 0 {
			s.record(ctx, t)
		}
	}
	if t.loadErr != nil {
		log.Warn().Err(t.loadErr).Str("browser", bid).Msg("today's puzzle unavailable")
	}
	fn(t)
}

// record persists the machine's progress into the browser's namespace.
func (s *Server) record(ctx context.Context, t *turn) {
	m := t.lg.machine
	if err := session.Record(ctx, t.st, m.State(), m.ShareData(), s.now()); err != nil {
		log.Warn().Err(err).Msg("save progress")
	}
}

// viewOf builds the payload for the current turn.
func (s *Server) viewOf(ctx context.Context, t *turn) gameView {
	gv := t.lg.view.snapshot(t.lg.machine)
	gv.Date = t.lg.date
	gv.Puzzle = t.readiness.String()
	gv.SeenOnboarding = session.SeenOnboarding(ctx, t.st)
	switch t.readiness {
	case puzzle.Loading:
		gv.Notice = msgNotReady
	case puzzle.Failed:
		gv.Error = msgUnavailable
	}
	return gv
}

// -----------------------------------------------------------------------------
// page + state

// pageModel is the data for index.html.
type pageModel struct {
	gameView
	ShareText string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.withGame(r, false, func(t *turn) {
		s.renderPage(w, r, http.StatusOK, s.viewOf(r.Context(), t))
	})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, gv gameView) {
	pm := pageModel{gameView: gv}
	if gv.Summary != nil {
		pm.ShareText = game.ShareText(*gv.Summary, s.pageURL(r))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, pm); err != nil {
		log.Error().Err(err).Msg("render page")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withGame(r, false, func(t *turn) {
		writeJSON(w, http.StatusOK, s.viewOf(r.Context(), t))
	})
}

// -----------------------------------------------------------------------------
// /api/guess

type guessReq struct {
	Guess string `json:"guess"`
}

// handleGuess applies one guess. The text is passed through untouched: the
// machine only lowercases it.
//
// Form posts (the page without JS) get the page back, or a redirect to it.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGuessBody)
	form := !isJSON(r)
	var p guessReq
	if form {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "")
			return
		}
		p.Guess = r.PostForm.Get("guess")
	} else if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "")
		return
	}

	s.withGame(r, true, func(t *turn) {
		ctx := r.Context()
		if t.readiness == puzzle.Failed {
			s.guessFailed(w, r, form, http.StatusServiceUnavailable, "puzzle_unavailable", msgUnavailable, t)
			return
		}

		_, err := t.lg.machine.SubmitGuess(p.Guess)
		switch {
		case errors.Is(err, game.ErrNotReady):
			s.guessFailed(w, r, form, http.StatusConflict, "not_ready", msgNotReady, t)
			return
		case errors.Is(err, game.ErrGameOver):
			s.guessFailed(w, r, form, http.StatusConflict, "game_over", msgGameOver, t)
			return
		case err != nil:
			log.Error().Err(err).Msg("submit guess")
			writeError(w, http.StatusInternalServerError, "server_error", "")
			return
		}
		s.record(ctx, t)

		if form {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, s.viewOf(ctx, t))
	})
}

func (s *Server) guessFailed(w http.ResponseWriter, r *http.Request, form bool, status int, code, msg string, t *turn) {
	gv := s.viewOf(r.Context(), t)
	if form {
		gv.Notice = msg
		s.renderPage(w, r, status, gv)
		return
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg, Game: &gv})
}

// -----------------------------------------------------------------------------
// onboarding, share, search

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	st := store.Namespace(s.store, browserID(r.Context()))
	if err := session.SaveOnboarding(r.Context(), st); err != nil {
		log.Error().Err(err).Msg("save onboarding flag")
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	if !isJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"seenOnboarding": true})
}

type shareRes struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	s.withGame(r, false, func(t *turn) {
		sum, ok := t.lg.machine.Summary()
		if !ok {
			writeError(w, http.StatusConflict, "not_over", "Finish today's game first.")
			return
		}
		u := s.pageURL(r)
		writeJSON(w, http.StatusOK, shareRes{Text: game.ShareText(sum, u), URL: u})
	})
}

func (s *Server) handleShareQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(s.pageURL(r), qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Msg("encode share QR code")
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

type searchRes struct {
	Titles []string `json:"titles"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if s.search == nil {
		writeJSON(w, http.StatusOK, searchRes{Titles: []string{}})
		return
	}
	titles, err := s.search.Search(r.Context(), q)
	if err != nil {
		log.Warn().Err(err).Str("q", q).Msg("title search")
		writeError(w, http.StatusBadGateway, "search_failed", "")
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, searchRes{Titles: titles})
}

// -----------------------------------------------------------------------------
// helpers

// pageURL is the configured public URL, or the request's own root.
func (s *Server) pageURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host + "/"
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}
