// main.go
//
// Entry point for the Wikipedle server.
// Loads .env, parses configuration, wires the store, puzzle loader and title
// search into the HTTP server, and serves until SIGINT/SIGTERM.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wikipedle/internal/httpserver"
	"github.com/robalobadob/wikipedle/internal/puzzle"
	"github.com/robalobadob/wikipedle/internal/store"
	"github.com/robalobadob/wikipedle/internal/wiki"
)

const releaseVersion = "0.1.0"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

// serve builds the server from cfg and runs it until ctx is done.
func serve(ctx context.Context, cfg *Config) error {
	if lvl, err := zerolog.ParseLevel(cfg.logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.secret == defaultSecret {
		log.Warn().Msg("using the development cookie secret; set WIKIPEDLE_SECRET in production")
	}

	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hc := &http.Client{Timeout: 30 * time.Second}
	loader := puzzle.NewLoader(ctx, puzzle.NewSource(cfg.puzzleSource, hc), cfg.fetchTimeout)

	srv := httpserver.New(httpserver.Options{
		Store:          st,
		Puzzles:        loader,
		Search:         wiki.NewClient(cfg.searchEndpoint, hc),
		Location:       loc,
		Secret:         cfg.secret,
		SecureCookie:   cfg.secureCookies(),
		ClientOrigin:   cfg.clientOrigin,
		PublicURL:      cfg.publicURL,
		RateLimitRPS:   cfg.rateLimitRPS,
		RateLimitBurst: cfg.rateLimitBurst,
		SweepInterval:  cfg.sweepInterval,
	})

	log.Info().
		Str("addr", cfg.addr()).
		Str("store", cfg.store).
		Str("timezone", loc.String()).
		Msg("starting wikipedle")
	return srv.Start(ctx, cfg.addr())
}

// openStore returns the configured progress store and its closer.
func openStore(cfg *Config) (store.Store, func(), error) {
	if cfg.store != "sqlite" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := store.OpenSQLite(cfg.db)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("path", cfg.db).Msg("sqlite store ready")
	return store.NewSQLiteStore(db), func() { _ = db.Close() }, nil
}
