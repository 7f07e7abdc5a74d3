// config.go
//
// Command line and environment configuration.
// Every flag can also be set as WIKIPEDLE_<FLAG> (dashes become underscores),
// and a .env file in the working directory is loaded first (main.go).

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the resolved settings.
type Config struct {
	bind           string
	port           int
	puzzleSource   string
	store          string
	db             string
	timezone       string
	secret         string
	logLevel       string
	clientOrigin   string
	publicURL      string
	searchEndpoint string
	fetchTimeout   time.Duration
	rateLimitRPS   float64
	rateLimitBurst int
	sweepInterval  time.Duration
}

const defaultSecret = "dev_secret_change_me"

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.store {
	case "memory":
	case "sqlite":
		if c.db == "" {
			return errors.New("--db is required with --store=sqlite")
		}
	default:
		return fmt.Errorf("invalid store %q (must be memory or sqlite)", c.store)
	}
	if _, err := time.LoadLocation(c.timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.timezone, err)
	}
	if c.secret == "" {
		return errors.New("--secret must not be empty")
	}
	if c.publicURL != "" {
		u, err := url.Parse(c.publicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public url %q", c.publicURL)
		}
	}
	if c.rateLimitRPS <= 0 || c.rateLimitBurst < 1 {
		return errors.New("rate limit rps and burst must be positive")
	}
	if c.sweepInterval <= 0 {
		return errors.New("--sweep-interval must be positive")
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

// secureCookies reports whether the page is served over https.
func (c *Config) secureCookies() bool {
	return strings.HasPrefix(c.publicURL, "https://")
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WIKIPEDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wikipedle",
		Short:         "Guess the daily Wikipedia article from its clues.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WIKIPEDLE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: WIKIPEDLE_PORT)")
	fs.StringVar(&cfg.puzzleSource, "puzzle-source", "", "puzzle document URL or file path; empty uses the published document (env: WIKIPEDLE_PUZZLE_SOURCE)")
	fs.StringVar(&cfg.store, "store", "memory", "where browser progress is kept: memory or sqlite (env: WIKIPEDLE_STORE)")
	fs.StringVar(&cfg.db, "db", "./data/wikipedle.db", "sqlite database path (env: WIKIPEDLE_DB)")
	fs.StringVar(&cfg.timezone, "timezone", "Local", "time zone that decides the day and midnight (env: WIKIPEDLE_TIMEZONE)")
	fs.StringVar(&cfg.secret, "secret", defaultSecret, "secret for signing browser cookies (env: WIKIPEDLE_SECRET)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: WIKIPEDLE_LOG_LEVEL)")
	fs.StringVar(&cfg.clientOrigin, "client-origin", "", "allowed CORS origin; empty disables CORS (env: WIKIPEDLE_CLIENT_ORIGIN)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "page URL used in share text; empty derives it from each request (env: WIKIPEDLE_PUBLIC_URL)")
	fs.StringVar(&cfg.searchEndpoint, "search-endpoint", "", "MediaWiki API endpoint for title search (env: WIKIPEDLE_SEARCH_ENDPOINT)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 0, "timeout for loading the puzzle document; 0 means none (env: WIKIPEDLE_FETCH_TIMEOUT)")
	fs.Float64Var(&cfg.rateLimitRPS, "rate-limit-rps", 5, "requests per second allowed per client on guess and search (env: WIKIPEDLE_RATE_LIMIT_RPS)")
	fs.IntVar(&cfg.rateLimitBurst, "rate-limit-burst", 10, "burst allowed per client on guess and search (env: WIKIPEDLE_RATE_LIMIT_BURST)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", 10*time.Minute, "how often expired progress is swept (env: WIKIPEDLE_SWEEP_INTERVAL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wikipedle v{{.Version}}\n")

	cmd.SilenceUsage = true

	return cmd
}
