// internal/session/session.go
//
// Reads and writes one browser's saved game in the key/value store.
//
// Keys:
//   - seenOnboarding: "true" once the about panel was shown; kept for a year.
//   - guessCount:     decimal guess count; expires at local midnight.
//   - shareSummary:   share glyphs so far; expires at local midnight.
//
// A value that cannot be read or parsed means "no saved game". It is logged
// and never surfaces as an error.

package session

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wikipedle/internal/daily"
	"github.com/robalobadob/wikipedle/internal/game"
	"github.com/robalobadob/wikipedle/internal/store"
)

const (
	KeySeenOnboarding = "seenOnboarding"
	KeyGuessCount     = "guessCount"
	KeyShareSummary   = "shareSummary"
)

// OnboardingTTL keeps the onboarding flag effectively forever.
const OnboardingTTL = 365 * 24 * time.Hour

// Load returns today's saved game, or nil when there is none to restore.
func Load(ctx context.Context, st store.Store) *game.SavedSession {
	raw, ok, err := st.Get(ctx, KeyGuessCount)
	if err != nil {
		log.Warn().Err(err).Msg("read saved guess count; starting fresh")
		return nil
	}
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("corrupted saved guess count; starting fresh")
		return nil
	}
	share, _, err := st.Get(ctx, KeyShareSummary)
	if err != nil {
		log.Warn().Err(err).Msg("read saved share summary")
		share = ""
	}
	return &game.SavedSession{GuessCount: n, ShareSummary: share}
}

// SeenOnboarding reports whether the about panel was already shown.
func SeenOnboarding(ctx context.Context, st store.Store) bool {
	v, ok, err := st.Get(ctx, KeySeenOnboarding)
	if err != nil {
		log.Warn().Err(err).Msg("read onboarding flag")
		return false
	}
	return ok && v == "true"
}

// SaveOnboarding records that the about panel was shown.
func SaveOnboarding(ctx context.Context, st store.Store) error {
	return st.Set(ctx, KeySeenOnboarding, "true", OnboardingTTL)
}

// SaveProgress stores the guess count and share data until local midnight.
func SaveProgress(ctx context.Context, st store.Store, guessCount int, share string, now time.Time) error {
	ttl := daily.UntilMidnight(now)
	if err := st.Set(ctx, KeyGuessCount, strconv.Itoa(guessCount), ttl); err != nil {
		return err
	}
	return st.Set(ctx, KeyShareSummary, share, ttl)
}

// Record persists the result of a transition: progress whenever a guess was
// made or the game ended, and the onboarding flag once it is over.
func Record(ctx context.Context, st store.Store, state game.State, share string, now time.Time) error {
	if state.GuessCount == 0 && !state.Over() {
		return nil
	}
	if err := SaveProgress(ctx, st, state.GuessCount, share, now); err != nil {
		return err
	}
	if state.Over() {
		return SaveOnboarding(ctx, st)
	}
	return nil
}
