package puzzle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wikipedle/internal/daily"
)

// Readiness describes today's puzzle load.
type Readiness int

const (
	Loading Readiness = iota
	Ready
	Failed
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// Loader loads the puzzle document at most once per local date.
// A failed load stays failed for the rest of that date; there is no retry.
type Loader struct {
	base    context.Context
	src     Source
	timeout time.Duration // zero means no timeout

	mu  sync.Mutex
	cur *dayLoad
}

type dayLoad struct {
	key  string
	done chan struct{}
	doc  Document
	err  error
}

// NewLoader returns a Loader whose fetches run under base.
func NewLoader(base context.Context, src Source, timeout time.Duration) *Loader {
	return &Loader{base: base, src: src, timeout: timeout}
}

// Begin starts the load for now's date unless one already exists.
func (l *Loader) Begin(now time.Time) {
	l.begin(daily.DateKey(now))
}

func (l *Loader) begin(key string) *dayLoad {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur != nil && l.cur.key == key {
		return l.cur
	}
	dl := &dayLoad{key: key, done: make(chan struct{})}
	l.cur = dl
	go l.run(dl)
	return dl
}

func (l *Loader) run(dl *dayLoad) {
	defer close(dl.done)
	ctx := l.base
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	start := time.Now()
	dl.doc, dl.err = l.src.Load(ctx)
	if dl.err != nil {
		log.Error().Err(dl.err).Str("date", dl.key).Msg("puzzle document load failed")
		return
	}
	log.Info().Str("date", dl.key).Int("entries", len(dl.doc)).
		Dur("took", time.Since(start)).Msg("puzzle document loaded")
}

// Today reports the puzzle for now's date without blocking.
// It starts the load for a new date on first use.
func (l *Loader) Today(now time.Time) (Puzzle, Readiness, error) {
	dl := l.begin(daily.DateKey(now))
	select {
	case <-dl.done:
	default:
		return Puzzle{}, Loading, nil
	}
	return resolve(dl, now)
}

// Wait blocks until now's load finishes or ctx is done.
func (l *Loader) Wait(ctx context.Context, now time.Time) (Puzzle, error) {
	dl := l.begin(daily.DateKey(now))
	select {
	case <-dl.done:
	case <-ctx.Done():
		return Puzzle{}, ctx.Err()
	}
	p, _, err := resolve(dl, now)
	return p, err
}

func resolve(dl *dayLoad, now time.Time) (Puzzle, Readiness, error) {
	if dl.err != nil {
		return Puzzle{}, Failed, fmt.Errorf("load puzzle for %s: %w", dl.key, dl.err)
	}
	p, err := Lookup(dl.doc, daily.DayOfMonth(now))
	if err != nil {
		return Puzzle{}, Failed, err
	}
	return p, Ready, nil
}
