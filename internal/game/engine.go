// internal/game/engine.go
//
// State machine for one player's daily game.
// Responsibilities:
//   - Start a game from today's puzzle, fresh or from a saved session.
//   - Apply guesses: reveal the next clue on a miss, reveal everything on a hit.
//   - Finalize into Over exactly once and produce the share summary.
//
// Notes:
//   - The machine owns all of its state; callers only get copies via State().
//   - All rendering goes through Presentation. The machine never reads it back.
//   - A restored session always finalizes as a loss, even when guesses remain.
//     Saved progress only carries a count, so there is nothing to continue from.

package game

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/robalobadob/wikipedle/internal/puzzle"
)

var motivators = []string{
	"You're Insane!",
	"...are you Ken Jennigs?",
	"par",
	"Close one!",
	"Whew...",
	"You'd better read that article!",
}

// clueGlyphs prefix each clue slot and make up the share data.
var clueGlyphs = []string{"📚 ", "📰 ", "👀 ", "🤦 ", "🤦 ", "🤦 "}

const brainGlyph = "🧠"

const articleBaseURL = "https://en.wikipedia.org/wiki/"

// Machine is not safe for concurrent use; callers serialize access.
type Machine struct {
	view Presentation

	status     Status
	guessCount int
	clues      []string
	answer     string
	results    []GuessResult
	revealed   int
	won        bool
	share      string
	summary    *Summary
}

// New returns a machine in NotReady that renders through view.
func New(view Presentation) *Machine {
	if view == nil {
		view = Discard
	}
	return &Machine{view: view, status: StatusNotReady}
}

// Start moves the machine from NotReady to Active, or straight to Over when
// restored carries a non-zero guess count.
func (m *Machine) Start(p puzzle.Puzzle, restored *SavedSession) error {
	if m.status != StatusNotReady {
		return ErrAlreadyStarted
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}
	m.clues = append([]string(nil), p.Clues...)
	m.answer = p.Answer
	m.status = StatusActive

	if restored == nil || restored.GuessCount == 0 {
		m.reveal(0)
		m.share = glyph(0)
		return nil
	}
	m.restore(*restored)
	return nil
}

// restore reproduces the end screen for a saved guess count k:
// slots before k red, slot k yellow, the rest green, every clue shown.
func (m *Machine) restore(saved SavedSession) {
	k := lo.Clamp(saved.GuessCount, 1, MaxGuesses+1)
	m.guessCount = k
	m.results = lo.Times(k, func(i int) GuessResult {
		return GuessResult{Index: i, Correct: false}
	})
	for i := range m.clues {
		m.reveal(i)
		switch {
		case i < k:
			m.view.GuessColored(i, ColorRed)
		case i == k:
			m.view.GuessColored(i, ColorYellow)
		default:
			m.view.GuessColored(i, ColorGreen)
		}
	}
	m.share = saved.ShareSummary
	if m.share == "" {
		m.share = strings.Join(lo.Times(k+1, glyph), "")
	}
	m.finalize(false)
}

// SubmitGuess applies one guess. It returns ErrNotReady before Start and
// ErrGameOver once the game has ended; neither changes any state.
//
// The comparison lowercases both sides and nothing else: whitespace counts.
func (m *Machine) SubmitGuess(text string) (State, error) {
	switch m.status {
	case StatusNotReady:
		return m.State(), ErrNotReady
	case StatusOver:
		return m.State(), ErrGameOver
	}

	m.guessCount++
	m.share += glyph(m.guessCount)
	slot := m.guessCount - 1

	if strings.ToLower(text) == strings.ToLower(m.answer) {
		m.results = append(m.results, GuessResult{Index: slot, Correct: true})
		for i := m.guessCount; i < len(m.clues); i++ {
			m.reveal(i)
			m.view.GuessColored(i, ColorGreen)
		}
		m.view.GuessColored(slot, ColorYellow)
		m.finalize(true)
		return m.State(), nil
	}

	m.results = append(m.results, GuessResult{Index: slot, Correct: false})
	m.view.GuessColored(slot, ColorRed)
	if m.guessCount > MaxGuesses {
		m.finalize(false)
		return m.State(), nil
	}
	if m.guessCount < len(m.clues) {
		m.reveal(m.guessCount)
	}
	return m.State(), nil
}

// Finalize ends the game. Only the first call has an effect; later calls
// return the same summary whatever win says.
func (m *Machine) Finalize(win bool) Summary {
	if m.summary != nil {
		return *m.summary
	}
	if m.status == StatusNotReady {
		return Summary{}
	}
	return m.finalize(win)
}

func (m *Machine) finalize(win bool) Summary {
	if m.summary != nil {
		return *m.summary
	}
	m.status = StatusOver
	m.won = win
	if win {
		m.share += brainGlyph
	}
	s := Summary{
		GuessCount: m.guessCount,
		Won:        win,
		Answer:     m.answer,
		AnswerURL:  ArticleURL(m.answer),
		Motivator:  Motivator(m.guessCount),
		ShareData:  m.share,
	}
	m.summary = &s
	m.view.GameOver(s)
	return s
}

func (m *Machine) reveal(i int) {
	if i < 0 || i >= len(m.clues) {
		return
	}
	m.view.ClueRevealed(i, glyph(i)+m.clues[i])
	if i+1 > m.revealed {
		m.revealed = i + 1
	}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return State{
		Status:     m.status,
		GuessCount: m.guessCount,
		MaxGuesses: MaxGuesses,
		Clues:      append([]string(nil), m.clues...),
		Answer:     m.answer,
		Results:    append([]GuessResult(nil), m.results...),
		Revealed:   m.revealed,
		Won:        m.won,
	}
}

// Summary returns the final summary once the game is over.
func (m *Machine) Summary() (Summary, bool) {
	if m.summary == nil {
		return Summary{}, false
	}
	return *m.summary, true
}

// ShareData returns the glyphs accumulated so far.
func (m *Machine) ShareData() string { return m.share }

// ShareText formats the clipboard text for a finished game.
func ShareText(s Summary, pageURL string) string {
	return fmt.Sprintf("Wikipedle %d tries.\n%s\n%s", s.GuessCount, s.ShareData, pageURL)
}

// ArticleURL links an article title on English Wikipedia.
func ArticleURL(title string) string {
	return articleBaseURL + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// Motivator returns the message for a game that ended on guess n.
// n of zero (finalized before any guess) maps to the first message.
func Motivator(n int) string {
	return motivators[lo.Clamp(n-1, 0, len(motivators)-1)]
}

func glyph(i int) string {
	return clueGlyphs[lo.Clamp(i, 0, len(clueGlyphs)-1)]
}
