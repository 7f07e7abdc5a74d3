// internal/game/types.go
//
// Core type definitions for the daily game state machine.
// Defines:
//   - Status: NotReady → Active → Over.
//   - Color: the clue slot colors the machine asks the presentation to apply.
//   - State: a copy of the machine's state for callers.
//   - SavedSession: progress restored from the persistence store.
//   - Summary: the finalized result (answer link, motivator, share data).
//   - Presentation: the render calls the machine makes.

package game

import "errors"

// MaxGuesses is the number of wrong guesses allowed before the sixth ends the game.
const MaxGuesses = 5

var (
	ErrNotReady       = errors.New("game: puzzle not loaded yet")
	ErrGameOver       = errors.New("game: game is over")
	ErrAlreadyStarted = errors.New("game: already started")
	ErrInvalidPuzzle  = errors.New("game: puzzle needs clues and an answer")
)

// Status is the machine's coarse state.
type Status int

const (
	StatusNotReady Status = iota
	StatusActive
	StatusOver
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusOver:
		return "over"
	default:
		return "not_ready"
	}
}

// Color is applied to a clue slot.
type Color string

const (
	ColorRed    Color = "red"    // wrong guess on this slot
	ColorYellow Color = "yellow" // winning or most recent slot
	ColorGreen  Color = "green"  // revealed after the game was decided
)

// GuessResult records one submitted guess.
type GuessResult struct {
	Index   int  `json:"index"`
	Correct bool `json:"correct"`
}

// State is a snapshot of the machine. Slices are copies.
type State struct {
	Status     Status        `json:"status"`
	GuessCount int           `json:"guessCount"`
	MaxGuesses int           `json:"maxGuesses"`
	Clues      []string      `json:"-"`
	Answer     string        `json:"-"`
	Results    []GuessResult `json:"results"`
	Revealed   int           `json:"revealed"` // clues shown so far
	Won        bool          `json:"won"`
}

// Over reports whether the game has ended.
func (s State) Over() bool { return s.Status == StatusOver }

// SavedSession is the progress kept in the persistence store until midnight.
type SavedSession struct {
	GuessCount   int
	ShareSummary string
}

// Summary is produced once, when the game ends.
type Summary struct {
	GuessCount int    `json:"guessCount"`
	Won        bool   `json:"won"`
	Answer     string `json:"answer"`
	AnswerURL  string `json:"answerUrl"`
	Motivator  string `json:"motivator"`
	ShareData  string `json:"shareData"` // one glyph per attempt, plus the brain on a win
}

// Presentation receives render calls from the machine. It never reports back.
type Presentation interface {
	ClueRevealed(index int, html string)
	GuessColored(index int, color Color)
	GameOver(summary Summary)
}

// Discard is a Presentation that renders nothing.
var Discard Presentation = discard{}

type discard struct{}

func (discard) ClueRevealed(int, string) {}
func (discard) GuessColored(int, Color)  {}
func (discard) GameOver(Summary)         {}
