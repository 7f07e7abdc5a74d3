// internal/puzzle/puzzle.go
//
// Puzzle data for the daily game.
// Defines:
//   - Puzzle: one day's clue list and answer title.
//   - Document/Entry: the remote JSON document, an array indexed by day of month.
//   - Lookup: checked day-of-month lookup into a Document.
//
// Notes:
//   - The document is indexed by the calendar day (1–31) as-is, so entry 0 is
//     never played. Days outside the document are reported as ErrNotFound and
//     never fall back to another day.

package puzzle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the document has no entry for the day.
	ErrNotFound = errors.New("puzzle: no entry for day")
	// ErrMalformed is returned when the day's entry lacks clues or an answer.
	ErrMalformed = errors.New("puzzle: malformed entry")
)

// Puzzle is one day's clue set and answer title. Treat as immutable.
type Puzzle struct {
	Day    int      // calendar day of month (1–31)
	Clues  []string // revealed in order, one per guess
	Answer string   // canonical Wikipedia article title
}

// Validate reports ErrMalformed when the puzzle cannot be played.
func (p Puzzle) Validate() error {
	if len(p.Clues) == 0 {
		return fmt.Errorf("%w: day %d has no clues", ErrMalformed, p.Day)
	}
	if strings.TrimSpace(p.Answer) == "" {
		return fmt.Errorf("%w: day %d has no answer", ErrMalformed, p.Day)
	}
	return nil
}

// Entry is one element of the puzzle document.
type Entry struct {
	Clues  []string `json:"clues"`
	Answer string   `json:"answer"`
}

// Document is the full puzzle document as served by the source.
type Document []Entry

// Lookup returns the puzzle for the given day of month.
func Lookup(doc Document, day int) (Puzzle, error) {
	if day < 1 || day >= len(doc) {
		return Puzzle{}, fmt.Errorf("%w: day %d (document has %d entries)", ErrNotFound, day, len(doc))
	}
	e := doc[day]
	p := Puzzle{
		Day:    day,
		Clues:  append([]string(nil), e.Clues...),
		Answer: e.Answer,
	}
	if err := p.Validate(); err != nil {
		return Puzzle{}, err
	}
	return p, nil
}
