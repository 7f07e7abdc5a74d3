// internal/httpserver/view.go
//
// view records what the game machine asked to render, and turns it into the
// JSON payload and the HTML page. It is the server's game.Presentation.
// Only revealed clue text is ever recorded, so nothing hidden leaks.

package httpserver

import (
	"github.com/samber/lo"

	"github.com/robalobadob/wikipedle/internal/game"
)

// clueView is one clue slot as rendered.
type clueView struct {
	Index int        `json:"index"`
	Text  string     `json:"text,omitempty"`
	Color game.Color `json:"color,omitempty"`
	Shown bool       `json:"shown"`
}

type view struct {
	clues   []clueView
	summary *game.Summary
}

func newView() *view { return &view{} }

func (v *view) slot(i int) *clueView {
	for len(v.clues) <= i {
		v.clues = append(v.clues, clueView{Index: len(v.clues)})
	}
	return &v.clues[i]
}

func (v *view) ClueRevealed(i int, html string) {
	c := v.slot(i)
	c.Text = html
	c.Shown = true
}

func (v *view) GuessColored(i int, color game.Color) {
	v.slot(i).Color = color
}

func (v *view) GameOver(s game.Summary) {
	v.summary = &s
}

// gameView is the payload of /api/state and /api/guess, and the page model.
type gameView struct {
	Date           string        `json:"date"`
	Status         string        `json:"status"`
	Puzzle         string        `json:"puzzle"` // loading | ready | failed
	GuessCount     int           `json:"guessCount"`
	MaxGuesses     int           `json:"maxGuesses"`
	Clues          []clueView    `json:"clues"`
	Over           bool          `json:"over"`
	Won            bool          `json:"won"`
	ShareData      string        `json:"shareData"`
	Summary        *game.Summary `json:"summary,omitempty"`
	SeenOnboarding bool          `json:"seenOnboarding"`
	Error          string        `json:"error,omitempty"`
	Notice         string        `json:"notice,omitempty"`
}

// snapshot builds the payload. Slots that were never revealed are padded up
// to the puzzle's clue count so the page can draw empty rows.
func (v *view) snapshot(m *game.Machine) gameView {
	st := m.State()
	total := lo.Max([]int{len(st.Clues), len(v.clues)})
	clues := make([]clueView, total)
	for i := range clues {
		clues[i] = clueView{Index: i}
		if i < len(v.clues) {
			clues[i] = v.clues[i]
		}
	}
	gv := gameView{
		Status:     st.Status.String(),
		GuessCount: st.GuessCount,
		MaxGuesses: st.MaxGuesses,
		Clues:      clues,
		Over:       st.Over(),
		Won:        st.Won,
		ShareData:  m.ShareData(),
	}
	if v.summary != nil {
		s := *v.summary
		gv.Summary = &s
	}
	return gv
}
