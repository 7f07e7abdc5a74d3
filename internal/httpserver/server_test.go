package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/wikipedle/internal/game"
	"github.com/robalobadob/wikipedle/internal/puzzle"
	"github.com/robalobadob/wikipedle/internal/store"
)

const publicURL = "https://wikipedle.test/"

// March 1st: the document's entry 1 is today's puzzle.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testDoc() puzzle.Document {
	return puzzle.Document{
		{Clues: []string{"unused"}, Answer: "Day Zero"},
		{Clues: []string{"a", "b", "c", "d", "e", "f"}, Answer: "Example Title"},
	}
}

// stubSource returns doc or err, optionally held back until gate is closed.
type stubSource struct {
	doc  puzzle.Document
	err  error
	gate chan struct{}
}

func (s *stubSource) Load(ctx context.Context) (puzzle.Document, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.doc, s.err
}

type stubSearcher struct{ titles []string }

func (s stubSearcher) Search(_ context.Context, q string) ([]string, error) {
	if q == "" {
		return nil, nil
	}
	return s.titles, nil
}

func newTestServer(t *testing.T, st store.Store, src puzzle.Source, mutate ...func(*Options)) (*Server, *puzzle.Loader) {
	t.Helper()
	loader := puzzle.NewLoader(context.Background(), src, 0)
	opts := Options{
		Store:          st,
		Puzzles:        loader,
		Search:         stubSearcher{titles: []string{"Example Title", "Example"}},
		Location:       time.UTC,
		Secret:         "test-secret",
		PublicURL:      publicURL,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Now:            func() time.Time { return testNow },
	}
	for _, f := range mutate {
		f(&opts)
	}
	return New(opts), loader
}

// readyServer returns a server whose puzzle has finished loading.
func readyServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	s, loader := newTestServer(t, st, &stubSource{doc: testDoc()})
	if _, err := loader.Wait(context.Background(), testNow); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return s
}

// browser carries the identity cookie between requests.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func newBrowser(t *testing.T, s *Server) *browser {
	return &browser{t: t, h: s.Router()}
}

func (b *browser) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rr := httptest.NewRecorder()
	b.h.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == browserCookieName {
			b.cookie = c
		}
	}
	return rr
}

func (b *browser) guess(text string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(guessReq{Guess: text})
	return b.do(http.MethodPost, "/api/guess", "application/json", string(body))
}

func (b *browser) state() gameView {
	b.t.Helper()
	rr := b.do(http.MethodGet, "/api/state", "", "")
	if rr.Code != http.StatusOK {
		b.t.Fatalf("state status = %d: %s", rr.Code, rr.Body)
	}
	var gv gameView
	if err := json.NewDecoder(rr.Body).Decode(&gv); err != nil {
		b.t.Fatalf("decode state: %v", err)
	}
	return gv
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var eb errorBody
	if err := json.NewDecoder(rr.Body).Decode(&eb); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return eb
}

func colors(gv gameView) []game.Color {
	out := make([]game.Color, len(gv.Clues))
	for i, c := range gv.Clues {
		out[i] = c.Color
	}
	return out
}

func TestFreshStateShowsFirstClue(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	gv := b.state()

	if gv.Status != "active" || gv.Puzzle != "ready" || gv.Date != "2026-03-01" {
		t.Fatalf("state = %+v", gv)
	}
	if len(gv.Clues) != 6 {
		t.Fatalf("clue slots = %d, want 6", len(gv.Clues))
	}
	if !gv.Clues[0].Shown || gv.Clues[0].Text != "📚 a" {
		t.Errorf("clue 0 = %+v", gv.Clues[0])
	}
	for _, c := range gv.Clues[1:] {
		if c.Shown || c.Text != "" {
			t.Errorf("hidden clue leaked: %+v", c)
		}
	}
	if gv.ShareData != "📚 " {
		t.Errorf("shareData = %q", gv.ShareData)
	}
	if b.cookie == nil {
		t.Fatal("no identity cookie issued")
	}
}

func TestGuessBeforeReady(t *testing.T) {
	src := &stubSource{doc: testDoc(), gate: make(chan struct{})}
	s, loader := newTestServer(t, store.NewMemoryStore(), src)
	b := newBrowser(t, s)

	rr := b.guess("Example Title")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	eb := decodeError(t, rr)
	if eb.Error != "not_ready" || eb.Message != msgNotReady {
		t.Errorf("error body = %+v", eb)
	}
	gv := b.state()
	if gv.Puzzle != "loading" || gv.Status != "not_ready" || gv.GuessCount != 0 || gv.Notice == "" {
		t.Errorf("state while loading = %+v", gv)
	}

	close(src.gate)
	if _, err := loader.Wait(context.Background(), testNow); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	rr = b.guess("nope")
	if rr.Code != http.StatusOK {
		t.Fatalf("status after load = %d: %s", rr.Code, rr.Body)
	}
	if gv := b.state(); gv.GuessCount != 1 || gv.ShareData != "📚 📰 " {
		t.Errorf("state after guess = %+v", gv)
	}
}

func TestWinFlow(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))

	if rr := b.guess("Something Else"); rr.Code != http.StatusOK {
		t.Fatalf("wrong guess status = %d", rr.Code)
	}
	rr := b.guess("EXAMPLE title")
	if rr.Code != http.StatusOK {
		t.Fatalf("winning guess status = %d", rr.Code)
	}
	var gv gameView
	if err := json.NewDecoder(rr.Body).Decode(&gv); err != nil {
		t.Fatal(err)
	}
	if !gv.Over || !gv.Won || gv.GuessCount != 2 {
		t.Fatalf("after win = %+v", gv)
	}
	want := []game.Color{game.ColorRed, game.ColorYellow, game.ColorGreen, game.ColorGreen, game.ColorGreen, game.ColorGreen}
	got := colors(gv)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clue %d color = %q, want %q", i, got[i], want[i])
		}
	}
	for i, c := range gv.Clues {
		if !c.Shown {
			t.Errorf("clue %d not shown after win", i)
		}
	}
	if gv.Summary == nil {
		t.Fatal("no summary")
	}
	if gv.Summary.ShareData != "📚 📰 👀 🧠" || gv.Summary.Motivator != "...are you Ken Jennigs?" {
		t.Errorf("summary = %+v", gv.Summary)
	}
	if gv.Summary.AnswerURL != "https://en.wikipedia.org/wiki/Example_Title" {
		t.Errorf("answer url = %q", gv.Summary.AnswerURL)
	}

	share := b.do(http.MethodGet, "/api/share", "", "")
	if share.Code != http.StatusOK {
		t.Fatalf("share status = %d", share.Code)
	}
	var sr shareRes
	if err := json.NewDecoder(share.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if want := "Wikipedle 2 tries.\n📚 📰 👀 🧠\n" + publicURL; sr.Text != want {
		t.Errorf("share text = %q, want %q", sr.Text, want)
	}

	rr = b.guess("Example Title")
	if rr.Code != http.StatusConflict {
		t.Fatalf("guess after over = %d, want 409", rr.Code)
	}
	if eb := decodeError(t, rr); eb.Error != "game_over" || eb.Game == nil || eb.Game.GuessCount != 2 {
		t.Errorf("game over body = %+v", eb)
	}
	if gv := b.state(); !gv.SeenOnboarding {
		t.Error("game over should mark onboarding seen")
	}
}

func TestRestoreAfterRestart(t *testing.T) {
	st := store.NewMemoryStore()
	b := newBrowser(t, readyServer(t, st))
	b.guess("wrong one")
	b.guess("wrong two")

	// A new server over the same store has no live game for this browser.
	b.h = readyServer(t, st).Router()
	gv := b.state()

	if !gv.Over || gv.Won || gv.GuessCount != 2 {
		t.Fatalf("restored = %+v", gv)
	}
	want := []game.Color{game.ColorRed, game.ColorRed, game.ColorYellow, game.ColorGreen, game.ColorGreen, game.ColorGreen}
	got := colors(gv)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clue %d color = %q, want %q", i, got[i], want[i])
		}
	}
	if gv.ShareData != "📚 📰 👀 " {
		t.Errorf("restored share = %q", gv.ShareData)
	}
	if rr := b.guess("Example Title"); rr.Code != http.StatusConflict {
		t.Errorf("guess after restore = %d, want 409", rr.Code)
	}
}

func TestFailedPuzzle(t *testing.T) {
	s, loader := newTestServer(t, store.NewMemoryStore(), &stubSource{err: errors.New("boom")})
	if _, err := loader.Wait(context.Background(), testNow); err == nil {
		t.Fatal("expected load error")
	}
	b := newBrowser(t, s)

	rr := b.guess("anything")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if eb := decodeError(t, rr); eb.Error != "puzzle_unavailable" {
		t.Errorf("error = %+v", eb)
	}
	if gv := b.state(); gv.Puzzle != "failed" || gv.Error != msgUnavailable {
		t.Errorf("state = %+v", gv)
	}
	page := b.do(http.MethodGet, "/", "", "")
	if !strings.Contains(page.Body.String(), "unable to load today") {
		t.Error("page does not report the failed load")
	}
}

func TestMissingDayIsUnavailable(t *testing.T) {
	s, loader := newTestServer(t, store.NewMemoryStore(), &stubSource{doc: testDoc()}, func(o *Options) {
		o.Now = func() time.Time { return testNow.AddDate(0, 0, 20) }
	})
	_, _ = loader.Wait(context.Background(), testNow.AddDate(0, 0, 20))
	b := newBrowser(t, s)
	if rr := b.guess("x"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestOnboarding(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))

	page := b.do(http.MethodGet, "/", "", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "How to play") {
		t.Fatalf("first page missing about panel (status %d)", page.Code)
	}
	if !strings.Contains(page.Body.String(), "📚 a") {
		t.Error("page missing first clue")
	}

	rr := b.do(http.MethodPost, "/api/onboarding", "application/json", "{}")
	if rr.Code != http.StatusOK {
		t.Fatalf("onboarding status = %d", rr.Code)
	}
	if !b.state().SeenOnboarding {
		t.Error("onboarding not recorded")
	}
	if page := b.do(http.MethodGet, "/", "", ""); strings.Contains(page.Body.String(), "How to play") {
		t.Error("about panel shown after onboarding")
	}
}

func TestFormGuessRedirects(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	form := url.Values{"guess": {"wrong"}}.Encode()
	rr := b.do(http.MethodPost, "/api/guess", "application/x-www-form-urlencoded", form)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("form guess = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if gv := b.state(); gv.GuessCount != 1 {
		t.Errorf("guessCount = %d, want 1", gv.GuessCount)
	}
}

func TestBrowsersAreIsolated(t *testing.T) {
	s := readyServer(t, store.NewMemoryStore())
	a, other := newBrowser(t, s), newBrowser(t, s)
	a.guess("wrong")
	if gv := other.state(); gv.GuessCount != 0 {
		t.Errorf("other browser guessCount = %d", gv.GuessCount)
	}
}

func TestTamperedCookieGetsNewIdentity(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	b.guess("wrong")
	original := b.cookie.Value

	b.cookie = &http.Cookie{Name: browserCookieName, Value: original + "x"}
	gv := b.state()
	if gv.GuessCount != 0 {
		t.Errorf("tampered cookie kept progress: %+v", gv)
	}
	if b.cookie.Value == original+"x" {
		t.Error("no replacement cookie issued")
	}
}

func TestShareBeforeOver(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	if rr := b.do(http.MethodGet, "/api/share", "", ""); rr.Code != http.StatusConflict {
		t.Errorf("share before over = %d, want 409", rr.Code)
	}
}

func TestShareQRCode(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	rr := b.do(http.MethodGet, "/api/share.png", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr = %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rr.Body.String(), "\x89PNG") {
		t.Error("body is not a PNG")
	}
}

func TestSearch(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	rr := b.do(http.MethodGet, "/api/search?q=exa", "", "")
	var sr searchRes
	if err := json.NewDecoder(rr.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if len(sr.Titles) != 2 || sr.Titles[0] != "Example Title" {
		t.Errorf("titles = %v", sr.Titles)
	}

	rr = b.do(http.MethodGet, "/api/search?q=", "", "")
	if !strings.Contains(rr.Body.String(), `"titles":[]`) {
		t.Errorf("empty search body = %s", rr.Body)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemoryStore(), &stubSource{doc: testDoc()}, func(o *Options) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 1
	})
	b := newBrowser(t, s)
	b.do(http.MethodGet, "/api/search?q=a", "", "")
	if rr := b.do(http.MethodGet, "/api/search?q=a", "", ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rr.Code)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	rr := b.do(http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"puzzle":"ready"`) {
		t.Errorf("health = %d %s", rr.Code, rr.Body)
	}
	rr = b.do(http.MethodGet, "/nope", "", "")
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), `"error":"not_found"`) {
		t.Errorf("not found = %d %s", rr.Code, rr.Body)
	}
}

func TestSweepPrunesOldGames(t *testing.T) {
	now := testNow
	s, loader := newTestServer(t, store.NewMemoryStore(), &stubSource{doc: testDoc()}, func(o *Options) {
		o.Now = func() time.Time { return now }
	})
	_, _ = loader.Wait(context.Background(), now)
	newBrowser(t, s).guess("wrong")
	if s.games.len() != 1 {
		t.Fatalf("games = %d, want 1", s.games.len())
	}
	now = now.Add(24 * time.Hour)
	s.sweep(context.Background())
	if s.games.len() != 0 {
		t.Errorf("games after sweep = %d, want 0", s.games.len())
	}
}

func TestReadsDoNotRegisterGames(t *testing.T) {
	s := readyServer(t, store.NewMemoryStore())
	for i := 0; i < 50; i++ {
		for _, path := range []string{"/", "/api/state", "/api/share"} {
			rr := httptest.NewRecorder()
			s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		}
	}
	if n := s.games.len(); n != 0 {
		t.Fatalf("cookie-less reads left %d live games, want 0", n)
	}

	b := newBrowser(t, s)
	b.state()
	b.guess("wrong")
	b.state()
	if n := s.games.len(); n != 1 {
		t.Errorf("games after one guess = %d, want 1", n)
	}
	if gv := b.state(); gv.GuessCount != 1 || gv.Over {
		t.Errorf("state after guess = %+v", gv)
	}
}

func TestWinPageAnnouncesAnswer(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	b.guess("Example Title")
	page := b.do(http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, "Example Title</a> is correct! 🧠") {
		t.Error("win page missing the correct-answer line")
	}
	if !strings.Contains(page, "<em>You&#39;re Insane!</em>") {
		t.Error("win page missing the motivator")
	}
}

func TestOversizedGuessBodyRejected(t *testing.T) {
	b := newBrowser(t, readyServer(t, store.NewMemoryStore()))
	body, _ := json.Marshal(guessReq{Guess: strings.Repeat("x", 8<<10)})
	rr := b.do(http.MethodPost, "/api/guess", "application/json", string(body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if gv := b.state(); gv.GuessCount != 0 {
		t.Errorf("oversized guess counted: %+v", gv)
	}
}
