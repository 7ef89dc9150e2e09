// Package clock implements per-game time accounting for timed matches.
//
// The arithmetic is pure given a monotonic-ish time source: every exported
// function takes the current time as an explicit parameter so tests can
// drive it with a virtual clock instead of time.Now.
package clock

import "time"

// Color identifies a side in a two-player match, or the neutral/draw
// sentinel used for drawn conclusions.
type Color int

const (
	White Color = iota
	Black
	Neutral
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	case Neutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// Invert flips White/Black. It panics if called on Neutral, since draw
// sentinels have no opponent.
func (c Color) Invert() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		panic("clock: cannot invert non-binary color")
	}
}

// Clocks holds the per-game countdown state described in spec §3.
type Clocks struct {
	StartTimeMillis int64
	IncrementMillis int64

	// CurrentTime is remaining milliseconds per player.
	CurrentTime map[Color]int64

	// TimeAtTurnStart and TimeRemainAtTurnStart are both defined exactly
	// when the game is resignable and not over; undefined otherwise.
	TimeAtTurnStart       *int64
	TimeRemainAtTurnStart *int64
}

// NewClocks builds the immutable clock parameters and the starting
// countdown for both colors.
func NewClocks(startTimeMillis, incrementMillis int64) *Clocks {
	return &Clocks{
		StartTimeMillis: startTimeMillis,
		IncrementMillis: incrementMillis,
		CurrentTime: map[Color]int64{
			White: startTimeMillis,
			Black: startTimeMillis,
		},
	}
}

// Values is the wire-shape snapshot returned to clients.
type Values struct {
	Clocks       map[Color]int64
	ColorTicking *Color
}

// Game is the minimal view of a match that Push/Stop/Snapshot need. It is
// satisfied by internal/match.BaseGame so this package never imports it.
type Game interface {
	Untimed() bool
	Over() bool
	TurnOrder() []Color
	MoveCount() int
	WhosTurn() *Color
	SetWhosTurn(Color)
	ClearWhosTurn()
	Clocks() *Clocks
}

// Resignable reports whether a game with the given move count permits
// resignation, draw offers, and clock accounting (spec GLOSSARY).
func Resignable(moveCount int) bool {
	return moveCount >= 2
}

func nowMillis(now time.Time) int64 {
	return now.UnixMilli()
}

// Push is called immediately after a move has been appended to g's move
// list. It advances whosTurn and, for timed games past the second ply,
// settles the mover's clock and arms the next mover's turn-start snapshot.
// It returns the clock stamp to attach to the move just played, and
// whether the game is timed at all (an untimed game has no clock stamp).
func Push(g Game, now time.Time) (prevTimer int64, timed bool) {
	prev := g.WhosTurn()
	order := g.TurnOrder()
	next := order[g.MoveCount()%len(order)]
	g.SetWhosTurn(next)

	if g.Untimed() {
		return 0, false
	}
	c := g.Clocks()

	if g.MoveCount() <= 2 {
		if g.MoveCount() == 2 {
			// The game just became resignable: arm next's turn-start
			// snapshot so the push at ply 3 has something to settle
			// against. Both clocks are otherwise left untouched.
			n := nowMillis(now)
			c.TimeAtTurnStart = &n
			remain := c.CurrentTime[next]
			c.TimeRemainAtTurnStart = &remain
		}
		return c.CurrentTime[*prev], true
	}

	spent := nowMillis(now) - *c.TimeAtTurnStart
	updated := *c.TimeRemainAtTurnStart - spent + c.IncrementMillis
	c.CurrentTime[*prev] = updated

	n := nowMillis(now)
	c.TimeAtTurnStart = &n
	remain := c.CurrentTime[next]
	c.TimeRemainAtTurnStart = &remain

	return updated, true
}

// Stop freezes the clock, typically when the game concludes. It is a
// no-op for untimed games or once whosTurn is already cleared.
func Stop(g Game, now time.Time) {
	if g.Untimed() {
		return
	}
	wt := g.WhosTurn()
	if wt == nil {
		return
	}
	c := g.Clocks()
	if Resignable(g.MoveCount()) && c.TimeAtTurnStart != nil && c.TimeRemainAtTurnStart != nil {
		spent := nowMillis(now) - *c.TimeAtTurnStart
		remain := *c.TimeRemainAtTurnStart - spent
		if remain < 0 {
			remain = 0
		}
		c.CurrentTime[*wt] = remain
	}
	g.ClearWhosTurn()
	c.TimeAtTurnStart = nil
	c.TimeRemainAtTurnStart = nil
}

// Snapshot returns the up-to-date clock values for display, applying the
// same elapsed-time subtraction Push/Stop use to the ticking color's
// reported value. It works on a copy and never mutates the game's
// committed clock state.
func Snapshot(g Game, now time.Time) Values {
	c := g.Clocks()
	out := make(map[Color]int64, len(c.CurrentTime))
	for color, ms := range c.CurrentTime {
		out[color] = ms
	}

	v := Values{Clocks: out}
	if g.Untimed() || g.Over() || !Resignable(g.MoveCount()) {
		return v
	}
	wt := g.WhosTurn()
	if wt == nil || c.TimeAtTurnStart == nil || c.TimeRemainAtTurnStart == nil {
		return v
	}

	spent := nowMillis(now) - *c.TimeAtTurnStart
	remain := *c.TimeRemainAtTurnStart - spent
	if remain < 0 {
		remain = 0
	}
	out[*wt] = remain

	ticking := *wt
	v.ColorTicking = &ticking
	return v
}
