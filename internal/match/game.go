package match

import (
	"time"

	"matchcoordinator/internal/clock"
)

// Condition enumerates how a game ended (spec GLOSSARY).
type Condition string

const (
	ConditionAborted           Condition = "aborted"
	ConditionCheckmate         Condition = "checkmate"
	ConditionStalemate         Condition = "stalemate"
	ConditionRepetition        Condition = "repetition"
	ConditionMoveRule          Condition = "moverule"
	ConditionInsuffMat         Condition = "insuffmat"
	ConditionRoyalCapture      Condition = "royalcapture"
	ConditionAllRoyalsCaptured Condition = "allroyalscaptured"
	ConditionAllPiecesCaptured Condition = "allpiecescaptured"
	ConditionKOTH              Condition = "koth"
	ConditionResignation       Condition = "resignation"
	ConditionAgreement         Condition = "agreement"
	ConditionTime              Condition = "time"
	ConditionDisconnect        Condition = "disconnect"
)

// decisiveClientConditions are the conclusion conditions a client is ever
// entitled to assert itself (spec §4.7 step 8); time/disconnect/resignation
// /agreement/aborted are always server-decided.
var decisiveClientConditions = map[Condition]bool{
	ConditionCheckmate:         true,
	ConditionStalemate:         true,
	ConditionRepetition:        true,
	ConditionMoveRule:          true,
	ConditionInsuffMat:         true,
	ConditionRoyalCapture:      true,
	ConditionAllRoyalsCaptured: true,
	ConditionAllPiecesCaptured: true,
	ConditionKOTH:              true,
}

// ClientAssertable reports whether a client may claim this condition when
// submitting a move (spec §4.7 step 8).
func ClientAssertable(c Condition) bool {
	return decisiveClientConditions[c]
}

// Conclusion pairs an optional victor with how the game ended. Victor is
// Neutral for draws and nil when the game has no victor (e.g. aborted).
type Conclusion struct {
	Victor    *clock.Color
	Condition Condition
}

// GameRules carries variant-specific configuration the core treats
// opaquely beyond turn order: the deep rules engine interprets moveRule.
type GameRules struct {
	TurnOrder []clock.Color
	MoveRule  string
}

// BaseGame is the variant-agnostic game state shared by every match: move
// history, whose turn it is, and (for timed games) the clock.
type BaseGame struct {
	Variant  string
	Metadata map[string]string
	Rules    GameRules
	Moves    []Move

	whosTurn   *clock.Color
	Conclusion *Conclusion

	Untimed_ bool
	ClockSt  *clock.Clocks
}

// NewBaseGame starts a fresh game with whosTurn at turnOrder[0], per the
// createGame contract in spec §4.6.
func NewBaseGame(variant string, rules GameRules, metadata map[string]string, clocks *clock.Clocks) *BaseGame {
	first := rules.TurnOrder[0]
	return &BaseGame{
		Variant:  variant,
		Metadata: metadata,
		Rules:    rules,
		whosTurn: &first,
		Untimed_: clocks == nil,
		ClockSt:  clocks,
	}
}

// --- clock.Game interface ---

func (g *BaseGame) Untimed() bool            { return g.Untimed_ }
func (g *BaseGame) Over() bool                { return g.Conclusion != nil }
func (g *BaseGame) TurnOrder() []clock.Color  { return g.Rules.TurnOrder }
func (g *BaseGame) MoveCount() int            { return len(g.Moves) }
func (g *BaseGame) WhosTurn() *clock.Color    { return g.whosTurn }
func (g *BaseGame) SetWhosTurn(c clock.Color) { g.whosTurn = &c }
func (g *BaseGame) ClearWhosTurn()            { g.whosTurn = nil }
func (g *BaseGame) Clocks() *clock.Clocks     { return g.ClockSt }

// Resignable reports spec GLOSSARY's "move list length >= 2".
func (g *BaseGame) Resignable() bool { return clock.Resignable(len(g.Moves)) }

// Abortable reports spec GLOSSARY's "move list length <= 1".
func (g *BaseGame) Abortable() bool { return len(g.Moves) <= 1 }

// BorderlineResignable is the len==2 edge case aborts tolerate leniently.
func (g *BaseGame) BorderlineResignable() bool { return len(g.Moves) == 2 }

// AppendMove records a move and advances whosTurn via the clock package,
// attaching a clock stamp when the game is timed. now is the acceptance
// time used for clock arithmetic.
func (g *BaseGame) AppendMove(m Move, now time.Time) Move {
	g.Moves = append(g.Moves, m)
	stamp, timed := clock.Push(g, now)
	if timed {
		s := stamp
		g.Moves[len(g.Moves)-1].ClockStamp = &s
	}
	return g.Moves[len(g.Moves)-1]
}

// Conclude sets the game's outcome and stops the clock, mirroring
// spec §4.6 setGameConclusion's data-level effect (the full orchestration,
// including timer cancellation and persistence scheduling, lives in
// internal/registry).
func (g *BaseGame) Conclude(c Conclusion, now time.Time) {
	if g.Conclusion != nil {
		return // idempotent: spec §4.6 "do not re-decrement"
	}
	g.Conclusion = &c
	clock.Stop(g, now)
}
