package rules

import (
	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"

	"github.com/corentings/chess"
)

// LegalityAdapter is the external deep-rules collaborator spec §1 keeps
// out of the core: the coordinator only enforces turn order, move-number
// sequencing, compact-notation format, and the distance cap above. Full
// legality, check detection, and decisive-condition detection belong here.
type LegalityAdapter interface {
	// Apply validates m against position after the moves already in g and,
	// if legal, returns the move annotated with any engine-detected
	// conclusion (checkmate, stalemate, ...). ok is false for an illegal
	// move, which the router treats as a plausibility failure distinct
	// from a parse failure.
	Apply(g *match.BaseGame, m match.Move) (annotated match.Move, concluded *match.Conclusion, ok bool)
}

// ChessAdapter backs variant == "chess" with github.com/corentings/chess,
// translating the coordinate-pair compact notation into the engine's
// algebraic moves by board position. It is the default LegalityAdapter
// wired up in cmd/coordinatord for the only variant this deployment ships.
type ChessAdapter struct{}

// Apply replays g's move history into a fresh chess.Game and attempts m.
// This keeps the adapter stateless between calls, trading some CPU for
// never needing to keep its own mutable board in sync with the registry's
// critical section.
func (ChessAdapter) Apply(g *match.BaseGame, m match.Move) (match.Move, *match.Conclusion, bool) {
	game := chess.NewGame()
	uci := chess.UCINotation{}
	for _, prior := range g.Moves {
		decoded, err := uci.Decode(game.Position(), coordsToUCI(prior.Start, prior.End, prior.Promotion))
		if err != nil {
			// A previously accepted move no longer replays: the position
			// tracked by this adapter has drifted from the core's, which
			// can only mean a bug upstream. Treat as "no opinion" rather
			// than rejecting a move the core already committed to.
			return m, nil, true
		}
		if err := game.Move(decoded); err != nil {
			return m, nil, true
		}
	}

	decoded, err := uci.Decode(game.Position(), coordsToUCI(m.Start, m.End, m.Promotion))
	if err != nil {
		return m, nil, false
	}
	if err := game.Move(decoded); err != nil {
		return m, nil, false
	}

	if outcome := game.Outcome(); outcome != chess.NoOutcome {
		c := conclusionFromChess(game)
		return m, c, true
	}
	return m, nil, true
}

func coordsToUCI(start, end match.Coords, promotion string) string {
	uci := fileRank(start) + fileRank(end)
	if promotion != "" {
		uci += promotionLetter(promotion)
	}
	return uci
}

func fileRank(c match.Coords) string {
	file := byte('a' + (c.X-1)%8)
	rank := byte('0' + c.Y)
	return string([]byte{file, rank})
}

func promotionLetter(p string) string {
	switch p {
	case "Q":
		return "q"
	case "R":
		return "r"
	case "B":
		return "b"
	case "N":
		return "n"
	default:
		return ""
	}
}

func conclusionFromChess(g *chess.Game) *match.Conclusion {
	method := g.Method()
	var victor *clock.Color
	switch g.Outcome() {
	case chess.WhiteWon:
		v := clock.White
		victor = &v
	case chess.BlackWon:
		v := clock.Black
		victor = &v
	case chess.Draw:
		v := clock.Neutral
		victor = &v
	}

	cond := match.ConditionRepetition
	switch method {
	case chess.Checkmate:
		cond = match.ConditionCheckmate
	case chess.Stalemate:
		cond = match.ConditionStalemate
	case chess.ThreefoldRepetition:
		cond = match.ConditionRepetition
	case chess.FiftyMoveRule:
		cond = match.ConditionMoveRule
	case chess.InsufficientMaterial:
		cond = match.ConditionInsuffMat
	}
	return &match.Conclusion{Victor: victor, Condition: cond}
}
