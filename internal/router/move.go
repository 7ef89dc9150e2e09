package router

import (
	"encoding/json"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/rules"
	"matchcoordinator/internal/wire"
)

// claimedConclusion is the optional client-asserted conclusion on a move
// submission (spec §4.7 step 8).
type claimedConclusion struct {
	Condition match.Condition `json:"condition"`
	Victor    *clock.Color    `json:"victor,omitempty"`
}

type submitMoveRequest struct {
	Move           string             `json:"move"`
	MoveNumber     int                `json:"moveNumber"`
	GameConclusion *claimedConclusion `json:"gameConclusion,omitempty"`
}

// handleSubmitMove implements spec §4.7 in order; any failure is terminal
// for this message and leaves no partial state change.
func (rt *Router) handleSubmitMove(s *Session, raw json.RawMessage) {
	if s.subscription == nil {
		rt.printError(s, "you are not in a game")
		return
	}

	var req submitMoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rt.hackLog(s, "malformed submitmove payload")
		rt.notifyError(s, "malformed_move")
		return
	}

	sub := *s.subscription
	err := rt.reg.WithGame(sub.gameID, func(g *match.ServerGame) error {
		rt.submitMoveLocked(s, g, sub.color, req)
		return nil
	})
	if err != nil {
		rt.noGame(s)
	}
}

func (rt *Router) submitMoveLocked(s *Session, g *match.ServerGame, color clock.Color, req submitMoveRequest) {
	if g.Base.Over() {
		return
	}

	expected := len(g.Base.Moves) + 1
	if req.MoveNumber != expected {
		rt.sendResyncLocked(s, g)
		return
	}

	wt := g.Base.WhosTurn()
	if wt == nil || *wt != color {
		rt.printError(s, "it is not your turn")
		return
	}

	parsed, err := rules.ParseCompact(req.Move)
	if err != nil {
		rt.hackLog(s, "malformed move notation", "move", req.Move, "error", err.Error())
		rt.notifyError(s, "malformed_move")
		return
	}

	elapsed := rt.reg.Now().Sub(g.Match.TimeCreated).Seconds()
	if !rules.WithinDistanceCap(parsed.End, elapsed) {
		rt.hackLog(s, "move exceeds distance cap", "move", req.Move)
		rt.notifyError(s, "move_out_of_range")
		return
	}

	if req.GameConclusion != nil {
		if !match.ClientAssertable(req.GameConclusion.Condition) {
			rt.hackLog(s, "client asserted a non-assertable conclusion", "condition", req.GameConclusion.Condition)
			rt.notifyError(s, "invalid_conclusion")
			return
		}
		if req.GameConclusion.Victor != nil && *req.GameConclusion.Victor == color.Invert() {
			rt.hackLog(s, "client asserted victory for the opponent")
			rt.notifyError(s, "invalid_conclusion")
			return
		}
	}

	annotated, concluded, ok := rt.legality.Apply(g.Base, parsed)
	if !ok {
		rt.hackLog(s, "illegal move", "move", req.Move)
		rt.notifyError(s, "illegal_move")
		return
	}

	if offerer := g.Match.DrawOfferState; offerer != nil {
		pd := g.Match.PlayerData[*offerer]
		if pd.Socket != nil {
			_ = pd.Socket.SendJSON(wire.RouteGame, wire.OutDeclineDraw, nil)
		}
	}
	moved := g.Base.AppendMove(annotated, rt.reg.Now())
	match.DrawClose(g.Match)

	switch {
	case req.GameConclusion != nil:
		rt.reg.SetGameConclusion(g, match.Conclusion{Victor: req.GameConclusion.Victor, Condition: req.GameConclusion.Condition}, rt.reg.Now())
	case concluded != nil:
		rt.reg.SetGameConclusion(g, *concluded, rt.reg.Now())
	}

	rt.notifyMoveLocked(s, g, color, moved)
}

func (rt *Router) notifyMoveLocked(s *Session, g *match.ServerGame, mover clock.Color, moved match.Move) {
	if g.Base.Over() {
		payload := wire.GameUpdatePayload{
			GameConclusion:   g.Base.Conclusion,
			Moves:            g.Base.Moves,
			ParticipantState: wire.ParticipantStates(g),
			ClockValues:      wire.ClockValuesFor(g, rt.reg.Now()),
		}
		_ = s.Socket.SendJSON(wire.RouteGame, wire.OutGameUpdate, payload)
	} else {
		clockValues := wire.ClockValuesFor(g, rt.reg.Now())
		if clockValues != nil {
			_ = s.Socket.SendJSON(wire.RouteGame, wire.OutClock, clockValues)
		}
	}

	opponent := g.Match.PlayerData[mover.Invert()]
	if opponent == nil || opponent.Socket == nil {
		return
	}
	movePayload := wire.MovePayload{
		Move:           wire.MoveWire{Compact: moved.Compact, ClockStamp: moved.ClockStamp},
		GameConclusion: g.Base.Conclusion,
		MoveNumber:     len(g.Base.Moves),
		ClockValues:    wire.ClockValuesFor(g, rt.reg.Now()),
	}
	_ = opponent.Socket.SendJSON(wire.RouteGame, wire.OutMove, movePayload)
}

func (rt *Router) sendResyncLocked(s *Session, g *match.ServerGame) {
	payload := wire.GameUpdatePayload{
		GameConclusion:   g.Base.Conclusion,
		Moves:            g.Base.Moves,
		ParticipantState: wire.ParticipantStates(g),
		ClockValues:      wire.ClockValuesFor(g, rt.reg.Now()),
	}
	_ = s.Socket.SendJSON(wire.RouteGame, wire.OutGameUpdate, payload)
}
