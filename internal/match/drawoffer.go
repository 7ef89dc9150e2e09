package match

import "matchcoordinator/internal/clock"

// MinPliesBetweenOffers is the draw-offer throttle constant from spec §4.2,
// §6; it must match the client's copy of the same constant.
const MinPliesBetweenOffers = 2

// DrawIsOpen reports whether any draw offer is currently outstanding.
func DrawIsOpen(m *MatchInfo) bool {
	return m.DrawOfferState != nil
}

// DrawHasOpenBy reports whether c is the color with the open offer.
func DrawHasOpenBy(m *MatchInfo, c clock.Color) bool {
	return m.DrawOfferState != nil && *m.DrawOfferState == c
}

// DrawTooFast reports whether c last offered fewer than
// MinPliesBetweenOffers plies ago.
func DrawTooFast(g *BaseGame, m *MatchInfo, c clock.Color) bool {
	pd := m.PlayerData[c]
	if pd == nil || pd.LastOfferPly == nil {
		return false
	}
	return len(g.Moves)-*pd.LastOfferPly < MinPliesBetweenOffers
}

// DrawOpen opens a draw offer from c, per the precondition in spec §4.2:
// no offer already open, the game isn't over, it is resignable, and c
// hasn't offered too recently. Returns false (no-op) if any precondition
// fails.
func DrawOpen(g *BaseGame, m *MatchInfo, c clock.Color) bool {
	if DrawIsOpen(m) || g.Over() || !g.Resignable() || DrawTooFast(g, m, c) {
		return false
	}
	ply := len(g.Moves)
	m.PlayerData[c].LastOfferPly = &ply
	m.DrawOfferState = &c
	return true
}

// DrawClose clears any open offer.
func DrawClose(m *MatchInfo) {
	m.DrawOfferState = nil
}
