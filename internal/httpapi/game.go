package httpapi

import (
	"crypto/rand"
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/registry"
)

// acceptInviteRequest is the payload handed over once an invite has
// already been accepted upstream (spec §1: the coordinator's scope starts
// at "accepted invites", not matchmaking itself). The caller's own
// identity, taken from their bearer token, fills one seat; opponent fills
// the other.
type acceptInviteRequest struct {
	Variant         string `json:"variant"`
	Rated           bool   `json:"rated"`
	Private         bool   `json:"private"`
	Untimed         bool   `json:"untimed"`
	StartTimeMillis int64  `json:"startTimeMillis"`
	IncrementMillis int64  `json:"incrementMillis"`
	Opponent        struct {
		UserID    string `json:"userId"`
		Username  string `json:"username"`
		IsMember  bool   `json:"isMember"`
		BrowserID string `json:"browserId"`
	} `json:"opponent"`
}

type acceptInviteResponse struct {
	GameID int64 `json:"gameId"`
}

// AcceptInvite creates the live game for a pair of players whose invite
// has already been accepted, the boundary between "the invite system" and
// this coordinator's scope (spec §1).
//
//	@Summary		Start a game from an accepted invite
//	@Tags			game
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	acceptInviteResponse
//	@Failure		401	{object}	ErrorReason
//	@Failure		400	{object}	ErrorReason
//	@Router			/game/invites/accept [post]
func (s *Server) AcceptInvite(c echo.Context) error {
	caller, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, reasonInvalidAuthHeader)
	}

	var req acceptInviteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, reasonJSONSyntaxError)
	}

	opponent := match.NewGuest(req.Opponent.BrowserID)
	if req.Opponent.IsMember {
		opponent = match.NewMember(req.Opponent.UserID, req.Opponent.Username)
	}

	callerColor := randomSeat()
	publicity := match.Public
	if req.Private {
		publicity = match.Private
	}

	var clocks *clock.Clocks
	if !req.Untimed {
		clocks = clock.NewClocks(req.StartTimeMillis, req.IncrementMillis)
	}

	g, err := s.Registry.CreateGame(c.Request().Context(), registry.CreateGameParams{
		Variant:   req.Variant,
		Rules:     match.GameRules{TurnOrder: []clock.Color{clock.White, clock.Black}},
		Metadata:  map[string]string{},
		Clocks:    clocks,
		Publicity: publicity,
		Rated:     req.Rated,
		Identities: map[clock.Color]match.PlayerIdentity{
			callerColor:          caller,
			callerColor.Invert(): opponent,
		},
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, reasonInternalError)
	}
	return c.JSON(http.StatusCreated, acceptInviteResponse{GameID: g.Match.ID})
}

func randomSeat() clock.Color {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil || n.Int64() == 0 {
		return clock.White
	}
	return clock.Black
}
