package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"matchcoordinator/internal/router"
	"matchcoordinator/internal/transport"
)

// Connect upgrades an authenticated request to a websocket and hands the
// connection to the router for the lifetime of the socket, the spot the
// teacher's REST-only Matchmaking handler never needed but the protocol
// in spec §6/§9 requires.
//
//	@Summary		Open the game websocket
//	@Tags			game
//	@Router			/game/connect [get]
func (s *Server) Connect(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, reasonInvalidAuthHeader)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", "error", err)
		return err
	}

	session := &router.Session{Identity: identity}
	session.Socket = transport.New(conn, s.Log, func(in transport.Inbound) {
		var payload json.RawMessage
		if len(in.Payload) > 0 {
			payload = in.Payload
		}
		s.Router.Dispatch(session, in.Route, in.Action, payload)
	}, func(notByChoice bool) {
		s.Router.HandleDisconnect(session, notByChoice)
	})

	return nil
}
