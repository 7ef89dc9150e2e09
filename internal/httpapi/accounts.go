package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"matchcoordinator/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterAccount creates a member account.
//
//	@Summary		Create an account
//	@Description	Create an account using the provided username and password
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	registerRequest	true	"Register Account"
//	@Success		201
//	@Failure		400	{object}	ErrorReason
//	@Failure		409	{object}	ErrorReason
//	@Router			/users [post]
func (s *Server) RegisterAccount(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, reasonJSONSyntaxError)
	}
	_, err := s.Auth.Register(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, reasonUsernameTaken)
	case err != nil:
		return c.JSON(http.StatusBadRequest, Reason(err.Error()))
	}
	return c.NoContent(http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// LoginAccount logs into an existing account and returns a signed api key.
//
//	@Summary		Log into an account
//	@Description	Log in with username and password, receiving an api key good for 30 days
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		loginRequest	true	"Login Account"
//	@Success		200		{object}	tokenResponse
//	@Failure		401		{object}	ErrorReason
//	@Router			/auth/login [post]
func (s *Server) LoginAccount(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, reasonJSONSyntaxError)
	}
	token, err := s.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, reasonInvalidCreds)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// GuestLogin mints a browser-identity api key without an account, the
// entry point for spec §3's guest PlayerIdentity kind.
//
//	@Summary		Mint a guest api key
//	@Description	Issue a signed guest identity, no account required
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	tokenResponse
//	@Failure		500	{object}	ErrorReason
//	@Router			/auth/guest [post]
func (s *Server) GuestLogin(c echo.Context) error {
	token, err := s.Auth.GuestToken(uuid.NewString())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, reasonInternalError)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Health reports the live active-game count, the small observability
// surface spec §4.4's GameCount gets beyond the invite subscriber fan-out.
//
//	@Summary		Health check
//	@Produce		json
//	@Success		200	{object}	healthResponse
//	@Router			/health [get]
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{ActiveGames: s.Registry.ActiveGames()})
}

type healthResponse struct {
	ActiveGames int64 `json:"activeGames"`
}
