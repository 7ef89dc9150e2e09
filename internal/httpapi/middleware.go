package httpapi

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"matchcoordinator/internal/match"
)

const identityContextKey = "identity"

// jwtAuthMiddleware parses the bearer token with echo-jwt, then maps its
// claims to a match.PlayerIdentity through the same rule Authenticator.Verify
// uses, so a member or guest api key authorizes the /game routes the way
// the teacher's JwtAuthMiddleware gated /game/matchmaking.
func (s *Server) jwtAuthMiddleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    s.Auth.Secret(),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &jwt.RegisteredClaims{}
		},
		TokenLookup: "header:Authorization:Bearer ,query:token",
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, reasonInvalidAuthHeader)
		},
		SuccessHandler: func(c echo.Context) {
			token := c.Get("user").(*jwt.Token)
			claims := token.Claims.(*jwt.RegisteredClaims)
			identity, err := s.Auth.IdentityFromClaims(claims)
			if err != nil {
				return
			}
			c.Set(identityContextKey, identity)
		},
	})
}

func identityFrom(c echo.Context) (match.PlayerIdentity, bool) {
	identity, ok := c.Get(identityContextKey).(match.PlayerIdentity)
	return identity, ok
}
