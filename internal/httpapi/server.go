// Package httpapi is the echo-based REST surface: account registration,
// login, the websocket upgrade endpoint, and a health check, grounded on
// the teacher's server.Server/RegisterRoutes shape (server/server.go,
// server/routes.go).
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"matchcoordinator/internal/auth"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/router"
)

// Server bundles the coordinator's externally-facing collaborators behind
// one echo instance, the way the teacher's Server struct bundles *sql.DB
// and GameStorage.
type Server struct {
	Echo     *echo.Echo
	Auth     *auth.Authenticator
	Accounts auth.AccountStore
	Registry *registry.Registry
	Router   *router.Router
	Log      *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer wires the routes onto a fresh echo.Echo, mirroring
// NewServer+RegisterRoutes in the teacher's server package.
func NewServer(a *auth.Authenticator, accounts auth.AccountStore, reg *registry.Registry, rt *router.Router, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		Echo:     echo.New(),
		Auth:     a,
		Accounts: accounts,
		Registry: reg,
		Router:   rt,
		Log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.registerRoutes()
	return s
}

// registerRoutes mirrors the teacher's RegisterRoutes: public account
// routes, then a group gated behind JWT auth for everything that needs an
// identity.
func (s *Server) registerRoutes() {
	e := s.Echo

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/swagger/index.html")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/health", s.Health)

	e.POST("/users", s.RegisterAccount)
	e.POST("/auth/login", s.LoginAccount)
	e.POST("/auth/guest", s.GuestLogin)

	authenticated := e.Group("/game")
	authenticated.Use(s.jwtAuthMiddleware())
	authenticated.POST("/invites/accept", s.AcceptInvite)
	authenticated.GET("/connect", s.Connect)
}
