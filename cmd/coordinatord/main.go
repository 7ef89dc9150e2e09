//go:generate go run github.com/swaggo/swag/cmd/swag@latest init -g cmd/coordinatord/main.go -o docs

// Command coordinatord is the match coordinator process entrypoint: it
// loads configuration, wires the persistence, auth, registry, timer, and
// router layers together, and serves the REST + websocket surface,
// mirroring the teacher's main.go wiring (sql.Open, schema apply, echo.Start)
// generalized onto the full component graph.
package main

import (
	"context"
	"crypto/rand"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "matchcoordinator/docs"

	"matchcoordinator/internal/config"
	"matchcoordinator/internal/gamecount"
	"matchcoordinator/internal/httpapi"
	"matchcoordinator/internal/index"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/repo/sqlite"
	"matchcoordinator/internal/router"
	"matchcoordinator/internal/rules"
	"matchcoordinator/internal/scheduler"
	"matchcoordinator/internal/timer"

	"matchcoordinator/internal/auth"
)

//	@title			Match Coordinator API
//	@description	Online match coordinator for a two-player turn-based game server.

// @license.name	MIT
func main() {
	ctx := context.Background()
	log := slog.Default()

	confPath := "coordinator.toml"
	if len(os.Args) > 1 {
		confPath = os.Args[1]
	}
	conf, err := config.Load(confPath)
	if err != nil {
		log.Error("failed to load config", "path", confPath, "error", err)
		os.Exit(1)
	}

	jwtSecret := loadOrCreateSecret(conf.Auth.JWTSecretFile)

	repo, err := sqlite.Open(ctx, conf.Database.DSN)
	if err != nil {
		log.Error("failed to open database", "dsn", conf.Database.DSN, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	accounts := sqlite.NewAccounts(repo)
	authenticator := auth.New(jwtSecret, accounts)

	idx := index.New()
	counter := gamecount.New(nil)
	sched := scheduler.Real{}
	timers := timer.New(sched, log, timer.Config{
		DisconnectForgiveness: conf.Timers.DisconnectForgiveness,
		AutoResignByChoice:    conf.Timers.AutoResignByChoice,
		AutoResignNotByChoice: conf.Timers.AutoResignNotByChoice,
		AFKAutoResign:         conf.Timers.AFKAutoResign,
	})
	reg := registry.New(idx, counter, timers, sched, repo, repo, nil, log)
	rt := router.New(reg, rules.ChessAdapter{}, log)

	srv := httpapi.NewServer(authenticator, accounts, reg, rt, log)

	go gracefulShutdown(reg, srv)

	log.Info("coordinator listening", "addr", conf.Server.ListenAddr)
	if err := srv.Echo.Start(conf.Server.ListenAddr); err != nil {
		log.Info("server shut down", "error", err)
	}
}

// gracefulShutdown wires logAllGames and broadcastGameRestarting into the
// process signal handler, the way go-kgp's organizer.go ties shutdown into
// its signal handling.
func gracefulShutdown(reg *registry.Registry, srv *httpapi.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	reg.BroadcastGameRestarting(time.Now().Add(10 * time.Second))
	time.Sleep(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reg.LogAllGames(ctx, time.Now())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Echo.Shutdown(shutdownCtx)
}

// loadOrCreateSecret mirrors the teacher's main.go init(): read the secret
// file, creating one with random contents if it is absent.
func loadOrCreateSecret(path string) []byte {
	secret, err := os.ReadFile(path)
	if err == nil {
		return secret
	}

	f, createErr := os.Create(path)
	if createErr != nil {
		log.Panicln("failed to create jwt secret", createErr)
	}
	defer f.Close()

	generated := make([]byte, 32)
	if _, err := rand.Read(generated); err != nil {
		log.Panicln("failed to generate jwt secret", err)
	}
	if _, err := f.Write(generated); err != nil {
		log.Panicln("failed to write jwt secret", err)
	}
	return generated
}
