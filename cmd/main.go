package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/config"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/history"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/room"
	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/server"
	"go.uber.org/zap"
)

var (
	port         = flag.String("port", os.Getenv("PORT"), "Port to host the server on")
	frontendHost = flag.String("frontendHost", os.Getenv("FRONTEND_HOST"), "The frontend host")
	configPath   = flag.String("config", getEnvOrDefault("CONFIG_PATH", "config.yaml"), "Path to the yaml config file")
)

// getEnvOrDefault tries to get an Environment variable or returns a default
// if it doesn't exist
func getEnvOrDefault(key string, def string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return def
}

// checkFlagsSet will panic if a flag has not been set
func checkFlagsSet() {
	flag.VisitAll(func(f *flag.Flag) {
		if f.Value.String() == "" {
			panic(fmt.Sprintf("Missing environment: %s", f.Name))
		}
	})
}

// checkOrigin checks a requests origin, returning true if the origin is valid.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return strings.Contains(origin, *frontendHost)
}

func main() {
	flag.Parse()
	checkFlagsSet()
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.ParseConfig(*configPath)
	if err != nil {
		log.Warn("unable to load config file, using defaults", zap.Error(err))
		cfg = config.Default()
	}

	var results room.ResultSink
	var reader server.HistoryReader
	if !cfg.DisableHistoryStorage {
		store, err := history.Open(cfg.HistoryDatabasePath)
		if err != nil {
			log.Fatal("unable to open history store", zap.Error(err))
		}
		defer store.Close()
		results = store
		reader = store
	}

	// Start-up the server
	log.Info(fmt.Sprintf("Starting server on port %s", *port))
	s := server.NewServer(log, room.Config{
		MaxPlayers:        cfg.MaxPlayers,
		ReservationGrace:  cfg.ReservationGrace,
		PlayAgainTimeout:  cfg.PlayAgainTimeout,
		IdleSweepInterval: cfg.IdleSweepInterval,
		IdleRoomMaxAge:    cfg.IdleRoomMaxAge,
	}, checkOrigin, results, reader)
	if err := s.Start(*port); err != nil {
		log.Fatal("server failed during ListenAndServe", zap.Error(err))
	}
}
