package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"privchat/internal/api"
	"privchat/internal/blob"
	"privchat/internal/config"
	"privchat/internal/creds"
	"privchat/internal/database"
	"privchat/internal/server"
	"privchat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	uploadsDir     string
	avatarsDir     string
	usersFile      string
	allowedOrigins stringSliceFlag
)

// defaultSeeds backs the user directory when no -users file is given.
var defaultSeeds = []creds.Seed{
	{Username: "Yahyo", Password: "Yahyo123", Avatar: "/avatars/yahyo.jpg"},
	{Username: "Fedya", Password: "Fedya123", Avatar: "/avatars/fedya.jpg"},
	{Username: "Boyka", Password: "Boyka123", Avatar: "/avatars/boyka.jpg"},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// flag defaults may come from the environment, so load .env first
	_ = godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=chatdb sslmode=disable"), "database connection string")
	flag.StringVar(&uploadsDir, "uploads-dir", envOr("UPLOADS_DIR", "uploads"), "directory for uploaded files")
	flag.StringVar(&avatarsDir, "avatars-dir", envOr("AVATARS_DIR", "avatars"), "directory for avatar images")
	flag.StringVar(&usersFile, "users", os.Getenv("USERS_FILE"), "JSON file with seed users (optional)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[privchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, uploadsDir, avatarsDir, usersFile, allowedOrigins)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close: ", err)
		}
	}()

	if err := dbConn.EnsureSchema(); err != nil {
		logger.Fatal("schema setup: ", err)
	}

	seeds := defaultSeeds
	if cfg.UsersFile != "" {
		seeds, err = creds.LoadSeeds(cfg.UsersFile)
		if err != nil {
			logger.Fatal("load users: ", err)
		}
	}

	credStore, err := creds.NewStore(seeds)
	if err != nil {
		logger.Fatal("credential store: ", err)
	}

	fileStore, err := blob.NewFileStore(cfg.UploadsDir)
	if err != nil {
		logger.Fatal("file store: ", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	relay, err := server.NewRelayServer(logger, dbConn, credStore, fileStore, statsUpdater)
	if err != nil {
		logger.Fatal("new relay server: ", err)
	}

	app := api.NewApp(mux, logger, relay, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down relay...")
	if err := relay.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("relay shutdown:", err)
	}

	logger.Println("shutdown complete")
}
