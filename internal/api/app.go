package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"privchat/internal/config"
	"privchat/internal/server"
)

type App struct {
	log            *log.Logger
	srv            *http.Server
	relay          *server.RelayServer
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, relay *server.RelayServer, cfg *config.Config) *App {
	a := &App{
		log:            logger,
		relay:          relay,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws", a.serveWs)
	// uploaded blobs and avatars are served statically so message URLs stay
	// retrievable
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	if cfg.AvatarsDir != "" {
		mux.Handle("GET /avatars/", http.StripPrefix("/avatars/", http.FileServer(http.Dir(cfg.AvatarsDir))))
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = a.errorHandler(h)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a
}

func (a *App) Start() error {
	a.log.Printf("starting server on %s\n", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Println("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
