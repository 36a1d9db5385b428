package api

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"privchat/internal/server"
)

// serveWs upgrades the connection and starts an anonymous session;
// authentication happens on the socket via the login event.
func (a *App) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Println("error upgrading connection:", err)
		return
	}

	session := server.NewSession(conn, a.relay, a.log)
	a.relay.RegisterConnection(session)

	go session.Write()
	go session.Read()
}
