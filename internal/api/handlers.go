package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/chatterbox-im/chatterbox/internal/server"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "Chatterbox application is running 🚀",
	})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log)
	if err := s.cs.RegisterClient(client); err != nil {
		s.log.Println("register client:", err)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
