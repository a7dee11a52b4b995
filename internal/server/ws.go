package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tobiasweide/ragent/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketRequest is the incoming WebSocket message format.
type socketRequest struct {
	Query         string `json:"query"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
}

// socketMessage is the outgoing WebSocket message format: a stream of
// "progress" messages followed by one "response" or "error".
type socketMessage struct {
	Type     string                     `json:"type"`
	Step     *orchestrator.ProgressStep `json:"step,omitempty"`
	Response *orchestrator.Response     `json:"response,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// handleQuerySocket runs queries over a websocket, streaming each
// progress event as it happens before delivering the final response.
func (s *Server) handleQuerySocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req socketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendSocket(conn, socketMessage{Type: "error", Error: "invalid message format"})
			continue
		}
		if req.Query == "" {
			s.sendSocket(conn, socketMessage{Type: "error", Error: "query is required"})
			continue
		}

		cfg := s.runConfig(queryRequest{MaxIterations: req.MaxIterations, TopK: req.TopK})
		// Run is synchronous, so progress writes never interleave with
		// the final response write.
		cfg.OnProgress = func(step orchestrator.ProgressStep) {
			s.sendSocket(conn, socketMessage{Type: "progress", Step: &step})
		}

		resp, err := s.runner.Run(r.Context(), req.Query, cfg)
		if err != nil {
			s.sendSocket(conn, socketMessage{Type: "error", Error: err.Error()})
			continue
		}
		s.sendSocket(conn, socketMessage{Type: "response", Response: resp})
	}
}

func (s *Server) sendSocket(conn *websocket.Conn, msg socketMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
