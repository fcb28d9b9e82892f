package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/primeauto/concierge/assistant/contract"
	orchestratorx "github.com/primeauto/concierge/assistant/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type socketFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChatSocket serves a persistent chat channel. Each connection maps to
// one session; the session id is taken from the query string or generated.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = "ws-" + uuid.NewString()
	}

	if err := conn.WriteJSON(socketFrame{Type: "session", Message: sessionID}); err != nil {
		return
	}

	for {
		var frame socketFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket read failed")
			}
			return
		}

		reply, err := s.orchestrator.HandleTurn(r.Context(), sessionID, frame.Message)
		if err != nil {
			if werr := conn.WriteJSON(socketFrame{Type: "error", Error: socketErrorText(err)}); werr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(socketFrame{Type: "reply", Reply: reply}); err != nil {
			return
		}
	}
}

func socketErrorText(err error) string {
	switch {
	case errors.Is(err, orchestratorx.ErrInvalidMessage):
		return "message is empty"
	case errors.Is(err, contractx.ErrCapabilityTimeout):
		return "the assistant took too long to respond, please try again"
	case errors.Is(err, contractx.ErrCapacityExceeded):
		return "too many active conversations, please try again later"
	default:
		return "something went wrong, please try again"
	}
}
