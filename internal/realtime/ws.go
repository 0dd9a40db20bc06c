package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
)

const maxDecodeErrorsPerConn = 5

// TokenVerifier resolves a realtime auth token to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// clientMessage is the inbound protocol: auth and ping.
type clientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"`
}

// wsConn wraps a websocket connection with a write mutex so the receive
// loop's protocol replies and the relay's deliveries never interleave.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// Send writes one text frame. Safe for concurrent use.
func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.Message.Send(c.ws, string(payload))
}

// Close closes the underlying connection.
func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) reply(messageType string) error {
	payload, err := json.Marshal(serverMessage{Type: messageType})
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// WSHandler serves the realtime endpoint. Every connection starts in the
// registry's holding area and receives no chore events until it completes
// the in-band auth handshake.
type WSHandler struct {
	registry *Registry
	verifier TokenVerifier
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(registry *Registry, verifier TokenVerifier) *WSHandler {
	return &WSHandler{
		registry: registry,
		verifier: verifier,
	}
}

// Handler returns the http.Handler for the /ws route.
func (h *WSHandler) Handler() http.Handler {
	return websocket.Handler(h.handle)
}

func (h *WSHandler) handle(ws *websocket.Conn) {
	log := logger.Realtime()

	conn := &wsConn{ws: ws}
	h.registry.Register(conn)
	defer func() {
		h.registry.Deregister(conn)
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(ws)
	decodeErrors := 0

	for {
		var msg clientMessage
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Debug("Closing connection after repeated bad frames", "error", err)
				return
			}
			continue
		}
		decodeErrors = 0

		switch msg.Type {
		case "auth":
			userID, err := h.verifier.VerifyToken(msg.Token)
			if err != nil {
				log.Debug("Realtime auth failed", "error", err)
				if err := conn.reply("auth_failed"); err != nil {
					return
				}
				continue
			}
			h.registry.Authenticate(conn, userID)
			if err := conn.reply("auth_success"); err != nil {
				return
			}
		case "ping":
			if err := conn.reply("pong"); err != nil {
				return
			}
		default:
			// Unknown client messages are ignored.
		}
	}
}
