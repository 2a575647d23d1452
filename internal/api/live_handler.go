package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/pkg/apperrors"
)

// LiveHandler bridges a browser websocket to an upstream live audio session.
// Only one live conversation is allowed at a time; a second connection is
// rejected until the first tears down.
type LiveHandler struct {
	dialer  LiveDialer
	liveURL string
	logger  *zap.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	active bool
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(dialer LiveDialer, liveURL string, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{
		dialer:  dialer,
		liveURL: liveURL,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type liveClientFrame struct {
	Type       string `json:"type"` // "audio" | "close"
	DataBase64 string `json:"dataBase64,omitempty"`
}

type liveServerFrame struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	AudioBase64 string `json:"audioBase64,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (h *LiveHandler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return false
	}
	h.active = true
	return true
}

func (h *LiveHandler) release() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// Connect handles GET /api/v1/live. It upgrades to a websocket, opens the
// upstream session, and proxies in both directions until either side closes.
func (h *LiveHandler) Connect(c *gin.Context) {
	if !h.acquire() {
		respondError(c, apperrors.Conflict("a live session is already active"))
		return
	}
	defer h.release()

	voice := c.Query("voice")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("live websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.dialer.Live(c.Request.Context(), h.liveURL, gateway.LiveOptions{Voice: voice})
	if err != nil {
		h.writeFrame(conn, liveServerFrame{Type: string(gateway.LiveEventError), Error: err.Error()})
		return
	}
	defer session.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range session.Events() {
			frame := liveServerFrame{Type: string(event.Type), Text: event.Text}
			if len(event.PCM) > 0 {
				frame.AudioBase64 = media.EncodeBase64(event.PCM)
			}
			if event.Err != nil {
				frame.Error = event.Err.Error()
			}
			if err := h.writeFrame(conn, frame); err != nil {
				return
			}
			if event.Type == gateway.LiveEventClosed {
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var frame liveClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.writeFrame(conn, liveServerFrame{Type: string(gateway.LiveEventError), Error: "malformed message"})
			continue
		}
		switch frame.Type {
		case "audio":
			pcm, err := media.DecodeBase64(frame.DataBase64)
			if err != nil {
				h.writeFrame(conn, liveServerFrame{Type: string(gateway.LiveEventError), Error: "audio is not valid base64"})
				continue
			}
			if err := session.SendAudio(pcm); err != nil {
				h.writeFrame(conn, liveServerFrame{Type: string(gateway.LiveEventError), Error: err.Error()})
			}
		case "close":
			session.Close()
		default:
			h.writeFrame(conn, liveServerFrame{Type: string(gateway.LiveEventError), Error: "unknown message type"})
		}
	}

	session.Close()
	<-done
}

func (h *LiveHandler) writeFrame(conn *websocket.Conn, frame liveServerFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
