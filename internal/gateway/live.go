package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultLiveURL is the bidirectional streaming endpoint.
const DefaultLiveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// LiveState is the explicit state of a live audio session.
type LiveState int32

const (
	LiveIdle LiveState = iota
	LiveConnecting
	LiveConnected
	LiveClosing
	LiveClosed
)

func (s LiveState) String() string {
	switch s {
	case LiveIdle:
		return "idle"
	case LiveConnecting:
		return "connecting"
	case LiveConnected:
		return "connected"
	case LiveClosing:
		return "closing"
	case LiveClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LiveEventType tags the events a live session emits.
type LiveEventType string

const (
	LiveEventOpen         LiveEventType = "open"
	LiveEventTranscript   LiveEventType = "transcript"
	LiveEventAudio        LiveEventType = "audio"
	LiveEventTurnComplete LiveEventType = "turn_complete"
	LiveEventInterrupted  LiveEventType = "interrupted"
	LiveEventError        LiveEventType = "error"
	LiveEventClosed       LiveEventType = "closed"
)

// LiveEvent is one typed event from the server side of a live session.
type LiveEvent struct {
	Type LiveEventType
	Text string // transcript fragment
	PCM  []byte // raw audio chunk
	Err  error
}

// LiveOptions configures a live session.
type LiveOptions struct {
	Voice string
}

// ErrSessionNotConnected is returned when audio is sent outside the
// Connected state.
var ErrSessionNotConnected = errors.New("gateway: live session is not connected")

// LiveSession is one bidirectional audio conversation. The session (and the
// transport under it) is exclusively owned by its caller for the duration of
// the conversation; a second conversation must not start until Close.
type LiveSession struct {
	conn   *websocket.Conn
	events chan LiveEvent
	logger *zap.Logger

	mu    sync.Mutex
	state LiveState

	closeOnce sync.Once
	writeMu   sync.Mutex
}

// --- wire shapes ---

type liveSetupMessage struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string      `json:"responseModalities"`
			SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
		} `json:"generationConfig"`
		OutputAudioTranscription struct{} `json:"outputAudioTranscription"`
	} `json:"setup"`
}

type liveClientMessage struct {
	RealtimeInput *struct {
		Audio inlineData `json:"audio"`
	} `json:"realtimeInput,omitempty"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []part `json:"parts"`
		} `json:"modelTurn,omitempty"`
		OutputTranscription *struct {
			Text string `json:"text"`
		} `json:"outputTranscription,omitempty"`
		TurnComplete bool `json:"turnComplete,omitempty"`
		Interrupted  bool `json:"interrupted,omitempty"`
	} `json:"serverContent,omitempty"`
}

// Live opens a bidirectional audio session: the caller streams PCM chunks in
// and receives transcript fragments, audio chunks, and turn signals as typed
// events. The returned session is Connecting until the server acknowledges
// setup, at which point an Open event is emitted.
func (c *Client) Live(ctx context.Context, liveURL string, opts LiveOptions) (*LiveSession, error) {
	if liveURL == "" {
		liveURL = DefaultLiveURL
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, liveURL+"?key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	session := &LiveSession{
		conn:   conn,
		events: make(chan LiveEvent, 64),
		logger: c.logger,
		state:  LiveConnecting,
	}

	var setup liveSetupMessage
	setup.Setup.Model = "models/" + DefaultLiveModel
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	if opts.Voice != "" {
		sc := &speechConfig{}
		sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName = opts.Voice
		setup.Setup.GenerationConfig.SpeechConfig = sc
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	go session.readLoop()
	return session, nil
}

// State reports the session's current state.
func (s *LiveSession) State() LiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events is the stream of typed session events. It is closed after the
// Closed event is delivered.
func (s *LiveSession) Events() <-chan LiveEvent {
	return s.events
}

// SendAudio streams one chunk of raw 16kHz mono PCM to the server. It is an
// error to send before the Open event or after Close.
func (s *LiveSession) SendAudio(pcm []byte) error {
	if s.State() != LiveConnected {
		return ErrSessionNotConnected
	}
	msg := liveClientMessage{RealtimeInput: &struct {
		Audio inlineData `json:"audio"`
	}{Audio: inlineData{
		MimeType: "audio/pcm;rate=16000",
		Data:     base64.StdEncoding.EncodeToString(pcm),
	}}}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send audio chunk: %w", err)
	}
	return nil
}

// Close tears the session down: the transport is closed and the event
// channel drained out with a final Closed event. Idempotent and safe to call
// at any time, including when the session never finished connecting.
func (s *LiveSession) Close() error {
	s.closeOnce.Do(func() {
		s.setState(LiveClosing)
		// Best-effort close handshake, then drop the transport. The read
		// loop notices and emits the final Closed event.
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

func (s *LiveSession) setState(state LiveState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LiveClosed {
		return
	}
	s.state = state
}

func (s *LiveSession) readLoop() {
	defer func() {
		s.mu.Lock()
		s.state = LiveClosed
		s.mu.Unlock()
		s.emit(LiveEvent{Type: LiveEventClosed})
		close(s.events)
	}()

	for {
		var msg liveServerMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if s.State() != LiveClosing && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Warn("live session read failed", zap.Error(err))
				s.emit(LiveEvent{Type: LiveEventError, Err: err})
			}
			s.conn.Close()
			return
		}

		switch {
		case msg.SetupComplete != nil:
			s.setState(LiveConnected)
			s.emit(LiveEvent{Type: LiveEventOpen})

		case msg.ServerContent != nil:
			sc := msg.ServerContent
			if sc.Interrupted {
				s.emit(LiveEvent{Type: LiveEventInterrupted})
			}
			if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
				s.emit(LiveEvent{Type: LiveEventTranscript, Text: sc.OutputTranscription.Text})
			}
			if sc.ModelTurn != nil {
				for _, p := range sc.ModelTurn.Parts {
					if p.InlineData == nil || p.InlineData.Data == "" {
						continue
					}
					pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil {
						s.emit(LiveEvent{Type: LiveEventError, Err: fmt.Errorf("decode audio chunk: %w", err)})
						continue
					}
					s.emit(LiveEvent{Type: LiveEventAudio, PCM: pcm})
				}
			}
			if sc.TurnComplete {
				s.emit(LiveEvent{Type: LiveEventTurnComplete})
			}
		}
	}
}

// emit delivers an event without blocking the read loop; a full buffer drops
// the oldest pending event first.
func (s *LiveSession) emit(ev LiveEvent) {
	select {
	case s.events <- ev:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}
