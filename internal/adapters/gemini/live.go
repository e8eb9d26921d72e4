package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

// Live session wire format (BidiGenerateContent).

type liveSetup struct {
	Model                    string        `json:"model"`
	GenerationConfig         liveGenConfig `json:"generationConfig"`
	SystemInstruction        *Content      `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}     `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}     `json:"outputAudioTranscription,omitempty"`
}

type liveGenConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type liveClientMessage struct {
	Setup         *liveSetup     `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
}

type realtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

type transcription struct {
	Text string `json:"text"`
}

type serverContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type liveServerMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

const (
	liveHandshakeTimeout = 10 * time.Second
	liveWriteTimeout     = 5 * time.Second
)

// LiveDialer opens Gemini Live sessions.
type LiveDialer struct {
	URL    string
	APIKey string
	Log    zerolog.Logger
}

var _ voice.Dialer = (*LiveDialer)(nil)

// Dial connects, sends the setup message and waits for setupComplete.
func (d *LiveDialer) Dial(ctx context.Context, cfg voice.Config) (voice.Session, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse live url: %w", err)
	}
	hdr := http.Header{}
	hdr.Set(apiKeyHeader, d.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: liveHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), hdr)
	if err != nil {
		return nil, fmt.Errorf("dial live session: %w", err)
	}

	setup := &liveSetup{
		Model: "models/" + cfg.Model,
		GenerationConfig: liveGenConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = cfg.VoiceName
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.InputTranscription {
		setup.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		setup.OutputAudioTranscription = &struct{}{}
	}
	if err := conn.WriteJSON(liveClientMessage{Setup: setup}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	} else {
		_ = conn.SetReadDeadline(time.Now().Add(liveHandshakeTimeout))
	}
	for {
		msg, err := readServerMessage(conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("await live setup: %w", err)
		}
		if msg.SetupComplete != nil {
			break
		}
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := &liveSession{
		conn:     conn,
		log:      d.Log.With().Str("component", "gemini_live").Logger(),
		events:   make(chan voice.Event, 64),
		done:     make(chan struct{}),
		mimeType: fmt.Sprintf("audio/pcm;rate=%d", cfg.InputSampleRate),
	}
	go s.readLoop()
	return s, nil
}

func readServerMessage(conn *websocket.Conn) (liveServerMessage, error) {
	var msg liveServerMessage
	// The service sends JSON in both text and binary frames.
	_, data, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode live message: %w", err)
	}
	return msg, nil
}

type liveSession struct {
	conn     *websocket.Conn
	log      zerolog.Logger
	mimeType string

	writeMu sync.Mutex

	events    chan voice.Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *liveSession) Events() <-chan voice.Event { return s.events }

func (s *liveSession) SendAudio(ctx context.Context, pcm []byte) error {
	select {
	case <-s.done:
		return net.ErrClosed
	default:
	}
	dl := time.Now().Add(liveWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(dl) {
		dl = d
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(dl)
	msg := liveClientMessage{RealtimeInput: &realtimeInput{MediaChunks: []Blob{{MimeType: s.mimeType, Data: pcm}}}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// Close ends the session. It is safe to call more than once.
func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// WriteControl may run alongside a data write; it gives up after
		// its deadline and closing the conn then unblocks a stalled writer.
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *liveSession) readLoop() {
	defer close(s.events)
	for {
		msg, err := readServerMessage(s.conn)
		if err != nil {
			select {
			case <-s.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
					s.log.Error().Err(err).Msg("live session read failed")
				}
				_ = s.Close()
			}
			return
		}
		ev, ok := toEvent(msg)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func toEvent(msg liveServerMessage) (voice.Event, bool) {
	sc := msg.ServerContent
	if sc == nil {
		return voice.Event{}, false
	}
	ev := voice.Event{Interrupted: sc.Interrupted, TurnComplete: sc.TurnComplete}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil {
				ev.Audio = append(ev.Audio, p.InlineData.Data...)
			}
		}
	}
	if sc.InputTranscription != nil {
		ev.InputText = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		ev.OutputText = sc.OutputTranscription.Text
	}
	if len(ev.Audio) == 0 && ev.InputText == "" && ev.OutputText == "" && !ev.Interrupted && !ev.TurnComplete {
		return voice.Event{}, false
	}
	return ev, true
}
