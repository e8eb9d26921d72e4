package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

// fakeLive accepts one session, records the setup and the first audio chunk,
// then plays a short scripted conversation.
func fakeLive(t *testing.T, setupCh chan<- map[string]any, audioCh chan<- realtimeInput) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "live-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var setup map[string]any
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		setupCh <- setup
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"setupComplete":{}}`))

		var in liveClientMessage
		if err := conn.ReadJSON(&in); err != nil || in.RealtimeInput == nil {
			return
		}
		audioCh <- *in.RealtimeInput

		script := []string{
			`{"serverContent":{"inputTranscription":{"text":"where is the metro"}}}`,
			`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AQACAA=="}}]},"outputTranscription":{"text":"Two blocks north."}}}`,
			`{"serverContent":{"interrupted":true}}`,
			`{"usageMetadata":{"totalTokenCount":12}}`,
			`{"serverContent":{"turnComplete":true}}`,
		}
		for _, m := range script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}))
}

func TestLiveDialer_SessionRoundTrip(t *testing.T) {
	t.Parallel()
	setupCh := make(chan map[string]any, 1)
	audioCh := make(chan realtimeInput, 1)
	srv := fakeLive(t, setupCh, audioCh)
	defer srv.Close()

	d := &LiveDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "live-key", Log: zerolog.Nop()}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := d.Dial(ctx, voice.Config{
		Model:               "gemini-2.5-flash-native-audio-preview-09-2025",
		VoiceName:           "Zephyr",
		SystemInstruction:   "You are Nexus Oracle.",
		InputSampleRate:     16000,
		OutputSampleRate:    24000,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	require.NoError(t, err)
	defer sess.Close()

	setup := <-setupCh
	b, _ := json.Marshal(setup)
	assert.Contains(t, string(b), `"model":"models/gemini-2.5-flash-native-audio-preview-09-2025"`)
	assert.Contains(t, string(b), `"voiceName":"Zephyr"`)
	assert.Contains(t, string(b), `"inputAudioTranscription":{}`)
	assert.Contains(t, string(b), `"You are Nexus Oracle."`)

	require.NoError(t, sess.SendAudio(ctx, []byte{1, 0, 2, 0}))
	in := <-audioCh
	require.Len(t, in.MediaChunks, 1)
	assert.Equal(t, "audio/pcm;rate=16000", in.MediaChunks[0].MimeType)
	assert.Equal(t, []byte{1, 0, 2, 0}, in.MediaChunks[0].Data)

	var events []voice.Event
	for ev := range sess.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 4, "non-content messages are skipped; the channel closes on remote close")
	assert.Equal(t, "where is the metro", events[0].InputText)
	assert.Equal(t, []byte{1, 0, 2, 0}, events[1].Audio)
	assert.Equal(t, "Two blocks north.", events[1].OutputText)
	assert.True(t, events[2].Interrupted)
	assert.True(t, events[3].TurnComplete)

	assert.NoError(t, sess.Close())
	assert.NoError(t, sess.Close())
	assert.Error(t, sess.SendAudio(ctx, []byte{0, 0}))
}

func TestLiveDialer_RejectedHandshake(t *testing.T) {
	t.Parallel()
	srv := fakeLive(t, make(chan map[string]any, 1), make(chan realtimeInput, 1))
	defer srv.Close()

	d := &LiveDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "wrong", Log: zerolog.Nop()}
	_, err := d.Dial(context.Background(), voice.Config{Model: "m"})
	require.Error(t, err)
}

// A server that stops reading must not leave Close waiting on a blocked write.
func TestLiveSession_CloseUnblocksStalledWrite(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var setup map[string]any
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := &LiveDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "k", Log: zerolog.Nop()}
	sess, err := d.Dial(context.Background(), voice.Config{Model: "m", InputSampleRate: 16000})
	require.NoError(t, err)

	writerDone := make(chan error, 1)
	go func() {
		chunk := make([]byte, 256<<10)
		for {
			if err := sess.SendAudio(context.Background(), chunk); err != nil {
				writerDone <- err
				return
			}
		}
	}()
	time.Sleep(300 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = sess.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close blocked behind a stalled write")
	}
	select {
	case err := <-writerDone:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stalled SendAudio never returned")
	}
}
