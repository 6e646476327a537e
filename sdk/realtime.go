package serenity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/serenitystar/serenity-go/pkg/core"
)

// Signal types exchanged on the session socket.
const (
	signalSessionCreate     = "serenity.session.create"
	signalSessionCreated    = "serenity.session.created"
	signalSessionClose      = "serenity.session.close"
	signalResponseProcessed = "serenity.response.processed"

	signalPrefix = "serenity"
)

// Vendor event types forwarded over the media data channel.
const (
	vendorSpeechStarted = "input_audio_buffer.speech_started"
	vendorSpeechStopped = "input_audio_buffer.speech_stopped"
	vendorResponseDone  = "response.done"
	vendorError         = "error"
)

const defaultInactivityTimeout = 120 * time.Second

// RealtimeSessionConfiguration is the SDP exchange target announced by the
// server in the session.created signal.
type RealtimeSessionConfiguration struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// sessionCloseSignal is the server's teardown notice. Errors is only set for
// validation failures.
type sessionCloseSignal struct {
	Reason  string            `json:"reason"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type sessionCreateSignal struct {
	Type            string         `json:"type"`
	InputParameters map[string]any `json:"input_parameters,omitempty"`
	UserIdentifier  string         `json:"user_identifier,omitempty"`
	Channel         string         `json:"channel,omitempty"`
}

// RealtimeOption configures a RealtimeSession at construction.
type RealtimeOption func(*RealtimeSession)

// WithAudioSource supplies the capture device feeding the outbound audio
// track. Without one the session negotiates a receive-only transceiver.
func WithAudioSource(source AudioSource) RealtimeOption {
	return func(s *RealtimeSession) { s.audioSource = source }
}

// WithAudioSink supplies the playback device for inbound audio. Without one
// remote audio is drained.
func WithAudioSink(sink AudioSink) RealtimeOption {
	return func(s *RealtimeSession) { s.audioSink = sink }
}

// WithInactivityTimeout overrides the idle window after which the session
// shuts itself down. The default is two minutes.
func WithInactivityTimeout(d time.Duration) RealtimeOption {
	return func(s *RealtimeSession) { s.inactivity = d }
}

// RealtimeSession is a live voice exchange with a conversational agent. The
// session signals over a WebSocket and carries media over a WebRTC peer
// connection; both are established by Start and torn down together.
//
// Lifecycle events fan out through the embedded emitter: session.created
// once media is up, response.processed per completed agent turn, error on
// any failure, and session.stopped exactly once when the session ends for
// any reason.
type RealtimeSession struct {
	EventEmitter

	client      *Client
	agentCode   string
	opts        ExecutionOptions
	audioSource AudioSource
	audioSink   AudioSink
	inactivity  time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	socket  *websocket.Conn
	writeMu sync.Mutex
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	mic     *microphonePump
	timer   *time.Timer

	stopped atomic.Bool
}

func newRealtimeSession(client *Client, agentCode string, opts *ExecutionOptions, sessionOpts ...RealtimeOption) *RealtimeSession {
	s := &RealtimeSession{
		client:     client,
		agentCode:  agentCode,
		inactivity: defaultInactivityTimeout,
		logger:     client.logger,
	}
	if opts != nil {
		s.opts = *opts
	}
	for _, opt := range sessionOpts {
		opt(s)
	}
	return s
}

// Start opens the signaling socket, announces the session, and blocks only
// for the dial; media setup continues asynchronously and is reported through
// the session.created event.
func (s *RealtimeSession) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return core.NewInvalidRequestError("session is already stopped")
	}

	endpoint, err := s.client.realtimeURL(s.agentCode, s.opts.AgentVersion)
	if err != nil {
		return err
	}

	dialer := *s.client.wsDialer
	dialer.Subprotocols = []string{apiKeyHeader, s.client.apiKey}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return &TransportError{Op: "dial", URL: endpoint, Err: err}
	}

	s.mu.Lock()
	s.socket = conn
	s.mu.Unlock()

	if err := s.writeSignal(s.createSignal()); err != nil {
		s.shutdown("", "")
		return err
	}

	go s.readLoop(conn)
	return nil
}

// Stop ends the session, releasing the socket, the peer connection, and the
// audio devices. Safe to call more than once.
func (s *RealtimeSession) Stop() {
	s.shutdown("", "")
}

// MuteMicrophone pauses outbound audio without renegotiating.
func (s *RealtimeSession) MuteMicrophone() {
	s.mu.Lock()
	mic := s.mic
	s.mu.Unlock()
	if mic != nil {
		mic.setMuted(true)
	}
}

// UnmuteMicrophone resumes outbound audio.
func (s *RealtimeSession) UnmuteMicrophone() {
	s.mu.Lock()
	mic := s.mic
	s.mu.Unlock()
	if mic != nil {
		mic.setMuted(false)
	}
}

func (s *RealtimeSession) createSignal() sessionCreateSignal {
	msg := sessionCreateSignal{
		Type:           signalSessionCreate,
		UserIdentifier: s.opts.UserIdentifier,
		Channel:        s.opts.Channel,
	}
	if len(s.opts.InputParameters) > 0 {
		msg.InputParameters = make(map[string]any, len(s.opts.InputParameters))
		for _, p := range s.opts.InputParameters {
			msg.InputParameters[p.Key] = p.Value
		}
	}
	return msg
}

func (s *RealtimeSession) writeSignal(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	return s.writeRaw(payload)
}

func (s *RealtimeSession) writeRaw(payload []byte) error {
	s.mu.Lock()
	conn := s.socket
	s.mu.Unlock()
	if conn == nil || s.stopped.Load() {
		return core.NewInvalidRequestError("session is not active")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (s *RealtimeSession) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.stopped.Load() ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.shutdown("", "")
				return
			}
			s.Emit(EventError, &TransportError{Op: "read", Err: err})
			s.shutdown("", "")
			return
		}
		s.handleSignal(data)
	}
}

func (s *RealtimeSession) handleSignal(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Debug("discarding malformed signal", "agent", s.agentCode, "error", err)
		return
	}

	switch envelope.Type {
	case signalSessionCreated:
		var created struct {
			RealtimeSessionConfiguration
		}
		if err := json.Unmarshal(data, &created); err != nil {
			s.Emit(EventError, core.NewAPIError("malformed session.created signal"))
			s.shutdown("", "")
			return
		}
		if err := s.establishMedia(created.RealtimeSessionConfiguration); err != nil {
			s.logger.Warn("media setup failed", "agent", s.agentCode, "error", err)
			s.Emit(EventError, core.NewAPIError("error starting the session"))
			s.shutdown("", "")
		}

	case signalSessionClose:
		var closed sessionCloseSignal
		if err := json.Unmarshal(data, &closed); err != nil {
			s.shutdown("", "")
			return
		}
		detail := closeDetail(closed)
		if detail != "" {
			s.Emit(EventError, core.NewAPIError(detail))
		}
		s.shutdown(closed.Reason, detail)

	case signalResponseProcessed:
		var processed struct {
			Result AgentResult `json:"result"`
		}
		if err := json.Unmarshal(data, &processed); err != nil {
			s.logger.Debug("discarding malformed response.processed signal", "agent", s.agentCode, "error", err)
			return
		}
		s.Emit(EventResponseProcessed, processed.Result)

	default:
		// Anything outside the serenity.* namespace is a vendor message for
		// the media peer; relay it over the data channel.
		if strings.HasPrefix(envelope.Type, signalPrefix) {
			return
		}
		s.mu.Lock()
		dc := s.dc
		s.mu.Unlock()
		if dc != nil {
			if err := dc.SendText(string(data)); err != nil {
				s.logger.Debug("vendor relay failed", "agent", s.agentCode, "error", err)
			}
		}
	}
}

// closeDetail renders a close signal into a user-facing message. Validation
// failures carry a field-keyed error map whose values are joined in key
// order.
func closeDetail(closed sessionCloseSignal) string {
	if closed.Reason == "ValidationException" && len(closed.Errors) > 0 {
		keys := make([]string, 0, len(closed.Errors))
		for k := range closed.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, closed.Errors[k])
		}
		return strings.Join(parts, ". ")
	}
	return closed.Message
}

// establishMedia negotiates the WebRTC leg against the vendor endpoint
// announced by the server.
func (s *RealtimeSession) establishMedia(config RealtimeSessionConfiguration) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go s.drainRemoteTrack(track)
	})

	label := fmt.Sprintf("data-channel-%s-%s",
		s.agentCode, time.Now().UTC().Format("2006-01-02-15-04-05"))
	dc, err := pc.CreateDataChannel(label, nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create data channel: %w", err)
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.handleVendorMessage(msg.Data)
	})

	var mic *microphonePump
	if s.audioSource != nil {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "serenity-microphone")
		if err != nil {
			pc.Close()
			return fmt.Errorf("create audio track: %w", err)
		}
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return fmt.Errorf("add audio track: %w", err)
		}
		mic = newMicrophonePump(track, s.audioSource)
	} else {
		_, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio,
			webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly})
		if err != nil {
			pc.Close()
			return fmt.Errorf("add audio transceiver: %w", err)
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}
	<-gatherComplete

	answer, err := s.exchangeSDP(config, pc.LocalDescription().SDP)
	if err != nil {
		pc.Close()
		return err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("set remote description: %w", err)
	}

	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		pc.Close()
		return core.NewInvalidRequestError("session is already stopped")
	}
	s.pc = pc
	s.dc = dc
	s.mic = mic
	s.mu.Unlock()

	if mic != nil {
		mic.start()
	}

	s.Emit(EventSessionCreated)
	s.resetInactivityTimer()
	return nil
}

// exchangeSDP posts the local offer to the vendor endpoint and returns the
// answer SDP.
func (s *RealtimeSession) exchangeSDP(config RealtimeSessionConfiguration, offerSDP string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, config.URL, bytes.NewReader([]byte(offerSDP)))
	if err != nil {
		return "", fmt.Errorf("build SDP request: %w", err)
	}
	for k, v := range config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: http.MethodPost, URL: config.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", core.NewAPIError(fmt.Sprintf("SDP exchange failed with status %d", resp.StatusCode))
	}
	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read SDP answer: %w", err)
	}
	return string(answer), nil
}

// handleVendorMessage classifies one data-channel message into session
// events and relays it verbatim to the signaling socket so the server
// observes the full vendor stream. Every delivery counts as activity.
func (s *RealtimeSession) handleVendorMessage(data []byte) {
	s.resetInactivityTimer()

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		switch envelope.Type {
		case vendorSpeechStarted:
			s.Emit(EventSpeechStarted)
		case vendorSpeechStopped:
			s.Emit(EventSpeechStopped)
		case vendorResponseDone:
			s.Emit(EventResponseDone)
		case vendorError:
			s.Emit(EventError, core.NewAPIError("there was an error processing your request"))
		}
	}

	if err := s.writeRaw(data); err != nil {
		s.logger.Debug("vendor forward failed", "agent", s.agentCode, "error", err)
	}
}

func (s *RealtimeSession) drainRemoteTrack(track *webrtc.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if s.audioSink == nil || len(pkt.Payload) == 0 {
			continue
		}
		err = s.audioSink.WriteSample(media.Sample{
			Data:     pkt.Payload,
			Duration: remoteSampleDuration,
		})
		if err != nil {
			return
		}
	}
}

func (s *RealtimeSession) resetInactivityTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.inactivity, func() {
		s.shutdown("inactivity", "session closed after inactivity timeout")
	})
}

// shutdown releases every session resource and emits session.stopped exactly
// once. The signaling socket, the peer connection, the timer, and the audio
// devices all go down together.
func (s *RealtimeSession) shutdown(reason, details string) {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	mic, pc, conn, timer := s.mic, s.pc, s.socket, s.timer
	s.mic, s.pc, s.dc, s.socket, s.timer = nil, nil, nil, nil, nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if mic != nil {
		mic.stop()
	}
	if pc != nil {
		pc.Close()
	}
	if conn != nil {
		s.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}

	s.Emit(EventSessionStopped, reason, details)
}
