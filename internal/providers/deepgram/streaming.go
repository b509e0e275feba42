package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"voicelist/internal/ports"
)

const (
	defaultAPIBaseURL = "https://api.deepgram.com/v1"
	defaultModel      = "nova-2"
)

var errMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	// Endpointing is the silence in milliseconds after which Deepgram marks
	// speech_final. Zero leaves the server default.
	Endpointing  int
	Alternatives int
}

// Provider implements ports.TranscriptionProvider for Deepgram.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Alternatives <= 0 {
		cfg.Alternatives = 1
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Available reports whether the provider has credentials to connect.
func (p *Provider) Available() error {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return errMissingAPIKey
	}
	return nil
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if err := p.Available(); err != nil {
		return nil, err
	}

	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := openLiveSession(conn)
	go session.closeOnDone(ctx)
	return session, nil
}

var (
	errSendClosed    = errors.New("audio stream is already closed")
	errSessionClosed = errors.New("session closed")
)

// liveSession multiplexes one websocket. A transmit goroutine drains queued
// audio and finishes with CloseStream; a receive goroutine decodes transcripts
// until the server closes the connection.
type liveSession struct {
	conn *websocket.Conn

	events  chan ports.TranscriptEvent
	outbox  chan []byte
	stopped chan struct{}

	workers sync.WaitGroup
	failure firstError

	sendMu     sync.RWMutex
	sendClosed bool
	halfClose  sync.Once
	fullClose  sync.Once
}

func openLiveSession(conn *websocket.Conn) *liveSession {
	s := &liveSession{
		conn:    conn,
		events:  make(chan ports.TranscriptEvent, 64),
		outbox:  make(chan []byte, 32),
		stopped: make(chan struct{}),
	}

	s.workers.Add(2)
	go s.receive()
	go s.transmit()
	go func() {
		s.workers.Wait()
		close(s.events)
		close(s.stopped)
		_ = conn.Close()
	}()
	return s
}

func (s *liveSession) closeOnDone(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = s.Close()
	case <-s.stopped:
	}
}

func (s *liveSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errSendClosed
	}

	select {
	case s.outbox <- append([]byte(nil), chunk...):
		return nil
	case <-s.stopped:
		if err := s.failure.get(); err != nil {
			return err
		}
		return errSessionClosed
	}
}

func (s *liveSession) CloseSend() error {
	s.halfClose.Do(func() {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		s.sendClosed = true
		close(s.outbox)
	})
	return nil
}

func (s *liveSession) Events() <-chan ports.TranscriptEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.stopped
	return s.failure.get()
}

// Close tears the socket down first. A SendAudio blocked on a full outbox
// holds the read lock until the workers stop, so CloseSend must come after.
func (s *liveSession) Close() error {
	s.fullClose.Do(func() {
		_ = s.conn.Close()
		_ = s.CloseSend()
	})
	return s.Wait()
}

func (s *liveSession) transmit() {
	defer s.workers.Done()

	for chunk := range s.outbox {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.failure.record(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}

	closeStream := []byte(`{"type":"CloseStream"}`)
	if err := s.conn.WriteMessage(websocket.TextMessage, closeStream); err != nil {
		s.failure.record(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *liveSession) receive() {
	defer s.workers.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.failure.record(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		event, ok, err := decodeEvent(payload)
		if err != nil {
			s.failure.record(err)
			return
		}
		if !ok {
			continue
		}
		// A full buffer means nobody is reading; drop rather than stall the socket.
		select {
		case s.events <- event:
		default:
		}
	}
}

// firstError keeps the first failure that is not a normal websocket close.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) record(err error) {
	if err == nil || isNormalClose(err) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// isNormalClose unwraps err; websocket.IsCloseError only matches the bare type.
func isNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []deepgramAlternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []deepgramAlternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// decodeEvent turns one provider message into a transcript event. It reports
// ok=false for messages that carry no text, and an error for provider errors.
func decodeEvent(payload []byte) (ports.TranscriptEvent, bool, error) {
	var response deepgramResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return ports.TranscriptEvent{}, false, nil
	}

	if strings.EqualFold(response.Type, "Error") {
		message := strings.TrimSpace(response.Message)
		if message == "" {
			message = "deepgram returned an unknown error"
		}
		return ports.TranscriptEvent{}, false, errors.New(message)
	}

	alternatives := extractAlternatives(response)
	if len(alternatives) == 0 || alternatives[0] == "" {
		return ports.TranscriptEvent{}, false, nil
	}

	event := ports.TranscriptEvent{
		Kind:          ports.TranscriptKindPartial,
		Text:          alternatives[0],
		Alternatives:  alternatives,
		IsSpeechFinal: response.SpeechFinal,
	}
	if response.IsFinal || response.SpeechFinal {
		event.Kind = ports.TranscriptKindFinal
	}
	return event, true, nil
}

func extractAlternatives(response deepgramResponse) []string {
	source := response.Channel.Alternatives
	if len(source) == 0 && len(response.Results.Channels) > 0 {
		source = response.Results.Channels[0].Alternatives
	}

	alternatives := make([]string, 0, len(source))
	for _, alternative := range source {
		alternatives = append(alternatives, strings.TrimSpace(alternative.Transcript))
	}
	return alternatives
}

func buildListenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultAPIBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	if providerCfg.Endpointing > 0 {
		query.Set("endpointing", strconv.Itoa(providerCfg.Endpointing))
	}
	if providerCfg.Alternatives > 1 {
		query.Set("alternatives", strconv.Itoa(providerCfg.Alternatives))
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
