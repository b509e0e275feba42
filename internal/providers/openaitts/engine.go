// Package openaitts implements speech synthesis on the OpenAI audio API,
// playing each clip through an external player.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"voicelist/internal/ports"
)

const (
	defaultModel       = openai.TTSModel1
	defaultVoice       = openai.VoiceAlloy
	defaultInitTimeout = 10 * time.Second
)

var (
	ErrMissingAPIKey  = errors.New("OPENAI_API_KEY is not configured")
	ErrEngineNotReady = errors.New("speech engine is not ready")
	ErrEngineShutdown = errors.New("speech engine is shut down")
)

// speechAPI is the part of *openai.Client the engine needs.
type speechAPI interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Config controls the OpenAI synthesis capability.
type Config struct {
	APIKey      string
	BaseURL     string
	InitTimeout time.Duration
}

// Capability implements ports.SynthesisCapability.
type Capability struct {
	client      speechAPI
	player      ports.AudioPlayer
	initTimeout time.Duration
	logger      *zap.Logger
}

func NewCapability(cfg Config, player ports.AudioPlayer, logger *zap.Logger) *Capability {
	var client speechAPI
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		clientCfg := openai.DefaultConfig(key)
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			clientCfg.BaseURL = strings.TrimRight(base, "/")
		}
		client = openai.NewClientWithConfig(clientCfg)
	}
	return newCapability(client, player, cfg.InitTimeout, logger)
}

func newCapability(client speechAPI, player ports.AudioPlayer, initTimeout time.Duration, logger *zap.Logger) *Capability {
	if initTimeout <= 0 {
		initTimeout = defaultInitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capability{client: client, player: player, initTimeout: initTimeout, logger: logger}
}

// Open returns an engine for the "model:voice" selector and initializes it in
// the background. The receiver hears exactly one status. Open fails only for
// a malformed selector.
func (c *Capability) Open(ctx context.Context, engine string, receiver ports.SynthesisReceiver) (ports.SynthesisEngine, error) {
	voice, err := ParseVoice(engine)
	if err != nil {
		return nil, err
	}

	engineCtx, cancel := context.WithCancel(ctx)
	e := &Engine{
		client: c.client,
		player: c.player,
		voice:  voice,
		logger: c.logger.With(zap.String("model", string(voice.Model)), zap.String("voice", string(voice.Voice))),
		ctx:    engineCtx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		status := e.initialize(c.initTimeout)
		receiver.SynthesisInitialized(status)
		if status == ports.SynthesisSuccess {
			e.run()
		}
	}()
	return e, nil
}

// Voice is a parsed engine selector.
type Voice struct {
	Model openai.SpeechModel
	Voice openai.SpeechVoice
}

// ParseVoice reads "model:voice", "model" or "" into a Voice, filling in
// tts-1 and alloy for missing parts.
func ParseVoice(selector string) (Voice, error) {
	voice := Voice{Model: defaultModel, Voice: defaultVoice}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return voice, nil
	}

	model, name, hasVoice := strings.Cut(selector, ":")
	model = strings.TrimSpace(model)
	name = strings.TrimSpace(name)
	if model == "" || (hasVoice && name == "") || strings.Contains(name, ":") {
		return Voice{}, fmt.Errorf("invalid speech engine %q, want model:voice", selector)
	}
	voice.Model = openai.SpeechModel(model)
	if hasVoice {
		voice.Voice = openai.SpeechVoice(name)
	}
	return voice, nil
}

type utterance struct {
	text string
}

// Engine speaks queued utterances one at a time.
type Engine struct {
	client speechAPI
	player ports.AudioPlayer
	voice  Voice
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	wake   chan struct{}

	mu       sync.Mutex
	ready    bool
	shutdown bool
	queue    []utterance
	// interrupt cancels the utterance currently being synthesized or played.
	interrupt context.CancelFunc

	shutdownOnce sync.Once
}

func (e *Engine) initialize(timeout time.Duration) ports.SynthesisStatus {
	if err := e.probe(timeout); err != nil {
		e.logger.Warn("speech engine init failed", zap.Error(err))
		return ports.SynthesisFailure
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return ports.SynthesisFailure
	}
	e.ready = true
	e.logger.Info("speech engine ready")
	return ports.SynthesisSuccess
}

func (e *Engine) probe(timeout time.Duration) error {
	if e.client == nil {
		return ErrMissingAPIKey
	}
	if e.player == nil {
		return errors.New("no audio player configured")
	}
	if err := e.player.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(e.ctx, timeout)
	defer cancel()

	models, err := e.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(models.Models) == 0 {
		return nil
	}
	for _, model := range models.Models {
		if model.ID == string(e.voice.Model) {
			return nil
		}
	}
	return fmt.Errorf("model %q is not offered by the API", e.voice.Model)
}

// Speak queues text. QueueFlush drops queued utterances and interrupts the
// current one first.
func (e *Engine) Speak(text string, mode ports.QueueMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return ErrEngineShutdown
	}
	if !e.ready {
		return ErrEngineNotReady
	}
	if mode == ports.QueueFlush {
		e.queue = nil
		if e.interrupt != nil {
			e.interrupt()
		}
	}
	e.queue = append(e.queue, utterance{text: text})

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Shutdown stops playback, drops the queue and waits for the worker to exit.
func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.mu.Lock()
		e.shutdown = true
		e.queue = nil
		e.mu.Unlock()

		e.cancel()
		e.wg.Wait()
	})
	return nil
}

func (e *Engine) run() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.wake:
		}

		for {
			next, ctx, ok := e.next()
			if !ok {
				break
			}
			if err := e.speakOne(ctx, next); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Warn("utterance failed", zap.Error(err))
			}
			e.finish()
		}
	}
}

func (e *Engine) next() (utterance, context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown || len(e.queue) == 0 {
		return utterance{}, nil, false
	}
	next := e.queue[0]
	e.queue = e.queue[1:]

	ctx, cancel := context.WithCancel(e.ctx)
	e.interrupt = cancel
	return next, ctx, true
}

func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interrupt != nil {
		e.interrupt()
		e.interrupt = nil
	}
}

func (e *Engine) speakOne(ctx context.Context, next utterance) error {
	clip, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          e.voice.Model,
		Input:          next.text,
		Voice:          e.voice.Voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("create speech: %w", err)
	}
	defer clip.Close()

	if err := e.player.Play(ctx, clip); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}
