package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voicelist/internal/domain"
	"voicelist/internal/ports"
)

// SpeechOutputGateway owns the synthesis engine and its readiness. Readiness
// moves from initializing to ready or failed exactly once, and only from the
// engine's init callback.
type SpeechOutputGateway struct {
	scheduler   ports.Scheduler
	onReadiness func(readiness domain.SynthesisReadiness)
	logger      *zap.Logger

	engine    ports.SynthesisEngine
	readiness domain.SynthesisReadiness
	shutdown  bool
}

// OpenSpeechOutput asks the capability to prepare engineName and returns a
// gateway in the initializing state.
func OpenSpeechOutput(
	ctx context.Context,
	capability ports.SynthesisCapability,
	engineName string,
	scheduler ports.Scheduler,
	onReadiness func(readiness domain.SynthesisReadiness),
	logger *zap.Logger,
) *SpeechOutputGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &SpeechOutputGateway{
		scheduler:   scheduler,
		onReadiness: onReadiness,
		logger:      logger,
		readiness:   domain.SynthesisUninitialized,
	}
	g.setReadiness(domain.SynthesisInitializing)

	if capability == nil {
		g.initialized(ports.SynthesisFailure)
		return g
	}

	engine, err := capability.Open(ctx, engineName, outputReceiver{gateway: g})
	if err != nil {
		g.logger.Warn("speech synthesis unavailable", zap.String("engine", engineName), zap.Error(err))
		g.initialized(ports.SynthesisFailure)
		return g
	}
	g.engine = engine
	return g
}

func (g *SpeechOutputGateway) Readiness() domain.SynthesisReadiness {
	return g.readiness
}

// Speak queues text behind any utterance already playing. Requests made
// before the engine is ready, or after shutdown, are dropped.
func (g *SpeechOutputGateway) Speak(text string) bool {
	if g.shutdown || g.readiness != domain.SynthesisReady || g.engine == nil {
		return false
	}
	if err := g.engine.Speak(text, ports.QueueAdd); err != nil {
		g.logger.Warn("speak failed", zap.Error(err))
		return false
	}
	return true
}

// Shutdown releases the engine. Repeated calls are no-ops.
func (g *SpeechOutputGateway) Shutdown() error {
	if g.shutdown {
		return nil
	}
	g.shutdown = true
	if g.engine == nil {
		return nil
	}
	if err := g.engine.Shutdown(); err != nil {
		return fmt.Errorf("speech synthesis shutdown: %w", err)
	}
	return nil
}

func (g *SpeechOutputGateway) initialized(status ports.SynthesisStatus) {
	if g.readiness != domain.SynthesisInitializing {
		g.logger.Debug("ignoring repeated synthesis init callback", zap.String("status", string(status)))
		return
	}
	if status != ports.SynthesisSuccess {
		g.logger.Warn("speech output disabled", zap.Error(ErrSynthesisInitFailed))
		g.setReadiness(domain.SynthesisFailed)
		return
	}
	g.setReadiness(domain.SynthesisReady)
}

func (g *SpeechOutputGateway) setReadiness(readiness domain.SynthesisReadiness) {
	g.readiness = readiness
	if g.onReadiness != nil {
		g.onReadiness(readiness)
	}
}

type outputReceiver struct {
	gateway *SpeechOutputGateway
}

func (r outputReceiver) SynthesisInitialized(status ports.SynthesisStatus) {
	if !r.gateway.scheduler.Post(func() { r.gateway.initialized(status) }) {
		r.gateway.logger.Debug("synthesis init dropped, scheduler stopped")
	}
}
