package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicelist/internal/domain"
	"voicelist/internal/ports"
)

// RequestHandle tracks one recognition request until its outcome is known.
type RequestHandle struct {
	token   domain.RequestToken
	cancel  context.CancelFunc
	done    chan struct{}
	outcome domain.RecognitionOutcome
}

func newRequestHandle(token domain.RequestToken, cancel context.CancelFunc) *RequestHandle {
	return &RequestHandle{token: token, cancel: cancel, done: make(chan struct{})}
}

func (h *RequestHandle) Token() domain.RequestToken {
	return h.token
}

// Done is closed once the outcome is resolved.
func (h *RequestHandle) Done() <-chan struct{} {
	return h.done
}

// Outcome returns the resolved outcome, or false while the request is pending.
func (h *RequestHandle) Outcome() (domain.RecognitionOutcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return domain.RecognitionOutcome{}, false
	}
}

func (h *RequestHandle) resolve(outcome domain.RecognitionOutcome) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	h.outcome = outcome
	close(h.done)
	if h.cancel != nil {
		h.cancel()
	}
	return true
}

// SpeechInputGateway keeps at most one recognition request outstanding and
// turns capability results into outcomes. All methods except the receiver it
// hands to the capability must be called on the scheduler's goroutine.
type SpeechInputGateway struct {
	capability ports.RecognitionCapability
	scheduler  ports.Scheduler
	onOutcome  func(token domain.RequestToken, outcome domain.RecognitionOutcome)
	newToken   func() domain.RequestToken
	logger     *zap.Logger

	current *RequestHandle
}

func NewSpeechInputGateway(
	capability ports.RecognitionCapability,
	scheduler ports.Scheduler,
	onOutcome func(token domain.RequestToken, outcome domain.RecognitionOutcome),
	logger *zap.Logger,
) *SpeechInputGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpeechInputGateway{
		capability: capability,
		scheduler:  scheduler,
		onOutcome:  onOutcome,
		newToken:   func() domain.RequestToken { return domain.RequestToken(uuid.NewString()) },
		logger:     logger,
	}
}

// RequestRecognition starts a new attempt, cancelling any attempt still in
// flight. When the capability is absent the returned handle is already
// resolved as unavailable and no completion will follow.
func (g *SpeechInputGateway) RequestRecognition(ctx context.Context, prompt string) *RequestHandle {
	g.supersede()

	requestCtx, cancel := context.WithCancel(ctx)
	handle := newRequestHandle(g.newToken(), cancel)
	g.current = handle

	if g.capability == nil {
		handle.resolve(domain.Unavailable())
		return handle
	}

	req := ports.RecognitionRequest{
		Action:        ports.ActionRecognizeSpeech,
		LanguageModel: ports.LanguageModelFreeForm,
		Prompt:        prompt,
		Token:         handle.token,
	}
	if err := g.capability.Launch(requestCtx, req, inputReceiver{gateway: g}); err != nil {
		if !errors.Is(err, ports.ErrCapabilityNotFound) {
			g.logger.Warn("recognition launch failed", zap.String("token", string(handle.token)), zap.Error(err))
		}
		handle.resolve(domain.Unavailable())
		return handle
	}

	g.logger.Debug("recognition requested", zap.String("token", string(handle.token)))
	return handle
}

// Pending reports whether a request is awaiting its completion.
func (g *SpeechInputGateway) Pending() bool {
	if g.current == nil {
		return false
	}
	_, resolved := g.current.Outcome()
	return !resolved
}

// Close cancels the outstanding request, if any.
func (g *SpeechInputGateway) Close() {
	g.supersede()
}

func (g *SpeechInputGateway) supersede() {
	if g.current == nil {
		return
	}
	if g.current.resolve(domain.Cancelled()) {
		g.logger.Debug("recognition superseded", zap.String("token", string(g.current.token)))
	}
}

func (g *SpeechInputGateway) complete(result ports.RecognitionResult) {
	current := g.current
	if current == nil || current.token != result.Token {
		g.logger.Debug("ignoring stale recognition result", zap.String("token", string(result.Token)))
		return
	}

	outcome := decodeRecognitionResult(result)
	if !current.resolve(outcome) {
		g.logger.Debug("ignoring duplicate recognition result", zap.String("token", string(result.Token)))
		return
	}

	if g.onOutcome != nil {
		g.onOutcome(current.token, outcome)
	}
}

func decodeRecognitionResult(result ports.RecognitionResult) domain.RecognitionOutcome {
	if result.Status != ports.ResultOK || len(result.Candidates) == 0 {
		return domain.Cancelled()
	}
	return domain.Success(result.Candidates[0])
}

type inputReceiver struct {
	gateway *SpeechInputGateway
}

func (r inputReceiver) RecognitionDelivered(result ports.RecognitionResult) {
	if !r.gateway.scheduler.Post(func() { r.gateway.complete(result) }) {
		r.gateway.logger.Debug("recognition result dropped, scheduler stopped", zap.String("token", string(result.Token)))
	}
}
