package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voicelist/internal/domain"
	"voicelist/internal/ports"
)

const (
	DefaultPrompt = "Voice List"

	unavailableNotice = "Speech recognition is not available on this system"
)

// Config controls the interaction controller.
type Config struct {
	Prompt          string
	SynthesisEngine string
}

// InteractionController binds user actions to the list and the two speech
// gateways. It is not safe for concurrent use: construct it, dispatch actions
// and deliver completions on the scheduler's goroutine only.
type InteractionController struct {
	ctx    context.Context
	store  *ListStore
	input  *SpeechInputGateway
	output *SpeechOutputGateway
	events ports.EventSink
	logger *zap.Logger
	cfg    Config

	closed bool
}

// NewInteractionController creates an empty list and starts preparing the
// synthesis engine. ctx bounds every recognition request the controller issues.
//
// A nil scheduler runs completions inline on whichever goroutine delivers
// them. That only holds the single-goroutine contract when the capabilities
// complete synchronously on the dispatching goroutine; asynchronous
// capabilities need a serializing scheduler such as mainloop.Loop.
func NewInteractionController(
	ctx context.Context,
	recognizer ports.RecognitionCapability,
	synthesizer ports.SynthesisCapability,
	scheduler ports.Scheduler,
	events ports.EventSink,
	logger *zap.Logger,
	cfg Config,
) *InteractionController {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if scheduler == nil {
		scheduler = immediateScheduler{}
	}
	if events == nil {
		events = discardEvents{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &InteractionController{
		ctx:    ctx,
		events: events,
		logger: logger,
		cfg:    cfg,
	}
	c.store = NewListStore(events)
	c.input = NewSpeechInputGateway(recognizer, scheduler, c.recognitionFinished, logger.Named("speech_input"))
	c.output = OpenSpeechOutput(ctx, synthesizer, cfg.SynthesisEngine, scheduler, events.SynthesisReadinessChanged, logger.Named("speech_output"))
	return c
}

// Dispatch handles one user action. Only a select with an invalid index and
// actions after Close return an error.
func (c *InteractionController) Dispatch(action domain.Action) error {
	if c.closed {
		return ErrControllerClosed
	}

	switch action.Kind {
	case domain.ActionAdd:
		c.add()
		return nil
	case domain.ActionDelete:
		c.deleteLast()
		return nil
	case domain.ActionSelect:
		return c.selectItem(action.Index)
	default:
		return fmt.Errorf("unknown action %q", action.Kind)
	}
}

// Close shuts the synthesis engine down and abandons any pending recognition.
func (c *InteractionController) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.input.Close()
	return c.output.Shutdown()
}

// Items returns a snapshot of the list.
func (c *InteractionController) Items() []string {
	return c.store.Items()
}

// Status returns the current controller status.
func (c *InteractionController) Status() domain.Status {
	return domain.Status{
		Count:              c.store.Count(),
		RecognitionPending: c.input.Pending(),
		Synthesis:          c.output.Readiness(),
	}
}

func (c *InteractionController) add() {
	handle := c.input.RequestRecognition(c.ctx, c.cfg.Prompt)
	outcome, resolved := handle.Outcome()
	if !resolved || outcome.Kind != domain.OutcomeUnavailable {
		return
	}
	c.logger.Info("add ignored", zap.Error(ErrRecognitionUnavailable))
	c.events.Notice(domain.NoticeRecognitionUnavailable, unavailableNotice)
}

func (c *InteractionController) recognitionFinished(token domain.RequestToken, outcome domain.RecognitionOutcome) {
	if c.closed {
		return
	}
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		count := c.store.Append(outcome.Transcript)
		c.logger.Info("item added", zap.String("token", string(token)), zap.Int("count", count))
	case domain.OutcomeCancelled:
		c.logger.Debug("add abandoned", zap.String("token", string(token)), zap.Error(ErrRecognitionCancelled))
	}
}

func (c *InteractionController) deleteLast() {
	if _, ok := c.store.RemoveLast(); !ok {
		return
	}
	c.logger.Info("item removed", zap.Int("count", c.store.Count()))
}

func (c *InteractionController) selectItem(index int) error {
	text, err := c.store.Get(index)
	if err != nil {
		return err
	}
	if !c.output.Speak(text) {
		c.logger.Debug("selection not spoken", zap.Int("index", index), zap.String("synthesis", string(c.output.Readiness())))
	}
	return nil
}

// immediateScheduler runs fn on the caller's goroutine.
type immediateScheduler struct{}

func (immediateScheduler) Post(fn func()) bool {
	fn()
	return true
}

type discardEvents struct{}

func (discardEvents) ListChanged(_ []string)                                {}
func (discardEvents) Notice(_ domain.NoticeCode, _ string)                  {}
func (discardEvents) SynthesisReadinessChanged(_ domain.SynthesisReadiness) {}
