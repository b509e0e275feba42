package usecase

import (
	"context"
	"errors"
	"sync"

	"voicelist/internal/domain"
	"voicelist/internal/ports"
)

// manualScheduler queues callbacks until flush, standing in for the main loop.
type manualScheduler struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
}

func (s *manualScheduler) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.queue = append(s.queue, fn)
	return true
}

func (s *manualScheduler) flush() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
	}
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

type launchCall struct {
	ctx      context.Context
	req      ports.RecognitionRequest
	receiver ports.RecognitionReceiver
}

type fakeRecognizer struct {
	err   error
	calls []launchCall
}

func (f *fakeRecognizer) Launch(ctx context.Context, req ports.RecognitionRequest, receiver ports.RecognitionReceiver) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, launchCall{ctx: ctx, req: req, receiver: receiver})
	return nil
}

func (f *fakeRecognizer) last() launchCall {
	return f.calls[len(f.calls)-1]
}

func (f *fakeRecognizer) succeed(call launchCall, candidates ...string) {
	call.receiver.RecognitionDelivered(ports.RecognitionResult{
		Token:      call.req.Token,
		Status:     ports.ResultOK,
		Candidates: candidates,
	})
}

func (f *fakeRecognizer) cancel(call launchCall) {
	call.receiver.RecognitionDelivered(ports.RecognitionResult{Token: call.req.Token, Status: ports.ResultCancelled})
}

type fakeSynthesizer struct {
	err      error
	engine   *fakeEngine
	engines  []string
	receiver ports.SynthesisReceiver
}

func newFakeSynthesizer() *fakeSynthesizer {
	return &fakeSynthesizer{engine: &fakeEngine{}}
}

func (f *fakeSynthesizer) Open(_ context.Context, engine string, receiver ports.SynthesisReceiver) (ports.SynthesisEngine, error) {
	f.engines = append(f.engines, engine)
	if f.err != nil {
		return nil, f.err
	}
	f.receiver = receiver
	return f.engine, nil
}

func (f *fakeSynthesizer) initialize(status ports.SynthesisStatus) {
	f.receiver.SynthesisInitialized(status)
}

type fakeEngine struct {
	spoken        []string
	modes         []ports.QueueMode
	speakErr      error
	shutdownCalls int
	shutdownErr   error
}

func (f *fakeEngine) Speak(text string, mode ports.QueueMode) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, text)
	f.modes = append(f.modes, mode)
	return nil
}

func (f *fakeEngine) Shutdown() error {
	f.shutdownCalls++
	return f.shutdownErr
}

type noticeEvent struct {
	code    domain.NoticeCode
	message string
}

type fakeEventSink struct {
	lists     [][]string
	notices   []noticeEvent
	readiness []domain.SynthesisReadiness
}

func (f *fakeEventSink) ListChanged(items []string) {
	f.lists = append(f.lists, items)
}

func (f *fakeEventSink) Notice(code domain.NoticeCode, message string) {
	f.notices = append(f.notices, noticeEvent{code: code, message: message})
}

func (f *fakeEventSink) SynthesisReadinessChanged(readiness domain.SynthesisReadiness) {
	f.readiness = append(f.readiness, readiness)
}

var errLaunchBroken = errors.New("launcher crashed")
