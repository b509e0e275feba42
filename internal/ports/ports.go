package ports

import (
	"context"
	"errors"
	"io"

	"voicelist/internal/domain"
)

// ErrCapabilityNotFound is returned synchronously by a capability that is not
// present on the host.
var ErrCapabilityNotFound = errors.New("capability not found")

// Scheduler runs callbacks one at a time, in post order, on a single goroutine.
// Post reports false when the callback was dropped because the scheduler stopped.
type Scheduler interface {
	Post(fn func()) bool
}

// ListObserver is told about every list mutation.
type ListObserver interface {
	ListChanged(items []string)
}

// EventSink emits controller state to the UI.
type EventSink interface {
	ListObserver
	Notice(code domain.NoticeCode, message string)
	SynthesisReadinessChanged(readiness domain.SynthesisReadiness)
}

const (
	ActionRecognizeSpeech = "recognize-speech"
	LanguageModelFreeForm = "free-form"
)

// RecognitionRequest is sent to a recognition capability.
type RecognitionRequest struct {
	Action        string
	LanguageModel string
	Prompt        string
	Token         domain.RequestToken
}

// ResultStatus is the host's verdict on a recognition attempt.
type ResultStatus string

const (
	ResultOK        ResultStatus = "ok"
	ResultCancelled ResultStatus = "cancelled"
)

// RecognitionResult is reported back by the capability, keyed by Token.
// Candidates are ordered best first and may be empty.
type RecognitionResult struct {
	Token      domain.RequestToken
	Status     ResultStatus
	Candidates []string
}

// RecognitionReceiver accepts results from any goroutine.
type RecognitionReceiver interface {
	RecognitionDelivered(result RecognitionResult)
}

// RecognitionCapability starts recognition attempts. Launch must not block on
// the recognition itself; it returns ErrCapabilityNotFound when the capability
// is absent, in which case the receiver is never called.
type RecognitionCapability interface {
	Launch(ctx context.Context, req RecognitionRequest, receiver RecognitionReceiver) error
}

// SynthesisStatus is reported once when an engine finishes initializing.
type SynthesisStatus string

const (
	SynthesisSuccess SynthesisStatus = "success"
	SynthesisFailure SynthesisStatus = "failure"
)

// SynthesisReceiver accepts the init callback from any goroutine.
type SynthesisReceiver interface {
	SynthesisInitialized(status SynthesisStatus)
}

// QueueMode controls how a speak call interacts with queued utterances.
type QueueMode string

const (
	QueueAdd   QueueMode = "add"
	QueueFlush QueueMode = "flush"
)

// SynthesisEngine speaks text after a successful init.
type SynthesisEngine interface {
	Speak(text string, mode QueueMode) error
	Shutdown() error
}

// SynthesisCapability opens the named engine. The init outcome arrives later
// on the receiver.
type SynthesisCapability interface {
	Open(ctx context.Context, engine string, receiver SynthesisReceiver) (SynthesisEngine, error)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Available() error
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// AudioPlayer plays one encoded clip to completion.
type AudioPlayer interface {
	Available() error
	Play(ctx context.Context, clip io.Reader) error
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent is incremental transcription output from a provider.
// Alternatives holds the provider's n-best list; Text is Alternatives[0].
type TranscriptEvent struct {
	Kind          TranscriptKind
	Text          string
	Alternatives  []string
	IsSpeechFinal bool
}

// StreamingSession is an active provider session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	Available() error
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}
