package recognition

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"voicelist/internal/ports"
)

func TestTranscriptAggregatorUsesFinalsAndLastSpokenFallback(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(ports.TranscriptEvent{Kind: ports.TranscriptKindPartial, Text: "hello"})
	agg.Add(ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "hello world"})
	agg.Add(ports.TranscriptEvent{Kind: ports.TranscriptKindPartial, Text: "hello world again"})

	if got := agg.Raw(); got != "hello world hello world again" {
		t.Fatalf("unexpected transcript: %q", got)
	}
	if got := agg.Candidates(); len(got) != 1 {
		t.Fatalf("alternatives must not be offered for a stitched transcript: %v", got)
	}
}

func TestTranscriptAggregatorIgnoresEmpty(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(ports.TranscriptEvent{Kind: ports.TranscriptKindPartial, Text: "   "})
	if got := agg.Raw(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := agg.Candidates(); got != nil {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestTranscriptAggregatorCandidatesFromSingleFinal(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(ports.TranscriptEvent{
		Kind:         ports.TranscriptKindFinal,
		Text:         "red apple",
		Alternatives: []string{"red apple", " ", "bread apple"},
	})

	got := agg.Candidates()
	if len(got) != 2 || got[0] != "red apple" || got[1] != "bread apple" {
		t.Fatalf("unexpected candidates: %v", got)
	}
}

func TestConsumeTranscriptionEventsSignalsSpeechEnd(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	stream.events <- ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "", IsSpeechFinal: true}
	stream.events <- ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "eggs", IsSpeechFinal: true}
	_ = stream.CloseSend()

	agg := newTranscriptAggregator()
	ended := 0
	done := make(chan struct{})
	consumeTranscriptionEvents(stream, agg, func() { ended++ }, done)

	<-done
	if ended != 1 {
		t.Fatalf("expected one speech end signal, got %d", ended)
	}
	if agg.Raw() != "eggs" {
		t.Fatalf("unexpected transcript: %q", agg.Raw())
	}
}

func TestStreamMicrophoneLogsSendError(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	audio := &fakeAudioSession{chunks: [][]byte{[]byte("abc")}}
	stream := &sendErrStream{err: errors.New("send failed")}
	done := make(chan struct{})

	go streamMicrophone(audio, stream, 256, zap.New(core), done)
	<-done

	if logs.FilterMessage("failed to stream audio").Len() != 1 {
		t.Fatalf("expected send failure to be logged")
	}
}

func TestStreamMicrophoneLogsReadError(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	done := make(chan struct{})

	go streamMicrophone(&errorAudioSession{err: errors.New("read failed")}, &sendErrStream{}, 256, zap.New(core), done)
	<-done

	if logs.FilterMessage("audio capture error").Len() != 1 {
		t.Fatalf("expected read failure to be logged")
	}
}

func TestAwaitStreamTimeoutClosesSession(t *testing.T) {
	t.Parallel()

	stream := &blockingWaitStream{done: make(chan struct{}), waitErr: errors.New("closed")}
	err := awaitStream(stream, 10*time.Millisecond)
	if err == nil || err.Error() != "closed" {
		t.Fatalf("expected closed error, got %v", err)
	}
	if stream.closeCalls == 0 {
		t.Fatalf("expected close to be called on timeout")
	}
}

type sendErrStream struct {
	err error
}

func (s *sendErrStream) SendAudio(_ []byte) error { return s.err }
func (s *sendErrStream) CloseSend() error         { return nil }
func (s *sendErrStream) Events() <-chan ports.TranscriptEvent {
	ch := make(chan ports.TranscriptEvent)
	close(ch)
	return ch
}
func (s *sendErrStream) Wait() error  { return nil }
func (s *sendErrStream) Close() error { return nil }

type errorAudioSession struct {
	err error
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error                { return nil }

type blockingWaitStream struct {
	done       chan struct{}
	waitErr    error
	closeCalls int
}

func (s *blockingWaitStream) SendAudio(_ []byte) error { return nil }
func (s *blockingWaitStream) CloseSend() error         { return nil }
func (s *blockingWaitStream) Events() <-chan ports.TranscriptEvent {
	ch := make(chan ports.TranscriptEvent)
	close(ch)
	return ch
}
func (s *blockingWaitStream) Wait() error {
	<-s.done
	return s.waitErr
}
func (s *blockingWaitStream) Close() error {
	s.closeCalls++
	close(s.done)
	return nil
}
