// Package recognition turns a microphone capture and a streaming
// transcription provider into a one-shot recognition capability.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voicelist/internal/ports"
)

const (
	defaultChunkSize    = 4096
	defaultMaxUtterance = 15 * time.Second
	streamCloseTimeout  = 4 * time.Second
)

// Config controls a single recognition attempt.
type Config struct {
	Audio          ports.AudioConfig
	Streaming      ports.StreamingConfig
	ChunkSize      int
	StreamingGrace time.Duration
	MaxUtterance   time.Duration
}

// StreamingRecognizer implements ports.RecognitionCapability. Each attempt
// records until the provider reports the end of speech, MaxUtterance elapses
// or the request context is cancelled.
type StreamingRecognizer struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	logger   *zap.Logger
}

func NewStreamingRecognizer(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	cfg Config,
	logger *zap.Logger,
) *StreamingRecognizer {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = defaultMaxUtterance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamingRecognizer{audio: audio, provider: provider, cfg: cfg, logger: logger}
}

// Launch checks that the recorder and provider are usable and starts the
// attempt in the background. The receiver is called exactly once per
// successful launch.
func (r *StreamingRecognizer) Launch(ctx context.Context, req ports.RecognitionRequest, receiver ports.RecognitionReceiver) error {
	if err := r.available(); err != nil {
		return err
	}
	go r.recognize(ctx, req, receiver)
	return nil
}

func (r *StreamingRecognizer) available() error {
	if r.audio == nil || r.provider == nil {
		return ports.ErrCapabilityNotFound
	}
	if err := r.provider.Available(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrCapabilityNotFound, err)
	}
	if err := r.audio.Available(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrCapabilityNotFound, err)
	}
	return nil
}

func (r *StreamingRecognizer) recognize(ctx context.Context, req ports.RecognitionRequest, receiver ports.RecognitionReceiver) {
	result := ports.RecognitionResult{Token: req.Token, Status: ports.ResultCancelled}
	logger := r.logger.With(zap.String("token", string(req.Token)))

	candidates, err := r.capture(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug("recognition cancelled")
	case err != nil:
		logger.Warn("recognition failed", zap.Error(err))
	default:
		result.Status = ports.ResultOK
		result.Candidates = candidates
		logger.Debug("recognition finished", zap.Int("candidates", len(candidates)))
	}

	receiver.RecognitionDelivered(result)
}

func (r *StreamingRecognizer) capture(ctx context.Context) ([]string, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := r.provider.StartStreaming(sessionCtx, r.cfg.Streaming)
	if err != nil {
		return nil, err
	}

	audio, err := r.audio.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}

	aggregator := newTranscriptAggregator()
	speechEnded := make(chan struct{})
	var endOnce sync.Once
	eventsDone := make(chan struct{})
	audioDone := make(chan struct{})

	go consumeTranscriptionEvents(stream, aggregator, func() {
		endOnce.Do(func() { close(speechEnded) })
	}, eventsDone)
	go streamMicrophone(audio, stream, r.cfg.ChunkSize, r.logger, audioDone)

	timer := time.NewTimer(r.cfg.MaxUtterance)
	defer timer.Stop()

	select {
	case <-speechEnded:
	case <-timer.C:
		r.logger.Debug("utterance limit reached", zap.Duration("limit", r.cfg.MaxUtterance))
	case <-ctx.Done():
		_ = audio.Stop()
		_ = stream.Close()
		<-eventsDone
		<-audioDone
		return nil, ctx.Err()
	}

	if err := audio.Stop(); err != nil {
		r.logger.Warn("failed to stop audio capture cleanly", zap.Error(err))
	}

	if r.cfg.StreamingGrace > 0 {
		grace := time.NewTimer(r.cfg.StreamingGrace)
		select {
		case <-grace.C:
		case <-ctx.Done():
			grace.Stop()
		}
	}

	_ = stream.CloseSend()
	streamErr := awaitStream(stream, streamCloseTimeout)
	<-eventsDone
	<-audioDone

	candidates := aggregator.Candidates()
	if len(candidates) == 0 && streamErr != nil {
		return nil, streamErr
	}
	return candidates, nil
}
