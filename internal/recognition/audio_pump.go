package recognition

import (
	"io"
	"time"

	"go.uber.org/zap"

	"voicelist/internal/ports"
)

// streamMicrophone copies captured audio into the provider session until the
// capture ends or a send fails. done is closed on return.
func streamMicrophone(
	audio io.Reader,
	stream ports.StreamingSession,
	chunkSize int,
	logger *zap.Logger,
	done chan<- struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = defaultChunkSize
	}

	sink := &sessionWriter{stream: stream}
	_, err := io.CopyBuffer(sink, audio, make([]byte, chunkSize))
	switch {
	case sink.err != nil:
		logger.Warn("failed to stream audio", zap.Error(sink.err))
	case err != nil:
		logger.Warn("audio capture error", zap.Error(err))
	}
}

// sessionWriter adapts a streaming session to io.Writer and remembers send
// failures so they can be told apart from capture failures.
type sessionWriter struct {
	stream ports.StreamingSession
	err    error
}

func (w *sessionWriter) Write(p []byte) (int, error) {
	if err := w.stream.SendAudio(p); err != nil {
		w.err = err
		return 0, err
	}
	return len(p), nil
}

// awaitStream waits for the provider to finish, closing the session if it
// takes longer than timeout.
func awaitStream(session ports.StreamingSession, timeout time.Duration) error {
	finished := make(chan error, 1)
	go func() {
		finished <- session.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-finished:
		return err
	case <-timer.C:
		_ = session.Close()
		return <-finished
	}
}
