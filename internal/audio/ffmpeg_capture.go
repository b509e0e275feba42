// Package audio captures and plays sound through the ffmpeg tool family.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"voicelist/internal/ports"
)

// Recorder streams signed 16-bit little-endian microphone PCM from ffmpeg.
type Recorder struct {
	command string
}

func NewRecorder(command string) *Recorder {
	if command == "" {
		command = "ffmpeg"
	}
	return &Recorder{command: command}
}

// Available reports whether the recorder binary can be found.
func (r *Recorder) Available() error {
	return lookupCommand(r.command)
}

func (r *Recorder) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, r.command, captureArgs(cfg)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	exited := waitProcess(cmd)
	if err := probeStartup(exited, stderr); err != nil {
		return nil, err
	}

	return &recording{
		pcm:     stdout,
		stderr:  stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

// probeStartup fails when the recorder exits almost immediately, which is how
// ffmpeg reports a missing input device.
func probeStartup(exited <-chan error, stderr *bytes.Buffer) error {
	select {
	case err := <-exited:
		if err == nil {
			return errors.New("recorder exited before capture started")
		}
		return withStderr(fmt.Errorf("recorder exited before capture started: %w", err), stderr)
	case <-time.After(startupProbe):
		return nil
	}
}

func captureArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type recording struct {
	pcm    io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (r *recording) Read(p []byte) (int, error) {
	return r.pcm.Read(p)
}

func (r *recording) Close() error {
	return r.Stop()
}

// Stop ends the capture. It is safe to call more than once.
func (r *recording) Stop() error {
	r.stopOnce.Do(func() {
		err := interruptProcess(r.process, r.exited)
		if closeErr := r.pcm.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && err == nil {
			err = closeErr
		}
		r.stopErr = withStderr(err, r.stderr)
	})
	return r.stopErr
}
