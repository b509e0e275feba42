package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Player pipes an encoded clip into ffplay and waits for playback to finish.
type Player struct {
	command string
}

func NewPlayer(command string) *Player {
	if command == "" {
		command = "ffplay"
	}
	return &Player{command: command}
}

// Available reports whether the player binary can be found.
func (p *Player) Available() error {
	return lookupCommand(p.command)
}

// Play blocks until the clip has been played or ctx is cancelled. A
// cancelled ctx interrupts playback and returns ctx.Err().
func (p *Player) Play(ctx context.Context, clip io.Reader) error {
	cmd := exec.Command(p.command, playbackArgs()...)
	cmd.Stdin = clip
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}
	exited := waitProcess(cmd)

	select {
	case err := <-exited:
		if err != nil {
			return withStderr(fmt.Errorf("playback failed: %w", err), stderr)
		}
		return nil
	case <-ctx.Done():
		_ = interruptProcess(cmd.Process, exited)
		return ctx.Err()
	}
}

func playbackArgs() []string {
	return []string{
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "warning",
		"-i", "-",
	}
}
