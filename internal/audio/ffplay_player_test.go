package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPlayerPipesClipToStdin(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "played.bin")
	script := writeScript(t, "play.sh", "#!/usr/bin/env bash\ncat > '"+out+"'\n")
	player := NewPlayer(script)

	if err := player.Play(context.Background(), strings.NewReader("mp3-bytes")); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read played clip: %v", err)
	}
	if string(got) != "mp3-bytes" {
		t.Fatalf("unexpected clip: %q", got)
	}
}

func TestPlayerFailureIncludesStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "play.sh", "#!/usr/bin/env bash\ncat > /dev/null\necho 'invalid data' 1>&2\nexit 1\n")
	err := NewPlayer(script).Play(context.Background(), strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "invalid data") {
		t.Fatalf("expected playback error with stderr, got %v", err)
	}
}

func TestPlayerCancelInterruptsPlayback(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "play.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewPlayer(script).Play(ctx, strings.NewReader(""))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("playback was not interrupted")
	}
}

func TestPlaybackArgsReadStdin(t *testing.T) {
	t.Parallel()

	args := strings.Join(playbackArgs(), " ")
	if !strings.Contains(args, "-nodisp") || !strings.HasSuffix(args, "-i -") {
		t.Fatalf("unexpected args: %s", args)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := ignoreExitStatus(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
	if got := ignoreExitStatus(errors.New("io")); got == nil {
		t.Fatalf("expected non-exit error to pass through")
	}
}
