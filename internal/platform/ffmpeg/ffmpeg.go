// Package ffmpeg runs the ffmpeg binary and reports its stderr on failure.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one ffmpeg invocation.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// Exec runs a real ffmpeg process.
type Exec struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

// Run implements Runner. A non-zero exit is returned as an error carrying the
// trimmed stderr output.
func (e Exec) Run(ctx context.Context, args ...string) error {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ffmpeg failed"
		}
		return fmt.Errorf("%s: %w", lastLine(msg), err)
	}
	return nil
}

// lastLine keeps error messages short; ffmpeg prints the cause last.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
