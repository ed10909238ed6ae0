package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/afero"
)

const defaultPlayCommand = "play -q"

// CommandPlayer plays files through an external player such as sox `play`
// or `aplay`. The file path is appended as the last argument.
type CommandPlayer struct {
	fs      afero.Fs
	command string
	args    []string
}

func NewCommandPlayer(fs afero.Fs, command string) *CommandPlayer {
	if strings.TrimSpace(command) == "" {
		command = defaultPlayCommand
	}
	fields := strings.Fields(command)
	return &CommandPlayer{
		fs:      fs,
		command: fields[0],
		args:    fields[1:],
	}
}

func (p *CommandPlayer) PlayFile(ctx context.Context, path string) error {
	if _, err := p.fs.Stat(path); err != nil {
		return fmt.Errorf("audio file: %w", err)
	}

	args := append(append([]string(nil), p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %w: %s", p.command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
