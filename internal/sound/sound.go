// Package sound plays the wait notification and speaks text through OS commands.
package sound

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

var ErrNoCommand = errors.New("sound command not configured")

// Player plays the "now listening" notification.
type Player interface {
	Play(ctx context.Context) error
}

// Voice speaks text with the system speech synthesizer.
type Voice interface {
	Say(ctx context.Context, text string, rate int) error
}

// CommandPlayer runs a command line such as "afplay /System/Library/Sounds/Funk.aiff".
// Play returns once the process has started; it does not wait for playback.
type CommandPlayer struct {
	cmdline string
}

func NewCommandPlayer(cmdline string) *CommandPlayer { return &CommandPlayer{cmdline: cmdline} }

func (p *CommandPlayer) Play(ctx context.Context) error {
	name, args, err := split(p.cmdline)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[sound] notification exited: %v", err)
		}
	}()
	return nil
}

// CommandVoice runs the speech command as `<cmd> -r <rate> <text>`.
type CommandVoice struct {
	cmdline string
}

func NewCommandVoice(cmdline string) *CommandVoice { return &CommandVoice{cmdline: cmdline} }

func (v *CommandVoice) Say(ctx context.Context, text string, rate int) error {
	name, args, err := split(v.cmdline)
	if err != nil {
		return err
	}
	args = append(args, "-r", strconv.Itoa(rate), text)
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return errors.New(err.Error() + ": " + msg)
		}
		return err
	}
	return nil
}

// Nop satisfies Player and Voice without doing anything.
type Nop struct{}

func (Nop) Play(context.Context) error              { return nil }
func (Nop) Say(context.Context, string, int) error { return nil }

// Available reports whether the executable of cmdline can be resolved.
func Available(cmdline string) error {
	name, _, err := split(cmdline)
	if err != nil {
		return err
	}
	_, err = exec.LookPath(name)
	return err
}

func split(cmdline string) (string, []string, error) {
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return "", nil, ErrNoCommand
	}
	return parts[0], parts[1:], nil
}
