package sound

import (
	"context"
	"errors"
	"testing"
)

func TestEmptyCommand(t *testing.T) {
	if err := NewCommandPlayer("  ").Play(context.Background()); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
	if err := NewCommandVoice("").Say(context.Background(), "hi", 150); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
	if err := Available(""); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

func TestMissingExecutable(t *testing.T) {
	const bogus = "voicehooks-definitely-not-installed --flag"
	if err := Available(bogus); err == nil {
		t.Fatalf("expected lookup failure")
	}
	if err := NewCommandPlayer(bogus).Play(context.Background()); err == nil {
		t.Fatalf("expected start failure")
	}
}

func TestNop(t *testing.T) {
	var p Player = Nop{}
	var v Voice = Nop{}
	if p.Play(context.Background()) != nil || v.Say(context.Background(), "x", 1) != nil {
		t.Fatalf("nop must never fail")
	}
}
