// Package speech delivers the agent's spoken replies: to connected browsers for
// playback, or directly through the OS speech synthesizer.
package speech

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"voicehooks/agent/internal/sound"
	"voicehooks/agent/internal/store"
	"voicehooks/agent/internal/types"
)

const DefaultRate = 150

var ErrVoiceResponsesDisabled = errors.New("voice responses are disabled")

type Recorder interface {
	AddAssistantMessage(text string) types.ConversationMessage
	MarkRespondedAllDelivered() int
}

type Notifier interface {
	NotifyTTS(ctx context.Context, text string)
}

type Prefs interface {
	VoiceResponsesEnabled() bool
}

type Stamper interface {
	StampSpeak(at time.Time)
}

type Speaker struct {
	rec    Recorder
	notify Notifier
	prefs  Prefs
	turns  Stamper
	voice  sound.Voice
	now    func() time.Time
}

// New builds a Speaker. voice may be nil, in which case SpeakSystem is a no-op.
func New(rec Recorder, notify Notifier, prefs Prefs, turns Stamper, voice sound.Voice) *Speaker {
	if voice == nil {
		voice = sound.Nop{}
	}
	return &Speaker{rec: rec, notify: notify, prefs: prefs, turns: turns, voice: voice, now: time.Now}
}

// Speak sends text to the browsers, records it as an assistant message and
// marks every delivered utterance as responded. It returns how many utterances
// were marked.
func (s *Speaker) Speak(ctx context.Context, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, store.ErrEmptyText
	}
	if !s.prefs.VoiceResponsesEnabled() {
		log.Printf("[speak] voice responses disabled, refusing")
		return 0, ErrVoiceResponsesDisabled
	}

	s.notify.NotifyTTS(ctx, text)
	s.rec.AddAssistantMessage(text)
	n := s.rec.MarkRespondedAllDelivered()
	s.turns.StampSpeak(s.now())

	metricSpoken.Inc()
	log.Printf("[speak] sent %d chars to browsers, %d utterance(s) responded", len(text), n)
	return n, nil
}

// SpeakSystem speaks through the OS synthesizer and blocks until it finishes.
func (s *Speaker) SpeakSystem(ctx context.Context, text string, rate int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.ErrEmptyText
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	if err := s.voice.Say(ctx, text, rate); err != nil {
		metricSystemFailures.Inc()
		log.Printf("[speak] system voice failed: %v", err)
		return err
	}
	return nil
}
