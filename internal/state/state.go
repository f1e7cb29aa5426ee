// Package state holds the process-wide voice preferences and turn timestamps.
package state

import (
	"log"
	"sync"
	"time"
)

// Prefs is a point-in-time copy of the voice toggles.
type Prefs struct {
	VoiceResponsesEnabled bool `json:"voiceResponsesEnabled"`
	VoiceInputActive      bool `json:"voiceInputActive"`
}

// Preferences is the single shared instance of the voice toggles.
type Preferences struct {
	mu sync.RWMutex
	p  Prefs
}

func NewPreferences() *Preferences { return &Preferences{} }

func (p *Preferences) Snapshot() Prefs {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.p
}

func (p *Preferences) VoiceInputActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.p.VoiceInputActive
}

func (p *Preferences) VoiceResponsesEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.p.VoiceResponsesEnabled
}

func (p *Preferences) SetVoiceResponses(enabled bool) Prefs {
	p.mu.Lock()
	p.p.VoiceResponsesEnabled = enabled
	out := p.p
	p.mu.Unlock()
	log.Printf("[prefs] voice responses=%v", enabled)
	return out
}

func (p *Preferences) SetVoiceInput(active bool) Prefs {
	p.mu.Lock()
	p.p.VoiceInputActive = active
	out := p.p
	p.mu.Unlock()
	if active {
		log.Printf("[prefs] voice input started listening")
	} else {
		log.Printf("[prefs] voice input stopped listening")
	}
	return out
}

// Reset turns both toggles off. It runs when the last observer disconnects.
func (p *Preferences) Reset() {
	p.mu.Lock()
	p.p = Prefs{}
	p.mu.Unlock()
}

// Turns records when the agent last used a tool and last spoke.
type Turns struct {
	mu          sync.RWMutex
	lastToolUse time.Time
	lastSpeak   time.Time
}

func NewTurns() *Turns { return &Turns{} }

func (t *Turns) StampToolUse(at time.Time) {
	t.mu.Lock()
	t.lastToolUse = at
	t.mu.Unlock()
}

func (t *Turns) StampSpeak(at time.Time) {
	t.mu.Lock()
	t.lastSpeak = at
	t.mu.Unlock()
}

// LastToolUse and LastSpeak return the zero time when never stamped.
func (t *Turns) LastToolUse() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastToolUse
}

func (t *Turns) LastSpeak() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSpeak
}

// ToolUsedSinceSpeak reports whether a tool ran after the most recent spoken
// reply, or a tool ran and nothing was ever spoken.
func (t *Turns) ToolUsedSinceSpeak() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastToolUse.IsZero() {
		return false
	}
	return t.lastSpeak.IsZero() || t.lastSpeak.Before(t.lastToolUse)
}
