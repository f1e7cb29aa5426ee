package wait

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voicehooks/agent/internal/state"
	"voicehooks/agent/internal/store"
)

type recordingBroadcaster struct {
	mu  sync.Mutex
	got []bool
}

func (b *recordingBroadcaster) NotifyWaitStatus(v bool) {
	b.mu.Lock()
	b.got = append(b.got, v)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) calls() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.got...)
}

type countingPlayer struct {
	n   int32
	err error
}

func (p *countingPlayer) Play(context.Context) error {
	atomic.AddInt32(&p.n, 1)
	return p.err
}

func setup(t *testing.T) (*store.Store, *state.Preferences, *recordingBroadcaster, *countingPlayer, *Coordinator) {
	t.Helper()
	st := store.New(nil)
	prefs := state.NewPreferences()
	prefs.SetVoiceInput(true)
	bc := &recordingBroadcaster{}
	pl := &countingPlayer{}
	c := New(st, prefs, bc, pl, nil, Config{MaxDuration: 300 * time.Millisecond, PollInterval: 50 * time.Millisecond})
	return st, prefs, bc, pl, c
}

func expectStatusPair(t *testing.T, bc *recordingBroadcaster) {
	t.Helper()
	got := bc.calls()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("expected waitStatus true then false exactly once, got %v", got)
	}
}

func TestWaitInactiveReturnsError(t *testing.T) {
	_, prefs, bc, pl, c := setup(t)
	prefs.SetVoiceInput(false)

	_, err := c.Wait(context.Background())
	if !errors.Is(err, ErrVoiceInputInactive) {
		t.Fatalf("expected ErrVoiceInputInactive, got %v", err)
	}
	if len(bc.calls()) != 0 || atomic.LoadInt32(&pl.n) != 0 {
		t.Fatalf("inactive wait must not broadcast or play sound")
	}
}

func TestWaitTimeout(t *testing.T) {
	_, _, bc, pl, c := setup(t)

	start := time.Now()
	res, err := c.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if took := time.Since(start); took < 300*time.Millisecond || took > 2*time.Second {
		t.Fatalf("unexpected wait duration %s", took)
	}
	if !res.Success || res.Outcome != OutcomeTimeout || res.Count != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.WaitTime != 300*time.Millisecond {
		t.Fatalf("expected waitTime to equal the timeout, got %s", res.WaitTime)
	}
	if res.Message != "No utterances found after waiting 300ms." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	expectStatusPair(t, bc)
	if n := atomic.LoadInt32(&pl.n); n != 1 {
		t.Fatalf("expected sound exactly once, got %d", n)
	}
}

func TestWaitTimeoutMessageWholeSeconds(t *testing.T) {
	if got := humanSeconds(60 * time.Second); got != "60 seconds" {
		t.Fatalf("got %q", got)
	}
}

func TestWaitSatisfied(t *testing.T) {
	st, _, bc, _, c := setup(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		if _, err := st.Add("hello", time.Time{}); err != nil {
			t.Errorf("add: %v", err)
		}
	}()

	res, err := c.WaitFor(context.Background(), 2*time.Second, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Outcome != OutcomeSatisfied || res.Count != 1 || res.Utterances[0].Text != "hello" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.WaitTime < 50*time.Millisecond || res.WaitTime > time.Second {
		t.Fatalf("unexpected wait time %s", res.WaitTime)
	}
	if st.HasPending() {
		t.Fatalf("utterance should have been delivered")
	}
	if u, _ := st.Get(res.Utterances[0].ID); u.Status != "delivered" {
		t.Fatalf("expected delivered, got %s", u.Status)
	}
	expectStatusPair(t, bc)
}

func TestWaitReturnsImmediatelyWhenAlreadyPending(t *testing.T) {
	st, _, bc, pl, c := setup(t)
	st.Add("a", time.Now().Add(-time.Second))
	st.Add("b", time.Now())

	res, err := c.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Count != 2 || res.Utterances[0].Text != "a" || res.Utterances[1].Text != "b" {
		t.Fatalf("expected oldest-first drain, got %+v", res.Utterances)
	}
	if atomic.LoadInt32(&pl.n) != 0 {
		t.Fatalf("sound should not play when input is already pending")
	}
	expectStatusPair(t, bc)
}

func TestWaitDeactivated(t *testing.T) {
	_, prefs, bc, _, c := setup(t)

	go func() {
		time.Sleep(60 * time.Millisecond)
		prefs.SetVoiceInput(false)
	}()

	res, err := c.WaitFor(context.Background(), 2*time.Second, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Outcome != OutcomeDeactivated || res.Message != "Voice input was deactivated" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.WaitTime >= 2*time.Second {
		t.Fatalf("deactivation should end the wait early, took %s", res.WaitTime)
	}
	expectStatusPair(t, bc)
}

func TestWaitCancelled(t *testing.T) {
	_, _, bc, _, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()

	res, err := c.WaitFor(ctx, 5*time.Second, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("unexpected outcome %s", res.Outcome)
	}
	expectStatusPair(t, bc)
	if c.Active() != 0 {
		t.Fatalf("expected no active waits, got %d", c.Active())
	}
}

func TestWaitSoundFailureIsSwallowed(t *testing.T) {
	_, _, bc, pl, c := setup(t)
	pl.err = errors.New("afplay: not found")

	res, err := c.WaitFor(context.Background(), 100*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("sound failure must not fail the wait: %v", err)
	}
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("unexpected outcome %s", res.Outcome)
	}
	expectStatusPair(t, bc)
}
