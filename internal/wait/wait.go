// Package wait implements the bounded "wait for new input" poll used when the
// agent tries to end its turn while the operator is listening.
package wait

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"voicehooks/agent/internal/events"
	"voicehooks/agent/internal/types"
)

const (
	DefaultMaxDuration  = 60 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

var ErrVoiceInputInactive = errors.New("voice input is not active: cannot wait for utterances when voice input is disabled")

// Queue is the slice of the utterance store the coordinator polls.
type Queue interface {
	DequeuePendingOldestFirst() []types.Utterance
}

// Activity reports whether the operator is currently listening.
type Activity interface {
	VoiceInputActive() bool
}

type Broadcaster interface {
	NotifyWaitStatus(isWaiting bool)
}

// SoundPlayer plays the notification on the first poll. Failures are logged only.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

type Outcome string

const (
	OutcomeSatisfied   Outcome = "satisfied"
	OutcomeDeactivated Outcome = "deactivated"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeCancelled   Outcome = "cancelled"
)

type Result struct {
	Success    bool
	Outcome    Outcome
	Utterances []types.Utterance
	Count      int
	Message    string
	WaitTime   time.Duration
}

type Config struct {
	MaxDuration  time.Duration
	PollInterval time.Duration
}

type Coordinator struct {
	queue  Queue
	prefs  Activity
	bc     Broadcaster
	player SoundPlayer
	trace  *events.Log
	cfg    Config

	active atomic.Int32
}

// New builds a coordinator. player and trace may be nil.
func New(q Queue, prefs Activity, bc Broadcaster, player SoundPlayer, trace *events.Log, cfg Config) *Coordinator {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Coordinator{queue: q, prefs: prefs, bc: bc, player: player, trace: trace, cfg: cfg}
}

// Wait runs with the configured timeout and poll interval.
func (c *Coordinator) Wait(ctx context.Context) (Result, error) {
	return c.WaitFor(ctx, c.cfg.MaxDuration, c.cfg.PollInterval)
}

// Active reports how many waits are in flight.
func (c *Coordinator) Active() int { return int(c.active.Load()) }

// WaitFor polls for pending utterances for up to maxDuration. It returns
// ErrVoiceInputInactive, without polling or broadcasting, when the operator
// is not listening. Every other path broadcasts waitStatus(true) on entry and
// waitStatus(false) exactly once on exit.
func (c *Coordinator) WaitFor(ctx context.Context, maxDuration, pollInterval time.Duration) (Result, error) {
	if !c.prefs.VoiceInputActive() {
		metricWaits.WithLabelValues("inactive").Inc()
		return Result{}, ErrVoiceInputInactive
	}
	if maxDuration <= 0 {
		maxDuration = c.cfg.MaxDuration
	}
	if pollInterval <= 0 {
		pollInterval = c.cfg.PollInterval
	}

	c.active.Add(1)
	defer c.active.Add(-1)

	r := &run{bc: c.bc}
	log.Printf("[wait] starting wait (%s)", maxDuration)
	c.trace.Append("wait_started", map[string]any{"max_ms": maxDuration.Milliseconds()})
	r.begin()
	defer r.end()

	res := c.poll(ctx, r, maxDuration, pollInterval)

	r.end()
	metricWaits.WithLabelValues(string(res.Outcome)).Inc()
	metricWaitSeconds.Observe(res.WaitTime.Seconds())
	log.Printf("[wait] finished outcome=%s count=%d wait=%s", res.Outcome, res.Count, res.WaitTime)
	c.trace.Append("wait_finished", map[string]any{
		"outcome": string(res.Outcome), "count": res.Count, "wait_ms": res.WaitTime.Milliseconds(),
	})
	return res, nil
}

func (c *Coordinator) poll(ctx context.Context, r *run, maxDuration, pollInterval time.Duration) Result {
	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed >= maxDuration {
			return Result{
				Success:  true,
				Outcome:  OutcomeTimeout,
				Message:  fmt.Sprintf("No utterances found after waiting %s.", humanSeconds(maxDuration)),
				WaitTime: maxDuration,
			}
		}
		if !c.prefs.VoiceInputActive() {
			log.Printf("[wait] voice input deactivated during wait")
			return Result{
				Success:  true,
				Outcome:  OutcomeDeactivated,
				Message:  "Voice input was deactivated",
				WaitTime: elapsed,
			}
		}
		if got := c.queue.DequeuePendingOldestFirst(); len(got) > 0 {
			return Result{
				Success:    true,
				Outcome:    OutcomeSatisfied,
				Utterances: got,
				Count:      len(got),
				WaitTime:   time.Since(start),
			}
		}
		if r.tick() {
			c.playSound(ctx)
		}

		sleep := pollInterval
		if rem := maxDuration - elapsed; rem < sleep {
			sleep = rem
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{
				Success:  true,
				Outcome:  OutcomeCancelled,
				Message:  "Wait cancelled",
				WaitTime: time.Since(start),
			}
		case <-timer.C:
		}
	}
}

func (c *Coordinator) playSound(ctx context.Context) {
	if c.player == nil {
		return
	}
	if err := c.player.Play(ctx); err != nil {
		metricSoundFailures.Inc()
		log.Printf("[wait] failed to play notification sound: %v", err)
	}
}

// phase tracks one wait invocation so the entry/exit broadcasts and the
// first-tick side effect each happen exactly once.
type phase int

const (
	phaseNotStarted phase = iota
	phaseWaiting
	phaseDone
)

type run struct {
	bc    Broadcaster
	phase phase
	ticks int
}

func (r *run) begin() {
	if r.phase != phaseNotStarted {
		return
	}
	r.phase = phaseWaiting
	if r.bc != nil {
		r.bc.NotifyWaitStatus(true)
	}
}

// tick counts a poll and reports whether it was the first one.
func (r *run) tick() bool {
	r.ticks++
	return r.ticks == 1
}

func (r *run) end() {
	if r.phase != phaseWaiting {
		return
	}
	r.phase = phaseDone
	if r.bc != nil {
		r.bc.NotifyWaitStatus(false)
	}
}

func humanSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int64(d/time.Second))
	}
	return d.String()
}
