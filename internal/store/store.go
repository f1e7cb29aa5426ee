package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicehooks/agent/internal/debuglog"
	"voicehooks/agent/internal/events"
	"voicehooks/agent/internal/types"
)

var ErrEmptyText = errors.New("text is required")

// Store holds utterances and the conversation history that mirrors them.
// Every mutation completes under a single lock, so batch operations such as
// dequeue are atomic from the caller's point of view.
type Store struct {
	mu         sync.RWMutex
	utterances []*record
	byID       map[string]*record
	messages   []types.ConversationMessage
	seq        uint64

	trace *events.Log
	now   func() time.Time
}

type record struct {
	u   types.Utterance
	seq uint64
}

// New creates an empty store. trace may be nil.
func New(trace *events.Log) *Store {
	return &Store{
		byID:  make(map[string]*record),
		trace: trace,
		now:   time.Now,
	}
}

// Add queues a new pending utterance and its mirrored user message.
// A zero timestamp means "now".
func (s *Store) Add(text string, ts time.Time) (types.Utterance, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Utterance{}, ErrEmptyText
	}
	if ts.IsZero() {
		ts = s.now()
	}
	u := types.Utterance{
		ID:        uuid.New().String(),
		Text:      text,
		Timestamp: ts,
		Status:    types.StatusPending,
	}

	s.mu.Lock()
	s.seq++
	r := &record{u: u, seq: s.seq}
	s.utterances = append(s.utterances, r)
	s.byID[u.ID] = r
	s.messages = append(s.messages, types.ConversationMessage{
		ID:        u.ID,
		Role:      types.RoleUser,
		Text:      u.Text,
		Timestamp: u.Timestamp,
		Status:    u.Status,
	})
	s.mu.Unlock()

	metricQueued.Inc()
	debuglog.Printf("[queue] queued: %q\t[id: %s]", u.Text, u.ID)
	s.trace.Append("utterance_queued", map[string]any{"id": u.ID, "text": u.Text})
	return u, nil
}

// AddAssistantMessage appends a spoken assistant reply to the history.
func (s *Store) AddAssistantMessage(text string) types.ConversationMessage {
	m := types.ConversationMessage{
		ID:        uuid.New().String(),
		Role:      types.RoleAssistant,
		Text:      strings.TrimSpace(text),
		Timestamp: s.now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	debuglog.Printf("[queue] assistant message: %q\t[id: %s]", m.Text, m.ID)
	s.trace.Append("assistant_message", map[string]any{"id": m.ID, "text": m.Text})
	return m
}

// MarkDelivered moves a pending utterance to delivered. Unknown ids and
// utterances already past pending are left untouched.
func (s *Store) MarkDelivered(id string) {
	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok || r.u.Status != types.StatusPending {
		s.mu.Unlock()
		return
	}
	s.setStatusLocked(r, types.StatusDelivered)
	text := r.u.Text
	s.mu.Unlock()

	metricDelivered.Inc()
	debuglog.Printf("[queue] delivered: %q\t[id: %s]", text, id)
	s.trace.Append("utterance_delivered", map[string]any{"id": id})
}

// MarkRespondedAllDelivered moves every delivered utterance to responded and
// returns how many moved.
func (s *Store) MarkRespondedAllDelivered() int {
	s.mu.Lock()
	var ids []string
	for _, r := range s.utterances {
		if r.u.Status == types.StatusDelivered {
			s.setStatusLocked(r, types.StatusResponded)
			ids = append(ids, r.u.ID)
		}
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		metricResponded.Add(float64(len(ids)))
		debuglog.Printf("[queue] marked %d utterance(s) as responded", len(ids))
		s.trace.Append("utterances_responded", map[string]any{"ids": ids, "count": len(ids)})
	}
	return len(ids)
}

// DeletePending removes a pending utterance and its message. It reports false,
// without mutating anything, for unknown ids or non-pending utterances.
func (s *Store) DeletePending(id string) bool {
	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok || r.u.Status != types.StatusPending {
		s.mu.Unlock()
		return false
	}
	delete(s.byID, id)
	s.utterances = removeRecord(s.utterances, id)
	s.messages = removeMessage(s.messages, id)
	text := r.u.Text
	s.mu.Unlock()

	metricDeleted.Inc()
	debuglog.Printf("[queue] deleted pending message: %q\t[id: %s]", text, id)
	s.trace.Append("utterance_deleted", map[string]any{"id": id})
	return true
}

// Clear drops all utterances and history and returns the number of utterances removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.utterances)
	s.utterances = nil
	s.byID = make(map[string]*record)
	s.messages = nil
	s.mu.Unlock()

	debuglog.Printf("[queue] cleared %d utterances and conversation history", n)
	s.trace.Append("queue_cleared", map[string]any{"count": n})
	return n
}

// DequeuePendingNewestFirst marks every pending utterance delivered and returns
// them newest first. Callers reverse the result for reading order.
func (s *Store) DequeuePendingNewestFirst() []types.Dequeued {
	s.mu.Lock()
	pending := s.pendingLocked()
	sort.SliceStable(pending, func(i, j int) bool { return newer(pending[i], pending[j]) })
	out := make([]types.Dequeued, 0, len(pending))
	for _, r := range pending {
		s.setStatusLocked(r, types.StatusDelivered)
		out = append(out, types.Dequeued{ID: r.u.ID, Text: r.u.Text, Timestamp: r.u.Timestamp})
	}
	s.mu.Unlock()

	s.traceDequeued(len(out))
	return out
}

// DequeuePendingOldestFirst marks every pending utterance delivered and returns
// them oldest first, with their updated status.
func (s *Store) DequeuePendingOldestFirst() []types.Utterance {
	s.mu.Lock()
	pending := s.pendingLocked()
	sort.SliceStable(pending, func(i, j int) bool { return newer(pending[j], pending[i]) })
	out := make([]types.Utterance, 0, len(pending))
	for _, r := range pending {
		s.setStatusLocked(r, types.StatusDelivered)
		out = append(out, r.u)
	}
	s.mu.Unlock()

	s.traceDequeued(len(out))
	return out
}

func (s *Store) traceDequeued(n int) {
	if n == 0 {
		return
	}
	metricDelivered.Add(float64(n))
	debuglog.Printf("[queue] dequeued %d pending utterance(s)", n)
	s.trace.Append("utterances_dequeued", map[string]any{"count": n})
}

// Pending returns pending utterances in insertion order.
func (s *Store) Pending() []types.Utterance { return s.withStatus(types.StatusPending) }

// Delivered returns delivered utterances in insertion order.
func (s *Store) Delivered() []types.Utterance { return s.withStatus(types.StatusDelivered) }

func (s *Store) PendingOldestFirst() []types.Utterance {
	out := s.Pending()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (s *Store) PendingNewestFirst() []types.Utterance {
	out := s.Pending()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *Store) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.utterances {
		if r.u.Status == types.StatusPending {
			return true
		}
	}
	return false
}

func (s *Store) Counts() types.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := types.Counts{Total: len(s.utterances)}
	for _, r := range s.utterances {
		switch r.u.Status {
		case types.StatusPending:
			c.Pending++
		case types.StatusDelivered:
			c.Delivered++
		}
	}
	return c
}

// Get returns the utterance with the given id.
func (s *Store) Get(id string) (types.Utterance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return types.Utterance{}, false
	}
	return r.u, true
}

// Recent returns up to limit utterances, newest first.
func (s *Store) Recent(limit int) []types.Utterance {
	s.mu.RLock()
	out := make([]types.Utterance, 0, len(s.utterances))
	for _, r := range s.utterances {
		out = append(out, r.u)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecentMessages returns the last limit messages, oldest first.
func (s *Store) RecentMessages(limit int) []types.ConversationMessage {
	s.mu.RLock()
	out := make([]types.ConversationMessage, len(s.messages))
	copy(out, s.messages)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Store) withStatus(st types.Status) []types.Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Utterance
	for _, r := range s.utterances {
		if r.u.Status == st {
			out = append(out, r.u)
		}
	}
	return out
}

func (s *Store) pendingLocked() []*record {
	var out []*record
	for _, r := range s.utterances {
		if r.u.Status == types.StatusPending {
			out = append(out, r)
		}
	}
	return out
}

// setStatusLocked advances an utterance and its user message together.
// Backward moves are ignored.
func (s *Store) setStatusLocked(r *record, to types.Status) {
	if !r.u.Status.Before(to) {
		return
	}
	r.u.Status = to
	for i := range s.messages {
		if s.messages[i].ID == r.u.ID && s.messages[i].Role == types.RoleUser {
			s.messages[i].Status = to
			break
		}
	}
}

// newer orders by timestamp, falling back to insertion order for equal times.
func newer(a, b *record) bool {
	if !a.u.Timestamp.Equal(b.u.Timestamp) {
		return a.u.Timestamp.After(b.u.Timestamp)
	}
	return a.seq > b.seq
}

func removeRecord(in []*record, id string) []*record {
	out := in[:0]
	for _, r := range in {
		if r.u.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func removeMessage(in []types.ConversationMessage, id string) []types.ConversationMessage {
	out := in[:0]
	for _, m := range in {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
