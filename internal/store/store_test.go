package store

import (
	"errors"
	"testing"
	"time"

	"voicehooks/agent/internal/events"
	"voicehooks/agent/internal/types"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// checkMirror verifies that every user message agrees with its utterance and
// that no user message outlives a deleted utterance.
func checkMirror(t *testing.T, s *Store) {
	t.Helper()
	for _, m := range s.RecentMessages(0) {
		if m.Role != types.RoleUser {
			if m.Status != "" {
				t.Fatalf("assistant message %s carries status %q", m.ID, m.Status)
			}
			continue
		}
		u, ok := s.Get(m.ID)
		if !ok {
			t.Fatalf("user message %s has no utterance", m.ID)
		}
		if u.Status != m.Status {
			t.Fatalf("mirror broken for %s: utterance=%s message=%s", m.ID, u.Status, m.Status)
		}
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	s := New(nil)
	if _, err := s.Add("   \t", time.Time{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if c := s.Counts(); c.Total != 0 {
		t.Fatalf("expected empty store, got %+v", c)
	}
}

func TestAddTrimsAndDefaultsTimestamp(t *testing.T) {
	s := New(nil)
	before := time.Now()
	u, err := s.Add("  hello  ", time.Time{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if u.Text != "hello" || u.Status != types.StatusPending || u.ID == "" {
		t.Fatalf("unexpected utterance %+v", u)
	}
	if u.Timestamp.Before(before) {
		t.Fatalf("expected timestamp defaulted to now, got %v", u.Timestamp)
	}
	msgs := s.RecentMessages(10)
	if len(msgs) != 1 || msgs[0].ID != u.ID || msgs[0].Role != types.RoleUser {
		t.Fatalf("expected mirrored user message, got %+v", msgs)
	}
	checkMirror(t, s)
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	s := New(nil)
	u, _ := s.Add("a", t0)
	s.MarkDelivered(u.ID)
	first := s.Counts()
	s.MarkDelivered(u.ID)
	if got := s.Counts(); got != first {
		t.Fatalf("second MarkDelivered changed state: %+v -> %+v", first, got)
	}
	if got, _ := s.Get(u.ID); got.Status != types.StatusDelivered {
		t.Fatalf("expected delivered, got %s", got.Status)
	}
	s.MarkDelivered("unknown")
	checkMirror(t, s)
}

func TestStatusNeverRegresses(t *testing.T) {
	s := New(nil)
	u, _ := s.Add("a", t0)
	s.MarkDelivered(u.ID)
	if n := s.MarkRespondedAllDelivered(); n != 1 {
		t.Fatalf("expected 1 responded, got %d", n)
	}
	s.MarkDelivered(u.ID)
	if got, _ := s.Get(u.ID); got.Status != types.StatusResponded {
		t.Fatalf("responded utterance regressed to %s", got.Status)
	}
	if s.DeletePending(u.ID) {
		t.Fatalf("responded utterance must not be deletable")
	}
	checkMirror(t, s)
}

func TestMarkRespondedOnlyTouchesDelivered(t *testing.T) {
	s := New(nil)
	a, _ := s.Add("a", t0)
	b, _ := s.Add("b", t0.Add(time.Second))
	s.MarkDelivered(a.ID)

	if n := s.MarkRespondedAllDelivered(); n != 1 {
		t.Fatalf("expected 1 responded, got %d", n)
	}
	if got, _ := s.Get(b.ID); got.Status != types.StatusPending {
		t.Fatalf("pending utterance touched: %s", got.Status)
	}
	if n := s.MarkRespondedAllDelivered(); n != 0 {
		t.Fatalf("expected nothing left to respond to, got %d", n)
	}
	checkMirror(t, s)
}

func TestDeletePending(t *testing.T) {
	s := New(nil)
	a, _ := s.Add("a", t0)
	b, _ := s.Add("b", t0.Add(time.Second))
	s.MarkDelivered(b.ID)

	if !s.DeletePending(a.ID) {
		t.Fatalf("expected pending delete to succeed")
	}
	if _, ok := s.Get(a.ID); ok {
		t.Fatalf("deleted utterance still present")
	}
	for _, m := range s.RecentMessages(0) {
		if m.ID == a.ID {
			t.Fatalf("deleted utterance left a message behind")
		}
	}
	if s.DeletePending(b.ID) {
		t.Fatalf("delivered utterance must not be deletable")
	}
	if s.DeletePending("missing") {
		t.Fatalf("unknown id must not be deletable")
	}
	if c := s.Counts(); c.Total != 1 || c.Delivered != 1 {
		t.Fatalf("unexpected counts %+v", c)
	}
	checkMirror(t, s)
}

func TestDequeueNewestFirstThenReverseIsReadingOrder(t *testing.T) {
	s := New(nil)
	s.Add("B", t0.Add(1*time.Second))
	s.Add("C", t0.Add(2*time.Second))
	s.Add("A", t0)

	got := s.DequeuePendingNewestFirst()
	if len(got) != 3 {
		t.Fatalf("expected 3 dequeued, got %d", len(got))
	}
	var texts []string
	for i := len(got) - 1; i >= 0; i-- {
		texts = append(texts, got[i].Text)
	}
	want := []string{"A", "B", "C"}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, texts)
		}
	}
	if s.HasPending() {
		t.Fatalf("queue should be drained")
	}
	if c := s.Counts(); c.Delivered != 3 {
		t.Fatalf("expected 3 delivered, got %+v", c)
	}
	checkMirror(t, s)
}

func TestDequeueTiesKeepInsertionOrder(t *testing.T) {
	s := New(nil)
	s.Add("first", t0)
	s.Add("second", t0)

	got := s.DequeuePendingNewestFirst()
	if got[0].Text != "second" || got[1].Text != "first" {
		t.Fatalf("expected reverse insertion order for ties, got %+v", got)
	}
}

func TestDequeueOldestFirst(t *testing.T) {
	s := New(nil)
	s.Add("late", t0.Add(time.Minute))
	s.Add("early", t0)

	got := s.DequeuePendingOldestFirst()
	if len(got) != 2 || got[0].Text != "early" || got[1].Text != "late" {
		t.Fatalf("unexpected order %+v", got)
	}
	for _, u := range got {
		if u.Status != types.StatusDelivered {
			t.Fatalf("expected delivered status in result, got %s", u.Status)
		}
	}
	if got := s.DequeuePendingOldestFirst(); len(got) != 0 {
		t.Fatalf("second dequeue should be empty, got %d", len(got))
	}
	checkMirror(t, s)
}

func TestRecentAndMessages(t *testing.T) {
	s := New(nil)
	for i, txt := range []string{"one", "two", "three"} {
		s.Add(txt, t0.Add(time.Duration(i)*time.Second))
	}
	recent := s.Recent(2)
	if len(recent) != 2 || recent[0].Text != "three" || recent[1].Text != "two" {
		t.Fatalf("unexpected recent %+v", recent)
	}
	s.AddAssistantMessage("  reply ")
	msgs := s.RecentMessages(2)
	if len(msgs) != 2 || msgs[1].Text != "reply" || msgs[1].Role != types.RoleAssistant {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if msgs[0].Text != "three" {
		t.Fatalf("expected oldest-first window ending in reply, got %+v", msgs)
	}
}

func TestPendingOrderings(t *testing.T) {
	s := New(nil)
	s.Add("mid", t0.Add(time.Second))
	s.Add("old", t0)
	s.Add("new", t0.Add(2*time.Second))

	old := s.PendingOldestFirst()
	if old[0].Text != "old" || old[2].Text != "new" {
		t.Fatalf("unexpected oldest-first %+v", old)
	}
	nw := s.PendingNewestFirst()
	if nw[0].Text != "new" || nw[2].Text != "old" {
		t.Fatalf("unexpected newest-first %+v", nw)
	}
}

func TestClear(t *testing.T) {
	s := New(nil)
	s.Add("a", t0)
	s.Add("b", t0)
	s.AddAssistantMessage("hi")
	if n := s.Clear(); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if c := s.Counts(); c.Total != 0 || len(s.RecentMessages(0)) != 0 {
		t.Fatalf("store not empty after clear: %+v", c)
	}
}

func TestMutationsAreTraced(t *testing.T) {
	tr := events.NewLog(50)
	s := New(tr)
	u, _ := s.Add("a", t0)
	s.MarkDelivered(u.ID)
	s.MarkRespondedAllDelivered()

	var typesSeen []string
	for _, e := range tr.List() {
		typesSeen = append(typesSeen, e.Type)
	}
	want := []string{"utterance_queued", "utterance_delivered", "utterances_responded"}
	if len(typesSeen) != len(want) {
		t.Fatalf("expected %v, got %v", want, typesSeen)
	}
	for i := range want {
		if typesSeen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, typesSeen)
		}
	}
}
