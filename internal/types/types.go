package types

import "time"

// Status is the lifecycle position of an utterance. It only moves forward:
// pending -> delivered -> responded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusResponded Status = "responded"
)

// rank orders statuses so transitions can be checked for monotonicity.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusDelivered:
		return 2
	case StatusResponded:
		return 3
	}
	return 0
}

// Before reports whether s comes strictly earlier in the lifecycle than o.
func (s Status) Before(o Status) bool { return s.rank() < o.rank() }

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Utterance struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// ConversationMessage is one entry of the display history. User entries share
// the id of their utterance and mirror its status; assistant entries carry none.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status,omitempty"`
}

// Dequeued is the view of an utterance handed to the agent when the queue is flushed.
type Dequeued struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
}
