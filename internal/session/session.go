// Package session holds per-conversation state. A History is an append-only
// transcript of turns; concurrent callers reserve an arrival slot before doing
// slow work so that turns commit in the order the queries arrived, not the
// order the work finished.
package session

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn stamps a turn with the current time.
func NewTurn(role, text string) Turn {
	return Turn{Role: role, Text: text, Timestamp: time.Now()}
}

// History is a single conversation's transcript. The zero value is not
// usable; construct with NewHistory.
type History struct {
	mu         sync.Mutex
	committed  *sync.Cond
	nextTicket uint64
	nextCommit uint64
	turns      []Turn
}

// NewHistory returns an empty transcript.
func NewHistory() *History {
	h := &History{}
	h.committed = sync.NewCond(&h.mu)
	return h
}

// Reservation is an arrival-order slot in a History. Every reservation must
// be finished with exactly one Commit or Abort, or later reservations block
// forever.
type Reservation struct {
	h      *History
	ticket uint64
	done   bool
}

// Reserve takes the next arrival slot. Call it before starting retrieval or
// generation work; the returned reservation's Commit blocks until all earlier
// slots have committed, so turns land in arrival order no matter how long
// each request's work takes.
func (h *History) Reserve() *Reservation {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := &Reservation{h: h, ticket: h.nextTicket}
	h.nextTicket++
	return r
}

// Commit appends the given turns atomically once all earlier reservations
// have committed. Committing twice is a no-op.
func (r *Reservation) Commit(turns ...Turn) {
	h := r.h
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.done {
		return
	}
	for h.nextCommit != r.ticket {
		h.committed.Wait()
	}
	h.turns = append(h.turns, turns...)
	h.nextCommit++
	r.done = true
	h.committed.Broadcast()
}

// Abort releases the slot without appending anything.
func (r *Reservation) Abort() {
	r.Commit()
}

// Append records turns without a prior reservation, ordered by lock
// acquisition. Meant for single-caller paths like transcript seeding.
func (h *History) Append(turns ...Turn) {
	h.Reserve().Commit(turns...)
}

// Recent returns up to n of the most recent turns in chronological order.
// n <= 0 returns all turns. The slice is a copy.
func (h *History) Recent(n int) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := 0
	if n > 0 && len(h.turns) > n {
		start = len(h.turns) - n
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Len reports the number of committed turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear drops all committed turns. Reservations already taken keep their
// ordering guarantee.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
