package session

import (
	"context"
	"sync"
	"time"

	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/prompt"
)

// Record is the serializable form of an interview, written to the Store when
// the interview ends.
type Record struct {
	ID        string              `json:"id"`
	Sections  []prompt.Section    `json:"sections"`
	Responses map[string]string   `json:"responses"`
	History   map[string][]string `json:"history"`
	Current   int                 `json:"current_section"`
	Phase     interview.Phase     `json:"phase"`
	Outcome   interview.Outcome   `json:"outcome,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Sections = append([]prompt.Section(nil), r.Sections...)
	out.Responses = make(map[string]string, len(r.Responses))
	for k, v := range r.Responses {
		out.Responses[k] = v
	}
	out.History = make(map[string][]string, len(r.History))
	for k, v := range r.History {
		out.History[k] = append([]string(nil), v...)
	}
	return &out
}

// Session is one live interview: its machine, the exchange transports talk
// to, and the goroutine running it.
type Session struct {
	id        string
	machine   *interview.Machine
	exchange  *interview.Exchange
	cancel    context.CancelFunc
	done      chan struct{}
	createdAt time.Time

	mu        sync.RWMutex
	updatedAt time.Time
	outcome   interview.Outcome
}

func newSession(id string, machine *interview.Machine, exchange *interview.Exchange, cancel context.CancelFunc) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		machine:   machine,
		exchange:  exchange,
		cancel:    cancel,
		done:      make(chan struct{}),
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Exchange returns the input/output handoff of the session.
func (s *Session) Exchange() *interview.Exchange {
	return s.exchange
}

// State returns a copy of the interview state.
func (s *Session) State() interview.State {
	return s.machine.State()
}

// Done is closed once the interview has ended and its record was saved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns how the interview ended, or "" while it runs.
func (s *Session) Outcome() interview.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// Close stops the interview goroutine.
func (s *Session) Close() error {
	s.cancel()
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) setOutcome(o interview.Outcome) {
	s.mu.Lock()
	s.outcome = o
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Snapshot converts the session to a Record.
func (s *Session) Snapshot() *Record {
	st := s.machine.State()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Record{
		ID:        s.id,
		Sections:  s.machine.Questions(),
		Responses: st.Responses,
		History:   st.History,
		Current:   st.Current,
		Phase:     st.Phase,
		Outcome:   st.Outcome,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
