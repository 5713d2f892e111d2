package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Store persists finished interviews.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Factory builds the interview machine for a new session around its
// conversation.
type Factory func(conv interview.Conversation) (*interview.Machine, error)

// Reply is what a transport returns after start and step.
type Reply struct {
	SessionID  string `json:"session_id,omitempty"`
	Output     string `json:"output"`
	AllowInput bool   `json:"allow_input"`
}

// Manager owns live interview sessions. Each session runs its machine on its
// own goroutine; idle sessions expire and are stopped.
type Manager struct {
	factory        Factory
	store          Store
	sessions       *cache.Cache
	expiry         time.Duration
	inputTimeout   time.Duration
	outputTimeout  time.Duration
	processTimeout time.Duration
	saveTimeout    time.Duration
	baseCtx        context.Context
	stop           context.CancelFunc
	logger         *slog.Logger
}

// Option is a function that configures a Manager.
type Option func(*Manager)

// WithStore sets the store finished interviews are saved to.
func WithStore(s Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithExpiry sets how long an untouched session is kept.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithTimeouts sets the input wait of the machine, the wait for the next
// output and the wait for submitted input to be taken.
func WithTimeouts(input, output, process time.Duration) Option {
	return func(m *Manager) {
		if input > 0 {
			m.inputTimeout = input
		}
		if output > 0 {
			m.outputTimeout = output
		}
		if process > 0 {
			m.processTimeout = process
		}
	}
}

// WithLogger overrides the logger used by the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a session manager that builds machines with factory.
//
// Example:
//
//	mgr := session.NewManager(factory, session.WithStore(inmemory.NewInMemoryStore()))
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:        factory,
		expiry:         24 * time.Hour,
		inputTimeout:   interview.DefaultInputTimeout,
		outputTimeout:  interview.DefaultOutputTimeout,
		processTimeout: interview.DefaultProcessTimeout,
		saveTimeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.WithComponent("session_manager")
	}
	m.baseCtx, m.stop = context.WithCancel(context.Background())

	m.sessions = cache.New(m.expiry, 10*time.Minute)
	m.sessions.OnEvicted(func(id string, v any) {
		if sess, ok := v.(*Session); ok {
			_ = sess.Close()
		}
		m.logger.Info("session evicted", "session_id", id)
	})
	return m
}

// Start creates a session, launches its interview and waits for the first
// output.
func (m *Manager) Start(ctx context.Context) (Reply, error) {
	id := uuid.NewString()
	ex := interview.NewExchange(interview.WithInputTimeout(m.inputTimeout))
	machine, err := m.factory(ex)
	if err != nil {
		m.logger.Error("create interview failed", "error", err)
		return Reply{}, fmt.Errorf("failed to create interview: %w", err)
	}

	runCtx, cancel := context.WithCancel(m.baseCtx)
	sess := newSession(id, machine, ex, cancel)
	m.sessions.Set(id, sess, cache.DefaultExpiration)
	metrics.ActiveSessions.Inc()
	m.logger.Info("session started", "session_id", id)

	go m.run(runCtx, sess)

	snap, err := ex.WaitFor(ctx, m.outputTimeout, func(s interview.Snapshot) bool {
		return s.OutputSeq > 0 || s.Done
	})
	if err != nil && !errors.Is(err, errorskg.ErrOutputTimeout) {
		return Reply{}, err
	}
	return Reply{SessionID: id, Output: snap.Output, AllowInput: snap.AllowInput}, nil
}

func (m *Manager) run(ctx context.Context, sess *Session) {
	defer close(sess.done)

	outcome := sess.machine.Run(ctx)
	metrics.ActiveSessions.Dec()
	sess.setOutcome(outcome)
	m.logger.Info("interview ended", "session_id", sess.id, "outcome", outcome)

	if m.store == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()
	if err := m.store.Save(saveCtx, sess.Snapshot()); err != nil {
		m.logger.Error("save session failed", "session_id", sess.id, "error", err)
	}
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, errorskg.ErrInvalidSession
	}
	sess := v.(*Session)
	sess.touch()
	m.sessions.Set(id, sess, cache.DefaultExpiration)
	return sess, nil
}

// Step submits input and waits until the interview has taken it and
// produced its next output. Input sent while the interview is not asking is
// dropped and reported with ErrInputNotAllowed alongside the current output.
func (m *Manager) Step(ctx context.Context, id, input string) (Reply, error) {
	sess, err := m.Get(id)
	if err != nil {
		return Reply{}, err
	}
	ex := sess.exchange
	before := ex.Snapshot()

	if err := ex.Submit(input); err != nil {
		m.logger.Warn("input dropped", "session_id", id, "error", err)
		return Reply{Output: before.Output, AllowInput: before.AllowInput}, err
	}

	taken, err := ex.WaitFor(ctx, m.processTimeout, func(s interview.Snapshot) bool {
		return s.InputSeq > before.InputSeq || s.Done
	})
	if err != nil {
		return m.stepReply(id, taken, err)
	}

	next, err := ex.WaitFor(ctx, m.outputTimeout, func(s interview.Snapshot) bool {
		return s.Done || (s.OutputSeq > before.OutputSeq && s.AllowInput)
	})
	return m.stepReply(id, next, err)
}

func (m *Manager) stepReply(id string, snap interview.Snapshot, err error) (Reply, error) {
	reply := Reply{Output: snap.Output, AllowInput: snap.AllowInput}
	if errors.Is(err, errorskg.ErrOutputTimeout) {
		m.logger.Warn("no new output before timeout", "session_id", id)
		return reply, nil
	}
	return reply, err
}

// Poll returns the current output without blocking.
func (m *Manager) Poll(id string) (interview.PollResult, error) {
	sess, err := m.Get(id)
	if err != nil {
		return interview.PollResult{}, err
	}
	return sess.exchange.Poll(), nil
}

// Record returns the record of a live or stored interview.
func (m *Manager) Record(ctx context.Context, id string) (*Record, error) {
	if v, ok := m.sessions.Get(id); ok {
		return v.(*Session).Snapshot(), nil
	}
	if m.store == nil {
		return nil, errorskg.ErrInvalidSession
	}
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, errorskg.ErrNotFound) {
			return nil, errorskg.ErrInvalidSession
		}
		return nil, err
	}
	return rec, nil
}

// Delete stops a live session and removes its stored record.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.logger.Warn("deleting session", "session_id", id)
	_, live := m.sessions.Get(id)
	m.sessions.Delete(id)

	if m.store == nil {
		if !live {
			return errorskg.ErrInvalidSession
		}
		return nil
	}
	exists, err := m.store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if !exists {
		if !live {
			return errorskg.ErrInvalidSession
		}
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Error("delete session failed", "session_id", id, "error", err)
		return err
	}
	return nil
}

// List returns the IDs of live sessions.
func (m *Manager) List() []string {
	items := m.sessions.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

// Shutdown stops every interview and waits for their records to be saved.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()

	g, ctx := errgroup.WithContext(ctx)
	for id, item := range m.sessions.Items() {
		sess, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		g.Go(func() error {
			select {
			case <-sess.Done():
				return nil
			case <-ctx.Done():
				return fmt.Errorf("session %s did not stop: %w", id, ctx.Err())
			}
		})
	}
	err := g.Wait()
	m.logger.Info("session manager stopped", "error", err)
	return err
}
