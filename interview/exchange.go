package interview

import (
	"context"
	"strings"
	"sync"
	"time"

	errorskg "github.com/sweetpotato0/bizplan/errors"
)

// Default waiting windows.
const (
	DefaultInputTimeout   = time.Hour
	DefaultOutputTimeout  = 3 * time.Minute
	DefaultProcessTimeout = 6 * time.Hour
)

// Snapshot is a consistent view of an exchange.
type Snapshot struct {
	Output     string `json:"output"`
	AllowInput bool   `json:"allow_input"`
	Done       bool   `json:"done"`
	OutputSeq  uint64 `json:"-"`
	InputSeq   uint64 `json:"-"`
}

// PollResult is what a non-blocking consumer sees.
type PollResult struct {
	Output      string `json:"output"`
	AllowInput  bool   `json:"allow_input"`
	IsNewOutput bool   `json:"is_new_output"`
}

// Exchange hands a single pending input from request handlers to the
// interview goroutine and publishes its output back. Input submitted while
// the interview is not asking is rejected, and of several inputs submitted
// before the interview wakes the last one wins.
type Exchange struct {
	mu           sync.Mutex
	output       string
	lastServed   string
	allowInput   bool
	pending      string
	hasPending   bool
	outputSeq    uint64
	inputSeq     uint64
	done         bool
	changed      chan struct{}
	input        chan struct{}
	inputTimeout time.Duration
}

var _ Conversation = (*Exchange)(nil)

// ExchangeOption customizes an exchange.
type ExchangeOption func(*Exchange)

// WithInputTimeout bounds how long Ask waits for input.
func WithInputTimeout(d time.Duration) ExchangeOption {
	return func(e *Exchange) {
		if d > 0 {
			e.inputTimeout = d
		}
	}
}

// NewExchange creates an idle exchange.
func NewExchange(opts ...ExchangeOption) *Exchange {
	e := &Exchange{
		changed:      make(chan struct{}),
		input:        make(chan struct{}, 1),
		inputTimeout: DefaultInputTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask publishes output, opens the input slot and blocks until input arrives,
// the input timeout elapses (ErrInputTimeout) or ctx is done.
func (e *Exchange) Ask(ctx context.Context, output string) (string, error) {
	if err := e.open(output); err != nil {
		return "", err
	}
	return e.await(ctx)
}

// open publishes output and accepts input from now on. Anything submitted
// earlier is dropped.
func (e *Exchange) open(output string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errorskg.ErrSessionClosed
	}
	select {
	case <-e.input:
	default:
	}
	e.pending, e.hasPending = "", false
	e.output = output
	e.outputSeq++
	e.allowInput = true
	e.notifyLocked()
	return nil
}

func (e *Exchange) await(ctx context.Context) (string, error) {
	timer := time.NewTimer(e.inputTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.closeInput()
			return "", ctx.Err()
		case <-timer.C:
			e.closeInput()
			return "", errorskg.ErrInputTimeout
		case <-e.input:
			e.mu.Lock()
			if !e.hasPending {
				e.mu.Unlock()
				continue
			}
			text := e.pending
			e.pending, e.hasPending = "", false
			e.allowInput = false
			e.inputSeq++
			e.notifyLocked()
			e.mu.Unlock()
			return text, nil
		}
	}
}

// Submit stores text for the waiting Ask. It fails with ErrInputNotAllowed
// when nothing is waiting and with ErrSessionClosed once the interview ended.
func (e *Exchange) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errorskg.ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return errorskg.ErrSessionClosed
	}
	if !e.allowInput {
		return errorskg.ErrInputNotAllowed
	}
	e.pending, e.hasPending = text, true
	select {
	case e.input <- struct{}{}:
	default:
	}
	return nil
}

// Finish publishes the final output and closes the exchange. An empty output
// keeps the last one.
func (e *Exchange) Finish(output string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	if output != "" {
		e.output = output
		e.outputSeq++
	}
	e.allowInput = false
	e.done = true
	e.notifyLocked()
}

// Snapshot returns the current view without marking anything as served.
func (e *Exchange) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Poll returns the current output and whether it differs from what the last
// Poll served.
func (e *Exchange) Poll() PollResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	isNew := e.output != e.lastServed
	if isNew {
		e.lastServed = e.output
	}
	return PollResult{Output: e.output, AllowInput: e.allowInput, IsNewOutput: isNew}
}

// WaitFor blocks until cond holds for a snapshot, timeout elapses
// (ErrOutputTimeout) or ctx is done. The last snapshot is always returned.
func (e *Exchange) WaitFor(ctx context.Context, timeout time.Duration, cond func(Snapshot) bool) (Snapshot, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		e.mu.Lock()
		s := e.snapshotLocked()
		changed := e.changed
		e.mu.Unlock()

		if cond(s) {
			return s, nil
		}
		select {
		case <-changed:
		case <-timer.C:
			return s, errorskg.ErrOutputTimeout
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

func (e *Exchange) closeInput() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowInput = false
	e.pending, e.hasPending = "", false
	e.notifyLocked()
}

func (e *Exchange) snapshotLocked() Snapshot {
	return Snapshot{
		Output:     e.output,
		AllowInput: e.allowInput,
		Done:       e.done,
		OutputSeq:  e.outputSeq,
		InputSeq:   e.inputSeq,
	}
}

// notifyLocked wakes every WaitFor caller.
func (e *Exchange) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}
