// Package interview runs the section-by-section business plan interview.
//
// A Machine walks the configured sections in order. For each section it asks
// the fixed opening question, then a model-generated follow-up, and closes the
// section. The user may answer or type one of the commands exit, back, skip
// or restart. Once every section is closed the transcript is compiled into a
// plan. The Machine never talks to a transport directly; it asks questions
// through a Conversation, which an Exchange (for request/response transports)
// or a Terminal (for stdin/stdout) implements.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/llm"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"github.com/sweetpotato0/bizplan/plan"
	"github.com/sweetpotato0/bizplan/prompt"
)

const (
	// Skipped is the response recorded for a skipped turn.
	Skipped = "Skipped."
	// FollowupNotGenerated stands in for a follow-up question that was never
	// asked.
	FollowupNotGenerated = "Followup question not generated."
	// TimeoutOutput is shown when the user stops answering.
	TimeoutOutput = "Timeout: No input received within 60 minutes."
	// TimedOutPlan is stored as the final plan of a timed out interview.
	TimedOutPlan = "Timed out due to inactivity."
	// ExitOutput is shown when the user leaves the interview.
	ExitOutput = "Interview ended. Your answers so far have been kept."
)

// Conversation is how the machine talks to the user.
type Conversation interface {
	// Ask shows output and waits for one line of input.
	Ask(ctx context.Context, output string) (string, error)
	// Finish shows the final output; no more input will be requested.
	Finish(output string)
}

// Machine is one interview. It is not reusable: call Run once.
type Machine struct {
	sections []prompt.Section
	followup *prompt.Template
	model    llm.Model
	compiler *plan.Compiler
	conv     Conversation
	logger   *slog.Logger

	mu    sync.RWMutex
	state State
}

// Option customizes the machine.
type Option func(*Machine)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates an interview over sections. followup must carry {question} and
// {response} placeholders.
func New(sections []prompt.Section, followup *prompt.Template, model llm.Model, compiler *plan.Compiler, conv Conversation, opts ...Option) *Machine {
	m := &Machine{
		sections: append([]prompt.Section(nil), sections...),
		followup: followup,
		model:    model,
		compiler: compiler,
		conv:     conv,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.WithComponent("interview")
	}

	names := make([]string, len(m.sections))
	for i, s := range m.sections {
		names[i] = s.Name
	}
	m.state = NewState(names)
	return m
}

// State returns a copy of the interview state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Questions returns the opening question of every section in order.
func (m *Machine) Questions() []prompt.Section {
	return append([]prompt.Section(nil), m.sections...)
}

func (m *Machine) update(fn func(s *State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

// Run drives the interview until it is compiled, the user exits, input times
// out or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) Outcome {
	m.logger.Info("interview started", "sections", len(m.sections))

	for {
		if m.State().ReadyToCompile() {
			return m.compile(ctx)
		}

		cmd, err := m.askInitial(ctx)
		if err != nil {
			return m.interrupted(err)
		}
		if cmd == CommandExit {
			return m.exit()
		}
		if cmd != CommandAnswer {
			continue
		}

		cmd, err = m.askFollowup(ctx)
		if err != nil {
			return m.interrupted(err)
		}
		if cmd == CommandExit {
			return m.exit()
		}
	}
}

func (m *Machine) askInitial(ctx context.Context) (Command, error) {
	var section prompt.Section
	m.update(func(s *State) {
		s.GoingBack = false
		s.Phase = PhaseAskInitial
		section = m.sections[s.Current]
	})

	input, err := m.conv.Ask(ctx, formatQuestion(section.Name, section.Prompt))
	if err != nil {
		return CommandAnswer, err
	}

	cmd := ParseCommand(input)
	m.logger.Debug("initial answer received", "section", section.Name, "command", cmd.String())

	m.update(func(s *State) {
		switch cmd {
		case CommandExit:
		case CommandBack:
			s.clearSection(section.Name)
			s.GoingBack = true
			s.Current = max(s.Current-1, 0)
		case CommandRestart:
			s.restart()
		case CommandSkip:
			s.Responses[section.Name] = Skipped
			s.History[section.Name] = []string{
				turn(section.Prompt, Skipped),
				turn(FollowupNotGenerated, Skipped),
			}
			s.Current++
		default:
			s.Responses[section.Name] = input
			s.History[section.Name] = []string{turn(section.Prompt, input)}
		}
	})
	return cmd, nil
}

func (m *Machine) askFollowup(ctx context.Context) (Command, error) {
	var (
		section  prompt.Section
		response string
	)
	m.update(func(s *State) {
		s.Phase = PhaseAskFollowup
		section = m.sections[s.Current]
		response = s.Responses[section.Name]
	})

	question, err := m.generateFollowup(ctx, section, response)
	if err != nil {
		if ctx.Err() != nil {
			return CommandAnswer, ctx.Err()
		}
		m.logger.Warn("follow-up question not generated", "section", section.Name, "error", err)
		m.update(func(s *State) {
			s.History[section.Name] = append(s.History[section.Name], turn(FollowupNotGenerated, Skipped))
			s.Current++
		})
		return CommandSkip, nil
	}

	input, err := m.conv.Ask(ctx, formatQuestion(section.Name, question))
	if err != nil {
		return CommandAnswer, err
	}

	cmd := ParseCommand(input)
	m.logger.Debug("follow-up answer received", "section", section.Name, "command", cmd.String())

	m.update(func(s *State) {
		switch cmd {
		case CommandExit:
		case CommandBack:
			// the same section is asked again from its opening question
			s.clearSection(section.Name)
		case CommandRestart:
			s.restart()
		case CommandSkip:
			s.Responses[section.Name] += "\n\n" + Skipped
			s.History[section.Name] = append(s.History[section.Name], turn(question, Skipped))
			s.Current++
		default:
			s.Responses[section.Name] += "\n\n" + input
			s.History[section.Name] = append(s.History[section.Name], turn(question, input))
			s.Current++
		}
	})
	return cmd, nil
}

func (m *Machine) generateFollowup(ctx context.Context, section prompt.Section, response string) (string, error) {
	text, err := llm.Text(ctx, m.model, m.followup.Render(map[string]string{
		prompt.VarQuestion: section.Prompt,
		prompt.VarResponse: response,
	}))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (m *Machine) compile(ctx context.Context) Outcome {
	st := m.State()
	m.update(func(s *State) { s.Phase = PhaseCompile })

	outcome := OutcomeCompiled
	var final, output string
	text, err := m.compiler.Compile(ctx, st.Sections, st.History)
	if err != nil {
		m.logger.Error("business plan compilation failed", "error", err)
		outcome = OutcomeFailed
		final, output = plan.FailedMessage, plan.FailedMessage
	} else {
		final, output = text, plan.Header+text
	}

	m.finish(outcome, func(s *State) { s.Responses[plan.FinalPlanKey] = final }, output)
	return outcome
}

func (m *Machine) exit() Outcome {
	m.finish(OutcomeExited, nil, ExitOutput)
	return OutcomeExited
}

// interrupted ends the interview after Ask failed.
func (m *Machine) interrupted(err error) Outcome {
	switch {
	case errors.Is(err, errorskg.ErrInputTimeout):
		m.logger.Warn("interview timed out waiting for input")
		m.finish(OutcomeTimeout, func(s *State) { s.Responses[plan.FinalPlanKey] = TimedOutPlan }, TimeoutOutput)
		return OutcomeTimeout
	default:
		m.logger.Info("interview cancelled", "error", err)
		m.finish(OutcomeCancelled, nil, "")
		return OutcomeCancelled
	}
}

func (m *Machine) finish(outcome Outcome, fn func(s *State), output string) {
	m.update(func(s *State) {
		if fn != nil {
			fn(s)
		}
		s.Phase = PhaseTerminated
		s.Outcome = outcome
	})
	metrics.InterviewOutcomes.WithLabelValues(string(outcome)).Inc()
	m.logger.Info("interview finished", "outcome", outcome)
	m.conv.Finish(output)
}

func formatQuestion(section, question string) string {
	return fmt.Sprintf("**%s** - \n%s", section, question)
}

func turn(question, answer string) string {
	return fmt.Sprintf("Q: %s\nA: %s", question, answer)
}
