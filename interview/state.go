package interview

// Phase is the step the interview is in.
type Phase string

const (
	PhaseAskInitial  Phase = "ask_initial"
	PhaseAskFollowup Phase = "ask_followup"
	PhaseCompile     Phase = "compile"
	PhaseTerminated  Phase = "terminated"
)

// Outcome records how an interview ended.
type Outcome string

const (
	OutcomeCompiled  Outcome = "compiled"
	OutcomeFailed    Outcome = "failed"
	OutcomeExited    Outcome = "exited"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// State is the per-session interview data. Only the owning Machine mutates
// it; everyone else works on clones.
type State struct {
	Sections  []string            `json:"sections"`
	Current   int                 `json:"current_section"`
	Responses map[string]string   `json:"responses"`
	History   map[string][]string `json:"history"`
	GoingBack bool                `json:"going_back"`
	Phase     Phase               `json:"phase"`
	Outcome   Outcome             `json:"outcome,omitempty"`
}

// NewState returns the state of a fresh interview over sections.
func NewState(sections []string) State {
	return State{
		Sections:  append([]string(nil), sections...),
		Responses: map[string]string{},
		History:   map[string][]string{},
		Phase:     PhaseAskInitial,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Sections = append([]string(nil), s.Sections...)
	out.Responses = make(map[string]string, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	out.History = make(map[string][]string, len(s.History))
	for k, v := range s.History {
		out.History[k] = append([]string(nil), v...)
	}
	return out
}

// ReadyToCompile reports whether every section has been closed.
func (s State) ReadyToCompile() bool {
	return s.Current >= len(s.Sections)
}

// clearSection drops a section's response and history together.
func (s *State) clearSection(name string) {
	delete(s.Responses, name)
	delete(s.History, name)
}

func (s *State) restart() {
	s.Responses = map[string]string{}
	s.History = map[string][]string{}
	s.Current = 0
	s.GoingBack = true
}
