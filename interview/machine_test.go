package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/internal/testutil"
	"github.com/sweetpotato0/bizplan/plan"
	"github.com/sweetpotato0/bizplan/prompt"
)

// scriptedConversation answers Ask from a list and times out when it runs
// dry. It records the state seen at every question.
type scriptedConversation struct {
	mu      sync.Mutex
	inputs  []string
	outputs []string
	states  []State
	final   string
	machine *Machine
}

func (c *scriptedConversation) Ask(_ context.Context, output string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, output)
	if c.machine != nil {
		c.states = append(c.states, c.machine.State())
	}
	if len(c.inputs) == 0 {
		return "", errorskg.ErrInputTimeout
	}
	in := c.inputs[0]
	c.inputs = c.inputs[1:]
	return in, nil
}

func (c *scriptedConversation) Finish(output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = output
}

var testSections = []prompt.Section{
	{Name: "A", Prompt: "Question A?"},
	{Name: "B", Prompt: "Question B?"},
	{Name: "C", Prompt: "Question C?"},
}

// echoModel answers follow-up prompts with "Follow <question>" and compile
// prompts with "PLAN".
func echoModel() *testutil.ScriptedModel {
	m := testutil.NewScriptedModel()
	m.Fallback = func(p string) (string, error) {
		if strings.HasPrefix(p, "COMPILE") {
			return "PLAN", nil
		}
		q, _, _ := strings.Cut(strings.TrimPrefix(p, "FOLLOW "), "|")
		return "Follow " + q, nil
	}
	return m
}

func newTestMachine(sections []prompt.Section, model *testutil.ScriptedModel, inputs ...string) (*Machine, *scriptedConversation) {
	conv := &scriptedConversation{inputs: inputs}
	compiler := plan.NewCompiler(model, prompt.NewTemplate("compile", "COMPILE\n{all_qa}"))
	m := New(sections, prompt.NewTemplate("followup", "FOLLOW {question}|{response}"), model, compiler, conv)
	conv.machine = m
	return m, conv
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"exit", CommandExit},
		{"EXIT", CommandExit},
		{"  Back ", CommandBack},
		{"skip", CommandSkip},
		{"Restart", CommandRestart},
		{"skip this one", CommandAnswer},
		{"exiting", CommandAnswer},
		{"", CommandAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.input))
		})
	}
}

func TestLiteralAnswersCloseEverySection(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "a1", "a2", "b1", "b2", "c1", "c2")

	outcome := m.Run(context.Background())
	assert.Equal(t, OutcomeCompiled, outcome)

	st := m.State()
	assert.Equal(t, len(testSections), st.Current)
	assert.True(t, st.ReadyToCompile())
	assert.Equal(t, PhaseTerminated, st.Phase)
	assert.Equal(t, "a1\n\na2", st.Responses["A"])
	assert.Equal(t, "c1\n\nc2", st.Responses["C"])
	assert.Equal(t, []string{"Q: Question B?\nA: b1", "Q: Follow Question B?\nA: b2"}, st.History["B"])

	assert.Equal(t, []string{
		"**A** - \nQuestion A?",
		"**A** - \nFollow Question A?",
		"**B** - \nQuestion B?",
		"**B** - \nFollow Question B?",
		"**C** - \nQuestion C?",
		"**C** - \nFollow Question C?",
	}, conv.outputs)
	assert.Equal(t, plan.Header+"PLAN\n\n"+plan.Disclaimer, conv.final)
}

func TestFollowupPromptCarriesInitialAnswer(t *testing.T) {
	model := echoModel()
	m, _ := newTestMachine(testSections[:1], model, "We sell widgets.", "exit")
	m.Run(context.Background())

	require.NotEmpty(t, model.Prompts())
	assert.Equal(t, "FOLLOW Question A?|We sell widgets.", model.Prompts()[0])
}

func TestBackOnInitialQuestion(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(),
		"a1", "a2", // A closed
		"back", // at B: rewind to A
		"a3", "a4",
		"exit",
	)
	m.Run(context.Background())

	// states[2] is seen while B is asked, states[3] after back
	require.Len(t, conv.states, 6)
	assert.Equal(t, 1, conv.states[2].Current)
	after := conv.states[3]
	assert.Equal(t, 0, after.Current)
	assert.NotContains(t, after.History, "B")
	assert.NotContains(t, after.Responses, "B")
	assert.Equal(t, "a1\n\na2", after.Responses["A"])
	assert.False(t, after.GoingBack, "going back is cleared when the next question is asked")

	st := m.State()
	assert.Equal(t, "a3\n\na4", st.Responses["A"])
	assert.Len(t, st.History["A"], 2)
	assert.Equal(t, OutcomeExited, st.Outcome)
}

func TestBackClearsRevisitedSection(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(),
		"a1", "a2",
		"b1", "b2",
		"back", // at C: rewind to B
		"back", // at B, which was answered: clear it and rewind to A
		"exit",
	)
	m.Run(context.Background())

	require.Len(t, conv.states, 7)
	atB := conv.states[5]
	assert.Equal(t, 1, atB.Current)
	assert.Equal(t, "b1\n\nb2", atB.Responses["B"])

	atA := conv.states[6]
	assert.Equal(t, 0, atA.Current)
	assert.NotContains(t, atA.Responses, "B")
	assert.NotContains(t, atA.History, "B")
	assert.Contains(t, atA.Responses, "A")
}

func TestBackNeverGoesBelowZero(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "back", "back", "exit")
	m.Run(context.Background())

	for _, st := range conv.states {
		assert.Equal(t, 0, st.Current)
	}
	assert.Equal(t, "**A** - \nQuestion A?", conv.outputs[2])
}

func TestBackOnFollowupRepeatsSection(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "a1", "back", "exit")
	m.Run(context.Background())

	require.Len(t, conv.outputs, 3)
	assert.Equal(t, "**A** - \nQuestion A?", conv.outputs[2])
	st := conv.states[2]
	assert.Equal(t, 0, st.Current)
	assert.NotContains(t, st.Responses, "A")
	assert.NotContains(t, st.History, "A")
}

func TestRestart(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "a1", "a2", "b1", "restart", "exit")
	m.Run(context.Background())

	require.Len(t, conv.states, 5)
	st := conv.states[4]
	assert.Equal(t, 0, st.Current)
	assert.Empty(t, st.Responses)
	assert.Empty(t, st.History)
	assert.Equal(t, "**A** - \nQuestion A?", conv.outputs[4])
}

func TestRestartFromInitialQuestion(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "a1", "a2", "RESTART", "exit")
	m.Run(context.Background())

	st := conv.states[3]
	assert.Equal(t, 0, st.Current)
	assert.Empty(t, st.Responses)
	assert.Empty(t, st.History)
}

func TestSkipInitialQuestion(t *testing.T) {
	model := echoModel()
	m, _ := newTestMachine(testSections, model, "skip", "exit")
	m.Run(context.Background())

	st := m.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, Skipped, st.Responses["A"])
	assert.Equal(t, []string{
		"Q: Question A?\nA: Skipped.",
		"Q: Followup question not generated.\nA: Skipped.",
	}, st.History["A"])
	assert.Zero(t, model.Calls(), "no follow-up is generated for a skipped section")
}

func TestSkipFollowup(t *testing.T) {
	m, _ := newTestMachine(testSections, echoModel(), "a1", "Skip", "exit")
	m.Run(context.Background())

	st := m.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, "a1\n\nSkipped.", st.Responses["A"])
	assert.Equal(t, []string{"Q: Question A?\nA: a1", "Q: Follow Question A?\nA: Skipped."}, st.History["A"])
}

func TestExitKeepsAnswers(t *testing.T) {
	m, conv := newTestMachine(testSections, echoModel(), "a1", "exit")

	assert.Equal(t, OutcomeExited, m.Run(context.Background()))
	st := m.State()
	assert.Equal(t, "a1", st.Responses["A"])
	assert.NotContains(t, st.Responses, plan.FinalPlanKey)
	assert.Equal(t, ExitOutput, conv.final)
}

func TestElevatorPitchEndToEnd(t *testing.T) {
	model := testutil.NewScriptedModel("Who are your customers?", "Widgets Inc. sells widgets to consumers.")
	conv := &scriptedConversation{inputs: []string{"We sell widgets.", "To consumers."}}
	compiler := plan.NewCompiler(model, prompt.NewTemplate("compile", "Plan from {all_qa}"))
	m := New(
		[]prompt.Section{{Name: "Pitch", Prompt: "What is the elevator pitch?"}},
		prompt.NewTemplate("followup", "{question} {response}"),
		model, compiler, conv,
	)

	assert.Equal(t, OutcomeCompiled, m.Run(context.Background()))

	st := m.State()
	assert.Equal(t, "We sell widgets.\n\nTo consumers.", st.Responses["Pitch"])
	assert.Equal(t, 1, st.Current)
	assert.True(t, strings.HasSuffix(st.Responses[plan.FinalPlanKey], plan.Disclaimer))
	assert.Equal(t, []string{"**Pitch** - \nWhat is the elevator pitch?", "**Pitch** - \nWho are your customers?"}, conv.outputs)
	assert.Equal(t, plan.Header+st.Responses[plan.FinalPlanKey], conv.final)

	prompts := model.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "What is the elevator pitch? We sell widgets.", prompts[0])
	assert.Equal(t, "Plan from Q: What is the elevator pitch?\nA: We sell widgets.\nQ: Who are your customers?\nA: To consumers.", prompts[1])
}

func TestTimeoutEndsInterview(t *testing.T) {
	model := echoModel()
	ex := NewExchange(WithInputTimeout(20 * time.Millisecond))
	compiler := plan.NewCompiler(model, prompt.NewTemplate("compile", "COMPILE {all_qa}"))
	m := New(testSections, prompt.NewTemplate("followup", "FOLLOW {question}|{response}"), model, compiler, ex)

	assert.Equal(t, OutcomeTimeout, m.Run(context.Background()))

	snap := ex.Snapshot()
	assert.True(t, snap.Done)
	assert.False(t, snap.AllowInput)
	assert.Contains(t, snap.Output, "Timeout")
	assert.Equal(t, TimedOutPlan, m.State().Responses[plan.FinalPlanKey])
	assert.Zero(t, model.Calls())
}

func TestFollowupGenerationFailureSkipsTurn(t *testing.T) {
	model := testutil.NewScriptedModel().Push(testutil.Reply{Err: errors.New("model down")})
	m, conv := newTestMachine(testSections, model, "a1", "exit")
	m.Run(context.Background())

	st := m.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, "a1", st.Responses["A"])
	assert.Equal(t, []string{"Q: Question A?\nA: a1", "Q: Followup question not generated.\nA: Skipped."}, st.History["A"])
	assert.Equal(t, "**B** - \nQuestion B?", conv.outputs[1])
}

func TestCompileFailure(t *testing.T) {
	model := testutil.NewScriptedModel("Follow?").Push(testutil.Reply{Err: errors.New("model down")})
	m, conv := newTestMachine(testSections[:1], model, "a1", "a2")

	assert.Equal(t, OutcomeFailed, m.Run(context.Background()))
	assert.Equal(t, plan.FailedMessage, m.State().Responses[plan.FinalPlanKey])
	assert.Equal(t, plan.FailedMessage, conv.final)
}

func TestNoSectionsCompilesImmediately(t *testing.T) {
	m, conv := newTestMachine(nil, echoModel())

	assert.Equal(t, OutcomeCompiled, m.Run(context.Background()))
	assert.Empty(t, conv.outputs)
	assert.Contains(t, conv.final, "PLAN")
}

func TestCancelledContext(t *testing.T) {
	ex := NewExchange()
	model := echoModel()
	m := New(testSections, prompt.NewTemplate("f", "{question}{response}"), model,
		plan.NewCompiler(model, prompt.NewTemplate("c", "{all_qa}")), ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- m.Run(ctx) }()

	_, err := ex.WaitFor(context.Background(), time.Second, func(s Snapshot) bool { return s.AllowInput })
	require.NoError(t, err)
	cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeCancelled, outcome)
	case <-time.After(time.Second):
		t.Fatal("machine did not stop after cancellation")
	}
	assert.True(t, ex.Snapshot().Done)
}

func TestStateCloneIsDeep(t *testing.T) {
	st := NewState([]string{"A"})
	st.Responses["A"] = "x"
	st.History["A"] = []string{"Q: q\nA: x"}

	c := st.Clone()
	c.Responses["A"] = "y"
	c.History["A"][0] = "changed"
	c.Sections[0] = "Z"

	assert.Equal(t, "x", st.Responses["A"])
	assert.Equal(t, "Q: q\nA: x", st.History["A"][0])
	assert.Equal(t, "A", st.Sections[0])
}
