package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/bizplan/answer"
	"github.com/sweetpotato0/bizplan/grounding"
	"github.com/sweetpotato0/bizplan/internal/testutil"
	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/plan"
	"github.com/sweetpotato0/bizplan/prompt"
	"github.com/sweetpotato0/bizplan/session"
)

func newManager() *session.Manager {
	model := testutil.NewScriptedModel()
	model.Fallback = func(p string) (string, error) {
		if strings.HasPrefix(p, "COMPILE") {
			return "PLAN", nil
		}
		return "Who are your customers?", nil
	}
	sections := []prompt.Section{{Name: "Pitch", Prompt: "What is the elevator pitch?"}}
	return session.NewManager(func(conv interview.Conversation) (*interview.Machine, error) {
		compiler := plan.NewCompiler(model, prompt.NewTemplate("compile", "COMPILE\n{all_qa}"))
		return interview.New(sections, prompt.NewTemplate("followup", "FOLLOW {question}|{response}"), model, compiler, conv), nil
	})
}

func connect(t *testing.T, s *Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	if _, err := s.MCP().Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) (*sdkmcp.CallToolResult, map[string]any) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s failed: %v", name, err)
	}
	if res.IsError || len(res.Content) == 0 {
		return res, nil
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	var out map[string]any
	_ = json.Unmarshal([]byte(text.Text), &out)
	return res, out
}

func TestInterviewTools(t *testing.T) {
	cs := connect(t, NewServer(newManager()))

	_, started := call(t, cs, ToolStartInterview, map[string]any{})
	id, _ := started["session_id"].(string)
	if id == "" {
		t.Fatalf("expected a session_id, got %v", started)
	}
	if started["output"] != "**Pitch** - \nWhat is the elevator pitch?" {
		t.Errorf("unexpected first output %q", started["output"])
	}

	_, polled := call(t, cs, ToolPollState, map[string]any{"session_id": id})
	if polled["is_new_output"] != true {
		t.Errorf("expected new output on first poll, got %v", polled)
	}

	_, next := call(t, cs, ToolSubmitInput, map[string]any{"session_id": id, "user_input": "We sell widgets."})
	if next["output"] != "**Pitch** - \nWho are your customers?" {
		t.Errorf("unexpected follow-up %q", next["output"])
	}

	_, done := call(t, cs, ToolSubmitInput, map[string]any{"session_id": id, "user_input": "To consumers."})
	out, _ := done["output"].(string)
	if !strings.HasPrefix(out, plan.Header) || done["allow_input"] != false {
		t.Errorf("expected compiled plan, got %v", done)
	}
}

func TestSubmitInvalidSession(t *testing.T) {
	cs := connect(t, NewServer(newManager()))

	res, _ := call(t, cs, ToolSubmitInput, map[string]any{"session_id": "nope", "user_input": "hi"})
	if !res.IsError {
		t.Fatal("expected tool error for unknown session")
	}
}

func TestGenerateTool(t *testing.T) {
	model := testutil.NewScriptedModel("Acme builds solar panels for farms.")
	gen := answer.NewGenerator(model, grounding.NewVerifier(&testutil.WordClassifier{}))
	cs := connect(t, NewServer(newManager(), WithGenerator(gen)))

	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name: ToolGenerate,
		Arguments: map[string]any{
			"description": "Acme builds solar panels for farms.",
			"questions":   []string{"What does Acme build?"},
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}

	var pairs []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	text := res.Content[0].(*sdkmcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), &pairs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Answer != "Acme builds solar panels for farms." {
		t.Errorf("unexpected answers %+v", pairs)
	}
}

func TestGenerateToolRegisteredOnlyWithGenerator(t *testing.T) {
	cs := connect(t, NewServer(newManager()))

	tools, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{ToolStartInterview, ToolSubmitInput, ToolPollState} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
	if names[ToolGenerate] {
		t.Error("generate_answers should not be registered without a generator")
	}
}
