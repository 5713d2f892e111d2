// Package mcp exposes interviews and answer generation as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/bizplan/answer"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/session"
)

const (
	ToolStartInterview = "start_interview"
	ToolSubmitInput    = "submit_input"
	ToolPollState      = "poll_state"
	ToolGenerate       = "generate_answers"
)

// Info describes the server to connecting clients.
type Info struct {
	Name    string
	Title   string
	Version string
}

// Server wraps an MCP server whose tools drive the session manager and the
// answer generator.
type Server struct {
	sessions  *session.Manager
	generator *answer.Generator
	info      Info
	logger    *slog.Logger
	server    *sdkmcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithGenerator registers the generate_answers tool.
func WithGenerator(g *answer.Generator) Option {
	return func(s *Server) {
		s.generator = g
	}
}

// WithInfo overrides the implementation metadata.
func WithInfo(info Info) Option {
	return func(s *Server) {
		if info.Name != "" {
			s.info.Name = info.Name
		}
		if info.Title != "" {
			s.info.Title = info.Title
		}
		if info.Version != "" {
			s.info.Version = info.Version
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer builds the MCP server over sessions.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		info:     Info{Name: "bizplan", Title: "Business plan interviewer", Version: "0.1.0"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("mcp")
	}

	s.server = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    s.info.Name,
		Title:   s.info.Title,
		Version: s.info.Version,
	}, nil)

	s.addStartInterview()
	s.addSubmitInput()
	s.addPollState()
	if s.generator != nil {
		s.addGenerate()
	}
	return s
}

// MCP returns the underlying SDK server, e.g. to run it over stdio.
func (s *Server) MCP() *sdkmcp.Server {
	return s.server
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return s.server
	}, nil)
}

// Run serves the tools over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) addStartInterview() {
	type args struct{}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolStartInterview,
		Description: "Start a business plan interview and return its session_id and first question",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ args) (*sdkmcp.CallToolResult, any, error) {
		reply, err := s.sessions.Start(ctx)
		if err != nil {
			s.logger.Error("start interview failed", "error", err)
			return nil, nil, err
		}
		return jsonResult(reply)
	})
}

func (s *Server) addSubmitInput() {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Session returned by start_interview"`
		UserInput string `json:"user_input" jsonschema:"Answer, or one of exit, back, skip, restart"`
	}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolSubmitInput,
		Description: "Answer the current interview question and return the next output",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		id := strings.TrimSpace(a.SessionID)
		if id == "" {
			return nil, nil, fmt.Errorf("session_id is required")
		}
		reply, err := s.sessions.Step(ctx, id, a.UserInput)
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(reply)
	})
}

func (s *Server) addPollState() {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Session returned by start_interview"`
	}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolPollState,
		Description: "Return the current interview output without submitting anything",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		state, err := s.sessions.Poll(strings.TrimSpace(a.SessionID))
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(struct {
			Output      string `json:"output"`
			AllowInput  bool   `json:"allow_input"`
			IsNewOutput bool   `json:"is_new_output"`
		}{state.Output, state.AllowInput, state.IsNewOutput})
	})
}

func (s *Server) addGenerate() {
	type args struct {
		Description string   `json:"description" jsonschema:"Company description the answers must be grounded in"`
		Questions   []string `json:"questions,omitempty" jsonschema:"Questions to answer, defaults to the seed grant questions"`
	}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolGenerate,
		Description: "Draft answers to application questions using only facts from the company description",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		if strings.TrimSpace(a.Description) == "" {
			return nil, nil, fmt.Errorf("description is required")
		}
		questions := a.Questions
		if len(questions) == 0 {
			questions = answer.DefaultQuestions
		}
		answers := s.generator.Generate(ctx, a.Description, questions)

		type qa struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		out := make([]qa, len(questions))
		for i, q := range questions {
			out[i] = qa{Question: q, Answer: answers[i]}
		}
		return jsonResult(out)
	})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}
