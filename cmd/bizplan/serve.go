package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/bizplan/mcp"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/server"
	"github.com/sweetpotato0/bizplan/session"
	"github.com/sweetpotato0/bizplan/session/store"
)

var (
	serveAddr  string
	serveStdio bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve interviews over HTTP (and MCP)",
		Long: `Serve starts the HTTP transport: POST /start, POST /step, GET /state/:id,
prompt configuration and answer generation. With --stdio the MCP tools are
served over stdin/stdout instead.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides server.addr")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "serve MCP tools over stdin/stdout")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, true, "")
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	records, closeStore, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	iv := a.cfg.Interview
	sessions := session.NewManager(a.factory(),
		session.WithStore(records),
		session.WithExpiry(iv.SessionExpiry),
		session.WithTimeouts(iv.InputTimeout, iv.OutputTimeout, iv.ProcessTimeout),
		session.WithLogger(logging.WithComponent("session_manager")),
	)
	generator := a.generator()
	tools := mcp.NewServer(sessions,
		mcp.WithGenerator(generator),
		mcp.WithLogger(logging.WithComponent("mcp")),
	)

	if serveStdio {
		a.logger.Info("serving MCP over stdio")
		err := tools.Run(ctx)
		if serr := sessions.Shutdown(context.Background()); serr != nil {
			a.logger.Warn("session shutdown failed", "error", serr)
		}
		return err
	}

	opts := []server.Option{
		server.WithPrompts(a.prompts),
		server.WithGenerator(generator),
		server.WithCORSOrigins(a.cfg.Server.CORSOrigins),
		server.WithLogger(logging.WithComponent("server")),
	}
	if a.cfg.Server.EnableMCP {
		opts = append(opts, server.WithMCP(tools.Handler()))
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	a.logger.Info("starting server", "addr", addr, "store", a.cfg.Store.Driver, "llm", a.cfg.LLM.Provider)
	return server.New(sessions, opts...).Run(ctx, addr)
}
