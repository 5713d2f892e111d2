package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/bizplan/export"
	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/session"
)

var (
	chatRemote string
	chatOut    string

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Run an interview in the terminal",
		Long: `Chat runs an interview on stdin/stdout. By default the interview runs in
this process; with --remote it is driven through a running server. Answer each
question, or type exit, back, skip or restart.`,
		RunE: runChat,
	}
)

func init() {
	chatCmd.Flags().StringVar(&chatRemote, "remote", "", "base URL of a bizplan server, e.g. http://localhost:8000")
	chatCmd.Flags().StringVarP(&chatOut, "out", "o", "", "write the finished interview as a PDF (local mode)")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if chatRemote != "" {
		return runRemoteChat(ctx, newRemoteClient(chatRemote), os.Stdin, os.Stdout)
	}

	a, err := loadApp(ctx, true, "console")
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	term := interview.NewTerminal(os.Stdin, os.Stdout,
		interview.WithTerminalTimeout(a.cfg.Interview.InputTimeout))
	m, err := a.machine(term)
	if err != nil {
		return err
	}

	outcome := m.Run(ctx)
	a.logger.Info("interview finished", "outcome", outcome)

	if chatOut == "" {
		return nil
	}
	st := m.State()
	rec := &session.Record{Sections: m.Questions(), Responses: st.Responses, Outcome: outcome}
	f, err := os.Create(chatOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", chatOut, err)
	}
	defer f.Close()
	if err := export.Write(f, export.PlanTitle, export.RecordPairs(rec)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Saved %s\n", chatOut)
	return nil
}
