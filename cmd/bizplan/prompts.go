package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/bizplan/prompt"
	"gopkg.in/yaml.v3"
)

var (
	promptsCmd = &cobra.Command{
		Use:   "prompts",
		Short: "Inspect, validate and reset the interview prompts",
	}

	promptsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the prompts new interviews use",
		RunE: withPrompts(func(s *prompt.Store, _ []string) error {
			return yaml.NewEncoder(os.Stdout).Encode(s.Current())
		}),
	}

	promptsValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check the prompt file without starting anything",
		RunE: withPrompts(func(s *prompt.Store, _ []string) error {
			if err := s.Current().Validate(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s is valid\n", s.Path())
			return nil
		}),
	}

	promptsResetCmd = &cobra.Command{
		Use:   "reset [followup_prompt|compile_plan_prompt|section:<name>]",
		Short: "Restore one prompt, or all of them, from the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: withPrompts(func(s *prompt.Store, args []string) error {
			var err error
			if len(args) == 0 {
				_, err = s.ResetAll()
			} else {
				_, err = s.Reset(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "prompts reset in %s\n", s.Path())
			return nil
		}),
	}
)

func init() {
	promptsCmd.AddCommand(promptsShowCmd, promptsValidateCmd, promptsResetCmd)
}

func withPrompts(fn func(s *prompt.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), false, "console")
		if err != nil {
			return err
		}
		defer a.close(context.Background())
		return fn(a.prompts, args)
	}
}
