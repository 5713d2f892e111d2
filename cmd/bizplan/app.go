package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/bizplan/answer"
	"github.com/sweetpotato0/bizplan/config"
	"github.com/sweetpotato0/bizplan/contrib/classifier/huggingface"
	"github.com/sweetpotato0/bizplan/contrib/provider"
	"github.com/sweetpotato0/bizplan/grounding"
	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/llm"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/telemetry"
	"github.com/sweetpotato0/bizplan/plan"
	"github.com/sweetpotato0/bizplan/prompt"
	"github.com/sweetpotato0/bizplan/session"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	prompts  *prompt.Store
	model    llm.Model
	shutdown func(context.Context) error
}

// loadApp reads the config, sets up logging and tracing and opens the
// prompt store. The model is only built when withModel is set.
func loadApp(ctx context.Context, withModel bool, defaultFormat string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	} else if defaultFormat != "" {
		cfg.Log.Format = defaultFormat
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.SetLogger(logging.New(cfg.Log.Format, cfg.Log.Level))
	logger := logging.WithComponent("cli")

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "bizplan",
		Endpoint:    cfg.Telemetry.Endpoint,
		Disable:     cfg.Telemetry.Disable,
		Logger:      logging.WithComponent("telemetry"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	prompts, err := prompt.Open(cfg.PromptsFile, prompt.WithLogger(logging.WithComponent("prompts")))
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, prompts: prompts, shutdown: shutdown}
	if withModel {
		a.model, err = provider.New(ctx, cfg.LLM, logging.WithComponent("llm"))
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("failed to create model: %w", err)
		}
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// machine builds an interview over conv using the prompts saved right now.
func (a *app) machine(conv interview.Conversation) (*interview.Machine, error) {
	set := a.prompts.Current()
	if err := set.Validate(); err != nil {
		return nil, err
	}
	compiler := plan.NewCompiler(a.model, set.Compile(), plan.WithLogger(logging.WithComponent("plan")))
	return interview.New(set.Sections, set.Followup(), a.model, compiler, conv,
		interview.WithLogger(logging.WithComponent("interview"))), nil
}

func (a *app) factory() session.Factory {
	return a.machine
}

func (a *app) generator() *answer.Generator {
	g := a.cfg.Grounding
	classifier := huggingface.New(a.cfg.Classifier.APIKey,
		huggingface.WithEndpoint(a.cfg.Classifier.BaseURL),
		huggingface.WithModel(a.cfg.Classifier.Model),
		huggingface.WithTimeout(a.cfg.Classifier.Timeout),
	)
	verifier := grounding.NewVerifier(classifier,
		grounding.WithThreshold(g.Threshold),
		grounding.WithLogger(logging.WithComponent("grounding")),
	)
	return answer.NewGenerator(a.model, verifier,
		answer.WithDescriptionWindow(g.DescriptionWindow, g.DescriptionOverlap),
		answer.WithAnswerWindow(g.AnswerWindow, g.AnswerOverlap),
		answer.WithMaxAttempts(g.MaxAttempts),
		answer.WithLogger(logging.WithComponent("answer")),
	)
}
