package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
	"github.com/sweetpotato0/bizplan/config"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Placeholder names the interview templates must carry.
const (
	VarQuestion = "question"
	VarResponse = "response"
	VarAllQA    = "all_qa"
)

// Reset targets accepted by Store.Reset besides "section:<name>".
const (
	FieldFollowup = "followup_prompt"
	FieldCompile  = "compile_plan_prompt"
)

//go:embed default_prompts.yaml
var builtin []byte

// Section is one interview topic and its fixed opening question.
type Section struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Set is the prompt configuration an interview runs with.
type Set struct {
	Sections          []Section `yaml:"sections" json:"sections"`
	FollowupPrompt    string    `yaml:"followup_prompt" json:"followup_prompt"`
	CompilePlanPrompt string    `yaml:"compile_plan_prompt" json:"compile_plan_prompt"`
}

// File is the on-disk layout: user edits under customs, factory values under
// defaults.
type File struct {
	Customs  Set `yaml:"customs"`
	Defaults Set `yaml:"defaults"`
}

// Names returns section names in order.
func (s Set) Names() []string {
	names := make([]string, len(s.Sections))
	for i, sec := range s.Sections {
		names[i] = sec.Name
	}
	return names
}

// Question returns the opening question of a section.
func (s Set) Question(name string) (string, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec.Prompt, true
		}
	}
	return "", false
}

// Followup returns the follow-up template.
func (s Set) Followup() *Template {
	return NewTemplate(FieldFollowup, s.FollowupPrompt)
}

// Compile returns the plan compilation template.
func (s Set) Compile() *Template {
	return NewTemplate(FieldCompile, s.CompilePlanPrompt)
}

// Validate enforces the placeholder rules and section sanity.
func (s Set) Validate() error {
	v := config.NewValidator()
	v.RequirePositive("sections", len(s.Sections))
	for i, sec := range s.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		v.RequireNonEmpty(field+".name", sec.Name)
		v.RequireNonEmpty(field+".prompt", sec.Prompt)
	}
	v.RequireUnique("sections.name", s.Names())
	v.RequireContains(FieldFollowup, s.FollowupPrompt, "{"+VarQuestion+"}", "{"+VarResponse+"}")
	v.RequireContains(FieldCompile, s.CompilePlanPrompt, "{"+VarAllQA+"}")
	return v.Error()
}

// merged fills empty custom fields from defaults.
func merged(customs, defaults Set) Set {
	out := customs
	if len(out.Sections) == 0 {
		out.Sections = append([]Section(nil), defaults.Sections...)
	}
	if strings.TrimSpace(out.FollowupPrompt) == "" {
		out.FollowupPrompt = defaults.FollowupPrompt
	}
	if strings.TrimSpace(out.CompilePlanPrompt) == "" {
		out.CompilePlanPrompt = defaults.CompilePlanPrompt
	}
	return out
}

// Store loads and saves the prompt file. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	file   File
	logger *slog.Logger
}

// StoreOption customizes the store.
type StoreOption func(*Store)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Builtin returns the prompt file shipped with the binary.
func Builtin() File {
	var f File
	if err := yaml.Unmarshal(builtin, &f); err != nil {
		panic(fmt.Sprintf("prompt: invalid builtin prompts: %v", err))
	}
	return f
}

// Open loads path. A missing file starts from the builtin prompts and is
// created on the first Save.
func Open(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{path: path, file: Builtin()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("prompt_store")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("prompt file not found, using builtin prompts", "path", path)
		return s, nil
	case err != nil:
		return nil, oops.Code("prompts_read").With("path", path).Wrapf(err, "failed to read prompt file")
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("prompts_parse").With("path", path).Wrapf(err, "failed to parse prompt file")
	}
	if len(f.Defaults.Sections) == 0 && f.Defaults.FollowupPrompt == "" && f.Defaults.CompilePlanPrompt == "" {
		f.Defaults = s.file.Defaults
	}
	s.file = f

	if err := s.Current().Validate(); err != nil {
		return nil, oops.Code("prompts_invalid").With("path", path).Wrapf(err, "prompt file is invalid")
	}
	s.logger.Info("prompt file loaded", "path", path, "sections", len(s.Current().Sections))
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the effective prompts: customs with gaps filled from defaults.
func (s *Store) Current() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(merged(s.file.Customs, s.file.Defaults))
}

// Defaults returns the factory prompts.
func (s *Store) Defaults() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.file.Defaults)
}

// Save validates set and writes it as the custom prompts. An invalid set is
// rejected and nothing is written.
func (s *Store) Save(set Set) error {
	if err := set.Validate(); err != nil {
		s.logger.Warn("rejected prompt update", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.file
	next.Customs = cloneSet(set)
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.file = next
	s.logger.Info("custom prompts saved", "path", s.path, "sections", len(set.Sections))
	return nil
}

// Reset restores one prompt from defaults and saves. field is
// FieldFollowup, FieldCompile or "section:<name>".
func (s *Store) Reset(field string) (Set, error) {
	current := s.Current()
	defaults := s.Defaults()

	switch {
	case field == FieldFollowup:
		current.FollowupPrompt = defaults.FollowupPrompt
	case field == FieldCompile:
		current.CompilePlanPrompt = defaults.CompilePlanPrompt
	case strings.HasPrefix(field, "section:"):
		name := strings.TrimPrefix(field, "section:")
		def, ok := defaults.Question(name)
		if !ok {
			return Set{}, fmt.Errorf("section %q has no default prompt: %w", name, errorskg.ErrInvalidInput)
		}
		found := false
		for i := range current.Sections {
			if current.Sections[i].Name == name {
				current.Sections[i].Prompt = def
				found = true
			}
		}
		if !found {
			return Set{}, fmt.Errorf("section %q is not configured: %w", name, errorskg.ErrInvalidInput)
		}
	default:
		return Set{}, fmt.Errorf("unknown prompt field %q: %w", field, errorskg.ErrInvalidInput)
	}

	if err := s.Save(current); err != nil {
		return Set{}, err
	}
	return current, nil
}

// ResetAll replaces every custom prompt with its default and saves.
func (s *Store) ResetAll() (Set, error) {
	defaults := s.Defaults()
	if err := s.Save(defaults); err != nil {
		return Set{}, err
	}
	return defaults, nil
}

func (s *Store) writeLocked(f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode prompt file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create prompt directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prompt file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace prompt file: %w", err)
	}
	return nil
}

func cloneSet(s Set) Set {
	out := s
	out.Sections = append([]Section(nil), s.Sections...)
	return out
}
