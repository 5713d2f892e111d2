package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRender(t *testing.T) {
	tmpl := NewTemplate("followup", "Question: {question}\nResponse: {response}")
	got := tmpl.Render(map[string]string{"question": "Why?", "response": "Because."})
	assert.Equal(t, "Question: Why?\nResponse: Because.", got)
}

func TestTemplateRenderKeepsUnknownAndEscapes(t *testing.T) {
	tmpl := NewTemplate("t", `{{"json": true}} {missing} {all_qa} { not a var }`)
	got := tmpl.Render(map[string]string{"all_qa": "QA"})
	assert.Equal(t, `{"json": true} {missing} QA { not a var }`, got)
}

func TestTemplateRenderDoesNotRescanValues(t *testing.T) {
	tmpl := NewTemplate("t", "{question}")
	assert.Equal(t, "{response}", tmpl.Render(map[string]string{"question": "{response}", "response": "x"}))
}

func TestTemplatePlaceholders(t *testing.T) {
	tmpl := NewTemplate("t", "{a} {b} {a} {{c}} {1x}")
	assert.Equal(t, []string{"a", "b"}, tmpl.Placeholders())
}

func TestTemplateRequire(t *testing.T) {
	tmpl := NewTemplate("followup_prompt", "Question: {question}")
	err := tmpl.Require("question", "response")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{response}")
	assert.NoError(t, tmpl.Require("question"))
}

func TestBuiltinPromptsAreValid(t *testing.T) {
	f := Builtin()
	require.NoError(t, f.Defaults.Validate())
	assert.Len(t, f.Defaults.Sections, 8)
	assert.Equal(t, "Company Description", f.Defaults.Sections[0].Name)
	assert.Empty(t, f.Customs.Sections)
}

func TestSetValidate(t *testing.T) {
	valid := Builtin().Defaults

	tests := []struct {
		name    string
		mutate  func(*Set)
		wantErr string
	}{
		{"valid", func(*Set) {}, ""},
		{"followup missing response", func(s *Set) { s.FollowupPrompt = "Ask about {question}" }, "{response}"},
		{"followup missing question", func(s *Set) { s.FollowupPrompt = "Fill {response}" }, "{question}"},
		{"compile missing all_qa", func(s *Set) { s.CompilePlanPrompt = "Write a plan" }, "{all_qa}"},
		{"no sections", func(s *Set) { s.Sections = nil }, "sections"},
		{"empty section prompt", func(s *Set) { s.Sections[0].Prompt = " " }, "sections[0].prompt"},
		{"duplicate names", func(s *Set) { s.Sections[1].Name = s.Sections[0].Name }, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cloneSet(valid)
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenMissingFileUsesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, Builtin().Defaults, s.Current())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	set := s.Current()
	set.Sections = []Section{{Name: "Pitch", Prompt: "Describe your product."}}
	require.NoError(t, s.Save(set))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pitch"}, reopened.Current().Names())
	assert.Equal(t, s.Defaults(), reopened.Defaults())
}

func TestSaveRejectsInvalidAndKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(s.Current()))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := s.Current()
	bad.FollowupPrompt = "Ask something about {question}"
	err = s.Save(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{response}")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, s.Current().FollowupPrompt, "{response}")
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	custom := s.Current()
	custom.FollowupPrompt = "Q={question} R={response}"
	custom.Sections[0].Prompt = "Custom opener"
	require.NoError(t, s.Save(custom))

	set, err := s.Reset(FieldFollowup)
	require.NoError(t, err)
	assert.Equal(t, s.Defaults().FollowupPrompt, set.FollowupPrompt)
	assert.Equal(t, "Custom opener", set.Sections[0].Prompt)

	set, err = s.Reset("section:Company Description")
	require.NoError(t, err)
	assert.Equal(t, s.Defaults().Sections[0].Prompt, set.Sections[0].Prompt)

	_, err = s.Reset("section:Nope")
	assert.Error(t, err)
	_, err = s.Reset("bogus")
	assert.Error(t, err)
}

func TestResetAll(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prompts.yaml"))
	require.NoError(t, err)

	custom := s.Current()
	custom.CompilePlanPrompt = "Plan from {all_qa}"
	require.NoError(t, s.Save(custom))

	set, err := s.ResetAll()
	require.NoError(t, err)
	assert.Equal(t, s.Defaults(), set)
	assert.Equal(t, s.Defaults(), s.Current())
}

func TestOpenRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "customs:\n  followup_prompt: \"no placeholders\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpenFillsMissingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "customs:\n  sections:\n    - name: Pitch\n      prompt: Describe it.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pitch"}, s.Current().Names())
	assert.Equal(t, Builtin().Defaults.FollowupPrompt, s.Current().FollowupPrompt)
}
