package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/bizplan/internal/testutil"
	"github.com/sweetpotato0/bizplan/prompt"
)

func TestTranscript(t *testing.T) {
	history := map[string][]string{
		"Pitch":   {"Q: a\nA: 1", "Q: b\nA: 2"},
		"Market":  {"Q: c\nA: 3"},
		"Ignored": {"Q: x\nA: y"},
	}
	got := Transcript([]string{"Pitch", "Empty", "Market"}, history)
	assert.Equal(t, "Q: a\nA: 1\nQ: b\nA: 2\n\nQ: c\nA: 3", got)
}

func TestTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "", Transcript([]string{"A"}, nil))
}

func TestCompile(t *testing.T) {
	model := testutil.NewScriptedModel("  # Plan\nBody  \n")
	c := NewCompiler(model, prompt.NewTemplate("compile", "Write a plan from:\n{all_qa}\nEnd."))

	got, err := c.Compile(context.Background(), []string{"Pitch"}, map[string][]string{
		"Pitch": {"Q: What?\nA: Widgets."},
	})
	require.NoError(t, err)

	assert.Equal(t, "# Plan\nBody\n\n"+Disclaimer, got)
	assert.True(t, strings.HasSuffix(got, Disclaimer))
	require.Len(t, model.Prompts(), 1)
	assert.Equal(t, "Write a plan from:\nQ: What?\nA: Widgets.\nEnd.", model.Prompts()[0])
}

func TestCompileModelError(t *testing.T) {
	model := testutil.NewScriptedModel().Push(testutil.Reply{Err: errors.New("boom")})
	c := NewCompiler(model, prompt.NewTemplate("compile", "{all_qa}"))

	_, err := c.Compile(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCompileEmptyResponse(t *testing.T) {
	c := NewCompiler(testutil.NewScriptedModel(""), prompt.NewTemplate("compile", "{all_qa}"))
	_, err := c.Compile(context.Background(), nil, nil)
	assert.Error(t, err)
}
