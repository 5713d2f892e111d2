package prompt

import (
	"fmt"
	"strings"
)

// Template is a prompt with {name} placeholders. Doubled braces ({{ and }})
// render as literal braces.
type Template struct {
	Name    string
	Content string
}

// NewTemplate creates a new prompt template
func NewTemplate(name, content string) *Template {
	return &Template{Name: name, Content: content}
}

// Render substitutes vars into the template. Placeholders without a value are
// left as written.
func (t *Template) Render(vars map[string]string) string {
	var sb strings.Builder
	sb.Grow(len(t.Content))
	scan(t.Content, func(literal string) {
		sb.WriteString(literal)
	}, func(name, raw string) {
		if v, ok := vars[name]; ok {
			sb.WriteString(v)
			return
		}
		sb.WriteString(raw)
	})
	return sb.String()
}

// Placeholders lists the distinct placeholder names in order of appearance.
func (t *Template) Placeholders() []string {
	var names []string
	seen := map[string]bool{}
	scan(t.Content, func(string) {}, func(name, _ string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// Require returns an error naming every placeholder missing from the template.
func (t *Template) Require(names ...string) error {
	have := map[string]bool{}
	for _, n := range t.Placeholders() {
		have[n] = true
	}
	var missing []string
	for _, n := range names {
		if !have[n] {
			missing = append(missing, "{"+n+"}")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template %s must include %s", t.Name, strings.Join(missing, " and "))
	}
	return nil
}

// scan walks content, reporting literal runs and {identifier} placeholders.
func scan(content string, literal func(string), placeholder func(name, raw string)) {
	start := 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '{':
			if i+1 < len(content) && content[i+1] == '{' {
				literal(content[start:i] + "{")
				i++
				start = i + 1
				continue
			}
			end := strings.IndexByte(content[i+1:], '}')
			if end < 0 {
				continue
			}
			name := content[i+1 : i+1+end]
			if !isIdentifier(name) {
				continue
			}
			literal(content[start:i])
			placeholder(name, content[i:i+end+2])
			i += end + 1
			start = i + 1
		case '}':
			if i+1 < len(content) && content[i+1] == '}' {
				literal(content[start:i] + "}")
				i++
				start = i + 1
			}
		}
	}
	literal(content[start:])
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
