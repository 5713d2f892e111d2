package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	reHTMLTag  = regexp.MustCompile(`(?i)<(html|body|div|p|h[1-6]|ul|ol|li|br|table|span)[\s>/]`)
	reHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// Emphasis markers count only when paired and opening a word, so 2*3 and
// file__name are left alone.
var (
	reBold       = regexp.MustCompile(`(?m)(^|[\s(\[])\*\*([^\s*](?:[^*\n]*[^\s*])?)\*\*`)
	reUnderscore = regexp.MustCompile(`(?m)(^|[\s(\[])__([^\s_](?:[^_\n]*[^\s_])?)__`)
	reItalic     = regexp.MustCompile(`(?m)(^|[\s(\[])\*([^\s*](?:[^*\n]*[^\s*])?)\*`)
)

// CleanBasic strips control characters, common typographic artifacts and
// redundant whitespace.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	// remove control chars except newline
	b := strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	b = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"\u00a0", " ",
		"•", "-",
	).Replace(b)

	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")

	return strings.TrimSpace(b)
}

// LooksLikeHTML reports whether pasted text carries markup worth extracting.
func LooksLikeHTML(text string) bool {
	return reHTMLTag.MatchString(text)
}

// HTMLToText extracts headings, paragraphs, list items and tables as plain text.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	var out []string
	doc.Find("h1,h2,h3,h4,p,li,table").Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "table":
			out = append(out, parseTable(s))
		default:
			if text := strings.TrimSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		}
	})
	if len(out) == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(out, "\n\n"), nil
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(j int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, strings.Join(cols, ", ")+".")
		}
	})
	return strings.Join(rows, "\n")
}

// RemoveDuplicateParagraphs dedupe by exact paragraph text
func RemoveDuplicateParagraphs(text string) string {
	parts := strings.Split(text, "\n\n")
	seen := map[string]struct{}{}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// Description normalizes a company description before it is chunked.
// HTML that fails to parse is cleaned as plain text.
func Description(raw string) string {
	text := raw
	if LooksLikeHTML(raw) {
		if extracted, err := HTMLToText(raw); err == nil {
			text = extracted
		}
	}
	return RemoveDuplicateParagraphs(CleanBasic(text))
}

// PlainText removes markdown emphasis and heading markers a model adds
// despite being asked for plain text. Only paired markers are removed.
func PlainText(s string) string {
	s = reHeading.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, "$1$2")
	s = reUnderscore.ReplaceAllString(s, "$1$2")
	s = reItalic.ReplaceAllString(s, "$1$2")
	return CleanBasic(s)
}
