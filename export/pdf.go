// Package export renders question and answer pairs as a PDF document.
package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/sweetpotato0/bizplan/plan"
	"github.com/sweetpotato0/bizplan/session"
)

const (
	// DefaultTitle heads documents produced from generated answers.
	DefaultTitle = "Seed Grant Application"
	// DefaultFileName is suggested to clients downloading an export.
	DefaultFileName = "seed_grant_application.pdf"
	// PlanTitle heads documents produced from an interview.
	PlanTitle = "Business Plan"

	noResponse = "No response."
)

// QA is one question with its answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Pairs zips questions with answers. Missing answers are left empty.
func Pairs(questions, answers []string) []QA {
	out := make([]QA, len(questions))
	for i, q := range questions {
		out[i].Question = q
		if i < len(answers) {
			out[i].Answer = answers[i]
		}
	}
	return out
}

// RecordPairs lists an interview's sections in order followed by the final
// plan, when one was produced.
func RecordPairs(rec *session.Record) []QA {
	if rec == nil {
		return nil
	}
	out := make([]QA, 0, len(rec.Sections)+1)
	for _, s := range rec.Sections {
		answer, ok := rec.Responses[s.Name]
		if !ok || answer == "" {
			answer = noResponse
		}
		out = append(out, QA{Question: fmt.Sprintf("%s - %s", s.Name, s.Prompt), Answer: answer})
	}
	if final, ok := rec.Responses[plan.FinalPlanKey]; ok {
		out = append(out, QA{Question: plan.FinalPlanKey, Answer: final})
	}
	return out
}

// Write renders title and pairs to w: a centered bold title, then each
// question in bold followed by its answer.
func Write(w io.Writer, title string, pairs []QA) error {
	if title == "" {
		title = DefaultTitle
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, qa := range pairs {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 10, tr(qa.Question), "", "L", false)
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 10, tr(qa.Answer), "", "L", false)
		pdf.Ln(5)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
