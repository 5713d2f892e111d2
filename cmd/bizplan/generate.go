package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/bizplan/answer"
	"github.com/sweetpotato0/bizplan/export"
)

var (
	generateDescription string
	generateQuestions   string
	generateOut         string

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Answer application questions from a company description",
		Long: `Generate drafts an answer to every question using only facts from the
company description, checks each answer against the description and writes the
result as a PDF. Answers that cannot be grounded read "Information not found".`,
		RunE: runGenerate,
	}
)

func init() {
	generateCmd.Flags().StringVarP(&generateDescription, "description", "d", "", "file holding the company description (required)")
	generateCmd.Flags().StringVarP(&generateQuestions, "questions", "q", "", "file with one question per line, defaults to the seed grant questions")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", export.DefaultFileName, "PDF output path")
	_ = generateCmd.MarkFlagRequired("description")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx, true, "console")
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	description, err := os.ReadFile(generateDescription)
	if err != nil {
		return fmt.Errorf("failed to read description: %w", err)
	}
	questions := answer.DefaultQuestions
	if generateQuestions != "" {
		if questions, err = readLines(generateQuestions); err != nil {
			return err
		}
	}

	answers := a.generator().Generate(ctx, string(description), questions)

	f, err := os.Create(generateOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", generateOut, err)
	}
	defer f.Close()
	if err := export.Write(f, export.DefaultTitle, export.Pairs(questions, answers)); err != nil {
		return err
	}
	a.logger.Info("answers written", "path", generateOut, "questions", len(questions))
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s holds no questions", path)
	}
	return lines, nil
}
