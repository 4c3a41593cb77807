package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scoutsec/cmmc-scout/internal/classifier"
	"github.com/scoutsec/cmmc-scout/internal/llm"
	"github.com/scoutsec/cmmc-scout/internal/service"
	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
)

func newAssessCmd() *cobra.Command {
	var (
		controlsFile string
		domain       string
		format       string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run an interactive assessment of one domain",
		Long: `Walks through every control in the domain, asking for a description of
how your organization implements it. Answers are classified by the
configured LLM provider (SCOUT_LLM_PROVIDER, SCOUT_LLM_API_KEY) and the
gap report is printed when the domain is complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("SCOUT_LLM_API_KEY is required (or use 'scoutctl demo')")
			}

			cat, err := loadCatalog(controlsFile)
			if err != nil {
				return err
			}
			if !cat.HasDomain(domain) {
				return fmt.Errorf("unknown domain %q (see 'scoutctl domains')", domain)
			}

			log := logger.New("error", "text")
			llmClient, err := llm.NewClient(cfg.LLM, log)
			if err != nil {
				return err
			}
			cls := classifier.New(llmClient, log)

			svc := service.New(cat, cls, events.NopSink{}, nil, log)

			ctx := cmd.Context()
			started, err := svc.StartAssessment(ctx, "cli-user", domain)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

			fmt.Fprintf(out, "Assessing %s (%d controls)\n", domain, started.ControlCount)

			control := started.Control
			question := started.Question
			for {
				fmt.Fprintf(out, "\n[%s] %s\n%s\n> ", control.ControlID, control.Title, question)

				if !scanner.Scan() {
					if err := scanner.Err(); err != nil {
						return fmt.Errorf("read answer: %w", err)
					}
					return errors.New("assessment aborted")
				}
				answer := strings.TrimSpace(scanner.Text())
				if answer == "" {
					fmt.Fprintln(out, "Please describe your implementation (or how it is missing).")
					continue
				}

				result, err := svc.SubmitResponse(ctx, started.AssessmentID, answer, false)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "  -> %s: %s\n",
					result.Classification.Classification,
					result.Classification.Explanation)

				if result.Done {
					break
				}
				control = *result.NextControl
				question = result.NextQuestion
			}

			rep, err := svc.GetReport(ctx, started.AssessmentID, format)
			if err != nil {
				return err
			}

			return writeReport(cmd, rep, format, output)
		},
	}

	cmd.Flags().StringVar(&controlsFile, "controls-file", "", "Path to a controls JSON file (default: embedded catalog)")
	cmd.Flags().StringVar(&domain, "domain", "Access Control", "Domain to assess")
	cmd.Flags().StringVar(&format, "format", "markdown", "Report format: json or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}
