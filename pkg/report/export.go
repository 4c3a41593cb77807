package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

var statusMarker = map[models.Classification]string{
	models.ClassificationCompliant:    "[PASS]",
	models.ClassificationPartial:      "[PARTIAL]",
	models.ClassificationNonCompliant: "[FAIL]",
}

// JSON serializes the report with stable field ordering and indentation.
func JSON(r models.AssessmentReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// Markdown renders the report as a human-readable document. Output is a
// pure function of the report structure.
func Markdown(r models.AssessmentReport) string {
	var b strings.Builder

	b.WriteString("# CMMC Level 2 Gap Assessment Report\n")
	fmt.Fprintf(&b, "**Domain**: %s\n", r.Domain)
	fmt.Fprintf(&b, "**Assessment ID**: %s\n", r.AssessmentID)
	fmt.Fprintf(&b, "**Generated**: %s\n\n", r.GeneratedAt.Format("2006-01-02T15:04:05Z"))
	b.WriteString("---\n\n")
	b.WriteString(r.ExecutiveSummary)
	b.WriteString("\n\n---\n\n")

	b.WriteString("## Detailed Scoring Results\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Controls | %d |\n", r.Scoring.TotalControls)
	fmt.Fprintf(&b, "| Compliant | %d |\n", r.Scoring.CompliantCount)
	fmt.Fprintf(&b, "| Partially Compliant | %d |\n", r.Scoring.PartialCount)
	fmt.Fprintf(&b, "| Non-Compliant | %d |\n", r.Scoring.NonCompliantCount)
	fmt.Fprintf(&b, "| Compliance Score | %.1f%% |\n", r.Scoring.CompliancePercentage)
	fmt.Fprintf(&b, "| Status | %s |\n\n", strings.ToUpper(string(r.Scoring.TrafficLight)))
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "## Identified Gaps (%d)\n\n", len(r.Gaps))
	if len(r.Gaps) > 0 {
		b.WriteString("### High Priority Gaps\n\n")
		var high, medium []models.GapItem
		for _, g := range r.Gaps {
			if g.Priority >= 7 {
				high = append(high, g)
			} else if g.Priority >= 4 {
				medium = append(medium, g)
			}
		}

		if len(high) > 0 {
			for _, g := range high {
				fmt.Fprintf(&b, "#### %s: %s\n", g.ControlID, g.ControlTitle)
				fmt.Fprintf(&b, "- **Severity**: %s\n", strings.ToUpper(string(g.Severity)))
				fmt.Fprintf(&b, "- **Current Status**: %s\n", g.CurrentStatus)
				fmt.Fprintf(&b, "- **Priority**: %d/10\n", g.Priority)
				fmt.Fprintf(&b, "- **Gap Description**: %s\n", g.GapDescription)
				fmt.Fprintf(&b, "- **Estimated Effort**: %s\n", g.EstimatedEffort)
				fmt.Fprintf(&b, "- **Estimated Cost**: %s\n\n", g.EstimatedCost)
				b.WriteString("**Remediation Steps**:\n")
				for _, step := range g.RemediationSteps {
					fmt.Fprintf(&b, "- %s\n", step)
				}
				b.WriteByte('\n')
			}
		} else {
			b.WriteString("*No high priority gaps identified.*\n\n")
		}

		b.WriteString("### Medium Priority Gaps\n\n")
		if len(medium) > 0 {
			for _, g := range medium {
				fmt.Fprintf(&b, "- **%s**: %s - %s\n", g.ControlID, g.ControlTitle, g.GapDescription)
			}
		} else {
			b.WriteString("*No medium priority gaps identified.*\n")
		}
	}

	b.WriteString("\n---\n\n## Recommendations\n\n")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}

	b.WriteString("\n---\n\n## Control-by-Control Assessment\n\n")
	for _, resp := range r.ControlResponses {
		marker, ok := statusMarker[resp.Classification]
		if !ok {
			marker = "[?]"
		}
		fmt.Fprintf(&b, "### %s %s: %s\n", marker, resp.ControlID, resp.ControlTitle)
		fmt.Fprintf(&b, "**Status**: %s\n", strings.ToUpper(string(resp.Classification)))
		fmt.Fprintf(&b, "**Assessment**: %s\n", resp.Explanation)
		if resp.Remediation != "" {
			fmt.Fprintf(&b, "**Remediation**: %s\n", resp.Remediation)
		}
		b.WriteByte('\n')
	}

	b.WriteString("---\n\n*Report generated by CMMC Scout - AI-powered CMMC Level 2 assessment platform*\n")
	return b.String()
}
