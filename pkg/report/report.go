// Package report assembles the final assessment report from the scoring
// engine, gap analyzer, and response history. The executive summary is
// deterministic template text so reports are exactly reproducible.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scoutsec/cmmc-scout/pkg/gaps"
	"github.com/scoutsec/cmmc-scout/pkg/models"
	"github.com/scoutsec/cmmc-scout/pkg/scoring"
)

var (
	// ErrNotCompleted means the session has not finished all controls.
	ErrNotCompleted = errors.New("assessment not completed")
	// ErrEmptyHistory means the session has no recorded responses.
	ErrEmptyHistory = errors.New("assessment has no responses")
)

var trafficLightText = map[models.TrafficLight]string{
	models.TrafficLightGreen:  "COMPLIANT - Meets CMMC Level 2 requirements",
	models.TrafficLightYellow: "NEEDS IMPROVEMENT - Partial compliance achieved",
	models.TrafficLightRed:    "NON-COMPLIANT - Significant gaps identified",
}

// Build composes a full report from a completed session's state.
func Build(state models.SessionState) (models.AssessmentReport, error) {
	if state.Status != models.SessionStatusCompleted {
		return models.AssessmentReport{}, fmt.Errorf("%w: status is %s", ErrNotCompleted, state.Status)
	}
	if len(state.Responses) == 0 {
		return models.AssessmentReport{}, ErrEmptyHistory
	}

	scores := scoring.Score(state.Responses)
	gapList := gaps.Identify(state.Responses)

	summaries := make([]models.ControlResponseSummary, len(state.Responses))
	for i, r := range state.Responses {
		summaries[i] = models.ControlResponseSummary{
			ControlID:      r.ControlID,
			ControlTitle:   r.ControlTitle,
			Classification: r.Classification,
			UserResponse:   r.UserResponse,
			Explanation:    r.Explanation,
			Remediation:    r.RemediationNotes,
		}
	}

	return models.AssessmentReport{
		AssessmentID:     state.AssessmentID.String(),
		Domain:           state.Domain,
		GeneratedAt:      time.Now().UTC(),
		Scoring:          scores,
		ExecutiveSummary: executiveSummary(state.Domain, scores),
		ControlResponses: summaries,
		Gaps:             gapList,
		Recommendations:  gaps.Recommendations(gapList),
	}, nil
}

func executiveSummary(domain string, s models.ScoringResult) string {
	status, ok := trafficLightText[s.TrafficLight]
	if !ok {
		status = "Unknown status"
	}

	pct := func(count int) float64 {
		return float64(count) / float64(s.TotalControls) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Executive Summary - %s Domain Assessment\n\n", domain)
	b.WriteString("## Overall Compliance Status\n")
	fmt.Fprintf(&b, "**%s**\n\n", status)
	fmt.Fprintf(&b, "Overall compliance score: **%.1f%%** (%s)\n\n",
		s.CompliancePercentage, strings.ToUpper(string(s.TrafficLight)))
	b.WriteString("## Assessment Results\n")
	fmt.Fprintf(&b, "- **Total Controls Assessed**: %d\n", s.TotalControls)
	fmt.Fprintf(&b, "- **Compliant**: %d (%.1f%%)\n", s.CompliantCount, pct(s.CompliantCount))
	fmt.Fprintf(&b, "- **Partially Compliant**: %d (%.1f%%)\n", s.PartialCount, pct(s.PartialCount))
	fmt.Fprintf(&b, "- **Non-Compliant**: %d (%.1f%%)\n\n", s.NonCompliantCount, pct(s.NonCompliantCount))
	b.WriteString("## Key Findings\n")
	b.WriteString(keyFindings(s))
	b.WriteString("\n\n## Compliance Gap Summary\n")
	fmt.Fprintf(&b, "- **High Priority Gaps**: %d controls require immediate attention\n", s.NonCompliantCount)
	fmt.Fprintf(&b, "- **Medium Priority Gaps**: %d controls need enhancement\n\n", s.PartialCount)
	b.WriteString("## Recommended Next Steps\n")
	b.WriteString(nextSteps(s))
	return b.String()
}

func keyFindings(s models.ScoringResult) string {
	var findings []string

	switch {
	case s.CompliantCount == s.TotalControls:
		findings = append(findings, "All controls are fully compliant - excellent security posture")
	case s.ComplianceScore >= 0.8:
		findings = append(findings, "Strong overall compliance with minor gaps to address")
	case s.ComplianceScore >= 0.5:
		findings = append(findings, "Moderate compliance level with several areas requiring improvement")
	default:
		findings = append(findings, "Significant compliance gaps requiring comprehensive remediation")
	}

	if s.CompliantCount > 0 {
		findings = append(findings, fmt.Sprintf(
			"%d controls demonstrate strong implementation", s.CompliantCount))
	}
	if s.NonCompliantCount > 0 {
		findings = append(findings, fmt.Sprintf(
			"%d controls have critical gaps requiring immediate remediation", s.NonCompliantCount))
	}

	var b strings.Builder
	for i, f := range findings {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(f)
	}
	return b.String()
}

func nextSteps(s models.ScoringResult) string {
	var steps []string

	if s.NonCompliantCount > 0 {
		steps = append(steps, fmt.Sprintf(
			"1. **IMMEDIATE**: Address %d non-compliant controls", s.NonCompliantCount))
	}
	if s.PartialCount > 0 {
		steps = append(steps, fmt.Sprintf(
			"2. **SHORT-TERM**: Enhance %d partially compliant controls", s.PartialCount))
	}
	if s.ComplianceScore < 0.8 {
		steps = append(steps,
			"3. **ONGOING**: Implement continuous compliance monitoring",
			"4. **STRATEGIC**: Develop comprehensive compliance program with executive support",
		)
	} else {
		steps = append(steps,
			"1. **MAINTAIN**: Continue current compliance practices",
			"2. **MONITOR**: Regular compliance reviews (quarterly recommended)",
		)
	}
	steps = append(steps,
		"5. **VALIDATION**: Consider engaging CMMC Registered Practitioner (RP) for validation")

	return strings.Join(steps, "\n")
}
