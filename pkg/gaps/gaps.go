// Package gaps derives prioritized compliance gaps and remediation
// planning from classified control responses.
package gaps

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// Fixed rule table keyed by classification. A single set of constants is
// used for every call site so the same response always yields the same gap.
const (
	priorityNonCompliant = 8
	priorityPartial      = 5

	effortHigh   = "High"
	effortMedium = "Medium"

	costHigh   = ">$20K"
	costMedium = "$5-20K"

	defaultRemediationStep = "Review control requirements and implement missing components"
	defaultGapDescription  = "Implementation gap identified"
)

// Remediation plan bucket boundaries on gap priority.
const (
	immediateMinPriority = 7
	shortTermMinPriority = 4
)

// Rule is the fixed set of gap attributes for one classification. Every
// consumer reads the same table, so gap payloads cannot drift between the
// analyzer and the event stream.
type Rule struct {
	Severity models.Severity
	Priority int
	Effort   string
	Cost     string
}

// RuleFor returns the gap rule for a classification. ok is false for
// compliant responses, which never produce gaps.
func RuleFor(c models.Classification) (Rule, bool) {
	switch c {
	case models.ClassificationNonCompliant:
		return Rule{
			Severity: models.SeverityHigh,
			Priority: priorityNonCompliant,
			Effort:   effortHigh,
			Cost:     costHigh,
		}, true
	case models.ClassificationPartial:
		return Rule{
			Severity: models.SeverityMedium,
			Priority: priorityPartial,
			Effort:   effortMedium,
			Cost:     costMedium,
		}, true
	default:
		return Rule{}, false
	}
}

// Identify derives one GapItem per partial or non_compliant response.
// Compliant responses never produce gaps. The result is sorted by priority
// descending with ties kept in input order.
func Identify(responses []models.ClassifiedResponse) []models.GapItem {
	gaps := make([]models.GapItem, 0, len(responses))
	for _, resp := range responses {
		rule, ok := RuleFor(resp.Classification)
		if !ok {
			continue
		}

		item := models.GapItem{
			ControlID:        resp.ControlID,
			ControlTitle:     resp.ControlTitle,
			Severity:         rule.Severity,
			CurrentStatus:    resp.Classification,
			GapDescription:   resp.Explanation,
			RemediationSteps: ParseRemediationSteps(resp.RemediationNotes),
			EstimatedEffort:  rule.Effort,
			EstimatedCost:    rule.Cost,
			Priority:         rule.Priority,
		}
		if item.GapDescription == "" {
			item.GapDescription = defaultGapDescription
		}

		gaps = append(gaps, item)
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Priority > gaps[j].Priority
	})
	return gaps
}

// ParseRemediationSteps splits free-form remediation notes on newlines and
// bullet or dash characters into an ordered step list. Empty notes yield a
// single default step.
func ParseRemediationSteps(notes string) []string {
	var steps []string
	if notes != "" {
		normalized := strings.NewReplacer("•", "\n", "-", "\n").Replace(notes)
		for _, frag := range strings.Split(normalized, "\n") {
			if s := strings.TrimSpace(frag); s != "" {
				steps = append(steps, s)
			}
		}
	}
	if len(steps) == 0 {
		steps = []string{defaultRemediationStep}
	}
	return steps
}

// Prioritize re-sorts gaps by priority descending. Idempotent on an
// already-sorted list.
func Prioritize(items []models.GapItem) []models.GapItem {
	out := make([]models.GapItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// BuildRemediationPlan buckets gaps into immediate, short-term, and
// long-term actions and aggregates cost and timeline estimates.
func BuildRemediationPlan(items []models.GapItem) models.RemediationPlan {
	plan := models.RemediationPlan{
		ImmediateActions: []models.RemediationAction{},
		ShortTerm:        []models.RemediationAction{},
		LongTerm:         []models.RemediationAction{},
	}

	totalCost := 0
	totalWeeks := 0
	for _, g := range items {
		action := models.RemediationAction{
			ControlID:    g.ControlID,
			ControlTitle: g.ControlTitle,
			Priority:     g.Priority,
			Steps:        g.RemediationSteps,
			Effort:       g.EstimatedEffort,
			Cost:         g.EstimatedCost,
		}
		switch {
		case g.Priority >= immediateMinPriority:
			plan.ImmediateActions = append(plan.ImmediateActions, action)
		case g.Priority >= shortTermMinPriority:
			plan.ShortTerm = append(plan.ShortTerm, action)
		default:
			plan.LongTerm = append(plan.LongTerm, action)
		}

		totalCost += costEstimate(g.EstimatedCost)
		totalWeeks += weeksEstimate(g.EstimatedEffort)
	}

	plan.Summary = models.RemediationSummary{
		TotalGaps:               len(items),
		HighPriority:            len(plan.ImmediateActions),
		MediumPriority:          len(plan.ShortTerm),
		LowPriority:             len(plan.LongTerm),
		EstimatedTotalCost:      formatDollars(totalCost),
		EstimatedTimelineWeeks:  totalWeeks,
		EstimatedTimelineMonths: math.Round(float64(totalWeeks)/4*10) / 10,
	}
	return plan
}

// Recommendations produces the ordered advisory lines for a gap list.
// No gaps means no recommendations.
func Recommendations(items []models.GapItem) []string {
	if len(items) == 0 {
		return nil
	}

	var high, medium, low int
	for _, g := range items {
		switch g.Severity {
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		case models.SeverityLow:
			low++
		}
	}

	var recs []string
	if high > 0 {
		recs = append(recs, fmt.Sprintf(
			"CRITICAL: Address %d high-severity gaps immediately to achieve CMMC Level 2 compliance", high))
	}
	if medium > 0 {
		recs = append(recs, fmt.Sprintf(
			"Enhance %d partially compliant controls to full compliance", medium))
	}
	if low > 0 {
		recs = append(recs, fmt.Sprintf(
			"Plan remediation for %d low-priority gaps in next compliance cycle", low))
	}

	recs = append(recs,
		"Assign dedicated resources to compliance remediation efforts",
		"Establish regular compliance review cadence (monthly recommended)",
		"Document all remediation activities with evidence for audit trail",
		"Consider engaging CMMC Registered Practitioner (RP) for guidance",
	)

	if high >= 5 || len(items) >= 10 {
		recs = append(recs,
			"Recommend comprehensive compliance program overhaul with executive sponsorship")
	}
	return recs
}

func costEstimate(cost string) int {
	switch {
	case strings.Contains(cost, costHigh):
		return 25000
	case strings.Contains(cost, costMedium):
		return 12500
	default:
		return 2500
	}
}

func weeksEstimate(effort string) int {
	switch effort {
	case effortHigh:
		return 8
	case effortMedium:
		return 4
	default:
		return 1
	}
}

func formatDollars(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	b.WriteByte('$')
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
