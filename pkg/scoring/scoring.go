// Package scoring computes weighted compliance scores over classified
// control responses and maps them to traffic-light ratings.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// Classification weights. Compliant counts in full, partial counts half,
// non-compliant contributes nothing.
const (
	weightCompliant    = 1.0
	weightPartial      = 0.5
	weightNonCompliant = 0.0
)

// Traffic-light thresholds on the weighted score.
const (
	greenThreshold  = 0.8
	yellowThreshold = 0.5
)

// Score computes the weighted compliance score for a set of classified
// responses. An empty set scores 0.0 with a red rating rather than erroring,
// so an assessment abandoned before any answers still reports cleanly.
func Score(responses []models.ClassifiedResponse) models.ScoringResult {
	result := models.ScoringResult{TotalControls: len(responses)}

	if len(responses) == 0 {
		result.TrafficLight = models.TrafficLightRed
		return result
	}

	for _, resp := range responses {
		switch resp.Classification {
		case models.ClassificationCompliant:
			result.CompliantCount++
		case models.ClassificationPartial:
			result.PartialCount++
		default:
			result.NonCompliantCount++
		}
	}

	raw := (float64(result.CompliantCount)*weightCompliant +
		float64(result.PartialCount)*weightPartial) / float64(result.TotalControls)

	result.ComplianceScore = round(raw, 4)
	result.CompliancePercentage = round(raw*100, 2)
	result.TrafficLight = TrafficLight(result.ComplianceScore)
	return result
}

// TrafficLight maps a weighted score to its rating. Boundaries are
// inclusive: 0.8 is green and 0.5 is yellow.
func TrafficLight(score float64) models.TrafficLight {
	switch {
	case score >= greenThreshold:
		return models.TrafficLightGreen
	case score >= yellowThreshold:
		return models.TrafficLightYellow
	default:
		return models.TrafficLightRed
	}
}

// Summary renders a one-line human-readable summary of a scoring result.
func Summary(r models.ScoringResult) string {
	return fmt.Sprintf("%d/%d controls compliant (%.2f%%), rating: %s",
		r.CompliantCount, r.TotalControls, r.CompliancePercentage, r.TrafficLight)
}

// Breakdown returns per-classification counts keyed by classification name.
func Breakdown(r models.ScoringResult) map[models.Classification]int {
	return map[models.Classification]int{
		models.ClassificationCompliant:    r.CompliantCount,
		models.ClassificationPartial:      r.PartialCount,
		models.ClassificationNonCompliant: r.NonCompliantCount,
	}
}

// ImprovementNeeded returns the additional weighted score required to reach
// the next rating tier, or 0 when already green.
func ImprovementNeeded(r models.ScoringResult) float64 {
	switch r.TrafficLight {
	case models.TrafficLightGreen:
		return 0
	case models.TrafficLightYellow:
		return round(greenThreshold-r.ComplianceScore, 4)
	default:
		return round(yellowThreshold-r.ComplianceScore, 4)
	}
}

// NormalizeClassification canonicalizes free-form classification strings as
// produced by LLM output. Unrecognized values normalize to partial so a
// sloppy model answer degrades to "needs manual review" rather than failing.
func NormalizeClassification(s string) models.Classification {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	switch normalized {
	case "compliant", "yes", "pass":
		return models.ClassificationCompliant
	case "non_compliant", "noncompliant", "no", "fail":
		return models.ClassificationNonCompliant
	default:
		return models.ClassificationPartial
	}
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
