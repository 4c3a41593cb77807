package gaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

func TestIdentify(t *testing.T) {
	responses := []models.ClassifiedResponse{
		{ControlID: "AC.L2-3.1.1", ControlTitle: "Authorized Access Control", Classification: models.ClassificationCompliant},
		{ControlID: "AC.L2-3.1.2", ControlTitle: "Transaction & Function Control", Classification: models.ClassificationPartial,
			Explanation: "Role definitions exist but are not enforced"},
		{ControlID: "AC.L2-3.1.3", ControlTitle: "Control CUI Flow", Classification: models.ClassificationNonCompliant,
			RemediationNotes: "Deploy DLP\nDocument flow policies"},
		{ControlID: "AC.L2-3.1.20", ControlTitle: "External Connections", Classification: models.ClassificationPartial},
	}

	gaps := Identify(responses)
	require.Len(t, gaps, 3)

	// Non-compliant outranks partial; partial ties keep input order.
	assert.Equal(t, "AC.L2-3.1.3", gaps[0].ControlID)
	assert.Equal(t, models.ClassificationNonCompliant, gaps[0].CurrentStatus)
	assert.Equal(t, models.SeverityHigh, gaps[0].Severity)
	assert.Equal(t, 8, gaps[0].Priority)
	assert.Equal(t, "High", gaps[0].EstimatedEffort)
	assert.Equal(t, ">$20K", gaps[0].EstimatedCost)
	assert.Equal(t, []string{"Deploy DLP", "Document flow policies"}, gaps[0].RemediationSteps)
	assert.Equal(t, "Implementation gap identified", gaps[0].GapDescription)

	assert.Equal(t, "AC.L2-3.1.2", gaps[1].ControlID)
	assert.Equal(t, models.ClassificationPartial, gaps[1].CurrentStatus)
	assert.Equal(t, models.SeverityMedium, gaps[1].Severity)
	assert.Equal(t, 5, gaps[1].Priority)
	assert.Equal(t, "Role definitions exist but are not enforced", gaps[1].GapDescription)
	assert.Equal(t, []string{"Review control requirements and implement missing components"}, gaps[1].RemediationSteps)

	assert.Equal(t, "AC.L2-3.1.20", gaps[2].ControlID)
}

func TestRuleFor(t *testing.T) {
	rule, ok := RuleFor(models.ClassificationNonCompliant)
	require.True(t, ok)
	assert.Equal(t, Rule{Severity: models.SeverityHigh, Priority: 8, Effort: "High", Cost: ">$20K"}, rule)

	rule, ok = RuleFor(models.ClassificationPartial)
	require.True(t, ok)
	assert.Equal(t, Rule{Severity: models.SeverityMedium, Priority: 5, Effort: "Medium", Cost: "$5-20K"}, rule)

	_, ok = RuleFor(models.ClassificationCompliant)
	assert.False(t, ok)
}

func TestIdentifyExcludesCompliant(t *testing.T) {
	responses := []models.ClassifiedResponse{
		{ControlID: "a", Classification: models.ClassificationCompliant},
		{ControlID: "b", Classification: models.ClassificationCompliant},
	}
	assert.Empty(t, Identify(responses))
	assert.Empty(t, Identify(nil))
}

func TestParseRemediationSteps(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  []string
	}{
		{
			name:  "newline separated",
			notes: "Write policy\nTrain staff\nAudit quarterly",
			want:  []string{"Write policy", "Train staff", "Audit quarterly"},
		},
		{
			name:  "bullet separated",
			notes: "• Write policy • Train staff",
			want:  []string{"Write policy", "Train staff"},
		},
		{
			name:  "dash separated",
			notes: "- Write policy - Train staff",
			want:  []string{"Write policy", "Train staff"},
		},
		{
			name:  "blank fragments dropped",
			notes: "\n  \nWrite policy\n\n",
			want:  []string{"Write policy"},
		},
		{
			name:  "empty notes get default",
			notes: "",
			want:  []string{"Review control requirements and implement missing components"},
		},
		{
			name:  "whitespace only gets default",
			notes: "   \n  ",
			want:  []string{"Review control requirements and implement missing components"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRemediationSteps(tt.notes))
		})
	}
}

func TestPrioritizeIdempotent(t *testing.T) {
	items := []models.GapItem{
		{ControlID: "low", Priority: 2},
		{ControlID: "high", Priority: 8},
		{ControlID: "mid", Priority: 5},
	}

	sorted := Prioritize(items)
	require.Len(t, sorted, 3)
	assert.Equal(t, "high", sorted[0].ControlID)
	assert.Equal(t, "mid", sorted[1].ControlID)
	assert.Equal(t, "low", sorted[2].ControlID)

	again := Prioritize(sorted)
	assert.Equal(t, sorted, again)

	// Input slice untouched.
	assert.Equal(t, "low", items[0].ControlID)
}

func TestBuildRemediationPlan(t *testing.T) {
	items := []models.GapItem{
		{ControlID: "a", Priority: 8, EstimatedEffort: "High", EstimatedCost: ">$20K"},
		{ControlID: "b", Priority: 5, EstimatedEffort: "Medium", EstimatedCost: "$5-20K"},
		{ControlID: "c", Priority: 5, EstimatedEffort: "Medium", EstimatedCost: "$5-20K"},
		{ControlID: "d", Priority: 2, EstimatedEffort: "Low", EstimatedCost: "<$5K"},
	}

	plan := BuildRemediationPlan(items)
	require.Len(t, plan.ImmediateActions, 1)
	require.Len(t, plan.ShortTerm, 2)
	require.Len(t, plan.LongTerm, 1)
	assert.Equal(t, "a", plan.ImmediateActions[0].ControlID)
	assert.Equal(t, "d", plan.LongTerm[0].ControlID)

	assert.Equal(t, 4, plan.Summary.TotalGaps)
	assert.Equal(t, 1, plan.Summary.HighPriority)
	assert.Equal(t, 2, plan.Summary.MediumPriority)
	assert.Equal(t, 1, plan.Summary.LowPriority)
	// 25000 + 12500 + 12500 + 2500
	assert.Equal(t, "$52,500", plan.Summary.EstimatedTotalCost)
	// 8 + 4 + 4 + 1
	assert.Equal(t, 17, plan.Summary.EstimatedTimelineWeeks)
	assert.InDelta(t, 4.3, plan.Summary.EstimatedTimelineMonths, 1e-9)
}

func TestBuildRemediationPlanEmpty(t *testing.T) {
	plan := BuildRemediationPlan(nil)
	assert.Empty(t, plan.ImmediateActions)
	assert.Empty(t, plan.ShortTerm)
	assert.Empty(t, plan.LongTerm)
	assert.Equal(t, 0, plan.Summary.TotalGaps)
	assert.Equal(t, "$0", plan.Summary.EstimatedTotalCost)
	assert.Equal(t, 0, plan.Summary.EstimatedTimelineWeeks)
}

func TestRecommendations(t *testing.T) {
	t.Run("empty gaps yield no recommendations", func(t *testing.T) {
		assert.Empty(t, Recommendations(nil))
	})

	t.Run("mixed severities", func(t *testing.T) {
		items := []models.GapItem{
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityMedium},
		}
		recs := Recommendations(items)
		require.NotEmpty(t, recs)
		assert.Equal(t, "CRITICAL: Address 2 high-severity gaps immediately to achieve CMMC Level 2 compliance", recs[0])
		assert.Equal(t, "Enhance 1 partially compliant controls to full compliance", recs[1])
		assert.Contains(t, recs, "Assign dedicated resources to compliance remediation efforts")
		for _, r := range recs {
			assert.NotContains(t, r, "overhaul")
		}
	})

	t.Run("overhaul line on five high-severity gaps", func(t *testing.T) {
		var items []models.GapItem
		for i := 0; i < 5; i++ {
			items = append(items, models.GapItem{Severity: models.SeverityHigh})
		}
		recs := Recommendations(items)
		assert.Equal(t, "Recommend comprehensive compliance program overhaul with executive sponsorship", recs[len(recs)-1])
	})

	t.Run("overhaul line on ten total gaps", func(t *testing.T) {
		var items []models.GapItem
		for i := 0; i < 10; i++ {
			items = append(items, models.GapItem{Severity: models.SeverityMedium})
		}
		recs := Recommendations(items)
		assert.Equal(t, "Recommend comprehensive compliance program overhaul with executive sponsorship", recs[len(recs)-1])
	})
}
