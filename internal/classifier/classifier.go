// Package classifier evaluates user responses against CMMC controls using
// an LLM. Classification is best-effort: any failure degrades to a partial
// classification flagged for manual review instead of propagating.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/scoutsec/cmmc-scout/internal/llm"
	"github.com/scoutsec/cmmc-scout/internal/llmjson"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
	"github.com/scoutsec/cmmc-scout/pkg/scoring"
)

const maxInputLength = 2000

// Suspicious patterns are logged but never block the input; partial
// matches in legitimate compliance answers are common.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)new\s+instructions`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// rawClassification mirrors the JSON shape the model is asked to produce.
type rawClassification struct {
	Classification string  `json:"classification"`
	Explanation    string  `json:"explanation"`
	Remediation    string  `json:"remediation"`
	Confidence     float64 `json:"confidence"`
}

// Classifier wraps an LLM client with prompt construction, input
// sanitization, and lenient output parsing.
type Classifier struct {
	client llm.Client
	log    *logger.Logger
}

// New creates a classifier backed by the given LLM client.
func New(client llm.Client, log *logger.Logger) *Classifier {
	return &Classifier{
		client: client,
		log:    log.WithComponent("classifier"),
	}
}

// Classify evaluates a user's answer for one control. It never returns an
// error; when the LLM call or output parsing fails it returns the fallback
// classification so the assessment can continue.
func (c *Classifier) Classify(ctx context.Context, ctl models.Control, userResponse string) models.ClassificationResult {
	sanitized := c.sanitize(userResponse)

	resp, err := c.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: systemPrompt(ctl),
		Messages: []llm.Message{
			{Role: "user", Content: classificationPrompt(ctl, sanitized)},
		},
	})
	if err != nil {
		c.log.Error("classification request failed",
			"control_id", ctl.ControlID, "error", err)
		return fallbackClassification()
	}

	result, err := llmjson.ExtractJSON[rawClassification](resp.Content)
	if err != nil {
		// Last resort: scrape individual fields out of the raw text.
		c.log.Warn("classification output not parseable as JSON, scraping fields",
			"control_id", ctl.ControlID)
		raw := rawClassification{Confidence: 0.5}
		if v, ok := llmjson.ExtractField(resp.Content, "classification"); ok {
			raw.Classification = v
		}
		if v, ok := llmjson.ExtractField(resp.Content, "explanation"); ok {
			raw.Explanation = v
		}
		if v, ok := llmjson.ExtractField(resp.Content, "remediation"); ok {
			raw.Remediation = v
		}
		if v, ok := llmjson.ExtractFloatField(resp.Content, "confidence"); ok {
			raw.Confidence = v
		}
		if raw.Classification == "" {
			return fallbackClassification()
		}
		return normalize(raw)
	}

	if result.Warning != "" {
		c.log.Debug("classification output needed extraction",
			"control_id", ctl.ControlID, "method", result.Method)
	}

	c.log.Info("response classified",
		"control_id", ctl.ControlID,
		"classification", string(scoring.NormalizeClassification(result.Value.Classification)),
		"confidence", result.Value.Confidence,
		"latency", resp.Latency,
	)
	return normalize(result.Value)
}

// GenerateQuestion asks the LLM for an assessment question for a control,
// falling back to a template question on failure.
func (c *Classifier) GenerateQuestion(ctx context.Context, ctl models.Control) string {
	resp, err := c.client.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt: "You are a CMMC assessment expert.",
		Messages: []llm.Message{
			{Role: "user", Content: questionPrompt(ctl)},
		},
	})
	if err != nil {
		c.log.Error("question generation failed",
			"control_id", ctl.ControlID, "error", err)
		return fallbackQuestion(ctl)
	}

	question := strings.TrimSpace(resp.Content)
	if question == "" {
		return fallbackQuestion(ctl)
	}
	return question
}

// sanitize collapses whitespace, caps length, and logs suspected prompt
// injection attempts without blocking them.
func (c *Classifier) sanitize(input string) string {
	sanitized := whitespaceRe.ReplaceAllString(strings.TrimSpace(input), " ")

	if len(sanitized) > maxInputLength {
		c.log.Warn("user input truncated",
			"original_length", len(sanitized), "max_length", maxInputLength)
		sanitized = sanitized[:maxInputLength]
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(sanitized) {
			c.log.Warn("potential prompt injection detected", "pattern", pattern.String())
		}
	}

	return sanitized
}

func normalize(raw rawClassification) models.ClassificationResult {
	confidence := raw.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	return models.ClassificationResult{
		Classification: scoring.NormalizeClassification(raw.Classification),
		Explanation:    raw.Explanation,
		Remediation:    raw.Remediation,
		Confidence:     confidence,
	}
}

func fallbackClassification() models.ClassificationResult {
	return models.ClassificationResult{
		Classification: models.ClassificationPartial,
		Explanation:    "Unable to fully assess response. Manual review recommended.",
		Remediation:    "Please provide more detailed information about your implementation.",
		Confidence:     0.3,
	}
}
