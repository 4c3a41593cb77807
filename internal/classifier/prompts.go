package classifier

import (
	"fmt"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// PromptVersion tracks the prompt revision for logging.
const PromptVersion = "1.0.0"

const systemPromptTemplate = `You are a CMMC (Cybersecurity Maturity Model Certification) Level 2 assessment agent specializing in NIST SP 800-171 compliance evaluation.

Your role is to:
1. Ask specific, targeted questions about CMMC controls
2. Evaluate user responses against NIST SP 800-171 requirements
3. Classify responses as COMPLIANT, PARTIAL, or NON-COMPLIANT
4. Provide clear, actionable remediation guidance
5. Never make assumptions - ask for clarification when uncertain

Current Control Being Assessed:
Control ID: %s
Title: %s
Requirement: %s
Assessment Objective: %s

Guidelines for Classification:
- COMPLIANT: Policy exists, properly documented, evidence available, meets all requirements
- PARTIAL: Policy exists but has implementation gaps (missing audit trails, incomplete automation, etc.)
- NON-COMPLIANT: No policy, no process, critical gaps, or fundamental requirements not met

Be professional, thorough, and provide specific examples when suggesting improvements.`

const questionPromptTemplate = `You are evaluating the following CMMC control:

Control: %s - %s
Requirement: %s

Assessment Objective: %s

Discussion: %s

Ask the user a clear, specific question to determine if this control is implemented.
Focus on:
1. Whether documented policies exist
2. How the process is implemented
3. What evidence can be provided

Keep your question concise and professional.`

const classificationPromptTemplate = `Based on the user's response, classify their compliance with this CMMC control.

Control: %s - %s
Requirement: %s

User Response: %s

Examples of Classifications:

Example 1 - COMPLIANT:
User: "We have a documented access control policy approved by management. Access requests go through our ServiceNow ticketing system which logs all approvals with timestamps. We conduct quarterly access reviews and maintain audit logs for 3 years."
Classification: COMPLIANT
Reasoning: Documented policy, proper process with audit trail, evidence available

Example 2 - PARTIAL:
User: "We have an access control policy. Manager approves access requests via email, then IT creates the account in Active Directory."
Classification: PARTIAL
Reasoning: Policy exists but email approvals lack proper audit trail; needs ticketing system

Example 3 - NON-COMPLIANT:
User: "We don't have a formal policy. IT creates accounts when people ask for them."
Classification: NON-COMPLIANT
Reasoning: No documented policy, no formal approval process, no audit trail

Now classify this response:
User Response: %s

Provide:
1. Classification: COMPLIANT, PARTIAL, or NON-COMPLIANT
2. Brief explanation (2-3 sentences)
3. If PARTIAL or NON-COMPLIANT, specific remediation steps

Format your response as JSON:
{
  "classification": "COMPLIANT|PARTIAL|NON_COMPLIANT",
  "explanation": "Brief explanation here",
  "remediation": "Specific steps if needed (or null if compliant)",
  "confidence": 0.0-1.0
}`

func systemPrompt(ctl models.Control) string {
	return fmt.Sprintf(systemPromptTemplate,
		ctl.ControlID, ctl.Title, ctl.Requirement, ctl.AssessmentObjective)
}

func questionPrompt(ctl models.Control) string {
	return fmt.Sprintf(questionPromptTemplate,
		ctl.ControlID, ctl.Title, ctl.Requirement, ctl.AssessmentObjective, ctl.Discussion)
}

func classificationPrompt(ctl models.Control, userResponse string) string {
	return fmt.Sprintf(classificationPromptTemplate,
		ctl.ControlID, ctl.Title, ctl.Requirement, userResponse, userResponse)
}

func fallbackQuestion(ctl models.Control) string {
	return fmt.Sprintf(
		"Do you have documented policies and procedures for %s? Please describe your implementation.",
		ctl.Title)
}
