package triage

import "strings"

// Keyword groups checked in priority order: refund cues win over issue cues
// so "refund for this error" routes to the approval gate.
var (
	refundKeywords = []string{"refund", "chargeback", "money back"}
	faqKeywords    = []string{"hours", "policy", "contact"}
	issueKeywords  = []string{"bug", "error", "issue", "broken"}
)

// classifyIntent derives intent and risk from the user message. Refund
// intents are high risk and require human approval; everything else is low
// risk.
func classifyIntent(message string) (Intent, Risk) {
	m := strings.ToLower(message)
	if containsAny(m, refundKeywords) {
		return IntentRefund, RiskHigh
	}
	if containsAny(m, faqKeywords) {
		return IntentFAQ, RiskLow
	}
	if containsAny(m, issueKeywords) {
		return IntentIssue, RiskLow
	}
	return IntentUnknown, RiskLow
}

func containsAny(message string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(message, k) {
			return true
		}
	}
	return false
}
