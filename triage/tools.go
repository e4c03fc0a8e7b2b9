package triage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// defaultRefundAmount is used when the user message names no parseable
// amount.
const defaultRefundAmount = 20.00

// createTicket opens a follow-up ticket for the given text and returns a
// human-readable confirmation carrying the ticket id.
func createTicket(text string) string {
	id := uuid.New()
	return fmt.Sprintf("Created ticket T-%x for: %s", id[:4], text)
}

// issueRefund records a refund of the given amount.
func issueRefund(amount float64) string {
	return fmt.Sprintf("Refund issued: $%.2f", amount)
}

// parseAmount extracts the first positive number from the message, treating
// "$" as a separator so "$42" parses as 42. Falls back to the default demo
// amount.
func parseAmount(message string) float64 {
	cleaned := strings.ReplaceAll(message, "$", " ")
	for _, tok := range strings.Fields(cleaned) {
		if amount, err := strconv.ParseFloat(tok, 64); err == nil && amount > 0 {
			return amount
		}
	}
	return defaultRefundAmount
}
