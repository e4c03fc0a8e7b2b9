// Package triage implements a support-triage workflow on top of the graph
// engine: classify an inbound message, then answer from the knowledge base,
// open a ticket, or issue a refund behind a human approval gate.
package triage

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a thread's conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Intent is the classified purpose of the latest user message.
type Intent string

const (
	IntentFAQ     Intent = "faq"
	IntentIssue   Intent = "issue"
	IntentRefund  Intent = "refund"
	IntentUnknown Intent = "unknown"
)

// Risk grades how much oversight an intent needs. Refunds are high risk and
// route through the human approval gate.
type Risk string

const (
	RiskLow  Risk = "low"
	RiskHigh Risk = "high"
)

// State is the workflow state carried across triage nodes and persisted in
// every checkpoint.
type State struct {
	Messages     []Message `json:"messages"`
	Intent       Intent    `json:"intent,omitempty"`
	Risk         Risk      `json:"risk,omitempty"`
	ActionResult string    `json:"action_result,omitempty"`

	// Approval is set by the human gate once a reviewer decides; nil means
	// no decision has been recorded yet.
	Approval *bool `json:"approval,omitempty"`
}

// NewState builds the initial state for a fresh turn carrying one user
// message.
func NewState(userMessage string) State {
	return State{
		Messages: []Message{{Role: RoleUser, Content: userMessage}},
	}
}

// lastUserMessage returns the content of the most recent user message, or ""
// when the transcript has none.
func (s State) lastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// reply records an action result and appends it to the transcript as an
// assistant message.
func (s State) reply(result string) State {
	s.ActionResult = result
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: result})
	return s
}
