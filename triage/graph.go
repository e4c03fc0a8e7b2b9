package triage

import (
	"context"

	"github.com/mwhite-dev/threadflow/graph"
)

// Node ids of the triage workflow.
const (
	NodeClassify  = "classify"
	NodeFAQ       = "faq"
	NodeIssue     = "issue"
	NodeHumanGate = "human_gate"
	NodeRefund    = "refund"
	NodeFallback  = "fallback"
)

// NewGraph compiles the triage workflow:
//
//	classify -> router -> faq | issue | human_gate | refund | fallback
//	human_gate -> refund
//	faq, issue, refund, fallback -> End
//
// High-risk refunds pass through human_gate, which pauses the thread until a
// reviewer resumes it with an approval decision.
func NewGraph(kb *KB) (*graph.Graph[State], error) {
	if kb == nil {
		kb = DefaultKB()
	}

	b := graph.NewBuilder[State]()
	if err := addNodes(b, kb); err != nil {
		return nil, err
	}
	if err := b.SetEntry(NodeClassify); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(NodeClassify, route, map[string]string{
		"faq":        NodeFAQ,
		"issue":      NodeIssue,
		"human_gate": NodeHumanGate,
		"refund":     NodeRefund,
		"fallback":   NodeFallback,
	}); err != nil {
		return nil, err
	}

	edges := [][2]string{
		{NodeHumanGate, NodeRefund},
		{NodeFAQ, graph.End},
		{NodeIssue, graph.End},
		{NodeRefund, graph.End},
		{NodeFallback, graph.End},
	}
	for _, e := range edges {
		if err := b.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	return b.Compile()
}

func addNodes(b *graph.Builder[State], kb *KB) error {
	nodes := map[string]graph.Handler[State]{
		NodeClassify:  classifyNode,
		NodeFAQ:       faqNode(kb),
		NodeIssue:     issueNode,
		NodeHumanGate: humanGateNode,
		NodeRefund:    refundNode,
		NodeFallback:  fallbackNode,
	}
	for id, handler := range nodes {
		if err := b.AddNode(id, handler); err != nil {
			return err
		}
	}
	return nil
}

// route picks the branch after classification. Refunds only need the human
// gate when classified high risk.
func route(s State) string {
	switch {
	case s.Intent == IntentFAQ:
		return "faq"
	case s.Intent == IntentIssue:
		return "issue"
	case s.Intent == IntentRefund && s.Risk == RiskHigh:
		return "human_gate"
	case s.Intent == IntentRefund:
		return "refund"
	default:
		return "fallback"
	}
}

func classifyNode(_ context.Context, s State) (State, error) {
	s.Intent, s.Risk = classifyIntent(s.lastUserMessage())
	return s, nil
}

func faqNode(kb *KB) graph.Handler[State] {
	return func(_ context.Context, s State) (State, error) {
		return s.reply(kb.Search(s.lastUserMessage())), nil
	}
}

func issueNode(_ context.Context, s State) (State, error) {
	return s.reply(createTicket(s.lastUserMessage())), nil
}

// humanGateNode pauses the thread until a reviewer supplies a boolean
// decision. The Approval guard makes the re-execution on resume skip the
// interrupt once the decision is recorded.
func humanGateNode(ctx context.Context, s State) (State, error) {
	if s.Approval == nil {
		approved, err := graph.Interrupt[bool](ctx, map[string]any{
			"message": "Approval required for refund. Resume with true/false.",
		})
		if err != nil {
			return s, err
		}
		s.Approval = &approved
	}
	return s, nil
}

func refundNode(_ context.Context, s State) (State, error) {
	if s.Approval == nil || !*s.Approval {
		return s.reply("Refund request denied by reviewer."), nil
	}
	return s.reply(issueRefund(parseAmount(s.lastUserMessage()))), nil
}

func fallbackNode(_ context.Context, s State) (State, error) {
	ticket := createTicket(s.lastUserMessage())
	return s.reply("I couldn't classify that. I created a ticket to follow up. " + ticket), nil
}
