package senddecisionnotification

import (
	"fmt"
	"strings"

	"ethoscore/internal/loan"
)

type message struct {
	Subject string
	Body    string
	SMS     string
}

func buildMessage(name string, category loan.LoanCategory, decision string, fairMode bool, applicationID string) message {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", greeting)
	fmt.Fprintf(&b, "Your %s application has been reviewed.\n", category.Label())
	fmt.Fprintf(&b, "Decision: %s\n", decision)
	fmt.Fprintf(&b, "Assessed with: %s\n", loan.ModeLabel(fairMode))
	if applicationID != "" {
		fmt.Fprintf(&b, "Reference: %s\n", applicationID)
	}
	if loan.IsAffirmative(decision) {
		b.WriteString("\nWe will contact you shortly with the next steps.\n")
	} else {
		b.WriteString("\nYou can review the key factors and suggested improvements in the loan desk.\n")
	}

	return message{
		Subject: fmt.Sprintf("Your %s decision", category.Label()),
		Body:    b.String(),
		SMS:     fmt.Sprintf("%s: %s", category.Label(), decision),
	}
}
