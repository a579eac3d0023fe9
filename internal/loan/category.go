// Package loan implements the loan-decision workflow: the per-category form
// schema, the prediction request dispatcher, the response interpreter and the
// form session that ties them together.
package loan

import (
	"fmt"
	"strings"
)

// LoanCategory selects the field schema and the endpoint pair in use.
type LoanCategory int

const (
	Home LoanCategory = iota
	General
	CreditCard

	categoryCount
)

var categoryNames = [categoryCount]string{
	Home:       "home",
	General:    "general",
	CreditCard: "credit",
}

var categoryLabels = [categoryCount]string{
	Home:       "Home Loan",
	General:    "General Loan",
	CreditCard: "Credit Card Approval",
}

// Categories returns every category in display order.
func Categories() []LoanCategory {
	return []LoanCategory{Home, General, CreditCard}
}

// Valid reports whether c is one of the declared categories.
func (c LoanCategory) Valid() bool {
	return c >= Home && c < categoryCount
}

// String returns the wire name ("home", "general", "credit").
func (c LoanCategory) String() string {
	if !c.Valid() {
		return fmt.Sprintf("LoanCategory(%d)", int(c))
	}
	return categoryNames[c]
}

// Label returns the human readable name shown in selectors.
func (c LoanCategory) Label() string {
	c.mustBeValid()
	return categoryLabels[c]
}

// ParseCategory accepts the wire name, case-insensitively. "credit-card" and
// "creditcard" are accepted for CreditCard.
func ParseCategory(s string) (LoanCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home":
		return Home, nil
	case "general", "personal":
		return General, nil
	case "credit", "creditcard", "credit-card", "credit_card":
		return CreditCard, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c LoanCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *LoanCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// mustBeValid panics on an undeclared category. Reaching it means a caller
// built a LoanCategory by conversion instead of using the constants or
// ParseCategory.
func (c LoanCategory) mustBeValid() {
	if !c.Valid() {
		panic(fmt.Sprintf("loan: unknown category %d", int(c)))
	}
}
