package validateloanapplication

import "ethoscore/internal/loan"

type Input struct {
	LoanType        string                 `json:"loanType"`
	ApplicationData map[string]interface{} `json:"applicationData"`
}

type Output struct {
	IsValid          bool              `json:"isValid"`
	LoanType         string            `json:"loanType"`
	ValidationErrors []loan.FieldError `json:"validationErrors"`
}
