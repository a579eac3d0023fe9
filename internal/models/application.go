package models

// LoanApplicationRecord is a submitted application form as persisted in the
// loan_applications table.
type LoanApplicationRecord struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	LoanType        string                 `json:"loanType"`
	ApplicationData map[string]interface{} `json:"applicationData"`
	Status          string                 `json:"status"`
	CreatedAt       string                 `json:"createdAt"`
}

const ApplicationStatusSubmitted = "submitted"
