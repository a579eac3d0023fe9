package createloanapplicationrecord

type Input struct {
	UserID          string                 `json:"userId"`
	LoanType        string                 `json:"loanType"`
	ApplicationData map[string]interface{} `json:"applicationData"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"` // ISO 8601
}
