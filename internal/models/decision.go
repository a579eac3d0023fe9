package models

// DecisionDocument is the searchable audit entry written for every
// interpreted prediction.
type DecisionDocument struct {
	ApplicationID       string                 `json:"applicationId,omitempty"`
	LoanType            string                 `json:"loanType"`
	FairMode            bool                   `json:"fairMode"`
	Decision            string                 `json:"decision"`
	Approved            bool                   `json:"approved"`
	Rationale           string                 `json:"rationale,omitempty"`
	ApprovalProbability *float64               `json:"approvalProbability,omitempty"`
	ModelAccuracy       *float64               `json:"modelAccuracy,omitempty"`
	KeyFactors          []string               `json:"keyFactors,omitempty"`
	Fairness            map[string]interface{} `json:"fairness,omitempty"`
	IndexedAt           string                 `json:"indexedAt"`
}
