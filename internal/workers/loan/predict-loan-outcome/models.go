package predictloanoutcome

import (
	"encoding/json"

	"ethoscore/internal/loan"
)

type Input struct {
	ApplicationID   string                 `json:"applicationId,omitempty"`
	LoanType        string                 `json:"loanType"`
	FairMode        bool                   `json:"fairMode"`
	ApplicationData map[string]interface{} `json:"applicationData"`
}

type Output struct {
	Decision          string               `json:"decision"`
	Rationale         string               `json:"rationale,omitempty"`
	Approved          bool                 `json:"approved"`
	Mode              string               `json:"mode"`
	Fairness          *loan.FairnessReport `json:"fairness,omitempty"`
	Probabilities     json.RawMessage      `json:"probabilities,omitempty"`
	FeatureImportance json.RawMessage      `json:"featureImportance,omitempty"`
}
