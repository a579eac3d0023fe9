package indexloandecision

import "ethoscore/internal/loan"

type Input struct {
	ApplicationID string               `json:"applicationId,omitempty"`
	LoanType      string               `json:"loanType"`
	FairMode      bool                 `json:"fairMode"`
	Decision      string               `json:"decision"`
	Rationale     string               `json:"rationale,omitempty"`
	Approved      bool                 `json:"approved"`
	Fairness      *loan.FairnessReport `json:"fairness,omitempty"`
}

type Output struct {
	DocumentID string `json:"documentId"`
	Indexed    bool   `json:"indexed"`
}
