package senddecisionnotification

import "ethoscore/internal/models"

type Input struct {
	UserID        string `json:"userId"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ApplicationID string `json:"applicationId,omitempty"`
	LoanType      string `json:"loanType"`
	Decision      string `json:"decision"`
	FairMode      bool   `json:"fairMode"`
}

type Output struct {
	EmailSent     bool                  `json:"emailSent"`
	SMSSent       bool                  `json:"smsSent"`
	SentAt        string                `json:"sentAt,omitempty"` // ISO 8601
	Notifications []models.Notification `json:"notifications"`
}
