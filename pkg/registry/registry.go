// Package registry describes the activities served by the loan workers, so
// process designers can discover task types and their variables.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const loanWorkflow = "loan-decision"

func obj(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ string) map[string]interface{} {
	return map[string]interface{}{"type": typ}
}

var loanTypeProp = map[string]interface{}{"type": "string", "enum": []string{"home", "general", "credit"}}

// LoanActivities returns the built-in registry of loan decision activities.
func LoanActivities() *ActivityRegistry {
	reg := loanActivities()
	for i := range reg.Activities {
		a := &reg.Activities[i]
		a.Version = "1.0.0"
		a.ImplementationStatus = StatusCompleted
		a.Workflows = []string{loanWorkflow}
		a.Tags = []string{"loan", a.TaskType}
	}
	return reg
}

func loanActivities() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Activities: []Activity{
			{
				ID:          "validate-loan-application",
				DisplayName: "Validate Loan Application",
				Description: "Checks application data against the loan category's form",
				Category:    "loan",
				TaskType:    "validate-loan-application",
				InputSchema: obj(map[string]interface{}{
					"loanType":        loanTypeProp,
					"applicationData": prop("object"),
				}, "loanType", "applicationData"),
				OutputSchema: obj(map[string]interface{}{
					"isValid":          prop("boolean"),
					"loanType":         prop("string"),
					"validationErrors": prop("array"),
				}),
				ErrorCodes: []string{"FORM_VALIDATION_FAILED"},
				Timeout:    "10s",
			},
			{
				ID:          "predict-loan-outcome",
				DisplayName: "Predict Loan Outcome",
				Description: "Sends the application to the scoring service and interprets the decision",
				Category:    "loan",
				TaskType:    "predict-loan-outcome",
				InputSchema: obj(map[string]interface{}{
					"applicationId":   prop("string"),
					"loanType":        loanTypeProp,
					"fairMode":        prop("boolean"),
					"applicationData": prop("object"),
				}, "loanType", "applicationData"),
				OutputSchema: obj(map[string]interface{}{
					"decision":  prop("string"),
					"rationale": prop("string"),
					"approved":  prop("boolean"),
					"mode":      prop("string"),
					"fairness":  prop("object"),
				}),
				ErrorCodes: []string{"PREDICTION_FAILED", "PREDICTION_RESPONSE_INVALID", "FORM_VALIDATION_FAILED"},
				Timeout:    "20s",
			},
			{
				ID:          "create-loan-application-record",
				DisplayName: "Create Loan Application Record",
				Description: "Stores a validated application for the signed-in user",
				Category:    "loan",
				TaskType:    "create-loan-application-record",
				InputSchema: obj(map[string]interface{}{
					"userId":          prop("string"),
					"loanType":        loanTypeProp,
					"applicationData": prop("object"),
				}, "userId", "loanType", "applicationData"),
				OutputSchema: obj(map[string]interface{}{
					"applicationId": prop("string"),
					"status":        prop("string"),
					"createdAt":     prop("string"),
				}),
				ErrorCodes: []string{"RECORD_STORE_WRITE_FAILED", "USER_NOT_SIGNED_IN", "FORM_VALIDATION_FAILED"},
				Timeout:    "10s",
				Retries:    3,
			},
			{
				ID:          "index-loan-decision",
				DisplayName: "Index Loan Decision",
				Description: "Writes the interpreted decision to the search index",
				Category:    "loan",
				TaskType:    "index-loan-decision",
				InputSchema: obj(map[string]interface{}{
					"applicationId": prop("string"),
					"loanType":      loanTypeProp,
					"fairMode":      prop("boolean"),
					"decision":      prop("string"),
					"approved":      prop("boolean"),
					"fairness":      prop("object"),
				}, "loanType", "decision"),
				OutputSchema: obj(map[string]interface{}{
					"documentId": prop("string"),
					"indexed":    prop("boolean"),
				}),
				ErrorCodes: []string{"DECISION_INDEX_FAILED"},
				Timeout:    "10s",
				Retries:    3,
			},
			{
				ID:          "send-decision-notification",
				DisplayName: "Send Decision Notification",
				Description: "Emails and texts the applicant the decision",
				Category:    "loan",
				TaskType:    "send-decision-notification",
				InputSchema: obj(map[string]interface{}{
					"userId":   prop("string"),
					"email":    prop("string"),
					"phone":    prop("string"),
					"loanType": loanTypeProp,
					"decision": prop("string"),
				}, "loanType", "decision"),
				OutputSchema: obj(map[string]interface{}{
					"emailSent": prop("boolean"),
					"smsSent":   prop("boolean"),
				}),
				ErrorCodes: []string{"NOTIFICATION_SEND_FAILED"},
				Timeout:    "30s",
				Retries:    3,
			},
		},
	}
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

func SaveRegistry(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the activity with the given id.
func (r *ActivityRegistry) Find(id string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks ids and task types are set and unique and statuses are
// known.
func (r *ActivityRegistry) Validate() error {
	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %q: id and taskType are required", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type %s", a.TaskType)
		}
		if a.ImplementationStatus != "" && !validStatuses[a.ImplementationStatus] {
			return fmt.Errorf("activity %s: unknown status %q", a.ID, a.ImplementationStatus)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true
	}
	return nil
}
