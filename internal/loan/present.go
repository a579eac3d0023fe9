package loan

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// PredictionFailedMessage is shown for transport and response shape
	// failures alike.
	PredictionFailedMessage = "Error predicting loan outcome. Please try again."

	NoKeyFactorsMessage   = "No key factors available."
	NoSuggestionsMessage  = "No suggested improvements available."
	NotAvailable          = "n/a"
	affirmativeSubstring  = "approved"
	metricsIndent         = "  "
	defaultFloatPrecision = 4
)

// IsAffirmative reports whether a decision reads as an approval. Decision
// text is open ended ("Approved", "Approved (Fair Model)", "approved"), so
// only the substring is matched, case-insensitively.
func IsAffirmative(decision string) bool {
	return strings.Contains(strings.ToLower(decision), affirmativeSubstring)
}

// Table is a header row plus rows of cells ready for display.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// FairnessView is the display projection of a FairnessReport.
type FairnessView struct {
	ApprovalProbability string
	ModelAccuracy       string
	KeyFactors          Table
	KeyFactorsNote      string
	Suggestions         Table
	SuggestionsNote     string
	InitialMetrics      string
	PostMetrics         string
}

// DecisionView is what a front end renders after a successful prediction.
type DecisionView struct {
	Decision    string
	Rationale   string
	Affirmative bool
	Mode        string
	Fairness    *FairnessView
}

// Present projects an interpretation for display. Table rows keep the
// service's order.
func Present(in *Interpretation, fairMode bool) DecisionView {
	view := DecisionView{
		Decision:    in.Result.Decision,
		Rationale:   in.Result.Rationale,
		Affirmative: IsAffirmative(in.Result.Decision),
		Mode:        ModeLabel(fairMode),
	}
	if in.Fairness != nil {
		fv := presentFairness(in.Fairness)
		view.Fairness = &fv
	}
	return view
}

func presentFairness(r *FairnessReport) FairnessView {
	fv := FairnessView{
		ApprovalProbability: formatOptional(r.ApprovalProbability),
		ModelAccuracy:       formatOptional(r.ModelAccuracy),
		KeyFactors:          Table{Header: []string{"Feature", "Current Value", "Impact"}},
		Suggestions: Table{Header: []string{
			"Feature", "Current", "Target", "Expected Improvement", "New Approval Probability",
		}},
		InitialMetrics: formatMetrics(r.InitialMetrics),
		PostMetrics:    formatMetrics(r.PostMitigationMetrics),
	}

	for _, kf := range r.KeyFactors {
		fv.KeyFactors.Rows = append(fv.KeyFactors.Rows, []string{
			kf.Feature, formatValue(kf.CurrentValue), formatOptional(kf.Impact),
		})
	}
	for _, s := range r.Suggestions {
		fv.Suggestions.Rows = append(fv.Suggestions.Rows, []string{
			s.Feature,
			formatValue(s.Current),
			formatValue(s.Target),
			formatOptional(s.ExpectedImprovement),
			formatOptional(s.NewApprovalProbability),
		})
	}

	if fv.KeyFactors.Empty() {
		fv.KeyFactorsNote = NoKeyFactorsMessage
	}
	if fv.Suggestions.Empty() {
		fv.SuggestionsNote = NoSuggestionsMessage
	}
	return fv
}

func formatNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.*f", defaultFloatPrecision, f), "0"), ".")
}

func formatOptional(f *float64) string {
	if f == nil {
		return NotAvailable
	}
	return formatNumber(*f)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return formatNumber(t)
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// formatMetrics pretty prints an opaque metrics map; encoding/json sorts
// the keys, which keeps output stable.
func formatMetrics(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(m, "", metricsIndent)
	if err != nil {
		return fmt.Sprint(m)
	}
	return string(b)
}
