package loan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PredictionResult is the decision text returned by the model. Decision is
// opaque: callers only pattern-match it through IsAffirmative.
type PredictionResult struct {
	Decision     string `json:"decision"`
	Rationale    string `json:"rationale"`
	HasRationale bool   `json:"hasRationale"`
}

// KeyFactor is one feature the model ranked as influential. Impact is nil
// when the service did not send a usable number.
type KeyFactor struct {
	Feature      string      `json:"feature"`
	CurrentValue interface{} `json:"currentValue"`
	Impact       *float64    `json:"impact,omitempty"`
}

// Suggestion is one counterfactual change with its projected effect.
type Suggestion struct {
	Feature                string      `json:"feature"`
	Current                interface{} `json:"current"`
	Target                 interface{} `json:"target"`
	ExpectedImprovement    *float64    `json:"expectedImprovement,omitempty"`
	NewApprovalProbability *float64    `json:"newApprovalProbability,omitempty"`
}

// FairnessReport is only ever built for a request sent in fair mode.
// KeyFactors and Suggestions keep the order the service ranked them in.
// Numeric fields are nil when absent, null or unparsable, never zero.
type FairnessReport struct {
	ApprovalProbability   *float64               `json:"approvalProbability,omitempty"`
	ModelAccuracy         *float64               `json:"modelAccuracy,omitempty"`
	KeyFactors            []KeyFactor            `json:"keyFactors"`
	Suggestions           []Suggestion           `json:"suggestions"`
	InitialMetrics        map[string]interface{} `json:"initialMetrics"`
	PostMitigationMetrics map[string]interface{} `json:"postMitigationMetrics"`
}

// Interpretation is a decoded prediction answer. Probabilities and
// FeatureImportance are passed through untouched when the service sends them.
type Interpretation struct {
	Result            PredictionResult `json:"result"`
	Fairness          *FairnessReport  `json:"fairness"`
	Probabilities     json.RawMessage  `json:"probabilities,omitempty"`
	FeatureImportance json.RawMessage  `json:"featureImportance,omitempty"`

	// FairnessErr is set when a fair-mode body carried a fairness block
	// that could not be decoded. Fairness is nil then; the decision stands.
	FairnessErr error `json:"-"`
}

type wireResponse struct {
	Prediction        json.RawMessage `json:"prediction"`
	Decision          json.RawMessage `json:"decision"`
	Explanation       json.RawMessage `json:"explanation"`
	Fairness          json.RawMessage `json:"fairness"`
	Probabilities     json.RawMessage `json:"probabilities"`
	FeatureImportance json.RawMessage `json:"feature_importance"`
}

type wireKeyFactor struct {
	Feature      string          `json:"feature"`
	CurrentValue interface{}     `json:"current_value"`
	Impact       json.RawMessage `json:"impact"`
}

type wireSuggestion struct {
	Feature                string          `json:"feature"`
	Current                interface{}     `json:"current"`
	Target                 interface{}     `json:"target"`
	ExpectedImprovement    json.RawMessage `json:"expected_improvement"`
	NewApprovalProbability json.RawMessage `json:"new_approval_probability"`
}

type wireFairness struct {
	ApprovalProbability json.RawMessage        `json:"approval_probability"`
	ModelAccuracy       json.RawMessage        `json:"model_accuracy"`
	KeyFactors          []wireKeyFactor        `json:"key_factors"`
	Suggestions         []wireSuggestion       `json:"suggestions"`
	InitialMetrics      map[string]interface{} `json:"initial_metrics"`
	PostMetrics         map[string]interface{} `json:"post_metrics"`
}

// optionalNumber reads a JSON number or a numeric string such as "0.82" or
// "82%". Absent, null and unparsable values come back nil.
func optionalNumber(raw json.RawMessage) *float64 {
	if isNull(raw) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Interpret decodes a 2xx prediction body. A missing, non-string or blank
// decision is a *ResponseShapeError. Fairness is filled only when
// fairModeWasOn is set and the body carries a non-null fairness object;
// otherwise it is nil even if the service sent one. A fairness block that
// does not decode leaves Fairness nil and sets FairnessErr.
func Interpret(raw RawResponse, fairModeWasOn bool) (*Interpretation, error) {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ResponseShapeError{Reason: "body is not a JSON object", Err: err}
	}

	decisionField := wire.Prediction
	if isNull(decisionField) {
		decisionField = wire.Decision
	}
	if isNull(decisionField) {
		return nil, &ResponseShapeError{Reason: "decision is missing"}
	}
	var decision string
	if err := json.Unmarshal(decisionField, &decision); err != nil {
		return nil, &ResponseShapeError{Reason: "decision is not a string", Err: err}
	}
	if strings.TrimSpace(decision) == "" {
		return nil, &ResponseShapeError{Reason: "decision is empty"}
	}

	out := &Interpretation{Result: PredictionResult{Decision: decision}}

	if !isNull(wire.Explanation) {
		if err := json.Unmarshal(wire.Explanation, &out.Result.Rationale); err != nil {
			return nil, &ResponseShapeError{Reason: "explanation is not a string", Err: err}
		}
		out.Result.HasRationale = true
	}

	if !isNull(wire.Probabilities) {
		out.Probabilities = wire.Probabilities
	}
	if !isNull(wire.FeatureImportance) {
		out.FeatureImportance = wire.FeatureImportance
	}

	if fairModeWasOn && !isNull(wire.Fairness) {
		report, err := decodeFairness(wire.Fairness)
		if err != nil {
			out.FairnessErr = err
		} else {
			out.Fairness = report
		}
	}

	return out, nil
}

func decodeFairness(raw json.RawMessage) (*FairnessReport, error) {
	var wf wireFairness
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("fairness block is malformed: %w", err)
	}

	report := &FairnessReport{
		ApprovalProbability:   optionalNumber(wf.ApprovalProbability),
		ModelAccuracy:         optionalNumber(wf.ModelAccuracy),
		KeyFactors:            make([]KeyFactor, 0, len(wf.KeyFactors)),
		Suggestions:           make([]Suggestion, 0, len(wf.Suggestions)),
		InitialMetrics:        wf.InitialMetrics,
		PostMitigationMetrics: wf.PostMetrics,
	}
	for _, kf := range wf.KeyFactors {
		report.KeyFactors = append(report.KeyFactors, KeyFactor{
			Feature:      kf.Feature,
			CurrentValue: kf.CurrentValue,
			Impact:       optionalNumber(kf.Impact),
		})
	}
	for _, s := range wf.Suggestions {
		report.Suggestions = append(report.Suggestions, Suggestion{
			Feature:                s.Feature,
			Current:                s.Current,
			Target:                 s.Target,
			ExpectedImprovement:    optionalNumber(s.ExpectedImprovement),
			NewApprovalProbability: optionalNumber(s.NewApprovalProbability),
		})
	}
	if report.InitialMetrics == nil {
		report.InitialMetrics = map[string]interface{}{}
	}
	if report.PostMitigationMetrics == nil {
		report.PostMitigationMetrics = map[string]interface{}{}
	}
	return report, nil
}
