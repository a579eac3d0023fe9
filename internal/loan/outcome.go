package loan

// OutcomeKind classifies how one prediction submission ended.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeValidationFailed
	OutcomeFailed
	OutcomeStale
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Outcome is the result of FormSession.Predict. Interpretation is set only
// for OutcomeSucceeded; Err carries a *ValidationError, *TransportError,
// *ResponseShapeError or ErrStaleResponse for the other kinds.
type Outcome struct {
	Kind           OutcomeKind
	RequestID      string
	Category       LoanCategory
	FairMode       bool
	Interpretation *Interpretation
	Err            error
}

// UserVisible reports whether the outcome changes what the user sees.
// Stale outcomes are dropped silently.
func (o Outcome) UserVisible() bool {
	return o.Kind != OutcomeStale
}
