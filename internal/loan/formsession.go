package loan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/common/metrics"
	"ethoscore/internal/models"
	"ethoscore/internal/session"

	"github.com/google/uuid"
)

// Predictor is the dispatcher as seen by a form session.
type Predictor interface {
	SubmitPrediction(ctx context.Context, category LoanCategory, fairMode bool, form *ApplicationForm) (RawResponse, error)
}

// RecordWriter stores a submitted application for a user and returns the
// record id.
type RecordWriter interface {
	AddLoanApplication(ctx context.Context, userID string, category LoanCategory, form *ApplicationForm) (string, error)
}

// View is a snapshot of what a front end should render.
type View struct {
	Category       LoanCategory
	FairMode       bool
	Values         map[string]interface{}
	InFlight       bool
	Interpretation *Interpretation
	ErrorMessage   string
	InvalidFields  []string
	UserID         string
}

// Result returns the displayed prediction result, if any.
func (v View) Result() *PredictionResult {
	if v.Interpretation == nil {
		return nil
	}
	r := v.Interpretation.Result
	return &r
}

// Fairness returns the displayed fairness report, if any.
func (v View) Fairness() *FairnessReport {
	if v.Interpretation == nil {
		return nil
	}
	return v.Interpretation.Fairness
}

type SessionOption func(*FormSession)

// WithRecordWriter enables SubmitApplication.
func WithRecordWriter(w RecordWriter) SessionOption {
	return func(s *FormSession) { s.records = w }
}

// WithSessionContext follows the signed-in user until Close.
func WithSessionContext(sc *session.Context) SessionOption {
	return func(s *FormSession) { s.sessionCtx = sc }
}

// FormSession is the state of one mounted loan form: the selected
// category, the fairness flag, the typed values and the last displayed
// outcome. At most one prediction is in flight; a response that comes back
// after the category, the fairness flag or the form was reset is discarded.
type FormSession struct {
	mu        sync.Mutex
	predictor Predictor
	records   RecordWriter
	logger    logger.Logger

	sessionCtx   *session.Context
	subscription *session.Subscription
	userID       string

	category LoanCategory
	fairMode bool
	form     *ApplicationForm

	ticket   string
	inFlight bool
	closed   bool

	interpretation *Interpretation
	errorMessage   string
	invalidFields  []string
}

func NewFormSession(predictor Predictor, category LoanCategory, log logger.Logger, opts ...SessionOption) *FormSession {
	s := &FormSession{
		predictor: predictor,
		logger:    log.WithFields(map[string]interface{}{"component": "form-session"}),
		category:  category,
		form:      NewApplicationForm(category),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionCtx != nil {
		s.subscription = s.sessionCtx.Subscribe(s.onUserChanged)
	}
	return s
}

func (s *FormSession) onUserChanged(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.userID = ""
		return
	}
	s.userID = u.ID
}

// SelectCategory switches the form to another category. Values never carry
// over; the displayed outcome is cleared and any in-flight request becomes
// stale, even when the category is unchanged.
func (s *FormSession) SelectCategory(category LoanCategory) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(category))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.category = category
	s.form = NewApplicationForm(category)
	s.invalidateLocked()
	s.clearViewLocked()
	return nil
}

// SetField records raw input for one field and clears its invalid mark.
func (s *FormSession) SetField(name, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.form.Set(name, raw); err != nil {
		return err
	}
	s.unmarkLocked(name)
	return nil
}

// SetFieldValue records an already typed value.
func (s *FormSession) SetFieldValue(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.form.SetValue(name, v); err != nil {
		return err
	}
	s.unmarkLocked(name)
	return nil
}

// SetFairMode changes the fairness flag. A change drops the displayed
// outcome and makes any in-flight request stale.
func (s *FormSession) SetFairMode(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.fairMode != on {
		s.setFairModeLocked(on)
	}
	return nil
}

// ToggleFairMode flips the fairness flag and returns the new value.
func (s *FormSession) ToggleFairMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	s.setFairModeLocked(!s.fairMode)
	return s.fairMode, nil
}

func (s *FormSession) setFairModeLocked(on bool) {
	s.fairMode = on
	s.invalidateLocked()
	s.clearViewLocked()
}

// Reset empties the form of the current category.
func (s *FormSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = NewApplicationForm(s.category)
	s.invalidateLocked()
	s.clearViewLocked()
}

// Close unmounts the session: later responses are discarded and the
// session context subscription is released.
func (s *FormSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.invalidateLocked()
	sub := s.subscription
	s.subscription = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Predict validates the form and submits it. Returned errors are misuse
// only (ErrSubmissionInFlight, ErrSessionClosed); every submission result,
// including failures, is reported in the Outcome.
func (s *FormSession) Predict(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}

	category, fairMode := s.category, s.fairMode
	if err := s.form.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.invalidFields = make([]string, 0, len(verr.Fields))
			seen := make(map[string]bool, len(verr.Fields))
			for _, f := range verr.Fields {
				if !seen[f.Field] {
					seen[f.Field] = true
					s.invalidFields = append(s.invalidFields, f.Field)
				}
			}
		}
		s.mu.Unlock()
		metrics.FormValidationFailures.WithLabelValues(category.String()).Inc()
		return Outcome{Kind: OutcomeValidationFailed, Category: category, FairMode: fairMode, Err: err}, nil
	}

	ticket := uuid.NewString()
	s.ticket = ticket
	s.inFlight = true
	s.invalidFields = nil
	form := s.form.Clone()
	s.mu.Unlock()

	log := s.logger.WithFields(map[string]interface{}{
		"requestId": ticket,
		"loanType":  category.String(),
		"fairMode":  fairMode,
	})
	log.Info("prediction submitted", nil)

	raw, err := s.predictor.SubmitPrediction(ctx, category, fairMode, form)
	var interp *Interpretation
	if err == nil {
		interp, err = Interpret(raw, fairMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{RequestID: ticket, Category: category, FairMode: fairMode}
	mode := metrics.Mode(fairMode)

	if s.ticket != ticket {
		metrics.PredictionRequests.WithLabelValues(category.String(), mode, "stale").Inc()
		log.Debug("discarding stale prediction response", nil)
		out.Kind = OutcomeStale
		out.Err = ErrStaleResponse
		return out, nil
	}
	s.ticket = ""
	s.inFlight = false

	if err != nil {
		var shapeErr *ResponseShapeError
		if errors.As(err, &shapeErr) {
			metrics.PredictionRequests.WithLabelValues(category.String(), mode, "response_invalid").Inc()
		}
		s.interpretation = nil
		s.errorMessage = PredictionFailedMessage
		log.Warn("prediction failed", map[string]interface{}{"error": err})
		out.Kind = OutcomeFailed
		out.Err = err
		return out, nil
	}

	metrics.PredictionRequests.WithLabelValues(category.String(), mode, "success").Inc()
	approved := IsAffirmative(interp.Result.Decision)
	metrics.Decisions.WithLabelValues(category.String(), mode, fmt.Sprint(approved)).Inc()

	if interp.FairnessErr != nil {
		log.Warn("fairness block dropped", map[string]interface{}{"error": interp.FairnessErr})
	}
	s.interpretation = interp
	s.errorMessage = ""
	log.Info("prediction received", map[string]interface{}{
		"decision":    interp.Result.Decision,
		"approved":    approved,
		"hasFairness": interp.Fairness != nil,
	})
	out.Kind = OutcomeSucceeded
	out.Interpretation = interp
	return out, nil
}

// SubmitApplication stores the current form for the signed-in user. It
// does not touch the displayed prediction.
func (s *FormSession) SubmitApplication(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.records == nil {
		s.mu.Unlock()
		return "", errors.New("no record store configured")
	}
	if s.userID == "" {
		s.mu.Unlock()
		return "", ErrNotSignedIn
	}
	if err := s.form.Validate(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	userID, category, form := s.userID, s.category, s.form.Clone()
	s.mu.Unlock()

	id, err := s.records.AddLoanApplication(ctx, userID, category, form)
	if err != nil {
		s.logger.Error("application record write failed", map[string]interface{}{
			"userId":   userID,
			"loanType": category.String(),
			"error":    err,
		})
		return "", err
	}
	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": id,
		"userId":        userID,
		"loanType":      category.String(),
	})
	return id, nil
}

// View returns a snapshot of the current state.
func (s *FormSession) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	invalid := make([]string, len(s.invalidFields))
	copy(invalid, s.invalidFields)
	return View{
		Category:       s.category,
		FairMode:       s.fairMode,
		Values:         s.form.Values(),
		InFlight:       s.inFlight,
		Interpretation: s.interpretation,
		ErrorMessage:   s.errorMessage,
		InvalidFields:  invalid,
		UserID:         s.userID,
	}
}

func (s *FormSession) invalidateLocked() {
	s.ticket = ""
	s.inFlight = false
}

func (s *FormSession) clearViewLocked() {
	s.interpretation = nil
	s.errorMessage = ""
	s.invalidFields = nil
}

func (s *FormSession) unmarkLocked(name string) {
	for i, f := range s.invalidFields {
		if f == name {
			s.invalidFields = append(s.invalidFields[:i], s.invalidFields[i+1:]...)
			return
		}
	}
}
