// Package tui is the terminal front end of the loan desk: it drives a
// loan.FormSession through survey prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"
	"ethoscore/internal/session"
)

type action string

const (
	actionCategory action = "Choose loan type"
	actionFill     action = "Fill in application"
	actionFair     action = "Toggle fair model mode"
	actionPredict  action = "Predict outcome"
	actionSubmit   action = "Submit application"
	actionReset    action = "Reset form"
	actionSignIn   action = "Sign in"
	actionSignOut  action = "Sign out"
	actionQuit     action = "Quit"
)

// Desk is one interactive loan desk run.
type Desk struct {
	driver   PromptDriver
	form     *loan.FormSession
	identity *session.Context
	logger   logger.Logger
}

// NewDesk wires a driver to a form session. identity may be nil, in which
// case the sign in entries are hidden.
func NewDesk(driver PromptDriver, form *loan.FormSession, identity *session.Context, log logger.Logger) *Desk {
	return &Desk{
		driver:   driver,
		form:     form,
		identity: identity,
		logger:   log.WithFields(map[string]interface{}{"component": "loan-desk"}),
	}
}

// Run shows the menu until the user quits or aborts. An abort is not an
// error.
func (d *Desk) Run(ctx context.Context) error {
	for {
		view := d.form.View()
		actions := d.actions()

		options := make([]string, len(actions))
		for i, a := range actions {
			options[i] = string(a)
		}
		idx, err := d.driver.Select(ctx, SelectConfig{
			Message: fmt.Sprintf("%s (%s)", view.Category.Label(), loan.ModeLabel(view.FairMode)),
			Options: options,
		})
		if errors.Is(err, ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			continue
		}

		chosen := actions[idx]
		if chosen == actionQuit {
			return nil
		}
		if err := d.perform(ctx, chosen); err != nil {
			if errors.Is(err, ErrAborted) {
				return nil
			}
			return err
		}
	}
}

func (d *Desk) actions() []action {
	out := []action{actionCategory, actionFill, actionFair, actionPredict, actionSubmit, actionReset}
	if d.identity != nil {
		if d.identity.CurrentUser() == nil {
			out = append(out, actionSignIn)
		} else {
			out = append(out, actionSignOut)
		}
	}
	return append(out, actionQuit)
}

func (d *Desk) perform(ctx context.Context, a action) error {
	switch a {
	case actionCategory:
		return d.chooseCategory(ctx)
	case actionFill:
		return d.fill(ctx)
	case actionFair:
		on, err := d.form.ToggleFairMode()
		if err != nil {
			return err
		}
		return d.driver.Info(ctx, loan.ModeLabel(on))
	case actionPredict:
		return d.predict(ctx)
	case actionSubmit:
		return d.submit(ctx)
	case actionReset:
		d.form.Reset()
		return d.driver.Info(ctx, "Form cleared.")
	case actionSignIn:
		return d.signIn(ctx)
	case actionSignOut:
		d.identity.SignOut()
		return d.driver.Info(ctx, "Signed out.")
	}
	return nil
}

func (d *Desk) chooseCategory(ctx context.Context) error {
	categories := loan.Categories()
	labels := make([]string, len(categories))
	current := d.form.View().Category
	def := 0
	for i, c := range categories {
		labels[i] = c.Label()
		if c == current {
			def = i
		}
	}
	idx, err := d.driver.Select(ctx, SelectConfig{
		Message:      "Loan type",
		Options:      labels,
		DefaultIndex: def,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(categories) {
		return nil
	}
	return d.form.SelectCategory(categories[idx])
}

// fill prompts for every field of the current category in order, offering
// the current value as default.
func (d *Desk) fill(ctx context.Context) error {
	view := d.form.View()
	for _, spec := range loan.FieldsFor(view.Category) {
		cfg := InputConfig{
			Message: spec.Label,
			Default: displayValue(view.Values[spec.Name]),
		}
		if spec.ValueType == loan.Number {
			cfg.Validator = numberOrEmpty
		}
		raw, err := d.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		if err := d.form.SetField(spec.Name, raw); err != nil {
			return err
		}
	}
	return nil
}

func (d *Desk) predict(ctx context.Context) error {
	out, err := d.form.Predict(ctx)
	if errors.Is(err, loan.ErrSubmissionInFlight) {
		return d.driver.Info(ctx, "A prediction is already running.")
	}
	if err != nil {
		return err
	}

	switch out.Kind {
	case loan.OutcomeSucceeded:
		var b strings.Builder
		RenderDecision(&b, loan.Present(out.Interpretation, out.FairMode))
		return d.driver.Info(ctx, strings.TrimRight(b.String(), "\n"))
	case loan.OutcomeValidationFailed:
		invalid := d.form.View().InvalidFields
		return d.driver.Info(ctx, "Please complete: "+strings.Join(d.labels(invalid), ", "))
	case loan.OutcomeFailed:
		d.logger.Debug("prediction failure shown", map[string]interface{}{"error": out.Err})
		return d.driver.Info(ctx, loan.PredictionFailedMessage)
	}
	return nil
}

func (d *Desk) submit(ctx context.Context) error {
	id, err := d.form.SubmitApplication(ctx)
	switch {
	case errors.Is(err, loan.ErrNotSignedIn):
		return d.driver.Info(ctx, "Sign in before submitting an application.")
	case errors.Is(err, loan.ErrValidation):
		return d.driver.Info(ctx, "The application is incomplete.")
	case err != nil:
		d.logger.Warn("application submit failed", map[string]interface{}{"error": err})
		return d.driver.Info(ctx, "The application could not be saved. Please try again.")
	}
	return d.driver.Info(ctx, fmt.Sprintf("Application %s submitted.", id))
}

func (d *Desk) signIn(ctx context.Context) error {
	token, err := d.driver.Password(ctx, InputConfig{Message: "Access token"})
	if err != nil {
		return err
	}
	user, err := d.identity.SignIn(ctx, strings.TrimSpace(token))
	if err != nil {
		return d.driver.Info(ctx, "Sign in failed.")
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return d.driver.Info(ctx, "Signed in as "+name+".")
}

func (d *Desk) labels(names []string) []string {
	category := d.form.View().Category
	byName := make(map[string]string)
	for _, spec := range loan.FieldsFor(category) {
		byName[spec.Name] = spec.Label
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if l, ok := byName[n]; ok {
			out = append(out, l)
			continue
		}
		out = append(out, n)
	}
	return out
}

func numberOrEmpty(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}

func displayValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
