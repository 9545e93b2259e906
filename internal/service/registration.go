package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/observability"
)

// DefaultNextRoute is where a completed sign-up continues
const DefaultNextRoute = "/sign-up/profile"

// RegistrationState is a step of the sign-up workflow
type RegistrationState string

const (
	StateEditing           RegistrationState = "editing"
	StateValidating        RegistrationState = "validating"
	StateEditingWithErrors RegistrationState = "editing_with_errors"
	StateSubmitting        RegistrationState = "submitting"
	StatePersistingProfile RegistrationState = "persisting_profile"
	StateComplete          RegistrationState = "complete"
	StateFailed            RegistrationState = "failed"
)

// AccountCreator registers credentials with the identity service.
// Failures should be *IdentityError; any other error is treated as unexpected.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (*model.Account, error)
}

// ProfileStore persists the users row of a new account
type ProfileStore interface {
	Insert(ctx context.Context, profile *model.UserProfile) error
}

// Navigator moves the client to the next screen
type Navigator interface {
	GoTo(route string)
}

// RegistrationOutcome is the result of one submission
type RegistrationOutcome struct {
	State          RegistrationState
	Errors         model.FieldErrors
	BlockingNotice bool   // the failure must be acknowledged before editing again
	AccountID      string // set once the account exists, even if the profile failed
	Route          string // set on Complete
	Path           []RegistrationState
}

// RegistrationWorkflow drives a sign-up submission from validation to
// profile creation
type RegistrationWorkflow struct {
	accounts  AccountCreator
	profiles  ProfileStore
	nextRoute string
	metrics   *observability.Metrics
}

// RegistrationWorkflowConfig holds configuration for the workflow
type RegistrationWorkflowConfig struct {
	Accounts  AccountCreator
	Profiles  ProfileStore
	NextRoute string                 // Default: DefaultNextRoute
	Metrics   *observability.Metrics // optional
}

// NewRegistrationWorkflow creates a new registration workflow
func NewRegistrationWorkflow(cfg RegistrationWorkflowConfig) *RegistrationWorkflow {
	if cfg.NextRoute == "" {
		cfg.NextRoute = DefaultNextRoute
	}
	return &RegistrationWorkflow{
		accounts:  cfg.Accounts,
		profiles:  cfg.Profiles,
		nextRoute: cfg.NextRoute,
		metrics:   cfg.Metrics,
	}
}

// NextRoute returns the route visited after a completed sign-up
func (w *RegistrationWorkflow) NextRoute() string {
	return w.nextRoute
}

// Submit runs one submission. It calls CreateAccount at most once and
// inserts the profile at most once, and never retries. An account whose
// profile insert fails is left in place. nav may be nil.
func (w *RegistrationWorkflow) Submit(ctx context.Context, input model.RegistrationInput, nav Navigator) RegistrationOutcome {
	ctx, span := tracer.Start(ctx, "registration.submit")
	defer span.End()

	out := RegistrationOutcome{State: StateEditing, Errors: model.FieldErrors{}}
	defer func() {
		span.SetAttributes(attribute.String("registration.state", string(out.State)))
		w.metrics.RecordRegistration(string(out.State))
	}()

	out.moveTo(StateValidating)
	if result := input.Check(); !result.OK {
		out.Errors = result.Errors
		out.moveTo(StateEditingWithErrors)
		return out
	}

	out.moveTo(StateSubmitting)
	account, err := w.accounts.CreateAccount(ctx, input.Email, input.Password)
	if err != nil {
		w.failAccount(ctx, &out, err)
		span.RecordError(err)
		return out
	}
	if account == nil {
		// Nothing was created and nothing went wrong; the form stays as it was
		slog.WarnContext(ctx, "account creation returned no account and no error")
		out.moveTo(StateEditing)
		return out
	}
	out.AccountID = account.ID

	out.moveTo(StatePersistingProfile)
	profile := &model.UserProfile{
		AccountID: account.ID,
		Email:     input.Email,
		Nickname:  input.Nickname,
		Name:      input.Name,
	}
	if err := w.profiles.Insert(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "failed to insert user profile",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()))
		span.RecordError(err)
		out.Errors[model.FieldGeneral] = model.MsgProfileInsert
		out.moveTo(StateFailed)
		return out
	}

	out.moveTo(StateComplete)
	out.Route = w.nextRoute
	if nav != nil {
		nav.GoTo(w.nextRoute)
	}
	return out
}

func (w *RegistrationWorkflow) failAccount(ctx context.Context, out *RegistrationOutcome, err error) {
	var idErr *IdentityError
	switch {
	case errors.As(err, &idErr) && idErr.IsDuplicate():
		out.Errors[model.FieldGeneral] = model.MsgEmailAlreadyInUse
		out.BlockingNotice = true
	case errors.As(err, &idErr):
		out.Errors[model.FieldGeneral] = idErr.Message
	default:
		slog.ErrorContext(ctx, "unexpected account creation failure", slog.String("error", err.Error()))
		out.Errors[model.FieldGeneral] = model.MsgRegistrationFailed
	}
	out.moveTo(StateFailed)
}

func (o *RegistrationOutcome) moveTo(s RegistrationState) {
	o.Path = append(o.Path, s)
	o.State = s
}
