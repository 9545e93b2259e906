package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/observability"
)

func validInput() model.RegistrationInput {
	return model.RegistrationInput{
		Email:           "dal@gona.com",
		Password:        "Abc12345!",
		ConfirmPassword: "Abc12345!",
		Nickname:        "달고나",
		Name:            "홍길동",
	}
}

func newWorkflow(accounts AccountCreator, profiles ProfileStore) *RegistrationWorkflow {
	return NewRegistrationWorkflow(RegistrationWorkflowConfig{
		Accounts: accounts,
		Profiles: profiles,
	})
}

// ============================================================================
// Submit Tests
// ============================================================================

func TestSubmit_Success_PersistsProfileAndNavigates(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{}
	profiles := &mockProfileRepo{}
	nav := &recordingNavigator{}

	out := newWorkflow(accounts, profiles).Submit(context.Background(), validInput(), nav)

	assert.Equal(t, StateComplete, out.State)
	assert.Empty(t, out.Errors)
	assert.False(t, out.BlockingNotice)
	assert.Equal(t, "account:new", out.AccountID)
	assert.Equal(t, DefaultNextRoute, out.Route)
	assert.Equal(t, []string{"/sign-up/profile"}, nav.routes)
	assert.Equal(t, []RegistrationState{StateValidating, StateSubmitting, StatePersistingProfile, StateComplete}, out.Path)

	require.Len(t, profiles.inserted, 1)
	p := profiles.inserted[0]
	assert.Equal(t, "account:new", p.AccountID)
	assert.Equal(t, "dal@gona.com", p.Email)
	assert.Equal(t, "달고나", p.Nickname)
	assert.Equal(t, "홍길동", p.Name)
	assert.Equal(t, 1, accounts.calls)
}

func TestSubmit_CustomNextRoute(t *testing.T) {
	t.Parallel()

	nav := &recordingNavigator{}
	w := NewRegistrationWorkflow(RegistrationWorkflowConfig{
		Accounts:  &mockAccountCreator{},
		Profiles:  &mockProfileRepo{},
		NextRoute: "/welcome",
	})

	out := w.Submit(context.Background(), validInput(), nav)

	assert.Equal(t, "/welcome", out.Route)
	assert.Equal(t, []string{"/welcome"}, nav.routes)
}

func TestSubmit_NilNavigator(t *testing.T) {
	t.Parallel()

	out := newWorkflow(&mockAccountCreator{}, &mockProfileRepo{}).Submit(context.Background(), validInput(), nil)
	assert.Equal(t, StateComplete, out.State)
}

func TestSubmit_EmptyConfirmationIsAccepted(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.ConfirmPassword = ""

	out := newWorkflow(&mockAccountCreator{}, &mockProfileRepo{}).Submit(context.Background(), in, nil)
	assert.Equal(t, StateComplete, out.State)
}

func TestSubmit_ValidationErrors_NoNetworkCall(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{}
	profiles := &mockProfileRepo{}
	nav := &recordingNavigator{}

	in := model.RegistrationInput{
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "different",
		Nickname:        "a",
	}

	out := newWorkflow(accounts, profiles).Submit(context.Background(), in, nav)

	assert.Equal(t, StateEditingWithErrors, out.State)
	assert.Equal(t, model.FieldErrors{
		model.FieldEmail:           model.MsgInvalidEmail,
		model.FieldPassword:        model.MsgWeakPassword,
		model.FieldConfirmPassword: model.MsgPasswordMismatch,
		model.FieldNickname:        model.MsgNicknameTooShort,
	}, out.Errors)
	assert.Zero(t, accounts.calls)
	assert.Empty(t, profiles.inserted)
	assert.Empty(t, nav.routes)
	assert.Empty(t, out.AccountID)
}

func TestSubmit_DuplicateEmail_BlockingNotice(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{
		createFunc: func(ctx context.Context, email, password string) (*model.Account, error) {
			return nil, &IdentityError{Kind: IdentityDuplicate, Message: MsgUserAlreadyRegistered}
		},
	}
	profiles := &mockProfileRepo{}
	nav := &recordingNavigator{}

	out := newWorkflow(accounts, profiles).Submit(context.Background(), validInput(), nav)

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, out.BlockingNotice)
	assert.Equal(t, model.MsgEmailAlreadyInUse, out.Errors[model.FieldGeneral])
	assert.Len(t, out.Errors, 1)
	assert.Empty(t, profiles.inserted)
	assert.Empty(t, nav.routes)
}

func TestSubmit_IdentityErrorMessageIsSurfaced(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{
		createFunc: func(ctx context.Context, email, password string) (*model.Account, error) {
			return nil, &IdentityError{Kind: IdentityInvalid, Message: MsgPasswordTooShort}
		},
	}

	out := newWorkflow(accounts, &mockProfileRepo{}).Submit(context.Background(), validInput(), nil)

	assert.Equal(t, StateFailed, out.State)
	assert.False(t, out.BlockingNotice)
	assert.Equal(t, MsgPasswordTooShort, out.Errors[model.FieldGeneral])
}

func TestSubmit_WrappedIdentityError(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{
		createFunc: func(ctx context.Context, email, password string) (*model.Account, error) {
			dup := &IdentityError{Kind: IdentityDuplicate, Message: MsgUserAlreadyRegistered}
			return nil, errors.Join(errors.New("context"), dup)
		},
	}

	out := newWorkflow(accounts, &mockProfileRepo{}).Submit(context.Background(), validInput(), nil)

	assert.True(t, out.BlockingNotice)
	assert.Equal(t, model.MsgEmailAlreadyInUse, out.Errors[model.FieldGeneral])
}

func TestSubmit_UnexpectedError_GenericMessage(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{
		createFunc: func(ctx context.Context, email, password string) (*model.Account, error) {
			return nil, errors.New("connection reset")
		},
	}

	out := newWorkflow(accounts, &mockProfileRepo{}).Submit(context.Background(), validInput(), nil)

	assert.Equal(t, StateFailed, out.State)
	assert.False(t, out.BlockingNotice)
	assert.Equal(t, model.MsgRegistrationFailed, out.Errors[model.FieldGeneral])
}

func TestSubmit_NoAccountNoError_IsSilent(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{
		createFunc: func(ctx context.Context, email, password string) (*model.Account, error) {
			return nil, nil
		},
	}
	profiles := &mockProfileRepo{}
	nav := &recordingNavigator{}

	out := newWorkflow(accounts, profiles).Submit(context.Background(), validInput(), nav)

	assert.Equal(t, StateEditing, out.State)
	assert.Empty(t, out.Errors)
	assert.False(t, out.BlockingNotice)
	assert.Empty(t, profiles.inserted)
	assert.Empty(t, nav.routes)
}

func TestSubmit_ProfileFailure_AccountIsKept(t *testing.T) {
	t.Parallel()

	accounts := &mockAccountCreator{}
	profiles := &mockProfileRepo{
		insertFunc: func(ctx context.Context, profile *model.UserProfile) error {
			return errors.New("insert failed")
		},
	}
	nav := &recordingNavigator{}

	out := newWorkflow(accounts, profiles).Submit(context.Background(), validInput(), nav)

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, model.MsgProfileInsert, out.Errors[model.FieldGeneral])
	assert.False(t, out.BlockingNotice)
	assert.Equal(t, "account:new", out.AccountID)
	assert.Empty(t, out.Route)
	assert.Empty(t, nav.routes)
	assert.Equal(t, 1, accounts.calls)
	assert.Len(t, profiles.inserted, 1)
}

func TestSubmit_RecordsMetrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics()
	w := NewRegistrationWorkflow(RegistrationWorkflowConfig{
		Accounts: &mockAccountCreator{},
		Profiles: &mockProfileRepo{},
		Metrics:  metrics,
	})

	w.Submit(context.Background(), validInput(), nil)
	w.Submit(context.Background(), model.RegistrationInput{}, nil)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "dalgona_registrations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			outcomes[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"complete": 1, "editing_with_errors": 1}, outcomes)
}

// The workflow running against the real identity service, with storage mocked
func TestSubmit_WithIdentityService_DuplicateSecondTime(t *testing.T) {
	t.Parallel()

	var stored *model.Account
	accountRepo := &mockAccountRepo{
		getByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			if stored != nil && stored.Email == email {
				return stored, nil
			}
			return nil, nil
		},
		createFunc: func(ctx context.Context, account *model.Account) error {
			account.ID = "account:first"
			stored = account
			return nil
		},
	}
	identity := NewIdentityService(IdentityServiceConfig{
		AccountRepo: accountRepo,
		ProfileRepo: &mockProfileRepo{},
		BcryptCost:  bcrypt.MinCost,
	})
	w := newWorkflow(identity, &mockProfileRepo{})

	first := w.Submit(context.Background(), validInput(), nil)
	require.Equal(t, StateComplete, first.State)
	assert.Equal(t, "account:first", first.AccountID)

	second := w.Submit(context.Background(), validInput(), nil)
	assert.Equal(t, StateFailed, second.State)
	assert.True(t, second.BlockingNotice)
	assert.Equal(t, model.MsgEmailAlreadyInUse, second.Errors[model.FieldGeneral])
}
