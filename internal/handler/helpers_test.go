package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dalgona/diary/internal/middleware"
	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/service"
)

// ============================================================================
// Mocks
// ============================================================================

type mockRegistrar struct {
	submitFunc func(ctx context.Context, input model.RegistrationInput, nav service.Navigator) service.RegistrationOutcome
}

func (m *mockRegistrar) Submit(ctx context.Context, input model.RegistrationInput, nav service.Navigator) service.RegistrationOutcome {
	return m.submitFunc(ctx, input, nav)
}

type mockIdentity struct {
	signInFunc   func(ctx context.Context, email, password string) (*service.Session, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (*service.Session, error)
	signOutFunc  func(ctx context.Context, accountID string) error
	meFunc       func(ctx context.Context, accountID string) (*model.AccountWithProfile, error)
	withdrawFunc func(ctx context.Context, accountID string) error
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	return m.signInFunc(ctx, email, password)
}

func (m *mockIdentity) Refresh(ctx context.Context, refreshToken string) (*service.Session, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockIdentity) SignOut(ctx context.Context, accountID string) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx, accountID)
	}
	return nil
}

func (m *mockIdentity) Me(ctx context.Context, accountID string) (*model.AccountWithProfile, error) {
	return m.meFunc(ctx, accountID)
}

func (m *mockIdentity) Withdraw(ctx context.Context, accountID string) error {
	if m.withdrawFunc != nil {
		return m.withdrawFunc(ctx, accountID)
	}
	return nil
}

// ============================================================================
// Test Helpers
// ============================================================================

func makeJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUserContext(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func parseErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) *model.ProblemDetails {
	t.Helper()
	var problem model.ProblemDetails
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem), "body: %s", rr.Body.String())
	return &problem
}

type dataEnvelope struct {
	Data  json.RawMessage   `json:"data"`
	Links map[string]string `json:"_links"`
}

func parseDataResponse(t *testing.T, rr *httptest.ResponseRecorder, into interface{}) map[string]string {
	t.Helper()
	var env dataEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env.Links
}
