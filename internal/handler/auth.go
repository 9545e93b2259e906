package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/service"
)

// Registrar runs a sign-up submission
type Registrar interface {
	Submit(ctx context.Context, input model.RegistrationInput, nav service.Navigator) service.RegistrationOutcome
}

// IdentityProvider is the session side of the identity service
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
	SignOut(ctx context.Context, accountID string) error
	Me(ctx context.Context, accountID string) (*model.AccountWithProfile, error)
	Withdraw(ctx context.Context, accountID string) error
}

// AuthHandler handles sign-up and session endpoints
type AuthHandler struct {
	registration Registrar
	identity     IdentityProvider
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(registration Registrar, identity IdentityProvider) *AuthHandler {
	return &AuthHandler{registration: registration, identity: identity}
}

// SignInRequest represents the sign-in endpoint request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the refresh endpoint request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUpResponse is the body of a sign-up that did not fail
type SignUpResponse struct {
	State     service.RegistrationState `json:"state"`
	AccountID string                    `json:"account_id,omitempty"`
}

// TokenResponse represents a token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccountResponse represents the signed-in account in API responses
type AccountResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Nickname  *string `json:"nickname,omitempty"`
	Name      *string `json:"name,omitempty"`
	CreatedOn string  `json:"created_on"`
}

// linkNavigator turns the workflow's navigation into a response link
type linkNavigator struct {
	links map[string]string
}

func (n *linkNavigator) GoTo(route string) {
	n.links["next"] = route
}

// SignUp handles POST /v1/auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input model.RegistrationInput
	if err := DecodeJSON(r, &input); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	nav := &linkNavigator{links: map[string]string{}}
	out := h.registration.Submit(r.Context(), input, nav)

	switch out.State {
	case service.StateComplete:
		nav.links["self"] = "/v1/auth/me"
		WriteData(w, http.StatusCreated, SignUpResponse{State: out.State, AccountID: out.AccountID}, nav.links)

	case service.StateEditingWithErrors:
		WriteError(w, model.NewValidationError(out.Errors.List()))

	case service.StateFailed:
		WriteError(w, signUpFailure(out))

	default:
		// The identity service reported neither an account nor an error
		slog.WarnContext(r.Context(), "sign-up finished without a result", slog.String("state", string(out.State)))
		WriteData(w, http.StatusAccepted, SignUpResponse{State: out.State}, nil)
	}
}

func signUpFailure(out service.RegistrationOutcome) *model.ProblemDetails {
	general := out.Errors[model.FieldGeneral]

	var p *model.ProblemDetails
	switch {
	case out.BlockingNotice:
		p = model.NewAlreadyExistsError(general)
		p.BlockingNotice = true
	case out.AccountID != "":
		// Account exists but its profile row could not be written
		p = model.NewDatabaseError(general)
	default:
		p = model.NewBadRequestError(general)
	}
	return p.WithErrors(out.Errors.List())
}

// SignIn handles POST /v1/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	session, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	writeSession(w, session)
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	if req.RefreshToken == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "refresh_token", Message: "refresh_token is required"},
		}))
		return
	}

	session, err := h.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	writeSession(w, session)
}

// SignOut handles POST /v1/auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.identity.SignOut(r.Context(), accountID); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "sign out"))
		return
	}

	WriteNoContent(w)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireUser(w, r)
	if !ok {
		return
	}

	me, err := h.identity.Me(r.Context(), accountID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, toAccountResponse(me.Account, me.Profile), map[string]string{
		"self":     "/v1/auth/me",
		"diaries":  "/v1/diaries",
		"emotions": "/v1/mypage/emotions",
	})
}

// Withdraw handles DELETE /v1/auth/me
func (h *AuthHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.identity.Withdraw(r.Context(), accountID); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "withdraw"))
		return
	}

	WriteNoContent(w)
}

func writeSession(w http.ResponseWriter, session *service.Session) {
	response := struct {
		Account AccountResponse `json:"account"`
		Token   TokenResponse   `json:"token"`
	}{
		Account: toAccountResponse(session.Account, session.Profile),
		Token:   toTokenResponse(session.Tokens),
	}

	WriteData(w, http.StatusOK, response, map[string]string{
		"self": "/v1/auth/me",
	})
}

func toAccountResponse(account *model.Account, profile *model.UserProfile) AccountResponse {
	resp := AccountResponse{
		ID:        account.ID,
		Email:     account.Email,
		CreatedOn: account.CreatedOn.Format(time.RFC3339),
	}
	if profile != nil {
		resp.Nickname = &profile.Nickname
		resp.Name = &profile.Name
	}
	return resp
}

func toTokenResponse(tokenPair *service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
	}
}
