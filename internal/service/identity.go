package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/observability"
)

const (
	// DefaultBcryptCost is used when IdentityServiceConfig.BcryptCost is zero
	DefaultBcryptCost = 12

	minAccountPasswordLength = 8
	maxAccountPasswordLength = 72 // bcrypt input limit in bytes
)

// IdentityErrorKind classifies identity failures
type IdentityErrorKind string

const (
	IdentityDuplicate   IdentityErrorKind = "duplicate"
	IdentityInvalid     IdentityErrorKind = "invalid"
	IdentityUnavailable IdentityErrorKind = "unavailable"
)

// Identity failure messages
const (
	MsgUserAlreadyRegistered = "User already registered"
	MsgInvalidEmailFormat    = "Unable to validate email address: invalid format"
	MsgPasswordTooShort      = "Password should be at least 8 characters"
	MsgPasswordTooLong       = "Password cannot be longer than 72 characters"
	MsgIdentityUnavailable   = "Identity service is temporarily unavailable"
)

// IdentityError is returned by CreateAccount for every failure
type IdentityError struct {
	Kind    IdentityErrorKind
	Message string
	Err     error // underlying cause, if any
}

func (e *IdentityError) Error() string {
	return e.Message
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether the email was already registered
func (e *IdentityError) IsDuplicate() bool {
	return e.Kind == IdentityDuplicate
}

// AccountRepository defines the interface for account storage
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Withdraw(ctx context.Context, accountID string) error
}

// ProfileRepository defines the interface for the users collection
type ProfileRepository interface {
	Insert(ctx context.Context, profile *model.UserProfile) error
	GetByAccountID(ctx context.Context, accountID string) (*model.UserProfile, error)
}

// Session is the result of a successful sign-in or refresh
type Session struct {
	Account *model.Account
	Profile *model.UserProfile // nil if the profile row is missing
	Tokens  *TokenPair
}

// IdentityService owns accounts, passwords and sessions
type IdentityService struct {
	accountRepo  AccountRepository
	profileRepo  ProfileRepository
	tokenService *TokenService
	bcryptCost   int
	metrics      *observability.Metrics
}

// IdentityServiceConfig holds configuration for the identity service
type IdentityServiceConfig struct {
	AccountRepo  AccountRepository
	ProfileRepo  ProfileRepository
	TokenService *TokenService
	BcryptCost   int
	Metrics      *observability.Metrics // optional
}

// NewIdentityService creates a new identity service
func NewIdentityService(cfg IdentityServiceConfig) *IdentityService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &IdentityService{
		accountRepo:  cfg.AccountRepo,
		profileRepo:  cfg.ProfileRepo,
		tokenService: cfg.TokenService,
		bcryptCost:   cfg.BcryptCost,
		metrics:      cfg.Metrics,
	}
}

// CreateAccount registers a new email/password account.
// Every failure is an *IdentityError.
func (s *IdentityService) CreateAccount(ctx context.Context, email, password string) (account *model.Account, err error) {
	ctx, span := tracer.Start(ctx, "identity.create_account")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)

	if !model.IsValidEmail(email) {
		return nil, &IdentityError{Kind: IdentityInvalid, Message: MsgInvalidEmailFormat}
	}
	if len(password) < minAccountPasswordLength {
		return nil, &IdentityError{Kind: IdentityInvalid, Message: MsgPasswordTooShort}
	}
	if len(password) > maxAccountPasswordLength {
		return nil, &IdentityError{Kind: IdentityInvalid, Message: MsgPasswordTooLong}
	}

	existing, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, unavailable(err)
	}
	if existing != nil {
		return nil, &IdentityError{Kind: IdentityDuplicate, Message: MsgUserAlreadyRegistered}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, unavailable(err)
	}
	hashStr := string(hash)

	account = &model.Account{Email: email, Hash: &hashStr}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		// Lost a race with a concurrent sign-up for the same email
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &IdentityError{Kind: IdentityDuplicate, Message: MsgUserAlreadyRegistered, Err: err}
		}
		return nil, unavailable(err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	slog.InfoContext(ctx, "account created", slog.String("account_id", account.ID))
	return account, nil
}

// SignIn checks the password and starts a session
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (session *Session, err error) {
	ctx, span := tracer.Start(ctx, "identity.sign_in")
	defer func() {
		s.metrics.RecordSignIn(signInResult(err))
		endSpan(span, err)
	}()

	account, err := s.accountRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account == nil || account.Hash == nil || *account.Hash == "" {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(*account.Hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, account)
}

// Refresh rotates a refresh token into a new session
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (session *Session, err error) {
	ctx, span := tracer.Start(ctx, "identity.refresh")
	defer func() { endSpan(span, err) }()

	accountID, err := s.tokenService.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidRefreshToken
	}

	return s.startSession(ctx, account)
}

// SignOut revokes every refresh token of the account
func (s *IdentityService) SignOut(ctx context.Context, accountID string) error {
	if err := s.tokenService.RevokeAllUserTokens(ctx, accountID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	slog.InfoContext(ctx, "signed out", slog.String("account_id", accountID))
	return nil
}

// Me returns the account and its profile row
func (s *IdentityService) Me(ctx context.Context, accountID string) (*model.AccountWithProfile, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	profile, err := s.profileRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &model.AccountWithProfile{Account: account, Profile: profile}, nil
}

// Withdraw deletes the account together with its profile, diaries and tokens
func (s *IdentityService) Withdraw(ctx context.Context, accountID string) (err error) {
	ctx, span := tracer.Start(ctx, "identity.withdraw")
	defer func() { endSpan(span, err) }()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := s.accountRepo.Withdraw(ctx, accountID); err != nil {
		return fmt.Errorf("withdraw account: %w", err)
	}

	slog.InfoContext(ctx, "account withdrawn", slog.String("account_id", accountID))
	return nil
}

func (s *IdentityService) startSession(ctx context.Context, account *model.Account) (*Session, error) {
	profile, err := s.profileRepo.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	nickname := ""
	if profile != nil {
		nickname = profile.Nickname
	}

	tokens, err := s.tokenService.GenerateTokenPair(ctx, account, nickname)
	if err != nil {
		return nil, err
	}

	return &Session{Account: account, Profile: profile, Tokens: tokens}, nil
}

func unavailable(err error) *IdentityError {
	return &IdentityError{Kind: IdentityUnavailable, Message: MsgIdentityUnavailable, Err: err}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func signInResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
