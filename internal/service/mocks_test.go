package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/pkg/jwt"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockTokenRepo struct {
	createRefreshTokenFunc    func(ctx context.Context, token *RefreshToken) error
	getRefreshTokenByHashFunc func(ctx context.Context, hash string) (*RefreshToken, error)
	revokeRefreshTokenFunc    func(ctx context.Context, hash string) (bool, error)
	revokeAllUserTokensFunc   func(ctx context.Context, userID string) error
	deleteExpiredTokensFunc   func(ctx context.Context) error
}

func (m *mockTokenRepo) CreateRefreshToken(ctx context.Context, token *RefreshToken) error {
	if m.createRefreshTokenFunc != nil {
		return m.createRefreshTokenFunc(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	if m.getRefreshTokenByHashFunc != nil {
		return m.getRefreshTokenByHashFunc(ctx, hash)
	}
	return nil, nil
}

func (m *mockTokenRepo) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	if m.revokeRefreshTokenFunc != nil {
		return m.revokeRefreshTokenFunc(ctx, hash)
	}
	return true, nil
}

func (m *mockTokenRepo) RevokeAllUserTokens(ctx context.Context, userID string) error {
	if m.revokeAllUserTokensFunc != nil {
		return m.revokeAllUserTokensFunc(ctx, userID)
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpiredTokens(ctx context.Context) error {
	if m.deleteExpiredTokensFunc != nil {
		return m.deleteExpiredTokensFunc(ctx)
	}
	return nil
}

type mockAccountRepo struct {
	createFunc     func(ctx context.Context, account *model.Account) error
	getByIDFunc    func(ctx context.Context, id string) (*model.Account, error)
	getByEmailFunc func(ctx context.Context, email string) (*model.Account, error)
	withdrawFunc   func(ctx context.Context, accountID string) error
}

func (m *mockAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	account.ID = "account:new"
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockAccountRepo) Withdraw(ctx context.Context, accountID string) error {
	if m.withdrawFunc != nil {
		return m.withdrawFunc(ctx, accountID)
	}
	return nil
}

type mockProfileRepo struct {
	mu                 sync.Mutex
	inserted           []*model.UserProfile
	insertFunc         func(ctx context.Context, profile *model.UserProfile) error
	getByAccountIDFunc func(ctx context.Context, accountID string) (*model.UserProfile, error)
}

func (m *mockProfileRepo) Insert(ctx context.Context, profile *model.UserProfile) error {
	m.mu.Lock()
	m.inserted = append(m.inserted, profile)
	m.mu.Unlock()
	if m.insertFunc != nil {
		return m.insertFunc(ctx, profile)
	}
	return nil
}

func (m *mockProfileRepo) GetByAccountID(ctx context.Context, accountID string) (*model.UserProfile, error) {
	if m.getByAccountIDFunc != nil {
		return m.getByAccountIDFunc(ctx, accountID)
	}
	return nil, nil
}

type mockAccountCreator struct {
	calls      int
	createFunc func(ctx context.Context, email, password string) (*model.Account, error)
}

func (m *mockAccountCreator) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	m.calls++
	if m.createFunc != nil {
		return m.createFunc(ctx, email, password)
	}
	return &model.Account{ID: "account:new", Email: email}, nil
}

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) GoTo(route string) {
	n.routes = append(n.routes, route)
}

type mockEmotionSource struct {
	emotions []string
	err      error
	gotUser  string
	gotRange model.Period
}

func (m *mockEmotionSource) SelectEmotions(ctx context.Context, userID string, period model.Period) ([]string, error) {
	m.gotUser = userID
	m.gotRange = period
	return m.emotions, m.err
}

type mockDiaryRepo struct {
	createFunc       func(ctx context.Context, diary *model.Diary) error
	getByIDFunc      func(ctx context.Context, id string) (*model.Diary, error)
	updateFunc       func(ctx context.Context, id string, req *model.UpdateDiaryRequest) (*model.Diary, error)
	deleteFunc       func(ctx context.Context, id string) error
	listByPeriodFunc func(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error)
}

func (m *mockDiaryRepo) Create(ctx context.Context, diary *model.Diary) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, diary)
	}
	diary.ID = "diary:new"
	return nil
}

func (m *mockDiaryRepo) GetByID(ctx context.Context, id string) (*model.Diary, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDiaryRepo) Update(ctx context.Context, id string, req *model.UpdateDiaryRequest) (*model.Diary, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, req)
	}
	return nil, nil
}

func (m *mockDiaryRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockDiaryRepo) ListByPeriod(ctx context.Context, userID string, period model.Period) ([]*model.Diary, error) {
	if m.listByPeriodFunc != nil {
		return m.listByPeriodFunc(ctx, userID, period)
	}
	return nil, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func createTestJWTService(t *testing.T) *jwt.Service {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return jwt.NewTestService(privateKey, "test-issuer", time.Hour)
}
