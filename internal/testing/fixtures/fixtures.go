// Package fixtures provides test data factories for integration tests.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option functions. Factories insert through the
// repositories and return fully populated models.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	account := f.CreateAccount(t)
//	f.CreateProfile(t, account)
//	f.CreateDiary(t, account, fixtures.WithEmotion(model.EmotionHappy))
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
	"github.com/dalgona/diary/internal/repository"
)

// DefaultPassword is the plaintext password of every fixture account
const DefaultPassword = "Abc12345!"

// Factory creates test entities in the database
type Factory struct {
	accounts *repository.AccountRepository
	profiles *repository.ProfileRepository
	diaries  *repository.DiaryRepository
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{
		accounts: repository.NewAccountRepository(db),
		profiles: repository.NewProfileRepository(db),
		diaries:  repository.NewDiaryRepository(db),
	}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func testCtx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Account Fixtures
// ============================================================================

// CreateAccount creates an account with a random email and DefaultPassword
func (f *Factory) CreateAccount(t *testing.T) *model.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: hashing password: %v", err)
	}
	h := string(hash)

	account := &model.Account{
		Email: "user_" + randomID() + "@example.com",
		Hash:  &h,
	}
	if err := f.accounts.Create(testCtx(t), account); err != nil {
		t.Fatalf("fixtures: creating account: %v", err)
	}
	return account
}

// CreateProfile writes the users row for an account
func (f *Factory) CreateProfile(t *testing.T, account *model.Account) *model.UserProfile {
	t.Helper()

	profile := &model.UserProfile{
		AccountID: account.ID,
		Email:     account.Email,
		Nickname:  "nick_" + randomID()[:4],
	}
	if err := f.profiles.Insert(testCtx(t), profile); err != nil {
		t.Fatalf("fixtures: creating profile: %v", err)
	}
	return profile
}

// ============================================================================
// Diary Fixtures
// ============================================================================

// DiaryOpts customizes diary creation
type DiaryOpts struct {
	Title   string
	Date    time.Time
	Emotion model.Emotion
}

// WithEmotion sets the diary emotion label
func WithEmotion(e model.Emotion) func(*DiaryOpts) {
	return func(o *DiaryOpts) { o.Emotion = e }
}

// WithDate sets the diary date
func WithDate(d time.Time) func(*DiaryOpts) {
	return func(o *DiaryOpts) { o.Date = d }
}

// CreateDiary creates a diary entry owned by account
func (f *Factory) CreateDiary(t *testing.T, account *model.Account, opts ...func(*DiaryOpts)) *model.Diary {
	t.Helper()

	o := DiaryOpts{
		Title:   "diary " + randomID()[:4],
		Date:    time.Now().UTC().Truncate(24 * time.Hour),
		Emotion: model.EmotionHappy,
	}
	for _, opt := range opts {
		opt(&o)
	}

	diary := &model.Diary{
		UserID:  account.ID,
		Title:   o.Title,
		Date:    o.Date,
		Emotion: o.Emotion,
	}
	if err := f.diaries.Create(testCtx(t), diary); err != nil {
		t.Fatalf("fixtures: creating diary: %v", err)
	}
	return diary
}
