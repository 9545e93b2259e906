package repository

import (
	"context"
	"fmt"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
)

// ProfileRepository handles rows in the users collection
type ProfileRepository struct {
	db database.Database
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Insert writes the profile row for an account. Exactly one statement is sent.
func (r *ProfileRepository) Insert(ctx context.Context, profile *model.UserProfile) error {
	query := `
		CREATE users CONTENT {
			account: type::record($account),
			email: $email,
			nickname: $nickname,
			name: $name,
			created_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"account":  profile.AccountID,
		"email":    profile.Email,
		"nickname": profile.Nickname,
		"name":     profile.Name,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: profile already exists", database.ErrDuplicate)
		}
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	profile.ID = created.ID
	profile.CreatedOn = created.CreatedOn
	return nil
}

// GetByAccountID returns the profile of an account, or nil if it was never written
func (r *ProfileRepository) GetByAccountID(ctx context.Context, accountID string) (*model.UserProfile, error) {
	query := `SELECT * FROM users WHERE account = type::record($account) LIMIT 1`
	vars := map[string]interface{}{"account": accountID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return nil, notFoundAsNil(err)
	}

	data, err := recordMap(result)
	if err != nil {
		return nil, notFoundAsNil(err)
	}

	return &model.UserProfile{
		ID:        convertSurrealID(data["id"]),
		AccountID: convertSurrealID(data["account"]),
		Email:     getString(data, "email"),
		Nickname:  getString(data, "nickname"),
		Name:      getString(data, "name"),
		CreatedOn: parseTime(data["created_on"]),
	}, nil
}
