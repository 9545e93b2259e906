package repository

import (
	"context"
	"fmt"

	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/model"
)

// AccountRepository handles identity records
type AccountRepository struct {
	db database.Database
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db database.Database) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. A taken email yields database.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		CREATE account CONTENT {
			email: $email,
			hash: $hash,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"email": account.Email,
		"hash":  ptrToNone(account.Hash),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: email already exists", database.ErrDuplicate)
		}
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	account.ID = created.ID
	account.CreatedOn = created.CreatedOn
	account.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an account by ID, or nil if none exists
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	return r.getOne(ctx, query, vars)
}

// GetByEmail retrieves an account by email, or nil if none exists
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT * FROM account WHERE email = $email LIMIT 1`
	vars := map[string]interface{}{"email": email}

	return r.getOne(ctx, query, vars)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Account, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return nil, notFoundAsNil(err)
	}

	account, err := parseAccountResult(result)
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return account, nil
}

// Withdraw removes an account together with its profile, diaries and
// refresh tokens in one transaction
func (r *AccountRepository) Withdraw(ctx context.Context, accountID string) error {
	vars := map[string]interface{}{"id": accountID}

	err := database.NewAtomicBatch().
		Add(`DELETE diary WHERE user_id = $id`, vars).
		Add(`DELETE users WHERE account = type::record($id)`, vars).
		Add(`DELETE refresh_token WHERE user = type::record($id)`, vars).
		Add(`DELETE type::record($id)`, vars).
		Execute(ctx, r.db)
	if err != nil {
		return fmt.Errorf("withdrawing account: %w", err)
	}
	return nil
}

func parseAccountResult(result interface{}) (*model.Account, error) {
	data, err := recordMap(result)
	if err != nil {
		return nil, err
	}

	return &model.Account{
		ID:        convertSurrealID(data["id"]),
		Email:     getString(data, "email"),
		Hash:      getStringPtr(data, "hash"),
		CreatedOn: parseTime(data["created_on"]),
		UpdatedOn: parseTime(data["updated_on"]),
	}, nil
}
