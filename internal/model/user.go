package model

import "time"

// Account is an identity record created at sign-up
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Hash      *string   `json:"-"` // Never expose password hash
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// UserProfile is the row stored in the users collection for an account
type UserProfile struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Name      string    `json:"name"`
	CreatedOn time.Time `json:"created_on"`
}

// AccountWithProfile pairs an account with its profile row, which may be
// missing if profile creation failed after sign-up
type AccountWithProfile struct {
	Account *Account
	Profile *UserProfile
}
